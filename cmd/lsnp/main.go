package main

import (
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// envConfig is read first; flags override it.
type envConfig struct {
	Name    string `env:"LSNP_NAME"`
	Bio     string `env:"LSNP_BIO"`
	Status  string `env:"LSNP_STATUS"`
	Port    int    `env:"LSNP_PORT"`
	Verbose bool   `env:"LSNP_VERBOSE"`
}

func main() {
	cfg := envConfig{Port: protocol.DefaultPort}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "lsnp",
		Short: "Local Social Networking Protocol node",
		Long: `lsnp runs an LSNP node on the local network segment: it announces
presence over UDP broadcast, exchanges posts and direct messages with
peers, and plays tic-tac-toe over unicast datagrams.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.Name, "name", "n", cfg.Name, "display name (required, becomes <name>@<ip>)")
	flags.StringVar(&cfg.Bio, "bio", cfg.Bio, "one-line profile bio")
	flags.StringVar(&cfg.Status, "status", cfg.Status, "profile status text")
	flags.IntVarP(&cfg.Port, "port", "p", cfg.Port, "UDP port to listen on")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log protocol traffic to stderr")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════╗")
	fmt.Println("║               LSNP Node v1.0                      ║")
	fmt.Println("║    Local Social Networking Protocol over UDP      ║")
	fmt.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Println()
}
