package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lsnp-net/lsnp-node/pkg/network"
	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

func run(cfg envConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("--name is required (or set LSNP_NAME)")
	}

	printBanner()

	// Keep the console readable unless protocol traffic was asked for.
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	transport, err := network.NewUDPTransport(cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to open UDP socket: %v", err)
	}

	node, err := network.NewNode(network.Config{
		Name:   cfg.Name,
		Bio:    cfg.Bio,
		Status: cfg.Status,
		Port:   cfg.Port,
	}, transport)
	if err != nil {
		transport.Close()
		return fmt.Errorf("failed to create node: %v", err)
	}

	wireCallbacks(node)
	node.Start()

	fmt.Printf("✓ You are %s\n", node.ID())
	fmt.Printf("✓ Listening on UDP port %d\n", cfg.Port)
	fmt.Println()
	fmt.Println("Type 'help' for commands, 'exit' to quit.")
	fmt.Println()

	// The console owns stdin; Ctrl+C lands here too.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		console(node)
		close(done)
	}()

	select {
	case <-sigCh:
		fmt.Println()
	case <-done:
	}

	fmt.Println("Shutting down...")
	if err := node.Close(); err != nil {
		log.Printf("Error closing node: %v", err)
	}
	fmt.Println("Goodbye! 👋")
	return nil
}

// wireCallbacks prints inbound protocol events on the console.
func wireCallbacks(node *network.Node) {
	node.OnPeerDiscovered = func(peer network.PeerRecord) {
		name := peer.DisplayName
		if name == "" {
			name = peer.ID.Name()
		}
		fmt.Printf("\n📡 %s appeared on the network (%s)\n> ", name, peer.ID)
	}
	node.OnPostReceived = func(from protocol.UserID, content string) {
		fmt.Printf("\n📝 %s posted: %s\n> ", from.Name(), content)
	}
	node.OnDMReceived = func(from protocol.UserID, content string) {
		fmt.Printf("\n📨 %s: %s\n> ", from.Name(), content)
	}
	node.OnFollowerAdded = func(follower protocol.UserID) {
		fmt.Printf("\n➕ %s is now following you\n> ", follower.Name())
	}
	node.OnFollowerRemoved = func(follower protocol.UserID) {
		fmt.Printf("\n➖ %s unfollowed you\n> ", follower.Name())
	}
	node.OnFollowConfirmed = func(target protocol.UserID, kind network.RequestKind) {
		if kind == network.RequestFollow {
			fmt.Printf("\n✓ Now following %s\n> ", target.Name())
		} else {
			fmt.Printf("\n✓ Unfollowed %s\n> ", target.Name())
		}
	}
	node.OnRequestTimeout = func(req *network.PendingRequest) {
		fmt.Printf("\n⚠️  %s to %s timed out, no acknowledgement\n> ", req.Kind, req.Target.Name())
	}
	node.OnGameEvent = func(g network.GameSession, note string) {
		fmt.Printf("\n🎮 [%s vs %s] %s\n", g.ID, g.Opponent.Name(), note)
		if g.Status != network.GameFinished {
			fmt.Print(renderBoard(g.Board))
		}
		fmt.Print("> ")
	}
}
