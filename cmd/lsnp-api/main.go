// Package main runs a headless LSNP node with the HTTP API attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lsnp-net/lsnp-node/pkg/api"
	"github.com/lsnp-net/lsnp-node/pkg/network"
	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

func main() {
	name := flag.String("name", "", "display name (required)")
	bio := flag.String("bio", "", "one-line profile bio")
	status := flag.String("status", "", "profile status text")
	port := flag.Int("port", protocol.DefaultPort, "UDP port to listen on")
	apiPort := flag.Int("api-port", 8080, "HTTP API port")
	enableCORS := flag.Bool("cors", true, "Enable CORS headers")
	rateLimit := flag.Int("rate-limit", 100, "Rate limit (requests per minute)")

	flag.Parse()

	fmt.Println("🚀 LSNP API Server")
	fmt.Println("==================")
	fmt.Println()

	if *name == "" {
		log.Fatal("Error: -name flag is required")
	}

	fmt.Printf("📡 Starting LSNP node on UDP port %d...\n", *port)
	transport, err := network.NewUDPTransport(*port)
	if err != nil {
		log.Fatalf("Failed to open UDP socket: %v", err)
	}

	node, err := network.NewNode(network.Config{
		Name:   *name,
		Bio:    *bio,
		Status: *status,
		Port:   *port,
	}, transport)
	if err != nil {
		log.Fatalf("Failed to create node: %v", err)
	}
	node.Start()

	fmt.Println()
	fmt.Println("Node Information:")
	fmt.Printf("  ID: %s\n", node.ID())
	fmt.Printf("  UDP port: %d\n", *port)
	fmt.Println()

	fmt.Printf("🌐 Starting HTTP API server on port %d...\n", *apiPort)

	apiConfig := &api.Config{
		Port:       *apiPort,
		EnableCORS: *enableCORS,
		RateLimit:  *rateLimit,
	}

	apiServer, err := api.NewServer(node, apiConfig)
	if err != nil {
		log.Fatalf("Failed to create API server: %v", err)
	}

	apiCtx, apiCancel := context.WithCancel(context.Background())
	defer apiCancel()

	go func() {
		if err := apiServer.Start(apiCtx); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	fmt.Println()
	fmt.Println("✅ Server is ready!")
	fmt.Println()
	fmt.Println("API Endpoints:")
	fmt.Printf("  GET    http://localhost:%d/api/v1/status\n", *apiPort)
	fmt.Printf("  GET    http://localhost:%d/api/v1/peers\n", *apiPort)
	fmt.Printf("  GET    http://localhost:%d/api/v1/followers\n", *apiPort)
	fmt.Printf("  GET    http://localhost:%d/api/v1/following\n", *apiPort)
	fmt.Printf("  GET    http://localhost:%d/api/v1/posts\n", *apiPort)
	fmt.Printf("  GET    http://localhost:%d/api/v1/messages/:peer\n", *apiPort)
	fmt.Printf("  POST   http://localhost:%d/api/v1/post\n", *apiPort)
	fmt.Printf("  POST   http://localhost:%d/api/v1/dm\n", *apiPort)
	fmt.Printf("  GET    http://localhost:%d/api/v1/games\n", *apiPort)
	fmt.Printf("  GET    http://localhost:%d/health\n", *apiPort)
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh

	fmt.Println("\n🛑 Shutting down...")

	apiCancel()

	if err := node.Close(); err != nil {
		fmt.Printf("Error closing node: %v\n", err)
	}

	fmt.Println("👋 Goodbye!")
}
