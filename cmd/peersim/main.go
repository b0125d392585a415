// Command peersim runs a simulated browser peer against a local bridge.
// It executes incoming payloads in an embedded JS engine, which makes it
// possible to exercise the whole pipeline without a browser.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabpilot/bridge/internal/infrastructure/logging"
	"github.com/tabpilot/bridge/internal/peersim"
)

func main() {
	bridgeURL := flag.String("bridge", "ws://127.0.0.1:8372/ws", "Bridge WebSocket endpoint")
	pageURL := flag.String("url", "https://example.com/", "Simulated page URL")
	pageTitle := flag.String("title", "Example Domain", "Simulated page title")
	execTimeout := flag.Duration("exec-timeout", 5*time.Second, "Per-payload execution timeout")
	flag.Parse()

	logger := logging.NewDevelopment()
	defer logger.Sync()

	peer, err := peersim.New(peersim.Config{
		BridgeURL:   *bridgeURL,
		PageURL:     *pageURL,
		PageTitle:   *pageTitle,
		ExecTimeout: *execTimeout,
		Logger:      logger.Logger,
	})
	if err != nil {
		log.Fatalf("Failed to create peer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := peer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Peer error: %v", err)
	}
}
