// Package main is the entry point for the ondas API server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ohmyondas/ondas/pkg/api"
	"github.com/ohmyondas/ondas/pkg/config"
	"github.com/ohmyondas/ondas/pkg/converter"
	"github.com/ohmyondas/ondas/pkg/player"
	"github.com/ohmyondas/ondas/pkg/sequencer"
	"github.com/ohmyondas/ondas/pkg/store"
)

func main() {
	defaults := config.DefaultConfig()
	port := flag.Int("port", defaults.Server.Port, "Server port")
	dir := flag.String("patterns", defaults.PatternsDir, "Pattern directory")
	tempo := flag.Float64("tempo", defaults.Tempo, "Tempo in BPM")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	e := sequencer.New(nil,
		sequencer.WithStore(store.NewFileStore(*dir, log)),
		sequencer.WithTempo(*tempo),
		sequencer.WithLogger(log),
	)
	p := player.New(e, player.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go p.Run(ctx)

	conv := converter.New(converter.NewMIDIConverter(converter.WithLogger(log)), *tempo, defaults.Export.Loops)

	fmt.Printf("Starting ondas API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port, p, conv); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
