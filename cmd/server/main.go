package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/avelar/parley/internal/config"
	"github.com/avelar/parley/internal/coordinator"
	"github.com/avelar/parley/internal/logging"
	"github.com/avelar/parley/internal/monitor"
	"github.com/avelar/parley/internal/server"
)

func main() {
	logging.New()

	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The monitor bridge is the operator's event sink; the console subscriber
	// renders its log lines and room-list updates through slog.
	bridge := monitor.NewBridge()
	defer bridge.Close()
	if err := monitor.AttachConsole(ctx, bridge); err != nil {
		slog.Error("failed to attach operator console", "error", err)
		os.Exit(1)
	}

	coord := coordinator.New(bridge, coordinator.WithMaxRooms(cfg.MaxRooms))

	s := server.New(cfg, coord)
	slog.Info("starting chat server", "addr", cfg.Addr(), "max_rooms", cfg.MaxRooms)
	s.Run()
}
