package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/rummyd/internal/server"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"rummyd.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Games    int    `short:"g" long:"games" help:"Number of games to pre-create"`
	Bots     int    `short:"b" long:"bots" help:"Number of bots to seat in each pre-created game"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("starting rummyd",
		"addr", cfg.GetServerAddress(),
		"maxPlayers", cfg.Game.MaxPlayers,
		"turnSeconds", cfg.Game.TurnSeconds)

	wsServer := server.NewServer(cfg.GetServerAddress(), logger)
	gameService := server.NewGameService(cfg, logger, quartz.NewReal(), wsServer)
	wsServer.SetGameService(gameService)

	// Pre-create games so clients can join without a lobby round-trip.
	for i := 0; i < CLI.Games; i++ {
		gameID := gameService.CreateGame(cfg.Game.MaxPlayers)
		logger.Info("pre-created game", "game", gameID)

		if CLI.Bots > 0 {
			if err := gameService.AddBots(gameID, CLI.Bots); err != nil {
				logger.Error("failed to seat bots", "error", err, "game", gameID)
			}
		}
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("shutting down server...")
		_ = wsServer.Stop()
		os.Exit(0)
	}()

	if err := wsServer.Start(); err != nil {
		logger.Error("server failed", "error", err)
		ctx.Exit(1)
	}
}
