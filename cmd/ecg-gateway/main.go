// ABOUTME: Entry point for the ecg-gateway server
// ABOUTME: Defines the serve, init, bootstrap and health commands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/2389/ecg-gateway/internal/config"
	"github.com/2389/ecg-gateway/internal/gateway"
)

// Version is set at build time.
var version = "dev"

const banner = `
                                     _
  ___  ___ __ _        __ _  __ _| |_ _____      ____ _ _   _
 / _ \/ __/ _' |_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
|  __/ (_| (_| |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 \___|\___\__, |      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
          |___/       |___/                             |___/
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "ecg-gateway",
		Usage:   "Authenticated ECG recording service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (YAML, or TOML with a .toml extension)",
				Sources: cli.EnvVars("ECG_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the gateway server",
				Action: runServe,
			},
			{
				Name:  "init",
				Usage: "Write an example config file with a random secret",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the config",
						Value:   "ecg-gateway.yaml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: runInit,
			},
			{
				Name:   "bootstrap",
				Usage:  "Ensure the admin principal exists without starting the server",
				Action: runBootstrap,
			},
			{
				Name:  "health",
				Usage: "Check gateway health",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "grpc",
						Usage: "Query the grpc.health.v1 service instead of GET /health",
					},
				},
				Action: runHealth,
			},
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	if configPath == "" {
		configPath = "(defaults + environment)"
	}
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s (%s)\n", cfg.Database.Path, cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	if cfg.Server.GRPCAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:      %s (health)\n", cfg.Server.GRPCAddr)
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	if cfg.UsesDefaultSecret() {
		yellow.Println("    ! using the default secret_key; set SECRET_KEY in production")
	}

	fmt.Println()

	logger.Info("starting ecg-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}
