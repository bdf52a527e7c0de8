// ABOUTME: Maintenance commands for the server binary
// ABOUTME: init writes a starter config, bootstrap seeds the admin, health probes a running server

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/2389/ecg-gateway/internal/auth"
	"github.com/2389/ecg-gateway/internal/config"
	"github.com/2389/ecg-gateway/internal/gateway"
	"github.com/2389/ecg-gateway/internal/store"
)

const exampleConfig = `# ecg-gateway configuration
# Generated by ecg-gateway init

server:
  http_addr: "0.0.0.0:8000"
  grpc_addr: ""

database:
  driver: "sqlite"
  path: "%s"

auth:
  secret_key: "%s"
  algorithm: "HS256"
  token_ttl: "5m"
  bcrypt_cost: 10
  admin_username: "admin"
  admin_password: "${ADMIN_PASSWORD}"

logging:
  level: "info"
  format: "text"

tailscale:
  enabled: false
  hostname: "ecg-gateway"
  auth_key: "${TS_AUTHKEY}"
`

// generateSecret returns 32 random bytes, base64 encoded.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// writeExampleConfig writes a starter config to path. Existing files are
// only replaced when force is set.
func writeExampleConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	dbPath := filepath.Join(filepath.Dir(path), "ecg.db")
	content := fmt.Sprintf(exampleConfig, dbPath, secret)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func runInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := writeExampleConfig(path, cmd.Bool("force")); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Printf("  ✓ Created config: %s\n", path)
	fmt.Println()
	yellow.Println("  Next steps:")
	fmt.Println("    export ADMIN_PASSWORD=...            # admin password used on first start")
	fmt.Printf("    ecg-gateway -c %s serve\n", path)
	fmt.Println()
	return nil
}

func runBootstrap(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	s, err := store.OpenSQLiteStore(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	created, err := auth.Bootstrap(ctx, s, hasher, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}

	if !created {
		cyan.Println("  Admin already present, nothing to do")
		return nil
	}

	logger.Info("created admin principal", "username", cfg.Auth.AdminUsername)
	green.Printf("  ✓ Created admin principal: %s\n", cfg.Auth.AdminUsername)
	return nil
}

// dialAddr turns a listen address into one a local client can reach.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func runHealth(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if cmd.Bool("grpc") {
		err = checkGRPCHealth(ctx, cfg)
	} else {
		err = checkHTTPHealth(ctx, cfg)
	}
	if err != nil {
		return err
	}

	fmt.Println("healthy")
	return nil
}

func checkHTTPHealth(ctx context.Context, cfg *config.Config) error {
	url := fmt.Sprintf("http://%s/health", dialAddr(cfg.Server.HTTPAddr))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func checkGRPCHealth(ctx context.Context, cfg *config.Config) error {
	if cfg.Server.GRPCAddr == "" {
		return errors.New("server.grpc_addr is not configured")
	}

	conn, err := grpc.NewClient(dialAddr(cfg.Server.GRPCAddr), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: gateway.HealthServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("unhealthy: %s", resp.GetStatus())
	}
	return nil
}
