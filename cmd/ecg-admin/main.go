// ABOUTME: Admin CLI for ecg-gateway principals and recordings
// ABOUTME: Talks to the HTTP API with a bearer token from ECG_TOKEN or the saved token file

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/ecg-gateway/internal/gateway"
)

const banner = `
                              _           _
  ___  ___ __ _        __ _  __| |_ __ ___ (_)_ __
 / _ \/ __/ _' |_____ / _' |/ _' | '_ ' _ \| | '_ \
|  __/ (_| (_| |_____| (_| | (_| | | | | | | | | | |
 \___|\___\__, |      \__,_|\__,_|_| |_| |_|_|_| |_|
          |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := newAPIClient(getEnv("ECG_GATEWAY_URL", "http://localhost:8000"), getToken())

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = cmdLogin(ctx, client, args)
	case "me":
		err = cmdMe(ctx, client)
	case "users":
		err = cmdUsers(ctx, client, args)
	case "audit":
		err = cmdAudit(ctx, client, args)
	case "ecg":
		err = cmdECG(ctx, client, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: ecg-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login <username> [password]   Get a token and save it")
	fmt.Println("  me                            Show your identity")
	fmt.Println("  users create <name> <pass>    Create a user principal (admin)")
	fmt.Println("  audit [limit]                 Show the audit log (admin)")
	fmt.Println("  ecg list                      List your recordings")
	fmt.Println("  ecg get <id>                  Show one recording")
	fmt.Println("  ecg create <file.json>        Upload a JSON array of leads ('-' reads stdin)")
	fmt.Println("  ecg insight <id>              Zero crossings per lead")
	fmt.Println("  ecg delete <id>               Delete a recording")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  ECG_GATEWAY_URL    Gateway base URL (default: http://localhost:8000)")
	fmt.Println("  ECG_TOKEN          Bearer token (falls back to the file written by login)")
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tokenPath returns ~/.config/ecg/token, honoring XDG_CONFIG_HOME.
func tokenPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "ecg", "token"), nil
}

// getToken returns the token from ECG_TOKEN or the saved token file.
func getToken() string {
	if token := os.Getenv("ECG_TOKEN"); token != "" {
		return token
	}
	path, err := tokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(token string) (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return "", fmt.Errorf("writing token file: %w", err)
	}
	return path, nil
}

func requireToken(c *apiClient) error {
	if c.token == "" {
		return errors.New("no token: run 'ecg-admin login' or set ECG_TOKEN")
	}
	return nil
}

func cmdLogin(ctx context.Context, c *apiClient, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: ecg-admin login <username> [password]")
	}
	username := args[0]

	var password string
	if len(args) > 1 {
		password = args[1]
	} else {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	token, err := c.login(ctx, username, password)
	if err != nil {
		return err
	}

	path, err := saveToken(token)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("  ✓ Logged in as %s, token saved to %s\n", username, path)
	return nil
}

func cmdMe(ctx context.Context, c *apiClient) error {
	if err := requireToken(c); err != nil {
		return err
	}

	var me gateway.UserResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/users/me", nil, &me); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	fmt.Println()
	cyan.Println("  Identity")
	cyan.Println("  --------")
	fmt.Printf("  ID:         %s\n", me.ID)
	fmt.Printf("  Username:   %s\n", me.Username)
	green.Printf("  Role:       %s\n", me.Role)
	fmt.Printf("  Created:    %s\n", formatTime(me.CreatedAt))
	fmt.Println()
	return nil
}

func cmdUsers(ctx context.Context, c *apiClient, args []string) error {
	if len(args) < 3 || args[0] != "create" {
		return errors.New("usage: ecg-admin users create <username> <password>")
	}
	if err := requireToken(c); err != nil {
		return err
	}

	var resp gateway.CreateUserResponse
	req := gateway.CreateUserRequest{Username: args[1], Password: args[2]}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/users/create", req, &resp); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("  ✓ %s: %s (%s)\n", resp.Message, args[1], resp.UserID)
	return nil
}

func cmdAudit(ctx context.Context, c *apiClient, args []string) error {
	if err := requireToken(c); err != nil {
		return err
	}

	path := "/auth/audit"
	if len(args) > 0 {
		path += "?" + url.Values{"limit": {args[0]}}.Encode()
	}

	var resp struct {
		Data []gateway.AuditEntryResponse `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Audit Log")
	cyan.Println("  ---------")

	if len(resp.Data) == 0 {
		fmt.Println("  (no entries)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TIME\tACTION\tACTOR\tTARGET")
	fmt.Fprintln(w, "  ----\t------\t-----\t------")
	for _, e := range resp.Data {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s:%s\n",
			formatTime(e.Timestamp), e.Action, truncate(e.ActorID, 12), e.TargetType, truncate(e.TargetID, 12))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdECG(ctx context.Context, c *apiClient, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: ecg-admin ecg <list|get|create|insight|delete> [args]")
	}
	if err := requireToken(c); err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	if sub != "list" && len(rest) < 1 {
		return fmt.Errorf("usage: ecg-admin ecg %s <arg>", sub)
	}

	switch sub {
	case "list":
		return cmdECGList(ctx, c)
	case "get":
		var resp struct {
			Data gateway.RecordingResponse `json:"data"`
		}
		if err := c.doJSON(ctx, http.MethodGet, "/ecg/get/"+url.PathEscape(rest[0]), nil, &resp); err != nil {
			return err
		}
		printRecording(resp.Data)
		return nil
	case "create":
		return cmdECGCreate(ctx, c, rest[0])
	case "insight":
		var resp struct {
			Data struct {
				ZeroCrossings map[string]int `json:"zero_crossings"`
			} `json:"data"`
		}
		if err := c.doJSON(ctx, http.MethodGet, "/ecg/get_insight/"+url.PathEscape(rest[0]), nil, &resp); err != nil {
			return err
		}
		printInsight(resp.Data.ZeroCrossings)
		return nil
	case "delete":
		if err := c.doJSON(ctx, http.MethodDelete, "/ecg/delete/"+url.PathEscape(rest[0]), nil, nil); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("  ✓ Deleted %s\n", rest[0])
		return nil
	default:
		return fmt.Errorf("unknown ecg command: %s", sub)
	}
}

func cmdECGList(ctx context.Context, c *apiClient) error {
	var resp struct {
		Data []gateway.RecordingResponse `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/ecg/get_all", nil, &resp); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Recordings")
	cyan.Println("  ----------")

	if len(resp.Data) == 0 {
		fmt.Println("  (no recordings)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tDATE\tLEADS")
	fmt.Fprintln(w, "  --\t----\t-----")
	for _, rec := range resp.Data {
		ids := make([]string, len(rec.Leads))
		for i, l := range rec.Leads {
			ids[i] = l.Identifier
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", rec.ID, formatTime(rec.Date), strings.Join(ids, ","))
	}
	w.Flush()
	fmt.Println()
	return nil
}

// readLeads loads a JSON array of leads from path, or stdin for "-".
func readLeads(path string) ([]gateway.LeadRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading leads: %w", err)
	}

	var leads []gateway.LeadRequest
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("parsing leads: %w", err)
	}
	return leads, nil
}

func cmdECGCreate(ctx context.Context, c *apiClient, path string) error {
	leads, err := readLeads(path)
	if err != nil {
		return err
	}

	var resp struct {
		Data gateway.RecordingResponse `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/ecg/create", leads, &resp); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("  ✓ Created recording %s\n", resp.Data.ID)
	printRecording(resp.Data)
	return nil
}

func printRecording(rec gateway.RecordingResponse) {
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  Recording %s\n", rec.ID)
	fmt.Printf("  Date:   %s\n", formatTime(rec.Date))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  LEAD\tSAMPLES\tSIGNAL")
	fmt.Fprintln(w, "  ----\t-------\t------")
	for _, l := range rec.Leads {
		fmt.Fprintf(w, "  %s\t%d\t%s\n", l.Identifier, l.NumberOfSamples, previewSignal(l.Signal, 8))
	}
	w.Flush()
	fmt.Println()
}

func printInsight(crossings map[string]int) {
	ids := make([]string, 0, len(crossings))
	for id := range crossings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Zero Crossings")
	cyan.Println("  --------------")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\t%d\n", id, crossings[id])
	}
	w.Flush()
	fmt.Println()
}

func previewSignal(signal []int, n int) string {
	parts := make([]string, 0, n+1)
	for i, v := range signal {
		if i == n {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatTime(s string) string {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Local().Format("Jan 02 15:04")
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
