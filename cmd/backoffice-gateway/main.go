// ABOUTME: Entry point for the classifieds back-office auth gateway
// ABOUTME: Dispatches serve, bootstrap, hash-code, health and version subcommands

package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/crypto/bcrypt"

	"github.com/classifieds/backoffice/internal/config"
	"github.com/classifieds/backoffice/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _                _          __  __ _
| |__   __ _  ___| | __ ___ / _|/ _(_) ___ ___
| '_ \ / _' |/ __| |/ // _ \ |_| |_| |/ __/ _ \
| |_) | (_| | (__|   <| (_) |  _|  _| | (_|  __/
|_.__/ \__,_|\___|_|\_\\___/|_| |_| |_|\___\___|
`

// getDataPath returns the path to the back-office data directory.
// Priority: XDG_DATA_HOME/backoffice > ~/.local/share/backoffice
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "backoffice")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: backoffice-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve         Start the gateway server")
		fmt.Println("  bootstrap     Create config and admin account, print a token")
		fmt.Println("  hash-code     Print a bcrypt hash of an access code read from stdin")
		fmt.Println("  health        Check gateway health")
		fmt.Println("  version       Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "bootstrap":
		err = runBootstrap(ctx)
	case "hash-code":
		err = runHashCode()
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.Path()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Token TTL: %s\n", cfg.Auth.TokenTTL)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}

	warnings := cfg.Warnings()
	for _, w := range warnings {
		yellow.Print("    ! ")
		fmt.Println(w)
	}

	fmt.Println()

	for _, w := range warnings {
		logger.Warn("incomplete auth configuration", "detail", w)
	}

	logger.Info("starting backoffice-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"token_ttl", cfg.Auth.TokenTTL,
	)

	// Create and run gateway
	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Make HTTP request to health endpoint with context
	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
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

	fmt.Println("healthy")
	return nil
}

// runHashCode reads an access code from the first line of stdin and prints
// its bcrypt hash for use as auth.access_code_hash.
func runHashCode() error {
	fmt.Fprint(os.Stderr, "Access code: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading access code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return fmt.Errorf("access code cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing access code: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}
