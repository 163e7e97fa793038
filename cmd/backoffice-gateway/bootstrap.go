// ABOUTME: bootstrap subcommand: first-time setup and admin token recovery
// ABOUTME: Writes a config with fresh secrets if none exists, then issues an admin token

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/classifieds/backoffice/internal/auth"
	"github.com/classifieds/backoffice/internal/config"
	"github.com/classifieds/backoffice/internal/store"
)

const generatedConfig = `# backoffice-gateway configuration
# Generated by backoffice-gateway bootstrap

server:
  http_addr: "localhost:8080"

database:
  path: "%s"

auth:
  jwt_secret: "%s"
  access_code: "%s"
  token_ttl: "7d"
  failed_login_delay: "1s"

logging:
  level: "info"
  format: "text"

metrics:
  enabled: false
  path: "/metrics"
`

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// writeDefaultConfig creates a config file with a random JWT secret and
// access code. It returns the generated access code.
func writeDefaultConfig(configPath, dbPath string) (string, error) {
	secret, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	code, err := randomString(12)
	if err != nil {
		return "", fmt.Errorf("generating access code: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	content := fmt.Sprintf(generatedConfig, dbPath, secret, code)
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return code, nil
}

// runBootstrap performs first-time setup of the gateway:
// 1. Creates a config file with random secrets (if not exists)
// 2. Ensures the admin account exists
// 3. Issues an admin token and saves it next to the config
//
// Running it again against an existing config reissues a token, which is the
// recovery path when the access code is lost.
func runBootstrap(ctx context.Context) error {
	if len(os.Args) > 2 {
		return fmt.Errorf("unexpected argument: %s", os.Args[2])
	}

	configPath := config.Path()
	dbPath := filepath.Join(getDataPath(), "backoffice.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var generatedCode string
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		generatedCode, err = writeDefaultConfig(configPath, dbPath)
		if err != nil {
			return err
		}
		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt_secret not configured in %s (required for bootstrap)", configPath)
	}

	// Open the store directly
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	admin, err := s.EnsureAccountForRole(ctx, store.RoleAdmin, store.AccountDefaults{
		Username: cfg.Auth.DefaultAdmin.Username,
		Email:    cfg.Auth.DefaultAdmin.Email,
	})
	if err != nil {
		return fmt.Errorf("ensuring admin account: %w", err)
	}
	if !admin.IsActive {
		return fmt.Errorf("admin account %s is deactivated", admin.ID)
	}

	green.Printf("  ✓ Admin account: %s\n", admin.Username)

	codec := auth.NewCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	token, err := codec.Sign(auth.Identity{AccountID: admin.ID, Username: admin.Username, Role: admin.Role})
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	expiresAt := time.Now().Add(codec.TTL()).UTC()

	actor := admin.ID
	if err := s.AppendAuditLog(ctx, &store.AuditEntry{
		ActorAccountID: &actor,
		Action:         store.AuditLogin,
		Detail:         map[string]any{"via": "bootstrap"},
	}); err != nil {
		yellow.Printf("  ! Audit entry not written: %v\n", err)
	}

	// Save token to file for CLI tools to read
	tokenPath := filepath.Join(filepath.Dir(configPath), "token")
	if err := os.WriteFile(tokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	green.Printf("  ✓ Saved token: %s\n", tokenPath)

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Admin Account")
	cyan.Println("  -------------")
	fmt.Printf("  ID:        %s\n", admin.ID)
	fmt.Printf("  Username:  %s\n", admin.Username)
	fmt.Printf("  Email:     %s\n", admin.Email)
	fmt.Printf("  Role:      %s\n", admin.Role)
	fmt.Printf("  Token:     %s (expires %s)\n", tokenPath, expiresAt.Format("Jan 02, 2006"))
	if generatedCode != "" {
		fmt.Printf("  Code:      %s\n", generatedCode)
	}
	fmt.Println()

	yellow.Println("  Ready to go:")
	fmt.Println("    backoffice-gateway serve    # start the gateway")
	fmt.Println()

	return nil
}
