// Command sessionctl drives the admin authentication core from a terminal:
// it logs in against the backend (with local fallback), inspects the stored
// session, runs a guard check for a protected path, and logs out. It stands
// in for the presentation layer of the admin UI.
//
// Usage:
//
//	sessionctl login -u <username> -p <password> [-path <requested path>]
//	sessionctl status
//	sessionctl check -path <path> [-role <required role>]
//	sessionctl logout
//
// Global flags: -a <api base url>, -d <storage file>, -c <config file>.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pavelk2005/storegate/internal/auth"
	"github.com/pavelk2005/storegate/internal/common"
	"github.com/pavelk2005/storegate/internal/config"
	"github.com/pavelk2005/storegate/internal/cryptox"
	"github.com/pavelk2005/storegate/internal/flagx"
	"github.com/pavelk2005/storegate/internal/guard"
	"github.com/pavelk2005/storegate/internal/kvstore"
	"github.com/pavelk2005/storegate/internal/logging"
	"github.com/pavelk2005/storegate/internal/remoteapi"
	"github.com/pavelk2005/storegate/internal/session"
)

// keyContext salts the derivation of the AES sealing key from the configured
// passphrase.
const keyContext = "storegate.session.v1"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sessionctl: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	gateway *auth.Gateway
	vault   *session.Vault
	guard   *guard.Guard
	store   kvstore.Store
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: sessionctl <login|status|check|logout> [flags]")
	}

	cfg := config.LoadConfig()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx := context.Background()

	db, err := sql.Open("sqlite", cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	store := kvstore.NewSQLiteStore(db)
	if err := store.Init(ctx); err != nil {
		return err
	}

	sealKey := cryptox.DeriveKey([]byte(cfg.EncryptionKey), []byte(keyContext))

	remote := remoteapi.NewHTTPClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, cfg.OnlineCheckInterval, sealKey, log)
	vault := session.NewVault(store, sealKey, cfg.SessionTTL, cfg.RenewalWindow, log)
	lockout := auth.NewLockoutPolicy(store, cfg.MaxAttempts, cfg.BlockDuration, log)

	a := &app{
		cfg:   cfg,
		vault: vault,
		store: store,
		guard: guard.NewGuard(vault, remote, cfg.LoginPath, log),
		gateway: auth.NewGateway(auth.GatewayOptions{
			Directory:          auth.DefaultDirectory(),
			Lockout:            lockout,
			Remote:             remote,
			Vault:              vault,
			Store:              store,
			MaxAttempts:        cfg.MaxAttempts,
			MinAttemptInterval: cfg.MinAttemptInterval,
			DefaultLandingPath: cfg.DefaultLandingPath,
			Logger:             log,
		}),
	}

	switch os.Args[1] {
	case "login":
		return a.login(ctx)
	case "status":
		return a.status(ctx)
	case "check":
		return a.check(ctx)
	case "logout":
		return a.logout(ctx)
	default:
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func (a *app) login(ctx context.Context) error {
	var username, password, path string

	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.StringVar(&username, "u", "", "username")
	fs.StringVar(&password, "p", "", "password")
	fs.StringVar(&path, "path", "", "originally requested path")
	if err := fs.Parse(flagx.FilterArgs(os.Args[2:], []string{"-u", "-p", "-path"})); err != nil {
		return err
	}

	fmt.Printf("password strength: %d/4\n", auth.PasswordStrength(password))

	res := a.gateway.Login(ctx, username, password, path)
	fmt.Printf("state:   %s\n", res.State)
	fmt.Printf("message: %s\n", res.Message)
	if res.State == auth.StateSuccess {
		fmt.Printf("user:    %s (%s)\n", res.User, res.Role)
		fmt.Printf("mode:    %s\n", modeLabel(res.APIMode))
		fmt.Printf("goto:    %s\n", res.RedirectTo)
	}
	return nil
}

func (a *app) status(ctx context.Context) error {
	rec, err := a.vault.Read(ctx)
	if err != nil {
		fmt.Println("no active session")
		return nil
	}

	fmt.Printf("user:       %s (%s)\n", rec.User, rec.Role)
	fmt.Printf("session id: %s\n", rec.SessionID)
	fmt.Printf("mode:       %s\n", modeLabel(rec.APIMode))
	fmt.Printf("expires:    %s (%s left)\n",
		rec.ExpiresAt.Format(time.RFC3339),
		rec.Remaining(time.Now()).Round(time.Minute))
	if !rec.RenewedAt.IsZero() {
		fmt.Printf("renewed:    %s\n", rec.RenewedAt.Format(time.RFC3339))
	}
	if !rec.APITokenExpiresAt.IsZero() {
		fmt.Printf("token exp:  %s\n", rec.APITokenExpiresAt.Format(time.RFC3339))
	}

	// display-only plaintext mirror of the login moment
	if raw, err := a.store.Get(ctx, common.SessionStartKey); err == nil && raw != nil {
		if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			fmt.Printf("started:    %s\n", time.UnixMilli(ms).Format(time.RFC3339))
		}
	}
	return nil
}

func (a *app) check(ctx context.Context) error {
	var path, role string

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&path, "path", "/admin", "protected path to check")
	fs.StringVar(&role, "role", "", "required role, if any")
	if err := fs.Parse(flagx.FilterArgs(os.Args[2:], []string{"-path", "-role"})); err != nil {
		return err
	}

	d := a.guard.Check(ctx, guard.Target{Path: path, RequiredRole: role})
	if d.Allowed {
		fmt.Printf("allowed: %s as %s (%s)\n", path, d.Session.User, d.Session.Role)
		return nil
	}
	fmt.Printf("denied:  %s (%s)\n", path, d.Reason)
	fmt.Printf("goto:    %s\n", d.RedirectTo)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.gateway.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("session cleared")
	return nil
}

func modeLabel(apiMode bool) string {
	if apiMode {
		return "api"
	}
	return "local"
}
