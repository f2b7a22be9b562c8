package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/progresspoint/internal/backup"
	"github.com/dukerupert/progresspoint/internal/config"
	"github.com/dukerupert/progresspoint/internal/database"
	"github.com/dukerupert/progresspoint/internal/logging"
	"github.com/dukerupert/progresspoint/internal/secret"
	"github.com/dukerupert/progresspoint/internal/server"
	"github.com/dukerupert/progresspoint/internal/service"
)

var version = "dev"

const rateLimitCleanup = 5 * time.Minute

var cli struct {
	Version kong.VersionFlag `help:"Print version and exit."`

	Serve      ServeCmd   `cmd:"" default:"1" help:"Run the API server."`
	Restore    RestoreCmd `cmd:"" help:"Restore the database from an encrypted backup. Stop the server first."`
	Passphrase struct {
		Set   PassphraseSetCmd   `cmd:"" help:"Store the backup passphrase in the OS keyring."`
		Clear PassphraseClearCmd `cmd:"" help:"Remove the backup passphrase from the OS keyring."`
	} `cmd:"" help:"Manage the backup passphrase."`
}

type ServeCmd struct {
	Config config.Server `embed:""`
}

func (c *ServeCmd) Validate() error {
	return c.Config.Validate()
}

func (c *ServeCmd) Run() error {
	cfg := c.Config
	logger, closeLog, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer closeLog()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	backupCfg := cfg.Backup.Manager()
	backupCfg.Passphrase = secret.Resolve(backupCfg.Passphrase)
	if !backupCfg.Enabled() {
		logger.Info("backups disabled", "reason", "bucket, credentials, or passphrase not set")
	}

	srv := server.New(db, server.Options{
		Version:        version,
		Clock:          service.SystemClock(loc),
		Backup:         backupCfg,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("progresspoint listening", "addr", cfg.Addr, "version", version, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		srv.RateLimiter().RunCleanup(ctx, rateLimitCleanup)
		return nil
	})

	srv.BackupManager().Start(ctx)

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		srv.Hub().Shutdown()
		srv.BackupManager().Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

type RestoreCmd struct {
	Key    string         `arg:"" optional:"" help:"Object key to restore. Defaults to the newest backup."`
	List   bool           `help:"List the backups in storage instead of restoring."`
	DBPath string         `help:"Database file to replace." default:"progresspoint.db" type:"path" env:"PP_DB_PATH"`
	Backup config.Backup  `embed:"" prefix:"backup-"`
	Log    config.Logging `embed:"" prefix:"log-"`
}

func (c *RestoreCmd) Validate() error {
	return c.Backup.Validate()
}

func (c *RestoreCmd) Run() error {
	logger := logging.New(os.Stderr, c.Log.Level, c.Log.Format)

	cfg := c.Backup.Manager()
	cfg.Passphrase = secret.Resolve(cfg.Passphrase)
	if !cfg.Enabled() {
		return errors.New("backup storage is not configured: set bucket, credentials, and passphrase")
	}
	mgr := backup.NewManager(cfg, nil, nil, nil, logger.With("component", "backup"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.List {
		keys, err := mgr.Remote(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	}

	key, err := mgr.Restore(ctx, c.Key, c.DBPath)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %s into %s\n", key, c.DBPath)
	return nil
}

type PassphraseSetCmd struct{}

func (c *PassphraseSetCmd) Run() error {
	var pass, confirm string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backup passphrase").
				EchoMode(huh.EchoModePassword).
				Value(&pass).
				Validate(func(s string) error {
					if len(s) < 8 {
						return errors.New("use at least 8 characters")
					}
					return nil
				}),
			huh.NewInput().
				Title("Confirm passphrase").
				EchoMode(huh.EchoModePassword).
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if pass != confirm {
		return errors.New("passphrases do not match")
	}
	if err := secret.SetPassphrase(pass); err != nil {
		return err
	}
	fmt.Println("Passphrase stored in the OS keyring.")
	return nil
}

type PassphraseClearCmd struct{}

func (c *PassphraseClearCmd) Run() error {
	if err := secret.ClearPassphrase(); err != nil {
		return err
	}
	fmt.Println("Passphrase removed from the OS keyring.")
	return nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("progresspoint"),
		kong.Description("Personal productivity tracker: tasks, habits, and focus sessions."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	if err := ctx.Run(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
