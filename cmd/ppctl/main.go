// Command ppctl is the terminal client for a progresspoint server. Task and
// habit commands keep working without the server and sync when it returns.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/dukerupert/progresspoint/internal/client"
	"github.com/dukerupert/progresspoint/internal/config"
	"github.com/dukerupert/progresspoint/internal/logging"
	"github.com/dukerupert/progresspoint/internal/offline"
)

var version = "dev"

type CLI struct {
	Config  config.Client    `embed:""`
	Output  string           `short:"o" help:"List output format." enum:"table,json,yaml" default:"table" env:"PP_OUTPUT"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Task       TaskCmd       `cmd:"" help:"Manage daily tasks."`
	Habit      HabitCmd      `cmd:"" help:"Manage habits."`
	Sync       SyncCmd       `cmd:"" help:"Send changes made offline to the server."`
	Watch      WatchCmd      `cmd:"" help:"Stay connected and sync whenever the server comes back."`
	Techniques TechniquesCmd `cmd:"" help:"List study techniques."`
	Focus      FocusCmd      `cmd:"" help:"Run a study timer."`
	Meditate   MeditateCmd   `cmd:"" help:"Run a meditation timer."`
}

func (c *CLI) Validate() error {
	return c.Config.Validate()
}

// app is bound into every command's Run.
type app struct {
	ctx    context.Context
	cfg    config.Client
	logger *slog.Logger
	api    *client.Client
	mirror *offline.Mirror
	cache  *offline.Cache
	out    io.Writer
	format string
	close  func() error
}

func newApp(ctx context.Context, cfg config.Client, format string) (*app, error) {
	w, closeLog, err := logging.Output(cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	logger := logging.NewConsole(w, cfg.Log.Level)
	if cfg.Log.Format == "json" {
		logger = logging.New(w, cfg.Log.Level, cfg.Log.Format)
	}

	mirror, err := offline.OpenMirror(ctx, cfg.Cache)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open offline cache: %w", err)
	}
	api := client.New(cfg.Server, cfg.Timeout)
	return &app{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		api:    api,
		mirror: mirror,
		cache:  offline.NewCache(api, mirror, nil, logger),
		out:    os.Stdout,
		format: format,
		close:  closeLog,
	}, nil
}

func (a *app) Close() error {
	err := a.mirror.Close()
	if a.close != nil {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}
	return err
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("ppctl"),
		kong.Description("Tasks, habits, and focus timers from the terminal."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cli.Config, cli.Output)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ppctl:", err)
		os.Exit(1)
	}
	err = kctx.Run(a)
	if cerr := a.Close(); cerr != nil {
		a.logger.Warn("close offline cache", "error", cerr)
	}
	if err != nil {
		a.logger.Error(err.Error())
		os.Exit(1)
	}
}
