package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jask/vareditor/internal/config"
	"github.com/jask/vareditor/internal/database"
	"github.com/jask/vareditor/internal/database/repository"
	"github.com/jask/vareditor/internal/host"
	"github.com/jask/vareditor/internal/logging"
	"github.com/jask/vareditor/internal/panel"
	"github.com/jask/vareditor/internal/tui"
)

var (
	dbPath string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vareditor",
	Short: "Edit conversation and global variables",
	Long: `vareditor shows the variables of the active conversation (Local) and the
variables shared by every conversation (Global) in a terminal panel.

Run without arguments to open the panel.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if logger, err = logging.New(cfg.Log); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd.Context())
	},
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the variable panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd.Context())
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Show or hide the panel on next start",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		ctrl := e.controller()
		state, err := ctrl.Toggle(ctx)
		ctrl.Close()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), state)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default from config)")

	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is an opened database with its host runtime.
type env struct {
	db *sql.DB
	rt *host.Runtime
}

func openEnv(ctx context.Context) (*env, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}
	rt, err := host.Open(ctx, host.Options{
		Settings:     repository.NewSettingsRepo(db),
		Chats:        repository.NewChatRepo(db),
		DBPath:       cfg.Database.Path,
		SaveDebounce: cfg.Host.SaveDebounce,
		Logger:       logger.Named("host"),
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &env{db: db, rt: rt}, nil
}

func (e *env) controller() *panel.Controller {
	sort, err := panel.ParseSortRule(cfg.Panel.DefaultSort)
	if err != nil {
		logger.Warn("ignoring default sort", zap.Error(err))
		sort = panel.KeyAsc
	}
	return panel.New(e.rt, panel.Options{
		PollInterval:  cfg.Panel.PollInterval,
		ErrorBackoff:  cfg.Panel.ErrorBackoff,
		FlashDuration: cfg.Panel.FlashDuration,
		DefaultSort:   sort,
		Logger:        logger.Named("panel"),
	})
}

// close writes any pending settings save and closes the database.
func (e *env) close(ctx context.Context) {
	if err := e.rt.Close(context.WithoutCancel(ctx)); err != nil {
		logger.Error("flush settings", zap.Error(err))
		fmt.Fprintf(os.Stderr, "warn: settings not saved: %v\n", err)
	}
	_ = e.db.Close()
}

func runPanel(ctx context.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close(ctx)
	ctrl := e.controller()
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Host.Watch {
		g.Go(func() error { return e.rt.Run(gctx) })
	}
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, tui.New(gctx, cfg.Panel, ctrl, e.rt))
	})
	return g.Wait()
}
