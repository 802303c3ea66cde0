package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hitoshi/beefboard/internal/config"
	"github.com/hitoshi/beefboard/internal/database"
	"github.com/spf13/cobra"
)

// NewRootCommand はbeefboardのコマンドツリーを生成する。
// サブコマンドを省略した場合はserveとして起動する。
// wはログの出力先、結果の表示はcmd.OutOrStdoutに書き込む。
func NewRootCommand(w io.Writer) *cobra.Command {
	serve := newServeCommand(w)

	cmd := &cobra.Command{
		Use:           "beefboard",
		Short:         "beefboard - vote on internet arguments",
		Long:          "API server, background worker, and maintenance commands for beefboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(newWorkerCommand(w))
	cmd.AddCommand(newMigrateCommand(w))
	cmd.AddCommand(newRotateCommand(w))
	cmd.AddCommand(newReconcileCommand(w))
	cmd.AddCommand(newSeedCommand(w))
	cmd.AddCommand(newHealthcheckCommand())

	return cmd
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			logStart("serve", cfg)
			return runServe(cmd.Context(), cfg)
		},
	}
}

func newWorkerCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Beef of the Day rotator and counter reconcile on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			logStart("worker", cfg)
			return runWorker(cmd.Context(), cfg)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	var rollback int
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			switch {
			case showVersion:
				version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			case rollback > 0:
				slog.Info("rolling back database migrations",
					slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
					slog.Int("steps", rollback),
				)
				if err := database.RollbackMigrations(cfg.DatabaseURL, rollback); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				slog.Info("database rollback completed successfully")
				return nil
			default:
				return runMigrate(cfg)
			}
		},
	}

	cmd.Flags().IntVar(&rollback, "rollback", 0, "roll back the given number of migrations")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print the current schema version")
	cmd.MarkFlagsMutuallyExclusive("rollback", "version")
	return cmd
}

func newRotateCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Run one Beef of the Day rotation (select today, finalize yesterday)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runRotate(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

func newReconcileCommand(w io.Writer) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare cached counters with the vote and reaction ledgers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runReconcile(cmd.Context(), cmd.OutOrStdout(), cfg, repair || cfg.ReconcileRepair)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "rewrite drifted counters from the ledgers")
	return cmd
}

func newSeedCommand(w io.Writer) *cobra.Command {
	var file string
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import arguments from a YAML fixture file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runSeed(cmd.Context(), cmd.OutOrStdout(), cfg, file, reset)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the YAML fixture file")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all arguments and ledgers before importing")
	cmd.MarkFlagRequired("file")
	return cmd
}

// newHealthcheckCommand はdistroless環境でのDockerヘルスチェック用サブコマンドを生成する。
// 軽量サブコマンドのため、設定の読み込みとログの初期化を行わない。
func newHealthcheckCommand() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				target = fmt.Sprintf("http://localhost:%s/health", envOr("SERVER_PORT", "8080"))
			}
			return runHealthcheck(cmd.Context(), target)
		},
	}

	cmd.Flags().StringVar(&target, "url", "", "health endpoint URL (default http://localhost:$SERVER_PORT/health)")
	return cmd
}

func logStart(command string, cfg *config.Config) {
	slog.Info("starting application",
		slog.String("command", command),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)
}
