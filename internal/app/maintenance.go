package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/beefboard/internal/config"
	"github.com/hitoshi/beefboard/internal/database"
	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/repository"
	"github.com/hitoshi/beefboard/internal/security"
	"github.com/hitoshi/beefboard/internal/seed"
)

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runRotate は今日のビーフのローテーションを1回実行する。外部のcronから呼び出す想定。
func runRotate(ctx context.Context, out io.Writer, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	rotator, err := newRotator(cfg, newPostgresRepositories(db), metrics.Nop{}, slog.Default())
	if err != nil {
		return err
	}
	res, err := rotator.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("rotation failed: %w", err)
	}

	fmt.Fprintf(out, "today=%s selection=%s beef_number=%d yesterday=%s finalization=%s\n",
		res.Today, res.Selection, res.BeefNumber, res.Yesterday, res.Finalization)
	return nil
}

// runReconcile はカウンタ整合性検査を1回実行する。
func runReconcile(ctx context.Context, out io.Writer, cfg *config.Config, repair bool) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	job := newReconcileJob(newPostgresRepositories(db), metrics.Nop{}, slog.Default(), repair)
	report, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	fmt.Fprintf(out, "drifted=%d repaired=%d repair=%t\n", report.Drifted, report.Repaired, repair)
	return nil
}

// runSeed はYAMLファイルの議論をストアへ投入する。resetの場合は先に既存データを削除する。
func runSeed(ctx context.Context, out io.Writer, cfg *config.Config, path string, reset bool) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if reset {
		if err := seed.Reset(ctx, db, slog.Default()); err != nil {
			return err
		}
	}

	return seedFromFile(ctx, out, repository.NewPostgresArgumentRepo(db), path)
}

// seedFromFile はファイルを読み込み、サニタイズして投入し、採番されたビーフ番号を表示する。
func seedFromFile(ctx context.Context, out io.Writer, argRepo repository.ArgumentRepository, path string) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return err
	}

	importer := seed.NewImporter(argRepo, security.NewArgumentSanitizer(), slog.Default())
	numbers, err := importer.Import(ctx, f)
	for _, n := range numbers {
		fmt.Fprintf(out, "#%05d\n", n)
	}
	if err != nil {
		return fmt.Errorf("seed failed after %d arguments: %w", len(numbers), err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// /health エンドポイントにHTTPリクエストを送り、200以外はエラーとする。
func runHealthcheck(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
