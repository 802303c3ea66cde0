package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/beefboard/internal/config"
	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/worker/schedule"
)

// workerTick はスケジューラが期限の来たタスクを確認する間隔。
const workerTick = time.Minute

// タスク名
const (
	taskRotateBOTD = "botd_rotation"
	taskReconcile  = "counter_reconcile"
)

// runWorker はワーカーモードで起動する。
// 今日のビーフのローテーションとカウンタ整合性検査を定期実行する。
// メトリクスが有効な場合は SERVER_PORT で /metrics を公開する。
// ctxがキャンセルされるとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	collector, reg := newMetrics(cfg.MetricsEnabled)

	tasks, err := newWorkerTasks(cfg, newPostgresRepositories(db), collector, slog.Default())
	if err != nil {
		return err
	}
	scheduler := schedule.NewScheduler(tasks, slog.Default(), cfg.WorkerMaxConcurrent)

	if reg != nil {
		server := newHTTPServer(cfg.ServerPort, metrics.SetupMetricsRoute(reg))
		go func() {
			if err := serveUntilDone(ctx, server); err != nil {
				slog.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	slog.Info("worker starting",
		slog.Duration("botd_interval", cfg.BOTDInterval),
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
		slog.Bool("reconcile_repair", cfg.ReconcileRepair),
		slog.Int("max_concurrent", cfg.WorkerMaxConcurrent),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, workerTick)

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerTasks はワーカーが定期実行するタスクを生成する。
func newWorkerTasks(cfg *config.Config, repos repositories, collector metrics.MetricsCollector, log *slog.Logger) ([]schedule.Task, error) {
	rotator, err := newRotator(cfg, repos, collector, log)
	if err != nil {
		return nil, err
	}
	job := newReconcileJob(repos, collector, log, cfg.ReconcileRepair)

	return []schedule.Task{
		{
			Name:     taskRotateBOTD,
			Interval: cfg.BOTDInterval,
			Run: func(ctx context.Context) error {
				_, err := rotator.RunOnce(ctx)
				return err
			},
		},
		{
			Name:     taskReconcile,
			Interval: cfg.ReconcileInterval,
			Run: func(ctx context.Context) error {
				_, err := job.Run(ctx)
				return err
			},
		},
	}, nil
}
