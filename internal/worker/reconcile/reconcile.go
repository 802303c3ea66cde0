// Package reconcile は集計カウンタと投票・リアクション記録の整合性検査ジョブを提供する。
// argumentsのカウンタはキャッシュであり、正は votes / reactions テーブルとなる。
// 検査は日次バッチで実行し、Repairが有効な場合のみ差分を記録側の値で上書きする。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/repository"
)

// Report は1回の検査結果。
type Report struct {
	Drifted  int
	Repaired int
	Drifts   []repository.CounterDrift
}

// Job はカウンタ整合性の検査ジョブ。
// 冪等: 差分がない場合は何も更新しない。
type Job struct {
	ledgerRepo repository.LedgerRepository
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	Repair     bool // trueの場合は差分を修復する（デフォルト: false）
}

// NewJob は新しいJobを生成する。
func NewJob(ledgerRepo repository.LedgerRepository, collector metrics.MetricsCollector, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		ledgerRepo: ledgerRepo,
		metrics:    metrics.OrNop(collector),
		logger:     logger,
	}
}

// Run はカウンタの差分を検出し、Repairが有効なら修復する。
// 修復は議論ごとに行い、1件の失敗で残りを中断しない。
// 修復中の投票と競合した場合、次回の検査で再検出される。
func (j *Job) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	drifts, err := j.ledgerRepo.FindCounterDrift(ctx)
	if err != nil {
		j.logger.Error("カウンタ整合性検査の実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("カウンタ整合性検査の実行に失敗: %w", err)
	}
	j.metrics.RecordCounterDrift(len(drifts))

	report := &Report{Drifted: len(drifts), Drifts: drifts}
	for _, d := range drifts {
		j.logger.Warn("カウンタの差分を検出しました",
			slog.Int("beef_number", d.BeefNumber),
			slog.Int("cached_total_votes", d.Cached.TotalVotes),
			slog.Int("ledger_total_votes", d.Ledger.TotalVotes),
			slog.Int("cached_reactions", d.CachedReactions.Total()),
			slog.Int("ledger_reactions", d.LedgerReactions.Total()),
		)
		if !j.Repair {
			continue
		}
		if err := j.ledgerRepo.RepairCounters(ctx, d.ArgumentID); err != nil {
			j.logger.Error("カウンタの修復に失敗しました",
				slog.Int("beef_number", d.BeefNumber),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Repaired++
	}

	j.logger.Info("カウンタ整合性検査が完了しました",
		slog.Int("drift_count", report.Drifted),
		slog.Int("repaired_count", report.Repaired),
		slog.Bool("repair", j.Repair),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return report, nil
}
