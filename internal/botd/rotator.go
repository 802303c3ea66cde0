// Package botd は「今日のビーフ」の選出・確定・取得を提供する。
package botd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
	"github.com/hitoshi/beefboard/internal/verdict"
)

// DefaultExclusionDays は同じ議論を再選出しない期間（日）。
const DefaultExclusionDays = 30

// 選出処理の結果
const (
	SelectionSelected = "selected"
	SelectionExists   = "exists"
	SelectionNoneLeft = "no_candidate"
	SelectionRaced    = "raced"
)

// 確定処理の結果
const (
	FinalizationFinalized = "finalized"
	FinalizationAlready   = "already_finalized"
	FinalizationMissing   = "missing"
)

// RunResult はローテーション1回の結果。
type RunResult struct {
	Today        string
	Yesterday    string
	Selection    string
	BeefNumber   int
	Finalization string
	FinalVerdict string
}

// Rotator は今日のビーフのローテーションを行う。
// 何度実行しても1日1件・前日の確定は1回だけになるよう、すべての書き込みを
// 一意制約と条件付き更新で行う。
type Rotator struct {
	botdRepo      repository.BOTDRepository
	argRepo       repository.ArgumentRepository
	clock         *Clock
	exclusionDays int
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
}

// NewRotator はRotatorを生成する。exclusionDaysが0以下の場合は30日を使う。
func NewRotator(
	botdRepo repository.BOTDRepository,
	argRepo repository.ArgumentRepository,
	clock *Clock,
	exclusionDays int,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Rotator {
	if exclusionDays <= 0 {
		exclusionDays = DefaultExclusionDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rotator{
		botdRepo:      botdRepo,
		argRepo:       argRepo,
		clock:         clock,
		exclusionDays: exclusionDays,
		metrics:       metrics.OrNop(collector),
		logger:        logger,
	}
}

// RunOnce は今日のビーフの選出と前日分の確定を1回実行する。
// 選出の結果に関わらず前日分の確定は試みる。
func (r *Rotator) RunOnce(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		Today:     r.clock.Today(),
		Yesterday: r.clock.Yesterday(),
	}

	if err := r.selectToday(ctx, result); err != nil {
		return result, err
	}
	if err := r.finalizeYesterday(ctx, result); err != nil {
		return result, err
	}

	duration := time.Since(start)
	r.metrics.RecordRotationLatency(duration)
	r.logger.Info("今日のビーフのローテーションが完了しました",
		slog.String("today", result.Today),
		slog.String("selection", result.Selection),
		slog.Int("beef_number", result.BeefNumber),
		slog.String("yesterday", result.Yesterday),
		slog.String("finalization", result.Finalization),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return result, nil
}

func (r *Rotator) selectToday(ctx context.Context, result *RunResult) error {
	existing, err := r.botdRepo.FindByDate(ctx, result.Today)
	if err != nil {
		return fmt.Errorf("今日のビーフの確認に失敗しました: %w", err)
	}
	if existing != nil {
		result.Selection = SelectionExists
		r.metrics.RecordBOTDSelection(result.Selection)
		return nil
	}

	candidate, err := r.botdRepo.SelectCandidate(ctx, result.Today, r.exclusionDays)
	if err != nil {
		return fmt.Errorf("今日のビーフ候補の選出に失敗しました: %w", err)
	}
	if candidate == nil {
		result.Selection = SelectionNoneLeft
		r.metrics.RecordBOTDSelection(result.Selection)
		r.logger.Warn("今日のビーフの候補がありません",
			slog.String("today", result.Today),
			slog.Int("exclusion_days", r.exclusionDays),
		)
		return nil
	}

	res, err := r.botdRepo.Insert(ctx, &model.BeefOfTheDay{
		ArgumentID: candidate.ID,
		Date:       result.Today,
	})
	if err != nil {
		return fmt.Errorf("今日のビーフの作成に失敗しました: %w", err)
	}
	if res == repository.WriteConflict {
		// 並行実行した別のローテーションが先に作成した
		result.Selection = SelectionRaced
		r.metrics.RecordBOTDSelection(result.Selection)
		return nil
	}

	result.Selection = SelectionSelected
	result.BeefNumber = candidate.BeefNumber
	r.metrics.RecordBOTDSelection(result.Selection)
	return nil
}

func (r *Rotator) finalizeYesterday(ctx context.Context, result *RunResult) error {
	prev, err := r.botdRepo.FindByDate(ctx, result.Yesterday)
	if err != nil {
		return fmt.Errorf("前日の今日のビーフの取得に失敗しました: %w", err)
	}
	if prev == nil {
		result.Finalization = FinalizationMissing
		r.metrics.RecordBOTDFinalization(result.Finalization)
		return nil
	}
	if prev.Finalized() {
		result.Finalization = FinalizationAlready
		r.metrics.RecordBOTDFinalization(result.Finalization)
		return nil
	}

	arg, err := r.argRepo.FindByID(ctx, prev.ArgumentID)
	if err != nil {
		return fmt.Errorf("前日の議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		result.Finalization = FinalizationMissing
		r.metrics.RecordBOTDFinalization(result.Finalization)
		return nil
	}

	final := verdict.FromCounts(arg.VotesA, arg.VotesB)
	res, err := r.botdRepo.Finalize(ctx, result.Yesterday, final.VotesA, final.VotesB, final.Verdict.Label)
	if err != nil {
		return fmt.Errorf("前日の今日のビーフの確定に失敗しました: %w", err)
	}
	if res == repository.WriteConflict {
		result.Finalization = FinalizationAlready
		r.metrics.RecordBOTDFinalization(result.Finalization)
		return nil
	}

	result.Finalization = FinalizationFinalized
	result.FinalVerdict = final.Verdict.Label
	r.metrics.RecordBOTDFinalization(result.Finalization)
	return nil
}
