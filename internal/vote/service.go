// Package vote は投票台帳のドメインロジックを提供する。
// 1フィンガープリントにつき1議論1票を、ストアの一意制約と相対加算だけで保証する。
package vote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
	"github.com/hitoshi/beefboard/internal/verdict"
)

// Service は投票のサービス層。
type Service struct {
	argRepo  repository.ArgumentRepository
	voteRepo repository.VoteRepository
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	argRepo repository.ArgumentRepository,
	voteRepo repository.VoteRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		argRepo:  argRepo,
		voteRepo: voteRepo,
		metrics:  metrics.OrNop(collector),
		logger:   logger,
	}
}

// Cast は投票を記録し、加算後の集計結果を返す。
// 同じフィンガープリントで2回目の投票はAlreadyVotedエラーとなり、カウンタは変化しない。
func (s *Service) Cast(ctx context.Context, beefNumber int, side model.Side, fingerprint string) (verdict.Result, error) {
	if !side.Valid() {
		return verdict.Result{}, model.NewValidationError(`side must be "a" or "b"`)
	}
	if err := model.ValidateFingerprint(fingerprint); err != nil {
		return verdict.Result{}, err
	}

	arg, err := s.argRepo.FindApprovedByBeefNumber(ctx, beefNumber)
	if err != nil {
		return verdict.Result{}, fmt.Errorf("議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return verdict.Result{}, model.NewBeefNotFoundError(beefNumber)
	}

	res, err := s.voteRepo.Insert(ctx, &model.Vote{
		ArgumentID:  arg.ID,
		Fingerprint: fingerprint,
		VotedFor:    side,
	})
	if err != nil {
		return verdict.Result{}, fmt.Errorf("投票の記録に失敗しました: %w", err)
	}
	s.metrics.RecordVote(string(side), res.String())
	if res == repository.WriteConflict {
		s.logger.Info("重複投票を拒否しました",
			slog.Int("beef_number", beefNumber),
			slog.String("argument_id", arg.ID),
		)
		return verdict.Result{}, model.NewAlreadyVotedError()
	}

	counts, err := s.argRepo.IncrementVotes(ctx, arg.ID, side)
	if err != nil {
		// 投票記録は残るため、カウンタとの差分は整合性検査で検出される
		s.logger.Error("投票記録後のカウンタ更新に失敗しました",
			slog.Int("beef_number", beefNumber),
			slog.String("argument_id", arg.ID),
			slog.String("error", err.Error()),
		)
		return verdict.Result{}, fmt.Errorf("投票数の更新に失敗しました: %w", err)
	}

	return verdict.FromCounts(counts.VotesA, counts.VotesB), nil
}

// Results は議論の現在の集計結果を返す。
func (s *Service) Results(ctx context.Context, beefNumber int) (verdict.Result, error) {
	arg, err := s.argRepo.FindApprovedByBeefNumber(ctx, beefNumber)
	if err != nil {
		return verdict.Result{}, fmt.Errorf("議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return verdict.Result{}, model.NewBeefNotFoundError(beefNumber)
	}
	return verdict.FromCounts(arg.VotesA, arg.VotesB), nil
}
