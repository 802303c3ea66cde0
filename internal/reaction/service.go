// Package reaction はリアクション台帳のドメインロジックを提供する。
package reaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
)

// Service はリアクションのサービス層。
type Service struct {
	argRepo      repository.ArgumentRepository
	reactionRepo repository.ReactionRepository
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	argRepo repository.ArgumentRepository,
	reactionRepo repository.ReactionRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		argRepo:      argRepo,
		reactionRepo: reactionRepo,
		metrics:      metrics.OrNop(collector),
		logger:       logger,
	}
}

// React はリアクションを記録し、加算後の全6種の件数を返す。
// 同じフィンガープリントが同じ種別で2回リアクションした場合はAlreadyReactedエラーとなる。
// 種別が異なれば同じ議論に複数のリアクションを付けられる。
func (s *Service) React(ctx context.Context, beefNumber int, reactionType model.ReactionType, fingerprint string) (model.ReactionCounts, error) {
	if !reactionType.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("unknown reaction type %q", reactionType))
	}
	if err := model.ValidateFingerprint(fingerprint); err != nil {
		return nil, err
	}

	arg, err := s.argRepo.FindApprovedByBeefNumber(ctx, beefNumber)
	if err != nil {
		return nil, fmt.Errorf("議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return nil, model.NewBeefNotFoundError(beefNumber)
	}

	res, err := s.reactionRepo.Insert(ctx, &model.Reaction{
		ArgumentID:   arg.ID,
		Fingerprint:  fingerprint,
		ReactionType: reactionType,
	})
	if err != nil {
		return nil, fmt.Errorf("リアクションの記録に失敗しました: %w", err)
	}
	s.metrics.RecordReaction(string(reactionType), res.String())
	if res == repository.WriteConflict {
		s.logger.Info("重複リアクションを拒否しました",
			slog.Int("beef_number", beefNumber),
			slog.String("reaction_type", string(reactionType)),
		)
		return nil, model.NewAlreadyReactedError(reactionType)
	}

	counts, err := s.argRepo.IncrementReaction(ctx, arg.ID, reactionType)
	if err != nil {
		s.logger.Error("リアクション記録後のカウンタ更新に失敗しました",
			slog.Int("beef_number", beefNumber),
			slog.String("argument_id", arg.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("リアクション数の更新に失敗しました: %w", err)
	}
	return counts, nil
}
