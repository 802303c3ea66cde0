package botd

import (
	"context"
	"fmt"

	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
)

// Today は今日のビーフの取得結果。
type Today struct {
	Argument                 *model.Argument
	Date                     string
	SecondsUntilNextRotation int64
}

// Service は今日のビーフの取得を行うサービス層。
type Service struct {
	botdRepo repository.BOTDRepository
	argRepo  repository.ArgumentRepository
	clock    *Clock
}

// NewService はServiceを生成する。
func NewService(botdRepo repository.BOTDRepository, argRepo repository.ArgumentRepository, clock *Clock) *Service {
	return &Service{botdRepo: botdRepo, argRepo: argRepo, clock: clock}
}

// Today は今日のビーフと最新の集計、次のローテーションまでの秒数を返す。
func (s *Service) Today(ctx context.Context) (*Today, error) {
	date := s.clock.Today()

	b, err := s.botdRepo.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("今日のビーフの取得に失敗しました: %w", err)
	}
	if b == nil {
		return nil, model.NewNoBOTDTodayError()
	}

	arg, err := s.argRepo.FindByID(ctx, b.ArgumentID)
	if err != nil {
		return nil, fmt.Errorf("今日のビーフの議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return nil, model.NewNoBOTDTodayError()
	}

	return &Today{
		Argument:                 arg,
		Date:                     b.Date,
		SecondsUntilNextRotation: s.clock.SecondsUntilNextRotation(),
	}, nil
}
