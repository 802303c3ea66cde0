// Package challenge は友人に同じ議論の判定を依頼するチャレンジ機能を提供する。
package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/beefboard/internal/metrics"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
)

// maxCreateAttempts はコード衝突時の最大試行回数。
const maxCreateAttempts = 3

// Created はチャレンジ作成結果。
type Created struct {
	Code     string
	ShareURL string
}

// View はチャレンジの閲覧結果。
// 回答待ちの間はChallengerVoteを含めず、回答済みになると両者の投票と一致判定を含める。
type View struct {
	Argument       *model.Argument
	Status         model.ChallengeStatus
	ChallengerVote *model.Side
	ChallengeeVote *model.Side
	Agreed         *bool
}

// Outcome はチャレンジ回答の結果。
type Outcome struct {
	ChallengerVote model.Side
	ChallengeeVote model.Side
	Agreed         bool
}

// Service はチャレンジのサービス層。
type Service struct {
	argRepo       repository.ArgumentRepository
	challengeRepo repository.ChallengeRepository
	baseURL       string
	generateCode  CodeGenerator
	now           func() time.Time
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// baseURLは共有URLの組み立てに使用する（例: "https://beefboard.example"）。
func NewService(
	argRepo repository.ArgumentRepository,
	challengeRepo repository.ChallengeRepository,
	baseURL string,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		argRepo:       argRepo,
		challengeRepo: challengeRepo,
		baseURL:       strings.TrimRight(baseURL, "/"),
		generateCode:  GenerateCode,
		now:           func() time.Time { return time.Now().UTC() },
		metrics:       metrics.OrNop(collector),
		logger:        logger,
	}
}

// Create はチャレンジを作成し、コードと共有URLを返す。
// コードが既存のものと衝突した場合は最大3回まで再生成する。
func (s *Service) Create(ctx context.Context, beefNumber int, vote model.Side, fingerprint string) (*Created, error) {
	if !vote.Valid() {
		return nil, model.NewValidationError(`vote must be "a" or "b"`)
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

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return nil, fmt.Errorf("チャレンジコードの生成に失敗しました: %w", err)
		}

		res, err := s.challengeRepo.Insert(ctx, &model.Challenge{
			Code:                  code,
			ArgumentID:            arg.ID,
			ChallengerFingerprint: fingerprint,
			ChallengerVote:        vote,
		})
		if err != nil {
			return nil, fmt.Errorf("チャレンジの作成に失敗しました: %w", err)
		}
		if res == repository.WriteApplied {
			s.metrics.RecordChallenge("created")
			return &Created{
				Code:     code,
				ShareURL: s.baseURL + "/challenge/" + code,
			}, nil
		}

		s.metrics.RecordChallenge("code_collision")
		s.logger.Info("チャレンジコードが衝突しました",
			slog.Int("attempt", attempt),
			slog.Int("beef_number", beefNumber),
		)
	}

	s.metrics.RecordChallenge("code_exhausted")
	s.logger.Error("チャレンジコードの生成回数が上限に達しました",
		slog.Int("beef_number", beefNumber),
		slog.Int("attempts", maxCreateAttempts),
	)
	return nil, model.NewCodeGenerationFailedError()
}

// Get はチャレンジと対象の議論を返す。
func (s *Service) Get(ctx context.Context, code string) (*View, error) {
	if !ValidCode(code) {
		return nil, model.NewChallengeNotFoundError(code)
	}

	ch, err := s.challengeRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("チャレンジの取得に失敗しました: %w", err)
	}
	if ch == nil {
		return nil, model.NewChallengeNotFoundError(code)
	}

	arg, err := s.argRepo.FindByID(ctx, ch.ArgumentID)
	if err != nil {
		return nil, fmt.Errorf("議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return nil, model.NewChallengeNotFoundError(code)
	}

	view := &View{Argument: arg, Status: ch.Status}
	if ch.Status == model.ChallengeStatusCompleted && ch.ChallengeeVote != nil {
		challengerVote := ch.ChallengerVote
		challengeeVote := *ch.ChallengeeVote
		agreed := ch.Agreed()
		view.ChallengerVote = &challengerVote
		view.ChallengeeVote = &challengeeVote
		view.Agreed = &agreed
	}
	return view, nil
}

// Respond はチャレンジに回答する。回答できるのは1回だけで、
// 同時回答のうち反映されるのは1件のみ。
func (s *Service) Respond(ctx context.Context, code string, vote model.Side, fingerprint string) (*Outcome, error) {
	if !vote.Valid() {
		return nil, model.NewValidationError(`vote must be "a" or "b"`)
	}
	if err := model.ValidateFingerprint(fingerprint); err != nil {
		return nil, err
	}
	if !ValidCode(code) {
		return nil, model.NewChallengeNotFoundError(code)
	}

	ch, res, err := s.challengeRepo.Complete(ctx, code, vote, fingerprint, s.now())
	if err != nil {
		return nil, fmt.Errorf("チャレンジの回答に失敗しました: %w", err)
	}
	if res == repository.WriteApplied {
		s.metrics.RecordChallenge("completed")
		return &Outcome{
			ChallengerVote: ch.ChallengerVote,
			ChallengeeVote: vote,
			Agreed:         ch.ChallengerVote == vote,
		}, nil
	}

	// 条件付き更新が0件の場合、未存在か回答済みかを判別する
	existing, err := s.challengeRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("チャレンジの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewChallengeNotFoundError(code)
	}

	s.metrics.RecordChallenge("already_completed")
	s.logger.Info("回答済みのチャレンジへの回答を拒否しました",
		slog.String("challenge_code", code),
	)
	return nil, model.NewChallengeAlreadyCompletedError()
}
