// Package beef は議論（ビーフ）の閲覧・共有・ランキング・カテゴリ一覧を提供する。
// 閲覧数・共有数は重複排除を行わないベストエフォートのカウンタとして扱う。
package beef

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/repository"
	"github.com/hitoshi/beefboard/internal/verdict"
)

// ページングの既定値と上限
const (
	DefaultHallOfFameLimit = 50
	DefaultCategoryLimit   = 20
	MaxPageLimit           = 100
	MaxExclude             = 500
)

// RankedArgument は殿堂入り一覧の1件。共通の判定ロジックによる集計結果を伴う。
type RankedArgument struct {
	Argument *model.Argument
	Results  verdict.Result
}

// Page は一覧取得の結果。
type Page struct {
	Items  []RankedArgument
	Total  int
	Limit  int
	Offset int
}

// CategorySummary はカテゴリの表示情報と公開済み議論数。
type CategorySummary struct {
	model.CategoryDefinition
	Count int
}

// Service は議論閲覧のサービス層。
type Service struct {
	argRepo repository.ArgumentRepository
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(argRepo repository.ArgumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{argRepo: argRepo, logger: logger}
}

// Get は公開済みの議論を返し、閲覧数を加算する。
func (s *Service) Get(ctx context.Context, beefNumber int) (*model.Argument, error) {
	arg, err := s.argRepo.FindApprovedByBeefNumber(ctx, beefNumber)
	if err != nil {
		return nil, fmt.Errorf("議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return nil, model.NewBeefNotFoundError(beefNumber)
	}
	s.countView(ctx, arg)
	return arg, nil
}

// Random はランダムな公開済み議論を返し、閲覧数を加算する。
// categoryが空または"all"の場合は全カテゴリから選ぶ。
func (s *Service) Random(ctx context.Context, category string, exclude []int) (*model.Argument, error) {
	if category == "all" {
		category = ""
	}
	if len(exclude) > MaxExclude {
		return nil, model.NewValidationError(fmt.Sprintf("exclude accepts at most %d beef numbers", MaxExclude))
	}

	arg, err := s.argRepo.FindRandomApproved(ctx, category, exclude)
	if err != nil {
		return nil, fmt.Errorf("ランダムな議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return nil, model.NewNoBeefFoundError()
	}
	s.countView(ctx, arg)
	return arg, nil
}

// countView は閲覧数を加算する。失敗しても閲覧自体は成功させる。
func (s *Service) countView(ctx context.Context, arg *model.Argument) {
	if err := s.argRepo.IncrementViewCount(ctx, arg.ID); err != nil {
		s.logger.Warn("閲覧数の更新に失敗しました",
			slog.Int("beef_number", arg.BeefNumber),
			slog.String("error", err.Error()),
		)
		return
	}
	arg.ViewCount++
}

// Share は共有数を加算し、加算後の値を返す。
func (s *Service) Share(ctx context.Context, beefNumber int, fingerprint string) (int, error) {
	if err := model.ValidateFingerprint(fingerprint); err != nil {
		return 0, err
	}

	arg, err := s.argRepo.FindApprovedByBeefNumber(ctx, beefNumber)
	if err != nil {
		return 0, fmt.Errorf("議論の取得に失敗しました: %w", err)
	}
	if arg == nil {
		return 0, model.NewBeefNotFoundError(beefNumber)
	}

	count, err := s.argRepo.IncrementShareCount(ctx, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("共有数の更新に失敗しました: %w", err)
	}
	return count, nil
}

// HallOfFame は殿堂入り一覧を返す。sortが空の場合はmost_votedを使う。
func (s *Service) HallOfFame(ctx context.Context, sortBy model.HallOfFameSort, limit, offset int) (*Page, error) {
	if sortBy == "" {
		sortBy = model.HallOfFameMostVoted
	}
	if !sortBy.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("unknown sort %q", sortBy))
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

	args, total, err := s.argRepo.ListHallOfFame(ctx, sortBy, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("殿堂入り一覧の取得に失敗しました: %w", err)
	}

	items := make([]RankedArgument, len(args))
	for i, a := range args {
		items[i] = RankedArgument{Argument: a, Results: verdict.FromCounts(a.VotesA, a.VotesB)}
	}
	return &Page{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Categories は既知カテゴリと、データ上に存在するその他のカテゴリを件数付きで返す。
// 既知カテゴリは定義順、その他はslug順で後ろに並べる。
func (s *Service) Categories(ctx context.Context) ([]CategorySummary, error) {
	counts, err := s.argRepo.CountApprovedByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ別件数の取得に失敗しました: %w", err)
	}

	var summaries []CategorySummary
	for _, def := range model.KnownCategories() {
		summaries = append(summaries, CategorySummary{CategoryDefinition: def, Count: counts[def.Slug]})
	}

	var extra []string
	for slug := range counts {
		if !model.IsKnownCategory(slug) {
			extra = append(extra, slug)
		}
	}
	sort.Strings(extra)
	for _, slug := range extra {
		summaries = append(summaries, CategorySummary{CategoryDefinition: model.CategoryDisplay(slug), Count: counts[slug]})
	}
	return summaries, nil
}

// Category はカテゴリの公開済み議論を総投票数の降順で返す。
// 既知でなく議論も存在しないslugはUnknownCategoryエラーとなる。
func (s *Service) Category(ctx context.Context, slug string, limit, offset int) (*CategorySummary, *Page, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, nil, err
	}

	args, total, err := s.argRepo.ListApprovedByCategory(ctx, slug, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("カテゴリ別一覧の取得に失敗しました: %w", err)
	}
	if total == 0 && !model.IsKnownCategory(slug) {
		return nil, nil, model.NewUnknownCategoryError(slug)
	}

	items := make([]RankedArgument, len(args))
	for i, a := range args {
		items[i] = RankedArgument{Argument: a, Results: verdict.FromCounts(a.VotesA, a.VotesB)}
	}
	summary := &CategorySummary{CategoryDefinition: model.CategoryDisplay(slug), Count: total}
	return summary, &Page{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func validatePage(limit, offset int) error {
	if limit < 1 || limit > MaxPageLimit {
		return model.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxPageLimit))
	}
	if offset < 0 {
		return model.NewValidationError("offset must not be negative")
	}
	return nil
}
