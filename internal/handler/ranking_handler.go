package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/beefboard/internal/beef"
	"github.com/hitoshi/beefboard/internal/model"
)

// RankingServiceInterface は殿堂入り・カテゴリ一覧に必要なサービスインターフェース。
type RankingServiceInterface interface {
	HallOfFame(ctx context.Context, sort model.HallOfFameSort, limit, offset int) (*beef.Page, error)
	Categories(ctx context.Context) ([]beef.CategorySummary, error)
	Category(ctx context.Context, slug string, limit, offset int) (*beef.CategorySummary, *beef.Page, error)
}

// RankingHandler は殿堂入りとカテゴリのHTTPハンドラー。
type RankingHandler struct {
	service RankingServiceInterface
}

// NewRankingHandler はRankingHandlerを生成する。
func NewRankingHandler(service RankingServiceInterface) *RankingHandler {
	return &RankingHandler{service: service}
}

// rankedArgumentResponse は判定付きの議論レスポンス。
type rankedArgumentResponse struct {
	argumentResponse
	Results resultsResponse `json:"results"`
}

// categoryResponse はカテゴリのAPIレスポンス。
type categoryResponse struct {
	Slug    string `json:"slug"`
	Label   string `json:"label"`
	Emoji   string `json:"emoji"`
	Tagline string `json:"tagline"`
	Count   int    `json:"count"`
}

func toCategoryResponse(c beef.CategorySummary) categoryResponse {
	return categoryResponse{
		Slug:    c.Slug,
		Label:   c.Label,
		Emoji:   c.Emoji,
		Tagline: c.Tagline,
		Count:   c.Count,
	}
}

func toRankedResponses(items []beef.RankedArgument) []rankedArgumentResponse {
	out := make([]rankedArgumentResponse, len(items))
	for i, item := range items {
		out[i] = rankedArgumentResponse{
			argumentResponse: toArgumentResponse(item.Argument),
			Results:          toResultsResponse(item.Results),
		}
	}
	return out
}

// pageParams はlimit/offsetクエリを解析する。
func pageParams(r *http.Request, defaultLimit int) (int, int, error) {
	limit, err := parseIntQuery(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := parseIntQuery(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// HallOfFame は殿堂入り一覧を返す。
// GET /api/hall-of-fame?sort=&limit=&offset=
func (h *RankingHandler) HallOfFame(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r, beef.DefaultHallOfFameLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	sort := model.HallOfFameSort(r.URL.Query().Get("sort"))

	page, err := h.service.HallOfFame(r.Context(), sort, limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if sort == "" {
		sort = model.HallOfFameMostVoted
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"arguments": toRankedResponses(page.Items),
		"total":     page.Total,
		"sort":      sort,
		"limit":     page.Limit,
		"offset":    page.Offset,
	})
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *RankingHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]categoryResponse, len(cats))
	for i, c := range cats {
		out[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// GetCategory はカテゴリの議論一覧を返す。
// GET /api/categories/{slug}?limit=&offset=
func (h *RankingHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r, beef.DefaultCategoryLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	summary, page, err := h.service.Category(r.Context(), chi.URLParam(r, "slug"), limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category":  toCategoryResponse(*summary),
		"arguments": toRankedResponses(page.Items),
		"total":     page.Total,
		"limit":     page.Limit,
		"offset":    page.Offset,
	})
}
