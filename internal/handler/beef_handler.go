package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/beefboard/internal/botd"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/verdict"
)

// VoteServiceInterface は投票ハンドラーが必要とするサービスインターフェース。
type VoteServiceInterface interface {
	// Cast は投票を記録し、加算後の集計結果を返す。
	Cast(ctx context.Context, beefNumber int, side model.Side, fingerprint string) (verdict.Result, error)
	// Results は現在の集計結果を返す。
	Results(ctx context.Context, beefNumber int) (verdict.Result, error)
}

// ReactionServiceInterface はリアクションハンドラーが必要とするサービスインターフェース。
type ReactionServiceInterface interface {
	React(ctx context.Context, beefNumber int, reactionType model.ReactionType, fingerprint string) (model.ReactionCounts, error)
}

// ArgumentServiceInterface は議論の閲覧・共有に必要なサービスインターフェース。
type ArgumentServiceInterface interface {
	Get(ctx context.Context, beefNumber int) (*model.Argument, error)
	Random(ctx context.Context, category string, exclude []int) (*model.Argument, error)
	Share(ctx context.Context, beefNumber int, fingerprint string) (int, error)
}

// TodayServiceInterface は今日のビーフの取得に必要なサービスインターフェース。
type TodayServiceInterface interface {
	Today(ctx context.Context) (*botd.Today, error)
}

// BeefHandler は議論・投票・リアクション・今日のビーフのHTTPハンドラー。
type BeefHandler struct {
	votes     VoteServiceInterface
	reactions ReactionServiceInterface
	arguments ArgumentServiceInterface
	today     TodayServiceInterface
}

// NewBeefHandler はBeefHandlerを生成する。
func NewBeefHandler(
	votes VoteServiceInterface,
	reactions ReactionServiceInterface,
	arguments ArgumentServiceInterface,
	today TodayServiceInterface,
) *BeefHandler {
	return &BeefHandler{
		votes:     votes,
		reactions: reactions,
		arguments: arguments,
		today:     today,
	}
}

// voteRequest は投票リクエストのボディ。
type voteRequest struct {
	Side        string `json:"side"`
	Fingerprint string `json:"fingerprint"`
}

// reactRequest はリアクションリクエストのボディ。
type reactRequest struct {
	Type        string `json:"type"`
	Fingerprint string `json:"fingerprint"`
}

// shareRequest は共有リクエストのボディ。
type shareRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// CastVote は投票を処理する。
// POST /api/beef/{beefNumber}/vote
func (h *BeefHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	beefNumber, ok := parseBeefNumber(w, chi.URLParam(r, "beefNumber"))
	if !ok {
		return
	}
	var req voteRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	res, err := h.votes.Cast(r.Context(), beefNumber, model.Side(req.Side), req.Fingerprint)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": toResultsResponse(res),
	})
}

// GetResults は投票集計を返す。
// GET /api/beef/{beefNumber}/results
func (h *BeefHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	beefNumber, ok := parseBeefNumber(w, chi.URLParam(r, "beefNumber"))
	if !ok {
		return
	}

	res, err := h.votes.Results(r.Context(), beefNumber)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": toResultsResponse(res)})
}

// React はリアクションを処理する。
// POST /api/beef/{beefNumber}/react
func (h *BeefHandler) React(w http.ResponseWriter, r *http.Request) {
	beefNumber, ok := parseBeefNumber(w, chi.URLParam(r, "beefNumber"))
	if !ok {
		return
	}
	var req reactRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	counts, err := h.reactions.React(r.Context(), beefNumber, model.ReactionType(req.Type), req.Fingerprint)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"reactions": counts.Normalize(),
	})
}

// GetBeef は議論を返し、閲覧数を加算する。
// GET /api/beef/{beefNumber}
func (h *BeefHandler) GetBeef(w http.ResponseWriter, r *http.Request) {
	beefNumber, ok := parseBeefNumber(w, chi.URLParam(r, "beefNumber"))
	if !ok {
		return
	}

	arg, err := h.arguments.Get(r.Context(), beefNumber)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"argument": toArgumentResponse(arg)})
}

// RandomBeef はランダムな議論を返す。
// GET /api/beef/random?category=&exclude=1,2,3
func (h *BeefHandler) RandomBeef(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	arg, err := h.arguments.Random(r.Context(), q.Get("category"), parseExclude(q.Get("exclude")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"argument": toArgumentResponse(arg)})
}

// parseExclude はカンマ区切りのビーフ番号を解析する。数値でない要素は無視する。
func parseExclude(raw string) []int {
	if raw == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Share は共有数を加算する。
// POST /api/beef/{beefNumber}/share
func (h *BeefHandler) Share(w http.ResponseWriter, r *http.Request) {
	beefNumber, ok := parseBeefNumber(w, chi.URLParam(r, "beefNumber"))
	if !ok {
		return
	}
	var req shareRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	count, err := h.arguments.Share(r.Context(), beefNumber, req.Fingerprint)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"shareCount": count,
	})
}

// Today は今日のビーフを返す。
// GET /api/beef/today
func (h *BeefHandler) Today(w http.ResponseWriter, r *http.Request) {
	today, err := h.today.Today(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"argument":                 toArgumentResponse(today.Argument),
		"date":                     today.Date,
		"secondsUntilNextRotation": today.SecondsUntilNextRotation,
	})
}
