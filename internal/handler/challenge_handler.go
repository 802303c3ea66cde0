package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/beefboard/internal/challenge"
	"github.com/hitoshi/beefboard/internal/model"
)

// ChallengeServiceInterface はチャレンジハンドラーが必要とするサービスインターフェース。
type ChallengeServiceInterface interface {
	Create(ctx context.Context, beefNumber int, vote model.Side, fingerprint string) (*challenge.Created, error)
	Get(ctx context.Context, code string) (*challenge.View, error)
	Respond(ctx context.Context, code string, vote model.Side, fingerprint string) (*challenge.Outcome, error)
}

// ChallengeHandler はチャレンジのHTTPハンドラー。
type ChallengeHandler struct {
	service ChallengeServiceInterface
}

// NewChallengeHandler はChallengeHandlerを生成する。
func NewChallengeHandler(service ChallengeServiceInterface) *ChallengeHandler {
	return &ChallengeHandler{service: service}
}

// createChallengeRequest はチャレンジ作成リクエストのボディ。
type createChallengeRequest struct {
	BeefNumber  int    `json:"beefNumber"`
	Vote        string `json:"vote"`
	Fingerprint string `json:"fingerprint"`
}

// respondChallengeRequest はチャレンジ回答リクエストのボディ。
type respondChallengeRequest struct {
	Vote        string `json:"vote"`
	Fingerprint string `json:"fingerprint"`
}

// challengeViewResponse はチャレンジ閲覧のAPIレスポンス。
// 回答待ちの間は出題者の投票を含めない。
type challengeViewResponse struct {
	Argument       argumentResponse `json:"argument"`
	Status         string           `json:"status"`
	ChallengerVote *model.Side      `json:"challengerVote,omitempty"`
	ChallengeeVote *model.Side      `json:"challengeeVote,omitempty"`
	Agreed         *bool            `json:"agreed,omitempty"`
}

// challengeOutcomeResponse はチャレンジ回答のAPIレスポンス。
type challengeOutcomeResponse struct {
	ChallengerVote model.Side `json:"challengerVote"`
	ChallengeeVote model.Side `json:"challengeeVote"`
	Agreed         bool       `json:"agreed"`
}

// Create はチャレンジを作成する。
// POST /api/challenge/create
func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.BeefNumber < 1 {
		handleServiceError(w, r, model.NewValidationError("beefNumber must be a positive integer"))
		return
	}

	created, err := h.service.Create(r.Context(), req.BeefNumber, model.Side(req.Vote), req.Fingerprint)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"challengeCode": created.Code,
		"shareUrl":      created.ShareURL,
	})
}

// Get はチャレンジを返す。
// GET /api/challenge/{code}
func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, challengeViewResponse{
		Argument:       toArgumentResponse(view.Argument),
		Status:         string(view.Status),
		ChallengerVote: view.ChallengerVote,
		ChallengeeVote: view.ChallengeeVote,
		Agreed:         view.Agreed,
	})
}

// Respond はチャレンジに回答する。
// POST /api/challenge/{code}/respond
func (h *ChallengeHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondChallengeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	outcome, err := h.service.Respond(r.Context(), chi.URLParam(r, "code"), model.Side(req.Vote), req.Fingerprint)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, challengeOutcomeResponse{
		ChallengerVote: outcome.ChallengerVote,
		ChallengeeVote: outcome.ChallengeeVote,
		Agreed:         outcome.Agreed,
	})
}
