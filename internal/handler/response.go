package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/beefboard/internal/middleware"
	"github.com/hitoshi/beefboard/internal/model"
	"github.com/hitoshi/beefboard/internal/verdict"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 16 << 10

// argumentResponse は議論のAPIレスポンス。出典URLは含めない。
type argumentResponse struct {
	ID                 string               `json:"id"`
	BeefNumber         int                  `json:"beefNumber"`
	Platform           string               `json:"platform"`
	PlatformSource     string               `json:"platformSource"`
	Title              string               `json:"title"`
	ContextBlurb       *string              `json:"contextBlurb"`
	TopicDrift         *string              `json:"topicDrift"`
	Category           string               `json:"category"`
	HeatRating         int                  `json:"heatRating"`
	UserADisplayName   string               `json:"userADisplayName"`
	UserBDisplayName   string               `json:"userBDisplayName"`
	UserAZinger        *string              `json:"userAZinger"`
	UserBZinger        *string              `json:"userBZinger"`
	Messages           []model.Message      `json:"messages"`
	EntertainmentScore *float64             `json:"entertainmentScore"`
	Status             string               `json:"status"`
	TotalVotes         int                  `json:"totalVotes"`
	VotesA             int                  `json:"votesA"`
	VotesB             int                  `json:"votesB"`
	Reactions          model.ReactionCounts `json:"reactions"`
	ViewCount          int                  `json:"viewCount"`
	ShareCount         int                  `json:"shareCount"`
	CreatedAt          string               `json:"createdAt"`
	UpdatedAt          string               `json:"updatedAt"`
}

// resultsResponse は投票集計のAPIレスポンス。
type resultsResponse struct {
	TotalVotes   int    `json:"totalVotes"`
	VotesA       int    `json:"votesA"`
	VotesB       int    `json:"votesB"`
	PercentA     int    `json:"percentA"`
	PercentB     int    `json:"percentB"`
	Verdict      string `json:"verdict"`
	VerdictEmoji string `json:"verdictEmoji"`
}

// toArgumentResponse はmodel.ArgumentからAPIレスポンスに変換する。
func toArgumentResponse(a *model.Argument) argumentResponse {
	messages := a.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	return argumentResponse{
		ID:                 a.ID,
		BeefNumber:         a.BeefNumber,
		Platform:           a.Platform,
		PlatformSource:     a.PlatformSource,
		Title:              a.Title,
		ContextBlurb:       a.ContextBlurb,
		TopicDrift:         a.TopicDrift,
		Category:           a.Category,
		HeatRating:         a.HeatRating,
		UserADisplayName:   a.UserADisplayName,
		UserBDisplayName:   a.UserBDisplayName,
		UserAZinger:        a.UserAZinger,
		UserBZinger:        a.UserBZinger,
		Messages:           messages,
		EntertainmentScore: a.EntertainmentScore,
		Status:             string(a.Status),
		TotalVotes:         a.TotalVotes,
		VotesA:             a.VotesA,
		VotesB:             a.VotesB,
		Reactions:          a.Reactions.Normalize(),
		ViewCount:          a.ViewCount,
		ShareCount:         a.ShareCount,
		CreatedAt:          a.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:          a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// toResultsResponse は集計結果をAPIレスポンスに変換する。
func toResultsResponse(r verdict.Result) resultsResponse {
	return resultsResponse{
		TotalVotes:   r.TotalVotes,
		VotesA:       r.VotesA,
		VotesB:       r.VotesB,
		PercentA:     r.PercentA,
		PercentB:     r.PercentB,
		Verdict:      r.Verdict.Label,
		VerdictEmoji: r.Verdict.Emoji,
	}
}

// --- ヘルパー関数 ---

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSONBody はリクエストボディをデコードする。失敗時は400レスポンスを書き込みfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "Could not parse the request body.",
			Category: "validation",
			Action:   "Send a valid JSON body.",
		})
		return false
	}
	return true
}

// parseBeefNumber はパスパラメータのビーフ番号を解析する。
func parseBeefNumber(w http.ResponseWriter, raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("beef number must be a positive integer"))
		return 0, false
	}
	return n, true
}

// parseIntQuery は整数のクエリパラメータを解析する。未指定の場合はdefを返す。
func parseIntQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(name + " must be an integer")
	}
	return n, nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// 競合（409）は想定内の結果のためinfoで記録し、ストア障害は503を返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := chimw.GetReqID(r.Context())

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		if model.IsConflict(apiErr) {
			slog.Info("ledger conflict",
				slog.String("code", apiErr.Code),
				slog.String("path", r.URL.Path),
				slog.String("request_id", reqID),
			)
		}
		middleware.WriteErrorResponse(w, statusCode, apiErr)
		return
	}

	if errors.Is(err, model.ErrStoreUnavailable) {
		slog.Error("store unavailable",
			slog.String("path", r.URL.Path),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		middleware.WriteStoreUnavailable(w)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("path", r.URL.Path),
		slog.String("request_id", reqID),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeBeefNotFound, model.ErrCodeChallengeNotFound,
		model.ErrCodeNoBOTDToday, model.ErrCodeUnknownCategory:
		return http.StatusNotFound
	case model.ErrCodeAlreadyVoted, model.ErrCodeAlreadyReacted, model.ErrCodeChallengeAlreadyCompleted:
		return http.StatusConflict
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeCodeGenerationFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
