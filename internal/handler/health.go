package handler

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout はヘルスチェック時のストア疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// Pinger はストアの疎通確認を行うインターフェース。*sql.DB が満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler はHealthHandlerを生成する。storeがnilの場合は疎通確認を省略する。
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health はプロセスとストアの状態を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.store.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"store":  "down",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  "up",
	})
}
