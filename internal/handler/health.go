package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// DB の応答を待つ上限
const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Database string `json:"database"`
}

// Health は GET /api/health を処理する。DB に届かなければ 503
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		slog.Warn("health check: database ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:   "unhealthy",
			Message:  "105site API",
			Database: "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Message: "105site API", Database: "ok"})
}
