package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/morf1ng/105site/internal/storage"
)

// UploadHandler は保存済み画像を配信する
type UploadHandler struct {
	storage storage.Storage
}

// NewUploadHandler は UploadHandler を生成する
func NewUploadHandler(store storage.Storage) *UploadHandler {
	return &UploadHandler{storage: store}
}

// Serve は GET /uploads/{path...} を処理する
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	rc, info, err := h.storage.Open(r.Context(), r.PathValue("path"))
	if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		slog.Error("open upload failed", "path", r.PathValue("path"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", info.ModTime, rs)
		return
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	_, _ = io.Copy(w, rc)
}
