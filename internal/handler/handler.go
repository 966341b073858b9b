package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/morf1ng/105site/internal/repository"
)

type Handler struct {
	db   repository.DB
	cors *cors.Cors
}

// New は Handler を生成する。frontendURL はカンマ区切りで複数指定でき、"*" は全許可
func New(db repository.DB, frontendURL string) *Handler {
	var origins []string
	for _, o := range strings.Split(frontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		db: db,
		cors: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			// ログイン・リフレッシュはトークンをヘッダでも返す
			ExposedHeaders: []string{"Authorization", "X-Refresh-Token"},
			MaxAge:         300,
		}),
	}
}

func (h *Handler) CORS(next http.Handler) http.Handler {
	return h.cors.Handler(next)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
