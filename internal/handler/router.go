package handler

import (
	"net/http"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/pkg/auth"
)

// RouterConfig は NewRouter に渡す依存
type RouterConfig struct {
	Handler  *Handler
	Projects *ProjectHandler
	Auth     *AuthHandler
	Users    *AdminUserHandler
	Roles    *RoleHandler
	Uploads  *UploadHandler
	Tables   TableLister
	Issuer   *auth.TokenIssuer
	// LoginLimiter が nil の場合ログインは制限しない
	LoginLimiter *RateLimiter
	// Metrics が nil の場合 /metrics を公開しない
	Metrics *Metrics
}

// NewRouter はルーティングとミドルウェアを組み立てる
func NewRouter(c RouterConfig) http.Handler {
	admin := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(c.Issuer)(auth.RequireRole(model.AdminRoleName)(h))
	}
	limited := func(h http.HandlerFunc) http.Handler {
		if c.LoginLimiter == nil {
			return h
		}
		return c.LoginLimiter.Middleware(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", c.Handler.Health)

	// 認証
	mux.Handle("POST /api/auth/login", limited(c.Auth.Login))
	mux.Handle("POST /api/auth/refresh", limited(c.Auth.Refresh))

	// プロジェクト API（一覧・詳細は認証不要）
	mux.HandleFunc("GET /api/projects", c.Projects.List)
	mux.HandleFunc("GET /api/projects/{id}", c.Projects.Get)
	mux.Handle("POST /api/projects", admin(c.Projects.Create))
	mux.Handle("PUT /api/projects/{id}", admin(c.Projects.Update))
	mux.Handle("DELETE /api/projects/{id}", admin(c.Projects.Delete))

	// 管理 API
	mux.Handle("GET /api/admin/roles", admin(c.Roles.List))
	mux.Handle("POST /api/admin/roles", admin(c.Roles.Create))
	mux.Handle("PUT /api/admin/roles/{id}", admin(c.Roles.Update))
	mux.Handle("DELETE /api/admin/roles/{id}", admin(c.Roles.Delete))
	mux.Handle("GET /api/admin/users", admin(c.Users.List))
	mux.Handle("POST /api/admin/users", admin(c.Users.Create))
	mux.Handle("GET /api/admin/users/{id}", admin(c.Users.Get))
	mux.Handle("PUT /api/admin/users/{id}", admin(c.Users.Update))
	mux.Handle("DELETE /api/admin/users/{id}", admin(c.Users.Delete))
	mux.Handle("GET /api/tables", admin(TablesHandler(c.Tables)))

	mux.HandleFunc("GET /uploads/{path...}", c.Uploads.Serve)

	var root http.Handler = mux
	if c.Metrics != nil {
		mux.Handle("GET /metrics", c.Metrics.Handler())
		root = c.Metrics.Middleware(mux)
	}
	return SecurityHeaders(c.Handler.CORS(RequestLogger(root)))
}
