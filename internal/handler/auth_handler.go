package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/morf1ng/105site/internal/service"
	"github.com/morf1ng/105site/pkg/auth"
)

// RefreshTokenHeader はリフレッシュトークンを返すレスポンスヘッダ
const RefreshTokenHeader = "X-Refresh-Token"

// AuthHandler はログインとトークン更新の HTTP ハンドラ
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler は AuthHandler を生成する
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type refreshForm struct {
	RefreshToken string `form:"refresh_token" validate:"required"`
}

// Login は POST /api/auth/login を処理する
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r, maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return
	}
	form := loginForm{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationCode(err))
		return
	}

	pair, err := h.authService.Login(r.Context(), form.Email, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeTokens(w, pair)
}

// Refresh は POST /api/auth/refresh を処理する
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r, maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return
	}
	form := refreshForm{RefreshToken: r.PostFormValue("refresh_token")}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationCode(err))
		return
	}

	pair, err := h.authService.Refresh(r.Context(), form.RefreshToken)
	if errors.Is(err, service.ErrInvalidRefreshToken) {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	if err != nil {
		slog.Error("refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeTokens(w, pair)
}

// writeTokens はトークンを本文とヘッダの両方で返す
func writeTokens(w http.ResponseWriter, pair auth.TokenPair) {
	w.Header().Set("Authorization", "Bearer "+pair.AccessToken)
	w.Header().Set(RefreshTokenHeader, pair.RefreshToken)
	writeJSON(w, http.StatusOK, pair)
}
