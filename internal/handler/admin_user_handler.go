package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/internal/service"
)

// AdminUserHandler は管理者向けユーザー管理の HTTP ハンドラ
type AdminUserHandler struct {
	userService service.AdminUserService
}

// NewAdminUserHandler は AdminUserHandler を生成する
func NewAdminUserHandler(userService service.AdminUserService) *AdminUserHandler {
	return &AdminUserHandler{userService: userService}
}

type createUserForm struct {
	Email    string `form:"email" validate:"required,email,max=255"`
	Password string `form:"password" validate:"required"`
	RoleIDs  string `form:"role_ids" validate:"required"`
}

type updateUserForm struct {
	Email    *string `form:"email" validate:"omitempty,email,max=255"`
	Password *string `form:"password" validate:"omitempty"`
}

// userErrorStatus はサービスのエラーを HTTP ステータスとコードに変換する
func userErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrUserExists):
		return http.StatusBadRequest, "user_exists"
	case errors.Is(err, service.ErrInvalidRoleIDs):
		return http.StatusBadRequest, "invalid_role_ids"
	case errors.Is(err, service.ErrRoleRequired):
		return http.StatusBadRequest, "role_required"
	case errors.Is(err, service.ErrRoleNotFound):
		return http.StatusBadRequest, "role_not_found"
	case errors.Is(err, service.ErrEmailRequired):
		return http.StatusBadRequest, "email_required"
	case errors.Is(err, service.ErrPasswordRequired):
		return http.StatusBadRequest, "password_required"
	case errors.Is(err, service.ErrLastAdmin):
		return http.StatusForbidden, "last_admin"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeUserError(w http.ResponseWriter, err error) {
	status, code := userErrorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("admin user request failed", "error", err)
	}
	writeError(w, status, code)
}

// List は GET /api/admin/users を処理する
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get は GET /api/admin/users/{id} を処理する
func (h *AdminUserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	u, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Create は POST /api/admin/users を処理する
func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r, maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return
	}
	form := createUserForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		RoleIDs:  r.PostFormValue("role_ids"),
	}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationCode(err))
		return
	}

	u, err := h.userService.CreateUser(r.Context(), service.CreateUserInput{
		Email:    form.Email,
		Password: form.Password,
		Fullname: optionalValue(r, "fullname"),
		RoleIDs:  form.RoleIDs,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Update は PUT /api/admin/users/{id} を処理する。送られたフィールドだけを更新する
func (h *AdminUserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := parseForm(r, maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return
	}
	form := updateUserForm{Email: optionalValue(r, "email"), Password: optionalValue(r, "password")}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationCode(err))
		return
	}

	u, err := h.userService.UpdateUser(r.Context(), id, service.UpdateUserInput{
		Email:    form.Email,
		Password: form.Password,
		Fullname: optionalValue(r, "fullname"),
		RoleIDs:  optionalValue(r, "role_ids"),
	})
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Delete は DELETE /api/admin/users/{id} を処理する
func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.userService.DeleteUser(r.Context(), id); err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Deleted"})
}
