package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/internal/service"
)

// RoleHandler はロール管理の HTTP ハンドラ
type RoleHandler struct {
	roleService service.RoleService
}

// NewRoleHandler は RoleHandler を生成する
func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

type roleForm struct {
	Name string `form:"name" validate:"required,max=64"`
}

func writeRoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrRoleExists):
		writeError(w, http.StatusBadRequest, "role_exists")
	case errors.Is(err, service.ErrRoleNameRequired):
		writeError(w, http.StatusBadRequest, "name_required")
	case errors.Is(err, service.ErrRoleInUse):
		writeError(w, http.StatusForbidden, "role_in_use")
	default:
		slog.Error("role request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func (h *RoleHandler) bind(w http.ResponseWriter, r *http.Request) (roleForm, bool) {
	if err := parseForm(r, maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form")
		return roleForm{}, false
	}
	form := roleForm{Name: r.PostFormValue("name")}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationCode(err))
		return roleForm{}, false
	}
	return form, true
}

// List は GET /api/admin/roles を処理する
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.ListRoles(r.Context())
	if err != nil {
		writeRoleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// Create は POST /api/admin/roles を処理する
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.bind(w, r)
	if !ok {
		return
	}
	role, err := h.roleService.CreateRole(r.Context(), form.Name)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

// Update は PUT /api/admin/roles/{id} を処理する
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	form, ok := h.bind(w, r)
	if !ok {
		return
	}
	role, err := h.roleService.UpdateRole(r.Context(), id, form.Name)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// Delete は DELETE /api/admin/roles/{id} を処理する
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.roleService.DeleteRole(r.Context(), id); err != nil {
		writeRoleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Deleted"})
}

// TableLister は DB のテーブル一覧を返す
type TableLister interface {
	ListTables(ctx context.Context) ([]string, error)
}

// TablesHandler は GET /api/tables を処理する (デバッグ用)
func TablesHandler(tables TableLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := tables.ListTables(r.Context())
		if err != nil {
			slog.Error("list tables failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"tables": names})
	}
}
