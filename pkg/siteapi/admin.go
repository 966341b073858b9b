package siteapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Role は管理 API のロール
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User は管理 API のユーザー。RoleIDs はカンマ区切り
type User struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Fullname  *string `json:"fullname"`
	RoleIDs   *string `json:"role_ids"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// UserInput は作成・更新の入力。nil のフィールドは送信しない
type UserInput struct {
	Email    *string
	Password *string
	Fullname *string
	RoleIDs  []int64
}

func (in UserInput) form() url.Values {
	f := url.Values{}
	if in.Email != nil {
		f.Set("email", *in.Email)
	}
	if in.Password != nil {
		f.Set("password", *in.Password)
	}
	if in.Fullname != nil {
		f.Set("fullname", *in.Fullname)
	}
	if in.RoleIDs != nil {
		f.Set("role_ids", JoinRoleIDs(in.RoleIDs))
	}
	return f
}

// JoinRoleIDs formats ids as "1,2,3".
func JoinRoleIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func rolePath(id int64) string { return "/admin/roles/" + strconv.FormatInt(id, 10) }
func userPath(id int64) string { return "/admin/users/" + strconv.FormatInt(id, 10) }

// ListRoles は GET /admin/roles
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	if err := c.getJSON(ctx, "/admin/roles", "list roles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRole は POST /admin/roles
func (c *Client) CreateRole(ctx context.Context, name string) (*Role, error) {
	var out Role
	if _, err := c.sendForm(ctx, http.MethodPost, "/admin/roles", "create role", url.Values{"name": {name}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRole は PUT /admin/roles/{id}
func (c *Client) UpdateRole(ctx context.Context, id int64, name string) (*Role, error) {
	var out Role
	if _, err := c.sendForm(ctx, http.MethodPut, rolePath(id), "update role", url.Values{"name": {name}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRole は DELETE /admin/roles/{id}
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.delete(ctx, rolePath(id), "delete role")
}

// ListUsers は GET /admin/users
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.getJSON(ctx, "/admin/users", "list users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser は GET /admin/users/{id}
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var out User
	if err := c.getJSON(ctx, userPath(id), "get user", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser は POST /admin/users
func (c *Client) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	var out User
	if _, err := c.sendForm(ctx, http.MethodPost, "/admin/users", "create user", in.form(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser は PUT /admin/users/{id}
func (c *Client) UpdateUser(ctx context.Context, id int64, in UserInput) (*User, error) {
	var out User
	if _, err := c.sendForm(ctx, http.MethodPut, userPath(id), "update user", in.form(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser は DELETE /admin/users/{id}
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.delete(ctx, userPath(id), "delete user")
}

// ListTables は GET /tables (デバッグ用)
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	var out struct {
		Tables []string `json:"tables"`
	}
	if err := c.getJSON(ctx, "/tables", "list tables", &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}
