package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User は管理画面のアカウント。RoleIDs はカンマ区切りのロール ID
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Fullname     *string   `json:"fullname"`
	RoleIDs      string    `json:"role_ids"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleIDList は RoleIDs を数値の一覧にする
func (u *User) RoleIDList() []int64 {
	ids, _ := ParseRoleIDs(u.RoleIDs)
	return ids
}

// HasRole reports whether roleID is among the user's roles.
func (u *User) HasRole(roleID int64) bool {
	for _, id := range u.RoleIDList() {
		if id == roleID {
			return true
		}
	}
	return false
}

// ParseRoleIDs は "1, 2,3" のような文字列を解析する。空要素は無視する
func ParseRoleIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid role id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatRoleIDs は ParseRoleIDs の逆変換
func FormatRoleIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Role はユーザーに付与する権限
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AdminRoleName は管理 API を許可するロール名
const AdminRoleName = "admin"
