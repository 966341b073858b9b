package service

import "errors"

// 認証
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// ユーザー・ロール管理
var (
	ErrInvalidRoleIDs   = errors.New("invalid role_ids format")
	ErrRoleRequired     = errors.New("at least one role is required")
	ErrRoleNotFound     = errors.New("one or more roles do not exist")
	ErrUserExists       = errors.New("user already exists")
	ErrLastAdmin        = errors.New("last admin cannot lose the admin role")
	ErrRoleExists       = errors.New("role already exists")
	ErrRoleInUse        = errors.New("role is still assigned to users")
	ErrRoleNameRequired = errors.New("role name is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
)

// プロジェクト
var (
	ErrTitleRequired = errors.New("title is required")
	ErrURLRequired   = errors.New("url is required")
	ErrInvalidFile   = errors.New("unsupported image type")
)
