package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/pkg/auth"
)

// AuthServiceImpl は AuthService の実装
type AuthServiceImpl struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	issuer   *auth.TokenIssuer
}

// NewAuthService は AuthServiceImpl を生成する（DI: UserRepository, RoleRepository を注入）
func NewAuthService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, issuer *auth.TokenIssuer) AuthService {
	return &AuthServiceImpl{userRepo: userRepo, roleRepo: roleRepo, issuer: issuer}
}

// Login はメールアドレスとパスワードを検証してトークンを発行する
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	u, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	if !checkPassword(u.PasswordHash, password) {
		slog.Info("login rejected", "user_id", u.ID)
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// Refresh はリフレッシュトークンから新しいトークンの組を発行する。
// ロールは発行時点の DB の内容で付け直す
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.issuer.Parse(strings.TrimSpace(refreshToken), auth.TypeRefresh)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidRefreshToken
	}
	u, err := s.userRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return auth.TokenPair{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	return s.issue(ctx, u)
}

func (s *AuthServiceImpl) issue(ctx context.Context, u *model.User) (auth.TokenPair, error) {
	names, err := roleNames(ctx, s.roleRepo, u)
	if err != nil {
		return auth.TokenPair{}, err
	}
	pair, err := s.issuer.Issue(u.ID, names)
	if err != nil {
		return auth.TokenPair{}, err
	}
	slog.Debug("tokens issued", "user_id", u.ID, "roles", names)
	return pair, nil
}

// roleNames はユーザーのロール ID を名前に変換する。存在しない ID は無視する
func roleNames(ctx context.Context, roleRepo repository.RoleRepository, u *model.User) ([]string, error) {
	roles, err := roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	byID := make(map[int64]string, len(roles))
	for _, r := range roles {
		byID[r.ID] = r.Name
	}
	names := []string{}
	for _, id := range u.RoleIDList() {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}
