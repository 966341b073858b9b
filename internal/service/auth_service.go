package service

import (
	"context"

	"github.com/morf1ng/105site/pkg/auth"
)

// AuthService はログインとトークン更新のインターフェース
type AuthService interface {
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}
