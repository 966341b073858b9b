package service

import (
	"context"
	"errors"
	"testing"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/pkg/auth"
)

func newAuthFixture(t *testing.T) (AuthService, *auth.TokenIssuer) {
	t.Helper()
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatal(err)
	}
	user := &model.User{ID: 5, Email: "admin@example.com", PasswordHash: hash, RoleIDs: "1, 2,99"}
	users := &mockUserRepository{
		findByEmailFunc: func(_ context.Context, email string) (*model.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, repository.ErrNotFound
		},
		findByIDFunc: func(_ context.Context, id int64) (*model.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	issuer, err := auth.NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	return NewAuthService(users, defaultRoles(), issuer), issuer
}

func TestAuthService_Login_IssuesTokensWithRoleNames(t *testing.T) {
	svc, issuer := newAuthFixture(t)

	pair, err := svc.Login(context.Background(), " admin@example.com ", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := issuer.Parse(pair.AccessToken, auth.TypeAccess)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.UserID != 5 {
		t.Errorf("user_id = %d", claims.UserID)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" || claims.Roles[1] != "editor" {
		t.Errorf("roles = %v", claims.Roles)
	}
	if pair.TokenType != "bearer" {
		t.Errorf("token_type = %q", pair.TokenType)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)

	for _, tc := range []struct{ email, password string }{
		{"admin@example.com", "wrong"},
		{"nobody@example.com", "secret"},
	} {
		if _, err := svc.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s/%s: expected ErrInvalidCredentials, got %v", tc.email, tc.password, err)
		}
	}
}

func TestAuthService_Refresh(t *testing.T) {
	svc, issuer := newAuthFixture(t)
	pair, err := svc.Login(context.Background(), "admin@example.com", "secret")
	if err != nil {
		t.Fatal(err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := issuer.Parse(next.AccessToken, auth.TypeAccess); err != nil {
		t.Errorf("refreshed access token invalid: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("access token accepted for refresh: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("garbage accepted: %v", err)
	}

	stranger, _ := issuer.Issue(404, nil)
	if _, err := svc.Refresh(context.Background(), stranger.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("token for deleted user accepted: %v", err)
	}
}
