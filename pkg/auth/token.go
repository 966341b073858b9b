package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン種別 (typ クレーム)
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken は署名不正・期限切れ・種別違いのトークン
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims はトークンに載せるユーザー情報
type Claims struct {
	UserID int64    `json:"user_id"`
	Roles  []string `json:"roles"`
	Type   string   `json:"typ"`
	jwt.RegisteredClaims
}

// HasRole は role を持つか判定する
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenPair はログイン・リフレッシュで返すトークンの組
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenIssuer は HS256 で JWT を発行・検証する
type TokenIssuer struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer は TokenIssuer を生成する。secret は空不可
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: signing key cannot be empty")
	}
	return &TokenIssuer{
		key:        []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}, nil
}

// Issue はアクセストークンとリフレッシュトークンを発行する
func (i *TokenIssuer) Issue(userID int64, roles []string) (TokenPair, error) {
	access, err := i.sign(userID, roles, TypeAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(userID, roles, TypeRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (i *TokenIssuer) sign(userID int64, roles []string, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	if roles == nil {
		roles = []string{}
	}
	claims := &Claims{
		UserID: userID,
		Roles:  roles,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse はトークンを検証し、typ が want と一致する場合のみ Claims を返す
func (i *TokenIssuer) Parse(token, want string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.key, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
