package siteapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// Tokens はログイン・リフレッシュの応答
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ErrTokensMissing はログイン応答にトークンが含まれない場合のエラー
var ErrTokensMissing = errors.New("siteapi: tokens not found in response")

// Login は POST /auth/login。成功するとクライアントのトークンも更新する。
// トークンは本文を優先し、なければ Authorization / X-Refresh-Token ヘッダーから読む
func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	form := url.Values{"email": {email}, "password": {password}}
	return c.exchange(ctx, "/auth/login", "login", form)
}

// Refresh は POST /auth/refresh
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	form := url.Values{"refresh_token": {refreshToken}}
	return c.exchange(ctx, "/auth/refresh", "refresh", form)
}

func (c *Client) exchange(ctx context.Context, path, op string, form url.Values) (*Tokens, error) {
	var body Tokens
	resp, err := c.sendForm(ctx, http.MethodPost, path, op, form, &body)
	if err != nil {
		return nil, err
	}
	tok := tokensFrom(body, resp.Header)
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, ErrTokensMissing
	}
	c.SetToken(tok.AccessToken)
	return &tok, nil
}

func tokensFrom(body Tokens, h http.Header) Tokens {
	out := body
	if out.AccessToken == "" {
		out.AccessToken = strings.TrimSpace(strings.TrimPrefix(h.Get("Authorization"), "Bearer "))
	}
	if out.RefreshToken == "" {
		out.RefreshToken = strings.TrimSpace(h.Get("X-Refresh-Token"))
	}
	out.TokenType = "bearer"
	return out
}
