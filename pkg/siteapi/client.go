// Package siteapi は 105site バックエンド API のクライアント。
// 失敗したリクエストは再試行せず、ステータスと本文の先頭を持つ *APIError として一度だけ返す。
package siteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/morf1ng/105site/pkg/projectshape"
)

// maxErrorBody はエラーメッセージに含める本文の最大文字数
const maxErrorBody = 200

// APIError は 2xx 以外の応答
type APIError struct {
	Op         string
	Status     int
	StatusText string
	Body       string
	// Text は HTML の応答からタグを除いた本文。メッセージでは Body より優先する
	Text string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error %d: %s", e.Status, e.StatusText)
	switch {
	case e.Text != "":
		msg += " – " + e.Text
	case e.Body != "":
		msg += " – " + e.Body
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Client は API クライアント
type Client struct {
	origin     string
	apiBase    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.SetToken(token) }
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New は Client を生成する。baseURL はオリジンでも ".../api" でもよい
func New(baseURL string, opts ...Option) *Client {
	r := projectshape.NewResolver(baseURL)
	c := &Client{
		origin:     r.Origin(),
		apiBase:    r.Origin() + "/api",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Resolver は画像 URL の解決に使う Resolver を返す
func (c *Client) Resolver() projectshape.Resolver {
	return projectshape.NewResolver(c.origin)
}

// SetToken は認証トークンを設定する。"Bearer " は省略できる
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
}

// Token returns the current access token without the scheme.
func (c *Client) Token() string { return c.token }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do はリクエストを送り、2xx なら out に JSON をデコードする。out が nil なら本文を捨てる
func (c *Client) do(req *http.Request, op string, out any) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed", "op", op, "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{
			Op:         op,
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Body:       truncate(strings.TrimSpace(string(b)), maxErrorBody),
		}
		if isHTML(resp.Header.Get("Content-Type")) {
			apiErr.Text = truncate(htmlText(b), maxErrorBody)
		}
		c.logger.Error("api error", "op", op, "status", apiErr.Status, "body", apiErr.Body)
		return resp, apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path, op string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, op, out)
	return err
}

func (c *Client) delete(ctx context.Context, path, op string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, op, nil)
	return err
}

// sendForm は application/x-www-form-urlencoded で送信する。空値のキーは送らない
func (c *Client) sendForm(ctx context.Context, method, path, op string, form url.Values, out any) (*http.Response, error) {
	for k, vs := range form {
		if len(vs) == 0 {
			delete(form, k)
		}
	}
	req, err := c.newRequest(ctx, method, path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, op, out)
}

func statusText(resp *http.Response) string {
	// resp.Status は "404 Not Found" の形
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// errorPagePolicy はプロキシのエラーページなどからタグを除く
var errorPagePolicy = bluemonday.StrictPolicy()

func isHTML(contentType string) bool {
	mt, _, _ := mime.ParseMediaType(contentType)
	return mt == "text/html"
}

// htmlText は端末表示用のテキストを返す。HTML として再利用しないこと
func htmlText(b []byte) string {
	text := html.UnescapeString(errorPagePolicy.Sanitize(string(b)))
	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
