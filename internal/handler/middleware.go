package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// contentSecurityPolicy は blob: プレビューと data: 画像を許可する
const contentSecurityPolicy = "default-src 'self'; img-src 'self' data: blob:; script-src 'self'; frame-ancestors 'none'"

// SecurityHeaders は全レスポンスにセキュリティ関連ヘッダーを付ける
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter は IP ごとの 1 分間のスライディングウィンドウで回数を制限する
type RateLimiter struct {
	maxPerMinute int
	// trustedProxies は X-Forwarded-For の右端から信頼するプロキシ数。0 なら RemoteAddr を使う
	trustedProxies int
	now            func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter は maxPerMinute 回/分のリミッタを生成する。
// 既定では X-Forwarded-For を読まず RemoteAddr で数える。プロキシの背後では WithTrustedProxies で指定する
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	return newRateLimiter(maxPerMinute, 0, time.Now)
}

// WithTrustedProxies は信頼するプロキシ数を変えたリミッタを返す
func (rl *RateLimiter) WithTrustedProxies(n int) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.trustedProxies = n
	return rl
}

func newRateLimiter(maxPerMinute, trustedProxies int, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		maxPerMinute:   maxPerMinute,
		trustedProxies: trustedProxies,
		now:            now,
		clients:        make(map[string][]time.Time),
		stop:           make(chan struct{}),
	}
	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

// Close は掃除用の goroutine を止める
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			windowStart := rl.now().Add(-time.Minute)
			for ip, ts := range rl.clients {
				if ts = prune(ts, windowStart); len(ts) == 0 {
					delete(rl.clients, ip)
				} else {
					rl.clients[ip] = ts
				}
			}
			rl.mu.Unlock()
		}
	}
}

// prune は windowStart より新しい時刻だけを残す
func prune(ts []time.Time, windowStart time.Time) []time.Time {
	valid := ts[:0]
	for _, t := range ts {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

// allow は ip の今回のリクエストを許可するか判定する。拒否時は再試行までの時間を返す
func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	ts := prune(rl.clients[ip], now.Add(-time.Minute))
	if len(ts) >= rl.maxPerMinute {
		rl.clients[ip] = ts
		return false, ts[0].Add(time.Minute).Sub(now)
	}
	rl.clients[ip] = append(ts, now)
	return true, 0
}

// Middleware は制限を超えたリクエストに 429 rate_limited を返す
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)
		ok, retryAfter := rl.allow(ip)
		if !ok {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP は X-Forwarded-For のうち信頼するプロキシが追加した位置を読む。
// 左側はクライアントが自由に書けるため使わない
func (rl *RateLimiter) clientIP(r *http.Request) string {
	rl.mu.Lock()
	trusted := rl.trustedProxies
	rl.mu.Unlock()

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && trusted > 0 {
		parts := strings.Split(xff, ",")
		if idx := len(parts) - trusted; idx >= 0 {
			if ip := strings.TrimSpace(parts[idx]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
