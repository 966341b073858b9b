package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder はステータスコードと書き込んだバイト数を記録する
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Unwrap は http.ResponseController 用
func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// Flush implements http.Flusher for streamed uploads.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// quietRoutes は成功時に DEBUG で記録するルート
var quietRoutes = map[string]bool{
	"GET /api/health": true,
	"GET /metrics":    true,
}

// RequestLogger はリクエストごとに一行記録する。5xx は ERROR、4xx は WARN
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r)

		level := slog.LevelInfo
		switch {
		case sr.statusCode >= 500:
			level = slog.LevelError
		case sr.statusCode >= 400:
			level = slog.LevelWarn
		case quietRoutes[r.Pattern]:
			level = slog.LevelDebug
		}
		slog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", r.Pattern,
			"status", sr.statusCode,
			"bytes", sr.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
