package projectshape

import (
	"net/url"
	"strings"
)

const uploadsPrefix = "/uploads/"

// BlobScheme はローカルプレビュー参照のスキーム
const BlobScheme = "blob:"

// Resolver はストレージ相対パスと表示用 URL を相互変換する
type Resolver struct {
	origin string
}

// NewResolver は API のベース URL からオリジンを求めて Resolver を生成する。
// 末尾の "/" と "/api" は取り除かれる
func NewResolver(backendURL string) Resolver {
	o := strings.TrimRight(strings.TrimSpace(backendURL), "/")
	o = strings.TrimSuffix(o, "/api")
	o = strings.TrimRight(o, "/")
	return Resolver{origin: o}
}

// Origin returns the backend origin used for upload URLs.
func (r Resolver) Origin() string { return r.origin }

// Resolve は保存パスを表示用 URL に変換する
func (r Resolver) Resolve(path string) string {
	if path == "" {
		return ""
	}
	if isAbsolute(path) {
		return path
	}
	if isAssetPath(path) {
		if !strings.HasPrefix(path, "/") {
			return "/" + path
		}
		return path
	}
	return r.origin + uploadsPrefix + strings.TrimLeft(path, "/")
}

// Unresolve は表示用 URL を保存パスに戻す。
// blob: プレビューや空値は (""、false) を返し、呼び出し側はフィールドを省略する。
// 外部の絶対 URL とアセットパスはそのまま返す
func (r Resolver) Unresolve(display string) (string, bool) {
	if display == "" || strings.HasPrefix(display, BlobScheme) {
		return "", false
	}
	if r.origin != "" && strings.HasPrefix(display, r.origin+uploadsPrefix) {
		return nonEmpty(strings.TrimLeft(strings.TrimPrefix(display, r.origin+uploadsPrefix), "/"))
	}
	if isAbsolute(display) {
		u, err := url.Parse(display)
		if err != nil || !strings.HasPrefix(u.Path, uploadsPrefix) {
			return display, true
		}
		return nonEmpty(strings.TrimLeft(strings.TrimPrefix(u.Path, uploadsPrefix), "/"))
	}
	if isAssetPath(display) {
		return display, true
	}
	p := strings.TrimPrefix(display, uploadsPrefix)
	return nonEmpty(strings.TrimLeft(p, "/"))
}

func nonEmpty(s string) (string, bool) {
	return s, s != ""
}

func isAbsolute(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") ||
		strings.HasPrefix(l, "https://") ||
		strings.HasPrefix(l, BlobScheme) ||
		strings.HasPrefix(l, "data:")
}

func isAssetPath(s string) bool {
	return strings.HasPrefix(s, "/assets") || strings.HasPrefix(s, "assets/")
}

// IsPreview は値が一時的なローカルプレビュー参照かを返す
func IsPreview(s string) bool {
	return strings.HasPrefix(s, BlobScheme)
}
