package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// Storage はアップロード画像の保存・取得・削除を抽象化するインターフェース。
// key はストレージ相対パス (例: "stages/<uuid>.jpg") で、DB にもこの形で保存する。
type Storage interface {
	// Save はファイルを保存し、保存した key を返す。
	Save(ctx context.Context, key string, data io.Reader, contentType string) (string, error)

	// Open は key の内容を返す。存在しない場合は ErrNotExist。
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete は key に対応するファイルを削除する。存在しなくてもエラーにしない。
	Delete(ctx context.Context, key string) error
}

// ObjectInfo は保存済みファイルのメタ情報
type ObjectInfo struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ErrNotExist is returned by Open for unknown keys.
var ErrNotExist = errors.New("storage: object does not exist")

// ErrInvalidKey is returned for keys escaping the storage root.
var ErrInvalidKey = errors.New("storage: invalid key")

// CleanKey は key を正規化し、ルート外を指すものを拒否する
func CleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
