package imagenorm

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
)

// allowedContentTypes は受け付ける画像形式と保存時の拡張子
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Extension は許可された画像形式の拡張子を返す
func Extension(contentType string) (string, bool) {
	ext, ok := allowedContentTypes[contentType]
	return ext, ok
}

// Sniff は先頭のバイト列から形式を判定する。クライアントが申告した Content-Type は使わない
func Sniff(data []byte) (string, bool) {
	ct := http.DetectContentType(data)
	_, ok := allowedContentTypes[ct]
	return ct, ok
}

// SniffReader は r の先頭を覗いて形式を判定し、読み進めていない Reader を返す
func SniffReader(r io.Reader) (io.Reader, string, bool, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return br, "", false, fmt.Errorf("sniff: %w", err)
	}
	ct, ok := Sniff(head)
	return br, ct, ok, nil
}
