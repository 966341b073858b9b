package imagenorm

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// Source はブラウザの File に相当する、名前・種別・サイズを持つ画像ソース
type Source interface {
	Name() string
	ContentType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// File はメモリ上に内容を持つ Source 実装
type File struct {
	name        string
	contentType string
	data        []byte
}

// NewFile は File を生成する。contentType が空の場合は内容から推定する
func NewFile(name, contentType string, data []byte) *File {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &File{name: name, contentType: contentType, data: data}
}

func (f *File) Name() string        { return f.name }
func (f *File) ContentType() string { return f.contentType }
func (f *File) Size() int64         { return int64(len(f.data)) }

func (f *File) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// Bytes returns the file contents. The slice must not be modified.
func (f *File) Bytes() []byte { return f.data }

// pathSource はディスク上のファイルを遅延読み込みする Source
type pathSource struct {
	path        string
	size        int64
	contentType string
}

// OpenPath はディスク上のファイルを Source として開く。
// Content-Type は拡張子から、判別できなければ先頭 512 バイトから推定する
func OpenPath(path string) (Source, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct, err = sniffFile(path)
		if err != nil {
			return nil, err
		}
	}
	return &pathSource{path: path, size: st.Size(), contentType: ct}, nil
}

func sniffFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return http.DetectContentType(head[:n]), nil
}

func (p *pathSource) Name() string        { return filepath.Base(p.path) }
func (p *pathSource) ContentType() string { return p.contentType }
func (p *pathSource) Size() int64         { return p.size }

func (p *pathSource) Open() (io.ReadCloser, error) {
	return os.Open(p.path)
}

// ReadAll reads the whole source.
func ReadAll(src Source) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
