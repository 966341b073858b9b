// Package imagenorm は、アップロード前の画像を上限サイズ内に収めて JPEG へ再エンコードする。
// 正規化は最適化にすぎず、読み込み失敗以外のあらゆる失敗は元ファイルへのフォールバックで吸収する。
package imagenorm

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"regexp"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// SmallFileThreshold 未満のファイルは再エンコードしない
const SmallFileThreshold = 500 * 1024

// pngQuality は PNG 由来の画像に使う品質。可逆形式からの変換で失う圧縮余地を補う
const pngQuality = 0.85

// Options は正規化のパラメータ
type Options struct {
	MaxWidth  int
	MaxHeight int
	// Quality は 0〜1 の JPEG 品質
	Quality float64
	// MaxPixels を超える寸法の画像はデコードせず元ファイルを返す
	MaxPixels int
}

// DefaultOptions returns 1920x1920 at quality 0.9, decoding at most 50 megapixels.
func DefaultOptions() Options {
	return Options{MaxWidth: 1920, MaxHeight: 1920, Quality: 0.9, MaxPixels: 50_000_000}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxWidth <= 0 {
		o.MaxWidth = d.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = d.MaxHeight
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = d.Quality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = d.MaxPixels
	}
	return o
}

// Outcome は Normalize がどの経路を通ったかを表す
type Outcome int

const (
	OutcomeSkippedSmall Outcome = iota
	OutcomeCompressed
	OutcomeNotSmaller
	OutcomeDecodeFailed
	OutcomeEncodeFailed
	OutcomeReadFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkippedSmall:
		return "skipped_small"
	case OutcomeCompressed:
		return "compressed"
	case OutcomeNotSmaller:
		return "not_smaller"
	case OutcomeDecodeFailed:
		return "decode_failed"
	case OutcomeEncodeFailed:
		return "encode_failed"
	case OutcomeReadFailed:
		return "read_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result は正規化の結果。File は常に非 nil で、フォールバック時は入力そのもの
type Result struct {
	File    Source
	Outcome Outcome
	// Width と Height は OutcomeCompressed のときの出力寸法
	Width  int
	Height int
}

// UsedFallback は入力ファイルがそのまま返されたかを返す
func (r Result) UsedFallback() bool {
	return r.Outcome != OutcomeCompressed
}

var pngExt = regexp.MustCompile(`(?i)\.png$`)

// Normalize は src を opts の範囲に縮小し JPEG として再エンコードする。
// error を返すのは src の読み込みに失敗した場合のみで、そのときも Result.File は src
func Normalize(src Source, opts Options) (Result, error) {
	if src.Size() < SmallFileThreshold {
		return Result{File: src, Outcome: OutcomeSkippedSmall}, nil
	}
	opts = opts.withDefaults()

	data, err := ReadAll(src)
	if err != nil {
		return Result{File: src, Outcome: OutcomeReadFailed}, fmt.Errorf("read %s: %w", src.Name(), err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || int64(cfg.Width)*int64(cfg.Height) > int64(opts.MaxPixels) {
		return Result{File: src, Outcome: OutcomeDecodeFailed}, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{File: src, Outcome: OutcomeDecodeFailed}, nil
	}

	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)
	if w != b.Dx() || h != b.Dy() {
		img = resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
	}

	isPNG := src.ContentType() == "image/png" || format == "png"
	q := opts.Quality
	if isPNG {
		q = pngQuality
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: jpegQuality(q)}); err != nil {
		return Result{File: src, Outcome: OutcomeEncodeFailed}, nil
	}
	if int64(buf.Len()) >= int64(len(data)) {
		return Result{File: src, Outcome: OutcomeNotSmaller}, nil
	}

	name := src.Name()
	if isPNG {
		name = pngExt.ReplaceAllString(name, ".jpg")
	}
	return Result{
		File:    NewFile(name, "image/jpeg", buf.Bytes()),
		Outcome: OutcomeCompressed,
		Width:   w,
		Height:  h,
	}, nil
}

// FitWithin は w×h をアスペクト比を保ったまま maxW×maxH に収める寸法を返す。拡大はしない
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(min(nw, maxW), 1), max(min(nh, maxH), 1)
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
