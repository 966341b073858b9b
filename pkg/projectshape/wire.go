package projectshape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/morf1ng/105site/pkg/imagenorm"
)

// ValidationError は保存前のローカル検証エラー
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Field はマルチパートのテキストフィールド
type Field struct {
	Name  string
	Value string
}

// FilePart はマルチパートのファイルパート
type FilePart struct {
	Slot Slot
	File imagenorm.Source
}

// Payload は保存リクエストの本文。Fields は送信順に並ぶ
type Payload struct {
	Fields []Field
	Files  []FilePart
}

// Value returns the text field with the given name.
func (p *Payload) Value(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// WriteMultipart はフィールドとファイルを mw に書き込む。mw は閉じない
func (p *Payload) WriteMultipart(mw *multipart.Writer) error {
	for _, f := range p.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	for _, part := range p.Files {
		if err := writeFilePart(mw, part); err != nil {
			return err
		}
	}
	return nil
}

// Encode は multipart/form-data 本文と Content-Type を返す
func (p *Payload) Encode() (*bytes.Buffer, string, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	if err := p.WriteMultipart(mw); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return body, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, part FilePart) error {
	name := part.Slot.FieldName()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(part.File.Name())))
	ct := part.File.ContentType()
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	w, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", name, err)
	}
	data, err := imagenorm.ReadAll(part.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", part.File.Name(), err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write part %s: %w", name, err)
	}
	return nil
}

type outAbout struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type outStage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Img         string `json:"img,omitempty"`
}

type outResultImage struct {
	Type string `json:"type"`
	Img  string `json:"img,omitempty"`
}

type outResult struct {
	Description string           `json:"description"`
	Images      []outResultImage `json:"images"`
}

type outProgress struct {
	Digit float64 `json:"digit"`
	Text  string  `json:"text"`
}

// ToWire は View と添付ファイルから保存用の Payload を組み立てる。
// title と url が空なら通信せずに *ValidationError を返す
func ToWire(v View, files Attachments, r Resolver) (*Payload, error) {
	title := strings.TrimSpace(v.Title)
	url := strings.TrimSpace(v.URL)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if url == "" {
		return nil, &ValidationError{Field: "url", Message: "url is required"}
	}

	about := outAbout{Title: v.AboutCompany.Title, Description: v.AboutCompany.Description}

	stages := make([]outStage, 0, len(v.Stages))
	for i, s := range v.Stages {
		st := outStage{Title: s.Title, Description: s.Description}
		if !files.Has(Slot{Role: RoleStage, Index: i}) {
			st.Img = carryPath(s.Img, r)
		}
		stages = append(stages, st)
	}

	res := outResult{Description: v.Result.Description, Images: make([]outResultImage, 0, len(v.Result.Images))}
	for i, img := range v.Result.Images {
		typ := img.Type
		if typ == "" {
			typ = DefaultResultType(i)
		}
		ri := outResultImage{Type: typ}
		if !files.Has(Slot{Role: RoleResult, Index: i}) {
			ri.Img = carryPath(img.Img, r)
		}
		res.Images = append(res.Images, ri)
	}

	progress := make([]outProgress, 0, len(v.Progess))
	for _, p := range v.Progess {
		progress = append(progress, outProgress{Digit: parseDigit(p.Stat), Text: p.Text})
	}

	p := &Payload{Fields: []Field{
		{Name: "title", Value: title},
		{Name: "url", Value: url},
		{Name: "target", Value: strings.TrimSpace(v.Target)},
		{Name: "task", Value: strings.TrimSpace(v.Task)},
	}}
	for _, jf := range []struct {
		name string
		v    any
	}{
		{"about_company", about},
		{"stages", stages},
		{"result", res},
		{"progress", progress},
	} {
		b, err := json.Marshal(jf.v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", jf.name, err)
		}
		p.Fields = append(p.Fields, Field{Name: jf.name, Value: string(b)})
	}
	p.Files = files.Parts()
	return p, nil
}

// carryPath は添付のないスロットで送る保存パスを返す。プレビュー参照や空値は省略する
func carryPath(display string, r Resolver) string {
	if IsPreview(display) {
		return ""
	}
	p, ok := r.Unresolve(display)
	if !ok {
		return ""
	}
	return p
}

func parseDigit(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
