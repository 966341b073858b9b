// Package formschema はプロジェクトフォームの JSON フィールドをスキーマで検証する。
package formschema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// フィールド名。フォームのキーと同じ
const (
	AboutCompany = "about_company"
	Stages       = "stages"
	Result       = "result"
	Progress     = "progress"
)

var compiled = map[string]*jsonschema.Schema{}

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		panic(fmt.Sprintf("formschema: read schemas: %v", err))
	}
	for _, e := range entries {
		name := path.Join("schemas", e.Name())
		b, err := schemaFS.ReadFile(name)
		if err != nil {
			panic(fmt.Sprintf("formschema: read %s: %v", name, err))
		}
		if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
			panic(fmt.Sprintf("formschema: add %s: %v", name, err))
		}
	}
	for _, e := range entries {
		name := path.Join("schemas", e.Name())
		s, err := compiler.Compile(name)
		if err != nil {
			panic(fmt.Sprintf("formschema: compile %s: %v", name, err))
		}
		compiled[strings.TrimSuffix(e.Name(), ".json")] = s
	}
}

// FieldError は JSON として読めない、またはスキーマに合わないフィールド
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Code は API エラーコード (例: "invalid_stages") を返す
func (e *FieldError) Code() string { return "invalid_" + e.Field }

// Decode は raw を検証してから dst にデコードする。
// 空文字列は def を使う (フォーム未送信時の既定値)
func Decode(field, raw, def string, dst any) error {
	schema, ok := compiled[field]
	if !ok {
		return fmt.Errorf("formschema: unknown field %q", field)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = def
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return &FieldError{Field: field, Err: err}
	}
	if err := schema.Validate(v); err != nil {
		return &FieldError{Field: field, Err: err}
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return &FieldError{Field: field, Err: err}
	}
	return nil
}
