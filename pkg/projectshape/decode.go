package projectshape

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FieldOutcome はフィールドの値がどの形で届き、どう解釈されたかを表す
type FieldOutcome int

const (
	FieldAbsent FieldOutcome = iota
	FieldFromString
	FieldStructured
	FieldMalformed
)

func (o FieldOutcome) String() string {
	switch o {
	case FieldAbsent:
		return "absent"
	case FieldFromString:
		return "string"
	case FieldStructured:
		return "structured"
	case FieldMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// decodeFlexible は文字列化された JSON と構造化値の両方を dst に読み込む。
// 形の判定はここで一度だけ行い、失敗時は dst を変更しない
func decodeFlexible[T any](raw json.RawMessage, dst *T) FieldOutcome {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return FieldAbsent
	}

	outcome := FieldStructured
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldMalformed
		}
		s = strings.TrimSpace(s)
		if s == "" || s == "null" {
			return FieldAbsent
		}
		raw = []byte(s)
		outcome = FieldFromString
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return FieldMalformed
	}
	*dst = v
	return outcome
}

// flexString は文字列か null を受け取る
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] != '"' && b[0] != '{' && b[0] != '[' {
		// 数値や真偽値はそのままの表記で受ける
		*f = flexString(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

// flexNumber は数値か数値文字列を受け取り、表示用の文字列を保持する
type flexNumber struct {
	text  string
	valid bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexNumber{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexNumber{text: s, valid: true}
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		// bool や object は表示できないので空扱い
		*f = flexNumber{}
		return nil
	}
	*f = flexNumber{text: strconv.FormatFloat(n, 'f', -1, 64), valid: true}
	return nil
}

type wireAbout struct {
	Title       flexString `json:"title"`
	Description flexString `json:"description"`
}

type wireStage struct {
	Title       flexString `json:"title"`
	Description flexString `json:"description"`
	Img         flexString `json:"img"`
}

type wireResultImage struct {
	Type flexString `json:"type"`
	Img  flexString `json:"img"`
}

type wireResult struct {
	Description flexString        `json:"description"`
	Images      []wireResultImage `json:"images"`
}

type wireProgress struct {
	Digit flexNumber `json:"digit"`
	// Stat は表示形のまま保存された旧データ向け
	Stat flexNumber `json:"stat"`
	Text flexString `json:"text"`
}
