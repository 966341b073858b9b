package formschema

import (
	"errors"
	"testing"
)

type stage struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Img         *string `json:"img"`
}

func TestDecode_Valid(t *testing.T) {
	var stages []stage
	err := Decode(Stages, `[{"title":"A","description":"d","img":"stages/a.jpg"},{"title":"B","img":null}]`, "[]", &stages)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(stages) != 2 || stages[0].Img == nil || *stages[0].Img != "stages/a.jpg" || stages[1].Img != nil {
		t.Errorf("unexpected stages %+v", stages)
	}
}

func TestDecode_EmptyUsesDefault(t *testing.T) {
	var about map[string]string
	if err := Decode(AboutCompany, "  ", "{}", &about); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if about == nil || len(about) != 0 {
		t.Errorf("expected empty object, got %v", about)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		field string
		raw   string
	}{
		{Stages, `{"title":"x"}`},
		{Stages, `[{"title":1}]`},
		{Progress, `[{"digit":"forty","text":"x"}]`},
		{Progress, `[{"text":"no digit"}]`},
		{AboutCompany, `[]`},
		{Result, `{"images":"nope"}`},
		{Result, `{not json`},
	}
	for _, tt := range tests {
		var dst any
		err := Decode(tt.field, tt.raw, "", &dst)
		var fe *FieldError
		if !errors.As(err, &fe) {
			t.Errorf("%s %s: expected FieldError, got %v", tt.field, tt.raw, err)
			continue
		}
		if fe.Code() != "invalid_"+tt.field {
			t.Errorf("code = %q", fe.Code())
		}
	}
}

func TestDecode_UnknownField(t *testing.T) {
	var dst any
	if err := Decode("nope", "{}", "", &dst); err == nil {
		t.Error("expected error for unknown field")
	}
}
