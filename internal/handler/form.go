package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-playground/validator"
)

// フォーム (urlencoded / multipart) の最大メモリ
const maxFormMemory = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// validationCode は最初の検証エラーを API エラーコードにする
func validationCode(err error) string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		if fe.Tag() == "required" {
			return fe.Field() + "_required"
		}
		return "invalid_" + fe.Field()
	}
	return "invalid_form"
}

// parseForm は multipart と urlencoded のどちらも受け付ける
func parseForm(r *http.Request, maxMemory int64) error {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// optionalValue はフォームにキーがあれば値のポインタを返す
func optionalValue(r *http.Request, key string) *string {
	vs, ok := r.PostForm[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
