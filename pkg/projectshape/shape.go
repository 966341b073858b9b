// Package projectshape は API のプロジェクト表現 (Wire) と編集画面向けの表現 (View) を相互変換する。
package projectshape

import "encoding/json"

// 結果画像の種別
const (
	TypeTablet     = "tablet"
	TypeDashboard  = "dashboard"
	TypeSmartphone = "smartphone"
	TypeMobile     = "mobile"
	TypePhone      = "phone"
)

// Wire は API が返すプロジェクト。
// about_company / stages / result / progress は JSON 文字列の場合と構造化値の場合がある
type Wire struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	Target       string          `json:"target"`
	Task         string          `json:"task"`
	AboutCompany json.RawMessage `json:"about_company,omitempty"`
	Stages       json.RawMessage `json:"stages,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Progress     json.RawMessage `json:"progress,omitempty"`
	PreviewImg   *string         `json:"preview_img"`
	NotebookImg  *string         `json:"notebook_img"`
	MainImg      *string         `json:"main_img"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// View は編集画面向けのプロジェクト。画像フィールドは "" か表示用 URL
type View struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	URL          string       `json:"url"`
	Target       string       `json:"target"`
	Task         string       `json:"task"`
	AboutCompany AboutCompany `json:"about_company"`
	Stages       []Stage      `json:"stages"`
	Result       Result       `json:"result"`
	// Progess は歴史的経緯によるフィールド名
	Progess     []Stat `json:"progess"`
	PreviewImg  string `json:"preview_img"`
	NotebookImg string `json:"notebook_img"`
	MainImg     string `json:"main_img"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type AboutCompany struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Stage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Img         string `json:"img"`
}

type Result struct {
	Description string        `json:"description"`
	Images      []ResultImage `json:"images"`
}

type ResultImage struct {
	Type string `json:"type"`
	Img  string `json:"img"`
}

// Stat は統計値。Stat は表示用の文字列
type Stat struct {
	Stat string `json:"stat"`
	Text string `json:"text"`
}

// DefaultResultType は位置から結果画像の種別を推定する。先頭は tablet、以降は smartphone
func DefaultResultType(i int) string {
	if i == 0 {
		return TypeTablet
	}
	return TypeSmartphone
}

// Gallery は公開ページのギャラリー枠
type Gallery struct {
	Tablet string
	Mobile []string
}

// GallerySlots は種別の文字列規約で結果画像をギャラリー枠に振り分ける。
// 最初の tablet/dashboard がタブレット枠、mobile/phone/smartphone がモバイル枠になる
func GallerySlots(res Result) Gallery {
	var g Gallery
	found := false
	for _, img := range res.Images {
		switch img.Type {
		case TypeTablet, TypeDashboard:
			if !found {
				g.Tablet = img.Img
				found = true
			}
		case TypeMobile, TypePhone, TypeSmartphone:
			g.Mobile = append(g.Mobile, img.Img)
		}
	}
	return g
}
