package model

import "time"

// Project は事例ページ一件分の集約
type Project struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	Target       string        `json:"target"`
	Task         string        `json:"task"`
	PreviewImg   *string       `json:"preview_img"`
	MainImg      *string       `json:"main_img"`
	NotebookImg  *string       `json:"notebook_img"`
	AboutCompany *AboutCompany `json:"about_company"`
	Stages       []Stage       `json:"stages"`
	Result       *Result       `json:"result"`
	Progress     []Progress    `json:"progress"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type AboutCompany struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Stage は制作工程。並び順が工程の識別子になる
type Stage struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Img         *string `json:"img"`
}

type Result struct {
	Description string        `json:"description"`
	Images      []ResultImage `json:"images"`
}

// ResultImage の Type は "tablet" か "smartphone"
type ResultImage struct {
	Type string  `json:"type"`
	Img  *string `json:"img"`
}

// Progress は成果の数値。Digit は整数以外も許す
type Progress struct {
	Digit float64 `json:"digit"`
	Text  string  `json:"text"`
}

// ProjectSummary は一覧 API の要素
type ProjectSummary struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	PreviewImg *string `json:"preview_img"`
	Result     struct {
		Description *string `json:"description"`
	} `json:"result"`
}

// ImagePaths はプロジェクトが参照する保存済み画像パスをすべて返す
func (p *Project) ImagePaths() []string {
	var out []string
	add := func(s *string) {
		if s != nil && *s != "" {
			out = append(out, *s)
		}
	}
	add(p.PreviewImg)
	add(p.MainImg)
	add(p.NotebookImg)
	for _, s := range p.Stages {
		add(s.Img)
	}
	if p.Result != nil {
		for _, img := range p.Result.Images {
			add(img.Img)
		}
	}
	return out
}
