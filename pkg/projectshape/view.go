package projectshape

// Report は ToView で各複合フィールドがどう解釈されたかを記録する
type Report struct {
	AboutCompany FieldOutcome
	Stages       FieldOutcome
	Result       FieldOutcome
	Progress     FieldOutcome
}

// Malformed は既定値に置き換えられた壊れたフィールド名を返す
func (r Report) Malformed() []string {
	var out []string
	for _, f := range []struct {
		name string
		o    FieldOutcome
	}{
		{"about_company", r.AboutCompany},
		{"stages", r.Stages},
		{"result", r.Result},
		{"progress", r.Progress},
	} {
		if f.o == FieldMalformed {
			out = append(out, f.name)
		}
	}
	return out
}

// ToView は Wire を View に変換する。
// 複合フィールドはそれぞれ独立に解釈され、失敗したものだけが空の既定値になる
func ToView(w Wire, r Resolver) (View, Report) {
	var rep Report
	v := View{
		ID:          w.ID,
		Title:       w.Title,
		URL:         w.URL,
		Target:      w.Target,
		Task:        w.Task,
		Stages:      []Stage{},
		Result:      Result{Images: []ResultImage{}},
		Progess:     []Stat{},
		PreviewImg:  r.Resolve(deref(w.PreviewImg)),
		NotebookImg: r.Resolve(deref(w.NotebookImg)),
		MainImg:     r.Resolve(deref(w.MainImg)),
		CreatedAt:   w.CreatedAt,
	}

	var about wireAbout
	rep.AboutCompany = decodeFlexible(w.AboutCompany, &about)
	v.AboutCompany = AboutCompany{Title: string(about.Title), Description: string(about.Description)}

	var stages []wireStage
	rep.Stages = decodeFlexible(w.Stages, &stages)
	for _, s := range stages {
		v.Stages = append(v.Stages, Stage{
			Title:       string(s.Title),
			Description: string(s.Description),
			Img:         r.Resolve(string(s.Img)),
		})
	}

	var res wireResult
	rep.Result = decodeFlexible(w.Result, &res)
	v.Result.Description = string(res.Description)
	for i, img := range res.Images {
		typ := string(img.Type)
		if typ == "" {
			typ = DefaultResultType(i)
		}
		v.Result.Images = append(v.Result.Images, ResultImage{Type: typ, Img: r.Resolve(string(img.Img))})
	}

	var progress []wireProgress
	rep.Progress = decodeFlexible(w.Progress, &progress)
	for _, p := range progress {
		stat := p.Digit
		if !stat.valid {
			stat = p.Stat
		}
		v.Progess = append(v.Progess, Stat{Stat: stat.text, Text: string(p.Text)})
	}

	return v, rep
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
