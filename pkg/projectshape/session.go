package projectshape

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/morf1ng/105site/pkg/imagenorm"
)

// Role は画像スロットの役割。値はマルチパートのフィールド名になる
type Role string

const (
	RolePreview  Role = "preview_img"
	RoleMain     Role = "main_img"
	RoleNotebook Role = "notebook_img"
	RoleStage    Role = "stage_imgs"
	RoleResult   Role = "result_imgs"
)

// Indexed はステージや結果画像のように位置で識別されるスロットかを返す
func (r Role) Indexed() bool {
	return r == RoleStage || r == RoleResult
}

// ParseRole maps a user-facing name ("preview", "stage", "preview_img", ...) to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "preview", string(RolePreview):
		return RolePreview, nil
	case "main", string(RoleMain):
		return RoleMain, nil
	case "notebook", string(RoleNotebook):
		return RoleNotebook, nil
	case "stage", string(RoleStage):
		return RoleStage, nil
	case "result", string(RoleResult):
		return RoleResult, nil
	}
	return "", fmt.Errorf("unknown image role %q", s)
}

// Slot は画像の添付先
type Slot struct {
	Role  Role
	Index int
}

// FieldName はスロットのマルチパートフィールド名を返す (例: stage_imgs[0])
func (s Slot) FieldName() string {
	if s.Role.Indexed() {
		return fmt.Sprintf("%s[%d]", s.Role, s.Index)
	}
	return string(s.Role)
}

// Attachments は編集セッション中に添付された未送信ファイル。
// 変更操作は新しい値を返し、受け取った値は変更しない
type Attachments struct {
	files map[Slot]imagenorm.Source
}

// Get は slot に添付されたファイルを返す
func (a Attachments) Get(slot Slot) (imagenorm.Source, bool) {
	f, ok := a.files[normalizeSlot(slot)]
	return f, ok
}

// Has reports whether slot has a pending file.
func (a Attachments) Has(slot Slot) bool {
	_, ok := a.Get(slot)
	return ok
}

func (a Attachments) Len() int { return len(a.files) }

// With は slot に src を添付した Attachments を返す
func (a Attachments) With(slot Slot, src imagenorm.Source) Attachments {
	next := a.clone()
	next.files[normalizeSlot(slot)] = src
	return next
}

// Without は slot の添付を外した Attachments を返す
func (a Attachments) Without(slot Slot) Attachments {
	next := a.clone()
	delete(next.files, normalizeSlot(slot))
	return next
}

// Parts はフィールド名順に並べた送信用ファイルパートを返す
func (a Attachments) Parts() []FilePart {
	parts := make([]FilePart, 0, len(a.files))
	for slot, f := range a.files {
		parts = append(parts, FilePart{Slot: slot, File: f})
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Slot.Role != parts[j].Slot.Role {
			return parts[i].Slot.Role < parts[j].Slot.Role
		}
		return parts[i].Slot.Index < parts[j].Slot.Index
	})
	return parts
}

func (a Attachments) clone() Attachments {
	next := Attachments{files: make(map[Slot]imagenorm.Source, len(a.files)+1)}
	for k, v := range a.files {
		next.files[k] = v
	}
	return next
}

func normalizeSlot(s Slot) Slot {
	if !s.Role.Indexed() {
		s.Index = 0
	}
	return s
}

// Session は一つの編集セッションの状態。View と未送信の添付ファイルを束ねる
type Session struct {
	View  View
	Files Attachments
}

// NewSession starts an edit session over v with no pending files.
func NewSession(v View) Session {
	return Session{View: v}
}

// AttachImage は slot に src を添付し、View の該当スロットを blob: プレビュー参照に置き換えた Session を返す。
// 結果画像の位置が現在の数を超える場合は位置ごとの既定種別で枠を補う
func (s Session) AttachImage(slot Slot, src imagenorm.Source) (Session, error) {
	if src == nil {
		return s, fmt.Errorf("attach %s: nil file", slot.FieldName())
	}
	if slot.Index < 0 {
		return s, fmt.Errorf("attach %s: negative index", slot.FieldName())
	}
	preview := BlobScheme + uuid.NewString()
	next := s.cloneView()

	switch slot.Role {
	case RolePreview:
		next.View.PreviewImg = preview
	case RoleMain:
		next.View.MainImg = preview
	case RoleNotebook:
		next.View.NotebookImg = preview
	case RoleStage:
		if slot.Index >= len(next.View.Stages) {
			return s, fmt.Errorf("attach %s: project has %d stages", slot.FieldName(), len(next.View.Stages))
		}
		next.View.Stages[slot.Index].Img = preview
	case RoleResult:
		for i := len(next.View.Result.Images); i <= slot.Index; i++ {
			next.View.Result.Images = append(next.View.Result.Images, ResultImage{Type: DefaultResultType(i)})
		}
		next.View.Result.Images[slot.Index].Img = preview
	default:
		return s, fmt.Errorf("attach: unknown role %q", slot.Role)
	}

	next.Files = s.Files.With(slot, src)
	return next, nil
}

// AddStage appends an empty stage.
func (s Session) AddStage(title, description string) Session {
	next := s.cloneView()
	next.View.Stages = append(next.View.Stages, Stage{Title: title, Description: description})
	return next
}

// RemoveStage はステージ i を削除し、後続ステージの添付ファイルを一つ前へ詰める
func (s Session) RemoveStage(i int) (Session, error) {
	if i < 0 || i >= len(s.View.Stages) {
		return s, fmt.Errorf("remove stage %d: project has %d stages", i, len(s.View.Stages))
	}
	next := s.cloneView()
	next.View.Stages = append(next.View.Stages[:i], next.View.Stages[i+1:]...)

	files := Attachments{files: map[Slot]imagenorm.Source{}}
	for slot, f := range s.Files.files {
		switch {
		case slot.Role != RoleStage || slot.Index < i:
			files.files[slot] = f
		case slot.Index > i:
			files.files[Slot{Role: RoleStage, Index: slot.Index - 1}] = f
		}
	}
	next.Files = files
	return next, nil
}

// cloneView は可変なスライスを複製した Session を返す
func (s Session) cloneView() Session {
	next := s
	next.View.Stages = append([]Stage(nil), s.View.Stages...)
	next.View.Result.Images = append([]ResultImage(nil), s.View.Result.Images...)
	next.View.Progess = append([]Stat(nil), s.View.Progess...)
	return next
}
