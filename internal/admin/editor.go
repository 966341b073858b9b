// Package admin は管理画面のプロジェクト編集セッションを扱う。
// 取得・画像の添付・保存を API クライアント経由で行う
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/morf1ng/105site/pkg/imagenorm"
	"github.com/morf1ng/105site/pkg/projectshape"
)

// ProjectClient は編集セッションが使う API 操作
type ProjectClient interface {
	GetProject(ctx context.Context, id int64) (*projectshape.Wire, error)
	CreateProject(ctx context.Context, p *projectshape.Payload) (*projectshape.Wire, error)
	UpdateProject(ctx context.Context, id int64, p *projectshape.Payload) (*projectshape.Wire, error)
}

// Options は Editor の設定
type Options struct {
	// Normalize は添付画像の縮小パラメータ
	Normalize imagenorm.Options
	Logger    *slog.Logger
}

// Editor はプロジェクトの編集セッションを開き、保存する
type Editor struct {
	client   ProjectClient
	resolver projectshape.Resolver
	opts     Options
}

// NewEditor は Editor を生成する。resolver は client と同じバックエンドを指すこと
func NewEditor(client ProjectClient, resolver projectshape.Resolver, opts Options) *Editor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Editor{client: client, resolver: resolver, opts: opts}
}

// Open はプロジェクトを取得して編集セッションを開始する。
// 壊れた複合フィールドは既定値になり、警告として記録される
func (e *Editor) Open(ctx context.Context, id int64) (projectshape.Session, error) {
	w, err := e.client.GetProject(ctx, id)
	if err != nil {
		return projectshape.Session{}, err
	}
	return e.sessionFrom(*w), nil
}

// New は新規作成用の空のセッションを返す
func (e *Editor) New() projectshape.Session {
	return projectshape.NewSession(projectshape.View{
		Stages:  []projectshape.Stage{},
		Result:  projectshape.Result{Images: []projectshape.ResultImage{}},
		Progess: []projectshape.Stat{},
	})
}

func (e *Editor) sessionFrom(w projectshape.Wire) projectshape.Session {
	v, rep := projectshape.ToView(w, e.resolver)
	if bad := rep.Malformed(); len(bad) > 0 {
		e.opts.Logger.Warn("project fields replaced with defaults", "project_id", w.ID, "fields", bad)
	}
	return projectshape.NewSession(v)
}

// AttachImage は src を縮小してから slot に添付する。
// 読み込みに失敗した場合は記録したうえで元のファイルを添付する
func (e *Editor) AttachImage(s projectshape.Session, slot projectshape.Slot, src imagenorm.Source) (projectshape.Session, imagenorm.Result, error) {
	if src == nil {
		return s, imagenorm.Result{}, fmt.Errorf("attach %s: nil file", slot.FieldName())
	}
	res, err := imagenorm.Normalize(src, e.opts.Normalize)
	if err != nil {
		e.opts.Logger.Warn("image normalization failed, attaching original", "slot", slot.FieldName(), "error", err)
	}
	if res.File == nil {
		res.File = src
	}
	if res.Outcome == imagenorm.OutcomeCompressed {
		e.opts.Logger.Debug("image normalized",
			"slot", slot.FieldName(), "before", src.Size(), "after", res.File.Size(),
			"width", res.Width, "height", res.Height)
	}

	next, err := s.AttachImage(slot, res.File)
	if err != nil {
		return s, res, err
	}
	return next, res, nil
}

// Save はセッションを保存する。ID が 0 なら作成、それ以外は更新。
// 検証エラーは通信前に *projectshape.ValidationError として返す。
// 成功時はサーバーの応答から作り直した、添付のないセッションを返す
func (e *Editor) Save(ctx context.Context, s projectshape.Session) (projectshape.Session, error) {
	payload, err := projectshape.ToWire(s.View, s.Files, e.resolver)
	if err != nil {
		return s, err
	}

	var w *projectshape.Wire
	if s.View.ID == 0 {
		w, err = e.client.CreateProject(ctx, payload)
	} else {
		w, err = e.client.UpdateProject(ctx, s.View.ID, payload)
	}
	if err != nil {
		return s, err
	}
	return e.sessionFrom(*w), nil
}

// ApplyEdits は View のフィールドを持つ JSON 文書をセッションに重ねる。
// 文書に無いフィールドはそのまま残り、配列は丸ごと置き換わる。id は変更できない
func ApplyEdits(s projectshape.Session, edits []byte) (projectshape.Session, error) {
	cur, err := json.Marshal(s.View)
	if err != nil {
		return s, err
	}
	var v projectshape.View
	if err := json.Unmarshal(cur, &v); err != nil {
		return s, err
	}

	dec := json.NewDecoder(bytes.NewReader(edits))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return s, fmt.Errorf("apply edits: %w", err)
	}
	v.ID = s.View.ID

	next := s
	next.View = v
	// 消えたステージ・結果画像の添付は送らない
	for _, part := range s.Files.Parts() {
		switch {
		case part.Slot.Role == projectshape.RoleStage && part.Slot.Index >= len(v.Stages),
			part.Slot.Role == projectshape.RoleResult && part.Slot.Index >= len(v.Result.Images):
			next.Files = next.Files.Without(part.Slot)
		}
	}
	return next, nil
}
