package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/internal/storage"
	"github.com/morf1ng/105site/pkg/imagenorm"
	"github.com/morf1ng/105site/pkg/projectshape"
)

// アップロード先のディレクトリ
const (
	stageDir  = "stages/"
	resultDir = "results/"
)

// ProjectServiceImpl は ProjectService の実装
type ProjectServiceImpl struct {
	projectRepo repository.ProjectRepository
	store       storage.Storage
	normalize   bool
}

// NewProjectService は ProjectServiceImpl を生成する（DI: ProjectRepository, Storage を注入）。
// normalize が true の場合、保存前に画像を縮小・再圧縮する
func NewProjectService(projectRepo repository.ProjectRepository, store storage.Storage, normalize bool) ProjectService {
	return &ProjectServiceImpl{
		projectRepo: projectRepo,
		store:       store,
		normalize:   normalize,
	}
}

func (s *ProjectServiceImpl) List(ctx context.Context) ([]*model.ProjectSummary, error) {
	return s.projectRepo.List(ctx)
}

func (s *ProjectServiceImpl) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

// Create は画像を保存してからプロジェクトを作成し、保存後の内容を返す
func (s *ProjectServiceImpl) Create(ctx context.Context, in *ProjectInput) (*model.Project, error) {
	p := &model.Project{}
	up := &uploadBatch{svc: s}
	if err := s.assemble(ctx, in, p, up); err != nil {
		up.discard(ctx)
		return nil, err
	}
	if err := s.projectRepo.Create(ctx, p); err != nil {
		up.discard(ctx)
		return nil, fmt.Errorf("create project: %w", err)
	}
	slog.Info("project created", "project_id", p.ID, "uploads", len(up.keys))
	return s.projectRepo.GetByID(ctx, p.ID)
}

// Update は本体を更新し、工程・結果・数値を入力で置き換える。
// 使われなくなった画像はベストエフォートで削除する
func (s *ProjectServiceImpl) Update(ctx context.Context, id int64, in *ProjectInput) (*model.Project, error) {
	current, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := current.ImagePaths()

	next := *current
	up := &uploadBatch{svc: s}
	if err := s.assemble(ctx, in, &next, up); err != nil {
		up.discard(ctx)
		return nil, err
	}
	if err := s.projectRepo.Update(ctx, &next); err != nil {
		up.discard(ctx)
		return nil, err
	}
	s.removeUnused(ctx, before, next.ImagePaths())
	slog.Info("project updated", "project_id", id, "uploads", len(up.keys))
	return s.projectRepo.GetByID(ctx, id)
}

func (s *ProjectServiceImpl) Delete(ctx context.Context, id int64) error {
	current, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeUnused(ctx, current.ImagePaths(), nil)
	return nil
}

// assemble は入力を p に反映する。トップレベル画像は新しいファイルがある場合だけ置き換える
func (s *ProjectServiceImpl) assemble(ctx context.Context, in *ProjectInput, p *model.Project, up *uploadBatch) error {
	p.Title = s.clean(in.Title)
	p.URL = strings.TrimSpace(in.URL)
	if p.Title == "" {
		return ErrTitleRequired
	}
	if p.URL == "" {
		return ErrURLRequired
	}
	p.Target = s.clean(in.Target)
	p.Task = s.clean(in.Task)
	p.AboutCompany = &model.AboutCompany{
		Title:       s.clean(in.AboutCompany.Title),
		Description: s.clean(in.AboutCompany.Description),
	}

	for _, f := range []struct {
		src imagenorm.Source
		dst **string
	}{
		{in.Files.Preview, &p.PreviewImg},
		{in.Files.Main, &p.MainImg},
		{in.Files.Notebook, &p.NotebookImg},
	} {
		if f.src == nil {
			continue
		}
		key, err := up.save(ctx, "", f.src)
		if err != nil {
			return err
		}
		*f.dst = &key
	}

	stages := make([]model.Stage, 0, len(in.Stages))
	for i, st := range in.Stages {
		img := carried(st.Img)
		if src, ok := in.Files.StageByIndex[i]; ok && src != nil {
			key, err := up.save(ctx, stageDir, src)
			if err != nil {
				return err
			}
			img = &key
		} else if img == nil && i < len(in.Files.StageList) && in.Files.StageList[i] != nil {
			key, err := up.save(ctx, stageDir, in.Files.StageList[i])
			if err != nil {
				return err
			}
			img = &key
		}
		stages = append(stages, model.Stage{
			Title:       s.clean(st.Title),
			Description: s.clean(st.Description),
			Img:         img,
		})
	}
	p.Stages = stages

	images, err := s.resultImages(ctx, in, up)
	if err != nil {
		return err
	}
	p.Result = &model.Result{Description: s.clean(in.Result.Description), Images: images}

	progress := make([]model.Progress, 0, len(in.Progress))
	for _, pr := range in.Progress {
		progress = append(progress, model.Progress{Digit: pr.Digit, Text: s.clean(pr.Text)})
	}
	p.Progress = progress
	return nil
}

// resultImages は結果画像を組み立てる。アップロードが引き継ぎパスより優先し、
// 種別は位置で決まる (先頭 tablet、以降 smartphone)。
// メタデータがない場合はアップロード一件につき一枚とする
func (s *ProjectServiceImpl) resultImages(ctx context.Context, in *ProjectInput, up *uploadBatch) ([]model.ResultImage, error) {
	images := []model.ResultImage{}
	if len(in.Result.Images) > 0 {
		for i, meta := range in.Result.Images {
			img := carried(meta.Img)
			if src, ok := in.Files.ResultByIndex[i]; ok && src != nil {
				key, err := up.save(ctx, resultDir, src)
				if err != nil {
					return nil, err
				}
				img = &key
			}
			images = append(images, model.ResultImage{Type: projectshape.DefaultResultType(i), Img: img})
		}
		return images, nil
	}

	idx := make([]int, 0, len(in.Files.ResultByIndex))
	for i, src := range in.Files.ResultByIndex {
		if src != nil {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	for pos, i := range idx {
		key, err := up.save(ctx, resultDir, in.Files.ResultByIndex[i])
		if err != nil {
			return nil, err
		}
		images = append(images, model.ResultImage{Type: projectshape.DefaultResultType(pos), Img: &key})
	}
	return images, nil
}

// clean は前後の空白だけを取り除く。本文は入力のまま保存し、エスケープは表示側で行う
func (s *ProjectServiceImpl) clean(v string) string {
	return strings.TrimSpace(v)
}

func (s *ProjectServiceImpl) removeUnused(ctx context.Context, before, after []string) {
	keep := make(map[string]bool, len(after))
	for _, k := range after {
		keep[k] = true
	}
	for _, k := range before {
		if keep[k] {
			continue
		}
		if err := s.store.Delete(ctx, k); err != nil {
			slog.Warn("failed to remove unused image", "key", k, "error", err)
		}
	}
}

func carried(img *string) *string {
	if img == nil {
		return nil
	}
	v := strings.TrimSpace(*img)
	if v == "" || projectshape.IsPreview(v) {
		return nil
	}
	return &v
}

// uploadBatch は一回の保存処理でアップロードしたキーを記録し、失敗時に削除する
type uploadBatch struct {
	svc  *ProjectServiceImpl
	keys []string
}

func (b *uploadBatch) save(ctx context.Context, dir string, src imagenorm.Source) (string, error) {
	if b.svc.normalize {
		res, err := imagenorm.Normalize(src, imagenorm.DefaultOptions())
		if err != nil {
			slog.Warn("image normalization failed, storing original", "name", src.Name(), "error", err)
		} else {
			if res.UsedFallback() {
				slog.Debug("image kept as uploaded", "name", src.Name(), "outcome", res.Outcome.String())
			}
			src = res.File
		}
	}

	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", src.Name(), err)
	}
	defer rc.Close()

	// 申告された Content-Type ではなく内容で形式と拡張子を決める
	body, ct, ok, err := imagenorm.SniffReader(rc)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", src.Name(), err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s is %s", ErrInvalidFile, src.Name(), ct)
	}
	ext, _ := imagenorm.Extension(ct)

	stored, err := b.svc.store.Save(ctx, dir+uuid.NewString()+ext, body, ct)
	if err != nil {
		return "", fmt.Errorf("save upload %s: %w", src.Name(), err)
	}
	b.keys = append(b.keys, stored)
	return stored, nil
}

func (b *uploadBatch) discard(ctx context.Context) {
	for _, k := range b.keys {
		if err := b.svc.store.Delete(ctx, k); err != nil {
			slog.Warn("failed to discard upload", "key", k, "error", err)
		}
	}
}
