package service

import (
	"context"

	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/pkg/imagenorm"
)

// ProjectInput はフォームから組み立てたプロジェクトの入力。
// Stages / Result.Images の Img は既存画像のパス (引き継ぎ) で、新しいファイルは Files に入る
type ProjectInput struct {
	Title        string
	URL          string
	Target       string
	Task         string
	AboutCompany model.AboutCompany
	Stages       []model.Stage
	Result       model.Result
	Progress     []model.Progress
	Files        ProjectFiles
}

// ProjectFiles はアップロードされた画像。nil は未送信
type ProjectFiles struct {
	Preview  imagenorm.Source
	Main     imagenorm.Source
	Notebook imagenorm.Source

	// StageByIndex は stage_imgs[i] で送られたファイル。引き継ぎパスより優先する
	StageByIndex map[int]imagenorm.Source
	// StageList は添字なしの stage_imgs。引き継ぎパスがない工程だけに使う
	StageList []imagenorm.Source

	// ResultByIndex は result_imgs[i] と添字なし result_imgs を位置でまとめたもの
	ResultByIndex map[int]imagenorm.Source
}

// ProjectService はプロジェクトに関するビジネスロジックのインターフェース
type ProjectService interface {
	List(ctx context.Context) ([]*model.ProjectSummary, error)
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	Create(ctx context.Context, in *ProjectInput) (*model.Project, error)
	Update(ctx context.Context, id int64, in *ProjectInput) (*model.Project, error)
	Delete(ctx context.Context, id int64) error
}
