package repository

import (
	"context"

	"github.com/morf1ng/105site/internal/model"
)

// DB は DB 接続の生存確認を行うインターフェース
type DB interface {
	Ping(ctx context.Context) error
}

// ProjectRepository はプロジェクト集約の永続化インターフェース
type ProjectRepository interface {
	List(ctx context.Context) ([]*model.ProjectSummary, error)
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	// Create は子テーブルを含めて一つのトランザクションで保存する
	Create(ctx context.Context, project *model.Project) error
	// Update は本体を更新し、子テーブルを丸ごと置き換える
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository はユーザー永続化のインターフェース
type UserRepository interface {
	List(ctx context.Context) ([]*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
	// CountByRole は roleID を持つユーザー数を返す
	CountByRole(ctx context.Context, roleID int64) (int, error)
}

// RoleRepository はロール永続化のインターフェース
type RoleRepository interface {
	List(ctx context.Context) ([]*model.Role, error)
	FindByID(ctx context.Context, id int64) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id int64) error
	// CountExisting は ids のうち存在するロールの数を返す
	CountExisting(ctx context.Context, ids []int64) (int, error)
}

// SchemaRepository は DB メタ情報の参照
type SchemaRepository interface {
	ListTables(ctx context.Context) ([]string, error)
}
