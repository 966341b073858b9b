package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/morf1ng/105site/internal/model"
)

// PgRoleRepository は RoleRepository の PostgreSQL 実装
type PgRoleRepository struct {
	pool *pgxpool.Pool
}

// NewPgRoleRepository は PgRoleRepository を生成する
func NewPgRoleRepository(pool *pgxpool.Pool) *PgRoleRepository {
	return &PgRoleRepository{pool: pool}
}

func scanRole(row pgx.Row) (*model.Role, error) {
	var role model.Role
	if err := row.Scan(&role.ID, &role.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *PgRoleRepository) List(ctx context.Context) ([]*model.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []*model.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *PgRoleRepository) FindByID(ctx context.Context, id int64) (*model.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE id = $1`, id))
}

func (r *PgRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name))
}

// Create はロールを作成する。名前が重複する場合は ErrDuplicate
func (r *PgRoleRepository) Create(ctx context.Context, role *model.Role) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id`, role.Name).Scan(&role.ID)
	return mapUniqueViolation(err)
}

func (r *PgRoleRepository) Update(ctx context.Context, role *model.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET name = $1 WHERE id = $2`, role.Name, role.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRoleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountExisting は ids のうち roles に存在するものの数を返す
func (r *PgRoleRepository) CountExisting(ctx context.Context, ids []int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE id = ANY($1)`, ids).Scan(&n)
	return n, err
}

// PgSchemaRepository は SchemaRepository の PostgreSQL 実装
type PgSchemaRepository struct {
	pool *pgxpool.Pool
}

func NewPgSchemaRepository(pool *pgxpool.Pool) *PgSchemaRepository {
	return &PgSchemaRepository{pool: pool}
}

// ListTables は public スキーマのテーブル名を返す
func (r *PgSchemaRepository) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = 'public' ORDER BY tablename`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
