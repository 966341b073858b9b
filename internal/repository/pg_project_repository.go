package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/morf1ng/105site/internal/model"
)

// PgProjectRepository は ProjectRepository の PostgreSQL 実装
type PgProjectRepository struct {
	pool *pgxpool.Pool
}

// NewPgProjectRepository は PgProjectRepository を生成する
func NewPgProjectRepository(pool *pgxpool.Pool) *PgProjectRepository {
	return &PgProjectRepository{pool: pool}
}

// List はプロジェクト一覧を新しい順に返す
func (r *PgProjectRepository) List(ctx context.Context) ([]*model.ProjectSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.title, p.preview_img, pr.description
		 FROM project p LEFT JOIN project_result pr ON pr.project_id = p.id
		 ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*model.ProjectSummary{}
	for rows.Next() {
		var s model.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.PreviewImg, &s.Result.Description); err != nil {
			return nil, err
		}
		projects = append(projects, &s)
	}
	return projects, rows.Err()
}

// GetByID は子テーブルを含めてプロジェクトを取得する
func (r *PgProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, url, target, task, preview_img, main_img, notebook_img, created_at, updated_at
		 FROM project WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.URL, &p.Target, &p.Task, &p.PreviewImg, &p.MainImg, &p.NotebookImg, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var about model.AboutCompany
	err = r.pool.QueryRow(ctx,
		`SELECT title, description FROM project_about_company WHERE project_id = $1`, id,
	).Scan(&about.Title, &about.Description)
	if err == nil {
		p.AboutCompany = &about
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if p.Stages, err = r.loadStages(ctx, id); err != nil {
		return nil, err
	}
	if p.Result, err = r.loadResult(ctx, id); err != nil {
		return nil, err
	}
	if p.Progress, err = r.loadProgress(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgProjectRepository) loadStages(ctx context.Context, projectID int64) ([]model.Stage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT title, description, img FROM project_stage WHERE project_id = $1 ORDER BY position`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := []model.Stage{}
	for rows.Next() {
		var s model.Stage
		if err := rows.Scan(&s.Title, &s.Description, &s.Img); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func (r *PgProjectRepository) loadResult(ctx context.Context, projectID int64) (*model.Result, error) {
	var resultID int64
	res := model.Result{Images: []model.ResultImage{}}
	err := r.pool.QueryRow(ctx,
		`SELECT id, description FROM project_result WHERE project_id = $1`, projectID,
	).Scan(&resultID, &res.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT type, img FROM project_result_image WHERE result_id = $1 ORDER BY position`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var img model.ResultImage
		if err := rows.Scan(&img.Type, &img.Img); err != nil {
			return nil, err
		}
		res.Images = append(res.Images, img)
	}
	return &res, rows.Err()
}

func (r *PgProjectRepository) loadProgress(ctx context.Context, projectID int64) ([]model.Progress, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT digit, text FROM project_progress WHERE project_id = $1 ORDER BY position`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	progress := []model.Progress{}
	for rows.Next() {
		var pr model.Progress
		if err := rows.Scan(&pr.Digit, &pr.Text); err != nil {
			return nil, err
		}
		progress = append(progress, pr)
	}
	return progress, rows.Err()
}

// Create はプロジェクトを作成する
func (r *PgProjectRepository) Create(ctx context.Context, project *model.Project) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO project (title, url, target, task, preview_img, main_img, notebook_img)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		project.Title, project.URL, project.Target, project.Task, project.PreviewImg, project.MainImg, project.NotebookImg,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return err
	}
	if err := insertChildren(ctx, tx, project); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update はプロジェクトを更新する。子テーブルは削除してから挿入し直す
func (r *PgProjectRepository) Update(ctx context.Context, project *model.Project) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`UPDATE project SET title=$1, url=$2, target=$3, task=$4, preview_img=$5, main_img=$6, notebook_img=$7, updated_at=NOW()
		 WHERE id=$8 RETURNING created_at, updated_at`,
		project.Title, project.URL, project.Target, project.Task, project.PreviewImg, project.MainImg, project.NotebookImg, project.ID,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	for _, q := range []string{
		`DELETE FROM project_about_company WHERE project_id=$1`,
		`DELETE FROM project_stage WHERE project_id=$1`,
		`DELETE FROM project_result WHERE project_id=$1`,
		`DELETE FROM project_progress WHERE project_id=$1`,
	} {
		if _, err := tx.Exec(ctx, q, project.ID); err != nil {
			return err
		}
	}
	if err := insertChildren(ctx, tx, project); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertChildren(ctx context.Context, tx pgx.Tx, p *model.Project) error {
	if p.AboutCompany != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO project_about_company (project_id, title, description) VALUES ($1, $2, $3)`,
			p.ID, p.AboutCompany.Title, p.AboutCompany.Description,
		); err != nil {
			return err
		}
	}

	for i, s := range p.Stages {
		if _, err := tx.Exec(ctx,
			`INSERT INTO project_stage (project_id, position, title, description, img) VALUES ($1, $2, $3, $4, $5)`,
			p.ID, i, s.Title, s.Description, s.Img,
		); err != nil {
			return err
		}
	}

	if p.Result != nil {
		var resultID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO project_result (project_id, description) VALUES ($1, $2) RETURNING id`,
			p.ID, p.Result.Description,
		).Scan(&resultID); err != nil {
			return err
		}
		for i, img := range p.Result.Images {
			if _, err := tx.Exec(ctx,
				`INSERT INTO project_result_image (result_id, position, type, img) VALUES ($1, $2, $3, $4)`,
				resultID, i, img.Type, img.Img,
			); err != nil {
				return err
			}
		}
	}

	for i, pr := range p.Progress {
		if _, err := tx.Exec(ctx,
			`INSERT INTO project_progress (project_id, position, digit, text) VALUES ($1, $2, $3, $4)`,
			p.ID, i, pr.Digit, pr.Text,
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete はプロジェクトを削除する。子テーブルは ON DELETE CASCADE で消える
func (r *PgProjectRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM project WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
