package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/memberhub/internal/model"
)

// PostgresCourseRepo はPostgreSQLを使用した講座リポジトリ。
type PostgresCourseRepo struct {
	db *sql.DB
}

// NewPostgresCourseRepo はPostgresCourseRepoを生成する。
func NewPostgresCourseRepo(db *sql.DB) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: db}
}

// FindByID は指定IDの講座を取得する。見つからない場合はnilを返す。
func (r *PostgresCourseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	course := &model.Course{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, capacity, starts_at, created_at, updated_at
		 FROM courses WHERE id = $1`,
		id,
	).Scan(&course.ID, &course.Title, &course.Description, &course.Capacity,
		&course.StartsAt, &course.CreatedAt, &course.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find course by ID: %w", err)
	}

	return course, nil
}

// Create は講座を作成する。
func (r *PostgresCourseRepo) Create(ctx context.Context, course *model.Course) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, description, capacity, starts_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		course.ID, course.Title, course.Description, course.Capacity,
		course.StartsAt, course.CreatedAt, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

// Update は講座情報を更新する。
func (r *PostgresCourseRepo) Update(ctx context.Context, course *model.Course) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE courses
		 SET title = $2, description = $3, capacity = $4, starts_at = $5, updated_at = $6
		 WHERE id = $1`,
		course.ID, course.Title, course.Description, course.Capacity,
		course.StartsAt, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("course not found: %s", course.ID)
	}
	return nil
}

// List は全講座を開始日時昇順で返す。
func (r *PostgresCourseRepo) List(ctx context.Context) ([]*model.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, capacity, starts_at, created_at, updated_at
		 FROM courses ORDER BY starts_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*model.Course
	for rows.Next() {
		course := &model.Course{}
		if err := rows.Scan(&course.ID, &course.Title, &course.Description,
			&course.Capacity, &course.StartsAt, &course.CreatedAt, &course.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courses: %w", err)
	}

	return courses, nil
}

// DeleteByID は指定IDの講座を削除する。関連する受講登録はCASCADE削除される。
func (r *PostgresCourseRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM courses WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("course not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ CourseRepository = (*PostgresCourseRepo)(nil)
