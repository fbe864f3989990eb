package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/memberhub/internal/model"
)

// PostgresRegistrationRepo はPostgreSQLを使用した受講登録リポジトリ。
type PostgresRegistrationRepo struct {
	db *sql.DB
}

// NewPostgresRegistrationRepo はPostgresRegistrationRepoを生成する。
func NewPostgresRegistrationRepo(db *sql.DB) *PostgresRegistrationRepo {
	return &PostgresRegistrationRepo{db: db}
}

// Create は受講登録を作成する。
// (user_id, course_id)のUNIQUE制約により重複登録はDBレベルでも拒否される。
func (r *PostgresRegistrationRepo) Create(ctx context.Context, registration *model.Registration) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO registrations (id, user_id, course_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		registration.ID, registration.UserID, registration.CourseID, registration.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

// FindByUserAndCourse は会員IDと講座IDで受講登録を検索する。見つからない場合はnilを返す。
func (r *PostgresRegistrationRepo) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*model.Registration, error) {
	registration := &model.Registration{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, course_id, created_at
		 FROM registrations WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	).Scan(&registration.ID, &registration.UserID, &registration.CourseID, &registration.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}

	return registration, nil
}

// ListByUserID は会員の受講登録一覧を返す。
func (r *PostgresRegistrationRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Registration, error) {
	return r.list(ctx,
		`SELECT id, user_id, course_id, created_at
		 FROM registrations WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
}

// ListByCourseID は講座の受講登録一覧を返す。
func (r *PostgresRegistrationRepo) ListByCourseID(ctx context.Context, courseID string) ([]*model.Registration, error) {
	return r.list(ctx,
		`SELECT id, user_id, course_id, created_at
		 FROM registrations WHERE course_id = $1 ORDER BY created_at ASC`,
		courseID,
	)
}

// CountByCourseID は講座の受講登録数を返す。定員チェックに使用する。
func (r *PostgresRegistrationRepo) CountByCourseID(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE course_id = $1`,
		courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// DeleteByUserAndCourse は会員IDと講座IDで受講登録を削除する。
func (r *PostgresRegistrationRepo) DeleteByUserAndCourse(ctx context.Context, userID, courseID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM registrations WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("registration not found: user=%s course=%s", userID, courseID)
	}
	return nil
}

// DeleteByUserID は会員の全受講登録を削除する。退会処理で使用する。
// 登録が存在しない場合もエラーにしない（冪等）。
func (r *PostgresRegistrationRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM registrations WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete registrations: %w", err)
	}
	return nil
}

// list はクエリ結果をRegistrationのスライスに変換する。
func (r *PostgresRegistrationRepo) list(ctx context.Context, query string, args ...interface{}) ([]*model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var registrations []*model.Registration
	for rows.Next() {
		registration := &model.Registration{}
		if err := rows.Scan(&registration.ID, &registration.UserID,
			&registration.CourseID, &registration.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		registrations = append(registrations, registration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}

	return registrations, nil
}

// compile-time interface check
var _ RegistrationRepository = (*PostgresRegistrationRepo)(nil)
