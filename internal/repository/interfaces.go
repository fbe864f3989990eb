// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/memberhub/internal/model"
)

// UserRepository は会員データの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDの会員を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスで会員を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create は会員を作成する。
	Create(ctx context.Context, user *model.User) error

	// Update は会員情報（名前・役割・更新日時）を更新する。
	Update(ctx context.Context, user *model.User) error

	// List は全会員を作成日時昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDの会員を削除する。
	DeleteByID(ctx context.Context, id string) error
}

// CourseRepository は講座データの永続化インターフェース。
type CourseRepository interface {
	// FindByID は指定IDの講座を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Course, error)

	// Create は講座を作成する。
	Create(ctx context.Context, course *model.Course) error

	// Update は講座情報を更新する。
	Update(ctx context.Context, course *model.Course) error

	// List は全講座を開始日時昇順で返す。
	List(ctx context.Context) ([]*model.Course, error)

	// DeleteByID は指定IDの講座を削除する。関連する受講登録はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// RegistrationRepository は受講登録データの永続化インターフェース。
type RegistrationRepository interface {
	// Create は受講登録を作成する。
	Create(ctx context.Context, registration *model.Registration) error

	// FindByUserAndCourse は会員IDと講座IDで受講登録を検索する。見つからない場合はnilを返す。
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*model.Registration, error)

	// ListByUserID は会員の受講登録一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Registration, error)

	// ListByCourseID は講座の受講登録一覧を返す。
	ListByCourseID(ctx context.Context, courseID string) ([]*model.Registration, error)

	// CountByCourseID は講座の受講登録数を返す。定員チェックに使用する。
	CountByCourseID(ctx context.Context, courseID string) (int, error)

	// DeleteByUserAndCourse は会員IDと講座IDで受講登録を削除する。
	DeleteByUserAndCourse(ctx context.Context, userID, courseID string) error

	// DeleteByUserID は会員の全受講登録を削除する。退会処理で使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// PostRepository はブログ投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は投稿を更新する。
	Update(ctx context.Context, post *model.Post) error

	// ListPublished は公開済みの投稿を作成日時降順で返す。
	ListPublished(ctx context.Context) ([]*model.Post, error)

	// List は下書きを含む全投稿を作成日時降順で返す。モデレーター用。
	List(ctx context.Context) ([]*model.Post, error)

	// DeleteByID は指定IDの投稿を削除する。
	DeleteByID(ctx context.Context, id string) error
}
