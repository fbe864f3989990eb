// Package post はブログ投稿のビジネスロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/memberhub/internal/model"
	"github.com/hitoshi/memberhub/internal/repository"
	"github.com/hitoshi/memberhub/internal/security"
)

// PostInput は投稿の作成・更新の入力。
type PostInput struct {
	Title     string
	Body      string
	Published bool
}

// Service はブログ投稿に関するビジネスロジックを提供する。
// 本文HTMLは保存前に必ずサニタイズする。
type Service struct {
	postRepo  repository.PostRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(postRepo repository.PostRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		postRepo:  postRepo,
		sanitizer: sanitizer,
	}
}

// ListPublished は公開済みの投稿一覧を返す。
func (s *Service) ListPublished(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.postRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}
	return posts, nil
}

// ListAll は下書きを含む全投稿を返す。モデレーター用。
func (s *Service) ListAll(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Get は指定IDの投稿を取得する。下書きの公開可否は呼び出し側で判断する。
func (s *Service) Get(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return post, nil
}

// Create は投稿を作成する。本文はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, authorID string, input PostInput) (*model.Post, error) {
	if err := validatePostInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	post := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     strings.TrimSpace(input.Title),
		Body:      s.sanitizer.Sanitize(input.Body),
		Published: input.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("author_id", authorID),
		slog.Bool("published", post.Published),
	)

	return post, nil
}

// Update は投稿を更新する。本文はサニタイズしてから保存する。
func (s *Service) Update(ctx context.Context, postID string, input PostInput) (*model.Post, error) {
	if err := validatePostInput(input); err != nil {
		return nil, err
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	post.Title = strings.TrimSpace(input.Title)
	post.Body = s.sanitizer.Sanitize(input.Body)
	post.Published = input.Published
	post.UpdatedAt = time.Now()

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

// Delete は投稿を削除する。
func (s *Service) Delete(ctx context.Context, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}

	if err := s.postRepo.DeleteByID(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	slog.Info("post deleted", slog.String("post_id", postID))
	return nil
}

// validatePostInput は投稿の入力を検証する。
func validatePostInput(input PostInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return model.NewValidationError("投稿タイトルは必須です")
	}
	if strings.TrimSpace(input.Body) == "" {
		return model.NewValidationError("本文は必須です")
	}
	return nil
}
