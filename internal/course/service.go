// Package course は講座と受講登録のビジネスロジックを提供する。
package course

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/memberhub/internal/model"
	"github.com/hitoshi/memberhub/internal/repository"
)

// CourseInput は講座の作成・更新の入力。
type CourseInput struct {
	Title       string
	Description string
	Capacity    int
	StartsAt    time.Time
}

// Service は講座と受講登録に関するビジネスロジックを提供する。
type Service struct {
	courseRepo repository.CourseRepository
	regRepo    repository.RegistrationRepository
}

// NewService はServiceを生成する。
func NewService(courseRepo repository.CourseRepository, regRepo repository.RegistrationRepository) *Service {
	return &Service{
		courseRepo: courseRepo,
		regRepo:    regRepo,
	}
}

// List は全講座を返す。
func (s *Service) List(ctx context.Context) ([]*model.Course, error) {
	courses, err := s.courseRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// Get は指定IDの講座を取得する。
func (s *Service) Get(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	if course == nil {
		return nil, model.NewCourseNotFoundError(courseID)
	}
	return course, nil
}

// Create は講座を作成する。
func (s *Service) Create(ctx context.Context, input CourseInput) (*model.Course, error) {
	if err := validateCourseInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	course := &model.Course{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Capacity:    input.Capacity,
		StartsAt:    input.StartsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	slog.Info("course created",
		slog.String("course_id", course.ID),
		slog.String("title", course.Title),
	)

	return course, nil
}

// Update は講座情報を更新する。
func (s *Service) Update(ctx context.Context, courseID string, input CourseInput) (*model.Course, error) {
	if err := validateCourseInput(input); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	if course == nil {
		return nil, model.NewCourseNotFoundError(courseID)
	}

	course.Title = strings.TrimSpace(input.Title)
	course.Description = input.Description
	course.Capacity = input.Capacity
	course.StartsAt = input.StartsAt
	course.UpdatedAt = time.Now()

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	return course, nil
}

// Delete は講座を削除する。関連する受講登録はDBのCASCADEで削除される。
func (s *Service) Delete(ctx context.Context, courseID string) error {
	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to find course: %w", err)
	}
	if course == nil {
		return model.NewCourseNotFoundError(courseID)
	}

	if err := s.courseRepo.DeleteByID(ctx, courseID); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	slog.Info("course deleted", slog.String("course_id", courseID))
	return nil
}

// Register は会員を講座に受講登録する。
// 重複登録と定員超過は拒否する。
func (s *Service) Register(ctx context.Context, userID, courseID string) (*model.Registration, error) {
	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	if course == nil {
		return nil, model.NewCourseNotFoundError(courseID)
	}

	existing, err := s.regRepo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, model.NewAlreadyRegisteredError()
	}

	// Capacity 0 は定員無制限
	if course.Capacity > 0 {
		count, err := s.regRepo.CountByCourseID(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to count registrations: %w", err)
		}
		if count >= course.Capacity {
			return nil, model.NewCourseFullError()
		}
	}

	registration := &model.Registration{
		ID:        uuid.New().String(),
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now(),
	}

	if err := s.regRepo.Create(ctx, registration); err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	slog.Info("course registration created",
		slog.String("user_id", userID),
		slog.String("course_id", courseID),
	)

	return registration, nil
}

// Unregister は会員の受講登録を解除する。
func (s *Service) Unregister(ctx context.Context, userID, courseID string) error {
	existing, err := s.regRepo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing == nil {
		return model.NewNotRegisteredError()
	}

	if err := s.regRepo.DeleteByUserAndCourse(ctx, userID, courseID); err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}

	slog.Info("course registration deleted",
		slog.String("user_id", userID),
		slog.String("course_id", courseID),
	)

	return nil
}

// ListMyRegistrations は会員自身の受講登録一覧を返す。
func (s *Service) ListMyRegistrations(ctx context.Context, userID string) ([]*model.Registration, error) {
	registrations, err := s.regRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return registrations, nil
}

// ListCourseRegistrations は講座の受講登録一覧を返す。
// 閲覧権限（registrations:view）のチェックは呼び出し側で行う。
func (s *Service) ListCourseRegistrations(ctx context.Context, courseID string) ([]*model.Registration, error) {
	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	if course == nil {
		return nil, model.NewCourseNotFoundError(courseID)
	}

	registrations, err := s.regRepo.ListByCourseID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return registrations, nil
}

// validateCourseInput は講座の入力を検証する。
func validateCourseInput(input CourseInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return model.NewValidationError("講座タイトルは必須です")
	}
	if input.Capacity < 0 {
		return model.NewValidationError("定員は0以上で指定してください")
	}
	if input.StartsAt.IsZero() {
		return model.NewValidationError("開始日時は必須です")
	}
	return nil
}
