// Package user は会員管理のビジネスロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/memberhub/internal/model"
	"github.com/hitoshi/memberhub/internal/repository"
)

// Service は会員管理に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	regRepo  repository.RegistrationRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, regRepo repository.RegistrationRepository) *Service {
	return &Service{
		userRepo: userRepo,
		regRepo:  regRepo,
	}
}

// Get は指定IDの会員を取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// List は全会員を返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateProfile は会員の名前を更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("名前は必須です")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	user.Name = name
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// ChangeRole は会員の役割を変更する。roleは検証済みの閉じた型で受け取る。
func (s *Service) ChangeRole(ctx context.Context, userID string, role model.Role) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	previous := user.Role
	user.Role = role
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	slog.Info("user role changed",
		slog.String("user_id", user.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(role)),
	)

	return user, nil
}

// Withdraw は会員の退会処理を実行する。
// 受講登録を削除してから会員レコードを削除する。
// 発行済みのセッショントークンは失効リストを持たないため残存するが、
// 退会後はGetCurrentUserが失敗するため保護された操作は実行できない。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.regRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete registrations: %w", err)
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user withdrawn", slog.String("user_id", userID))
	return nil
}
