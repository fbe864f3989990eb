// Package auth は会員登録・ログイン・セッショントークン発行を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/memberhub/internal/model"
	"github.com/hitoshi/memberhub/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer はセッショントークン発行のインターフェース。
// token.Codecの部分集合として定義する。
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}

// LoginMetrics はログイン結果のメトリクス記録インターフェース。
type LoginMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure()
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
	metrics  LoginMetrics
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, issuer TokenIssuer, metrics LoginMetrics) *Service {
	return &Service{
		userRepo: userRepo,
		issuer:   issuer,
		metrics:  metrics,
	}
}

// Signup は新規会員を登録する。役割は常にuserで作成される
// （管理者・モデレーターへの昇格は別途管理操作で行う）。
func (s *Service) Signup(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	if err := validateSignup(email, name, password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Role:         model.RoleUser,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login は資格情報を検証し、セッショントークンを発行する。
// メールアドレス不明とパスワード不一致は同一のエラーに収束させる。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordLoginFailure()
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.RecordLoginFailure()
		slog.Warn("login failed: password mismatch", slog.String("user_id", user.ID))
		return nil, "", model.NewInvalidCredentialsError()
	}

	tokenString, err := s.issuer.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	s.metrics.RecordLoginSuccess()
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return user, tokenString, nil
}

// GetCurrentUser は認証済みIdentityに対応する会員を取得する。
// トークンは有効だがユーザーが既に退会している場合はエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// validateSignup は会員登録の入力を検証する。
func validateSignup(email, name, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if name == "" {
		return model.NewValidationError("名前は必須です")
	}
	if len(password) < 8 {
		return model.NewValidationError("パスワードは8文字以上で指定してください")
	}
	// bcryptは72バイトを超える入力を黙って切り詰めるため、境界で拒否する
	if len(password) > 72 {
		return model.NewValidationError("パスワードは72文字以内で指定してください")
	}
	return nil
}
