// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// Role は会員の役割を表す閉じた列挙型。
// デシリアライズ境界でParseRoleによる検証を必須とし、
// 未知の役割文字列が内部に流入しないことを保証する。
type Role string

const (
	// RoleAdmin は全権限を持つ管理者。
	RoleAdmin Role = "admin"
	// RoleModerator はブログ投稿の管理と受講登録の閲覧ができるモデレーター。
	RoleModerator Role = "moderator"
	// RoleUser は一般会員。自身のリソースのみ操作できる。
	RoleUser Role = "user"
)

// ParseRole は文字列をRoleに変換する。
// 定義済みの役割以外はエラーを返す。
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleUser:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// User は会員を表す。
// PasswordHashはbcryptハッシュであり、平文パスワードは保持しない。
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity は認証済みリクエストの本人性を表す。
// セッショントークンの検証によってリクエストごとに再構築され、
// サーバー側には保持されない。
type Identity struct {
	UserID string
	Email  string
	Role   Role
}
