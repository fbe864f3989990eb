// Package authz はロールベースの認可ポリシーを提供する。
//
// 役割から権限集合への対応は閉じたカタログとして一箇所で宣言し、
// すべてのルートが同じポリシーを参照する。ハンドラーごとに役割文字列を
// 比較する実装は行わない。
// 所有権チェック（自分のリソースに対する操作）は権限カタログとは
// 独立した認可モードとして明示的に扱う。
package authz

import (
	"errors"

	"github.com/hitoshi/memberhub/internal/model"
)

// Capability は操作に必要な権限を表す閉じた列挙型。
// カタログ外の権限文字列が暗黙に許可されることはない。
type Capability string

const (
	// CapManageUsers は会員一覧の閲覧と役割変更の権限。
	CapManageUsers Capability = "users:manage"
	// CapManageCourses は講座の作成・更新・削除の権限。
	CapManageCourses Capability = "courses:manage"
	// CapModeratePosts はブログ投稿の作成・更新・削除と下書き閲覧の権限。
	CapModeratePosts Capability = "posts:moderate"
	// CapViewRegistrations は講座ごとの受講登録一覧の閲覧権限。
	CapViewRegistrations Capability = "registrations:view"
)

var (
	// ErrInsufficientRole は認証済みだが権限が不足していることを表す。
	// 401（未認証）とは決して混同しない。
	ErrInsufficientRole = errors.New("insufficient role for capability")
	// ErrNotOwner は操作対象のリソースの所有者でないことを表す。
	ErrNotOwner = errors.New("not the resource owner")
)

// rolePermissions は役割から権限集合への閉じたカタログ。
// プロセス起動後は読み取り専用。
var rolePermissions = map[model.Role]map[Capability]struct{}{
	model.RoleAdmin: {
		CapManageUsers:       {},
		CapManageCourses:     {},
		CapModeratePosts:     {},
		CapViewRegistrations: {},
	},
	model.RoleModerator: {
		CapModeratePosts:     {},
		CapViewRegistrations: {},
	},
	model.RoleUser: {},
}

// Authorize は本人性の役割が要求された権限を持つかを判定する。
// 権限を持たない場合はErrInsufficientRoleを返す。
// 未知の役割・未知の権限はどちらも不許可となる。
func Authorize(identity model.Identity, required Capability) error {
	perms, ok := rolePermissions[identity.Role]
	if !ok {
		return ErrInsufficientRole
	}
	if _, ok := perms[required]; !ok {
		return ErrInsufficientRole
	}
	return nil
}

// AuthorizeOwner は操作主体がリソースの所有者であるかを判定する。
// 管理者は所有者でなくても許可される（管理操作のため）。
// 所有者でも管理者でもない場合はErrNotOwnerを返す。
func AuthorizeOwner(identity model.Identity, ownerID string) error {
	if identity.Role == model.RoleAdmin {
		return nil
	}
	if ownerID != "" && identity.UserID == ownerID {
		return nil
	}
	return ErrNotOwner
}
