// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 認証・認可の失敗理由（期限切れ／署名不正／不在など）は
// ログとメトリクスにのみ記録し、外部にはカテゴリのみを返す。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, csrf, authz, validation, member, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotOwner           = "NOT_OWNER"
	ErrCodeCSRFRejected       = "CSRF_REJECTED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidRole        = "INVALID_ROLE"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeCourseNotFound     = "COURSE_NOT_FOUND"
	ErrCodeCourseFull         = "COURSE_FULL"
	ErrCodeAlreadyRegistered  = "ALREADY_REGISTERED"
	ErrCodeNotRegistered      = "NOT_REGISTERED"
	ErrCodePostNotFound       = "POST_NOT_FOUND"
)

// NewUnauthorizedError は認証失敗エラーを生成する。
// トークンの不在・不正・期限切れはすべて同一のレスポンスに収束させ、
// 探索的なクライアントに判別材料を与えない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// 認証済みだが操作が許可されていない場合に使用する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "authz",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewNotOwnerError は所有者不一致エラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "自分のリソースに対してのみ実行できる操作です。",
		Category: "authz",
		Action:   "対象のリソースを確認してください。",
	}
}

// NewCSRFRejectedError はCSRF検証失敗エラーを生成する。
// トークン不在と不一致は外部には区別しない。
func NewCSRFRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFRejected,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "csrf",
		Action:   "CSRFトークンを再取得してから操作をやり直してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレス不明とパスワード不一致は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "member",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewInvalidRoleError は未知の役割が指定された場合のエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効な役割です: %s", role),
		Category: "validation",
		Action:   "役割には admin、moderator、user のいずれかを指定してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewCourseNotFoundError は講座が見つからない場合のエラーを生成する。
func NewCourseNotFoundError(courseID string) *APIError {
	return &APIError{
		Code:     ErrCodeCourseNotFound,
		Message:  fmt.Sprintf("指定された講座が見つかりません: %s", courseID),
		Category: "member",
		Action:   "講座IDを確認してください。",
	}
}

// NewCourseFullError は定員超過エラーを生成する。
func NewCourseFullError() *APIError {
	return &APIError{
		Code:     ErrCodeCourseFull,
		Message:  "この講座は定員に達しています。",
		Category: "member",
		Action:   "他の講座をご検討ください。",
	}
}

// NewAlreadyRegisteredError は重複登録エラーを生成する。
func NewAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyRegistered,
		Message:  "この講座には既に登録しています。",
		Category: "member",
		Action:   "受講登録一覧から該当講座を確認してください。",
	}
}

// NewNotRegisteredError は未登録の講座に対する解除エラーを生成する。
func NewNotRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeNotRegistered,
		Message:  "この講座には登録していません。",
		Category: "member",
		Action:   "受講登録一覧を確認してください。",
	}
}

// NewPostNotFoundError は投稿が見つからない場合のエラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "member",
		Action:   "投稿IDを確認してください。",
	}
}

// NewInternalServerError は内部エラーを生成する。
// 原因の詳細はログのみに記録し、レスポンスには含めない。
func NewInternalServerError() *APIError {
	return &APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
