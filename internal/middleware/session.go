// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/memberhub/internal/model"
	"github.com/hitoshi/memberhub/internal/token"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "session_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みIdentityを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenVerifier はセッショントークン検証に必要なインターフェース。
// token.Codecの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*token.SessionClaims, error)
}

// AuthMetrics は認証失敗のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type AuthMetrics interface {
	RecordTokenRejected(reason string)
}

// ExtractToken はリクエストからセッショントークン候補を取り出す。
// Authorizationヘッダー（Bearer形式）を優先し、なければセッションCookieを参照する。
// この優先順位により、APIクライアントは明示的なBearer資格情報で
// Cookieベースのセッションを上書きできる。
// どちらにも存在しない場合は空文字列を返す。リクエストへの副作用はない。
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1]
		}
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

// NewSessionMiddleware はセッショントークンを検証し、認証済みIdentityを
// リクエストコンテキストに注入するミドルウェアを返す。
// トークンの不在・不正・期限切れはすべて同一の401レスポンスに収束させる。
// 内部的な失敗理由はログとメトリクスにのみ記録する。
func NewSessionMiddleware(verifier TokenVerifier, m AuthMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. リクエストからトークン候補を取り出す
			tokenString := ExtractToken(r)
			if tokenString == "" {
				m.RecordTokenRejected("missing")
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. 署名と有効期限を検証する
			claims, err := verifier.Verify(tokenString)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, token.ErrTokenExpired) {
					reason = "expired"
				}
				m.RecordTokenRejected(reason)
				slog.Warn("session token rejected",
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 認証済みIdentityをコンテキストに注入する
			ctx := ContextWithIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みIdentityを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
// 保護された操作はこの結果のみを本人性の根拠とし、他の手段で再導出しない。
func IdentityFromContext(ctx context.Context) (model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	if !ok || identity.UserID == "" {
		return model.Identity{}, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
