package middleware

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/memberhub/internal/model"
)

const (
	// CSRFCookieName はCSRFトークンの一方向ハッシュを保持するCookieの名前。
	// 生のトークン値ではなくハッシュを保存するため、HttpOnlyとして
	// スクリプトから読み取れないようにする。
	CSRFCookieName = "csrf_token_hash"

	// CSRFHeaderName はリクエストヘッダーから生のCSRFトークンを読み取る際のヘッダー名。
	CSRFHeaderName = "X-CSRF-Token"

	// csrfTokenBytes は生成するトークンのエントロピー（バイト数）。
	csrfTokenBytes = 32
)

// CSRFConfig はCSRFミドルウェアの設定。
// Disabledはテスト環境向けの明示的なバイパス設定で、
// 有効化時は起動時とリクエストごとに警告ログを出力する。既定はfalse。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	CookieMaxAge int // Cookieの有効期間（秒）。トークンの寿命はCookieのTTLのみで決まる。
	Disabled     bool
}

// CSRFMetrics はCSRF検証失敗のメトリクス記録インターフェース。
type CSRFMetrics interface {
	RecordCSRFRejected(reason string)
}

// GenerateCSRFToken は暗号的に安全なCSRFトークンを生成し、
// 生のトークンとその一方向ハッシュ（Cookie格納用）を返す。
// サーバーが保持するのはハッシュのみで、生の値は保存しない。
func GenerateCSRFToken() (raw string, cookieHash string, err error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, hashCSRFToken(raw), nil
}

// hashCSRFToken は生のトークンのSHA-256ハッシュを16進文字列で返す。
func hashCSRFToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewCSRFMiddleware はdouble-submit cookie方式のCSRF検証ミドルウェアを返す。
//
// 安全なメソッド（GET, HEAD, OPTIONS）は副作用を持たない契約のため検証を免除する。
// 状態変更メソッドでは、Cookieに保存されたハッシュとヘッダーで送られた生トークンの
// 両方が必須で、hash(ヘッダー値) == Cookie値 を定数時間比較で検証する。
// 攻撃者のクロスサイトリクエストは被害者のCookieを自動送信できるが、
// JSONレスポンスで渡された生トークンを読めないため正しいヘッダーを付けられない。
func NewCSRFMiddleware(config CSRFConfig, m CSRFMetrics) func(next http.Handler) http.Handler {
	if config.Disabled {
		slog.Warn("CSRF protection is DISABLED by explicit configuration; " +
			"state-changing requests will NOT be verified")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 安全なメソッドは検証をスキップ
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if config.Disabled {
				slog.Warn("CSRF validation bypassed (disabled by configuration)",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}

			// 状態変更メソッド: CookieのハッシュとヘッダーのPlainトークンを検証
			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				rejectCSRF(w, r, m, "missing_cookie")
				return
			}

			headerToken := r.Header.Get(CSRFHeaderName)
			if headerToken == "" {
				rejectCSRF(w, r, m, "missing_header")
				return
			}

			expected := []byte(cookie.Value)
			actual := []byte(hashCSRFToken(headerToken))
			if subtle.ConstantTimeCompare(expected, actual) != 1 {
				rejectCSRF(w, r, m, "mismatch")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rejectCSRF は検証失敗を記録し、403を返す。
// 失敗理由（Cookie不在／ヘッダー不在／不一致）はログとメトリクスにのみ残し、
// レスポンスでは区別しない。
func rejectCSRF(w http.ResponseWriter, r *http.Request, m CSRFMetrics, reason string) {
	m.RecordCSRFRejected(reason)
	slog.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	WriteErrorResponse(w, http.StatusForbidden, model.NewCSRFRejectedError())
}

// NewCSRFTokenHandler はCSRFトークン発行エンドポイントのハンドラーを返す。
// GET /auth/csrf
// 毎回新しいトークンを生成し、生の値をJSONボディで、ハッシュを
// HttpOnly・SameSite=StrictのCookieで返す。サーバーは生の値を保持しないため、
// 既存トークンの再返却はできない。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, cookieHash, err := GenerateCSRFToken()
		if err != nil {
			slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
			WriteInternalServerError(w)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     CSRFCookieName,
			Value:    cookieHash,
			Path:     "/",
			Domain:   config.CookieDomain,
			MaxAge:   config.CookieMaxAge,
			HttpOnly: true, // ハッシュはスクリプトから読めない（改竄・窃取の防止）
			Secure:   config.CookieSecure,
			SameSite: http.SameSiteStrictMode,
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token": raw,
		})
	})
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
