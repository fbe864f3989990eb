// Package token は署名付きセッショントークンの発行と検証を提供する。
//
// トークンはHMAC-SHA256で署名されたJWTで、本人性クレーム
// （ユーザーID、メールアドレス、役割、発行・失効時刻）のみを運ぶ。
// サーバー側にセッションテーブルは持たず、有効性は署名と有効期限だけで決まる。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/memberhub/internal/model"
)

// NowFunc は現在時刻を返す。テストで差し替え可能。
var NowFunc = time.Now

// DefaultSessionTTL はセッショントークンの既定の有効期間（7日）。
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrTokenExpired は有効期限切れを表す。ログ・メトリクス用の内部区別であり、
	// 外部レスポンスではErrTokenInvalidと同一の401に収束する。
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenInvalid は復号エラー・署名不一致・クレーム不正を表す。
	ErrTokenInvalid = errors.New("session token invalid")
)

// SessionClaims はセッショントークンに埋め込むクレーム。
// 署名後は不変。サーバー側には永続化しない。
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity は検証済みクレームからIdentityを構築する。
// Verifyを通過したクレームに対してのみ呼び出すこと。
func (c *SessionClaims) Identity() model.Identity {
	return model.Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Role:   model.Role(c.Role),
	}
}

// Codec はセッショントークンのコーデック。
// 署名シークレットは起動時に1回注入し、以後変更しない。
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec はCodecを生成する。
// シークレットは32バイト以上を必須とする。ttlが0以下の場合は既定値を使用する。
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Codec{secret: secret, ttl: ttl}, nil
}

// TTL はトークンの有効期間を返す。Cookieのmax-age設定に使用する。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue はユーザーのセッショントークンを発行する。
// 有効期限は発行時刻 + TTL。副作用はない。
func (c *Codec) Issue(user *model.User) (string, error) {
	now := NowFunc()
	claims := SessionClaims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 復号エラー・署名不一致・期限切れ・役割不正はすべてエラーとなり、
// 部分的に信頼された結果を返すことはない（fail closed）。
// 有効期限は検証時刻との絶対比較で、クロックスキューの猶予は設けない。
func (c *Codec) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return NowFunc() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	// 役割は境界で検証し、未知の役割を持つトークンは不正として扱う
	if _, err := model.ParseRole(claims.Role); err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
