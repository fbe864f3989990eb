package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/memberhub/internal/model"
)

var testSecret = []byte("test-secret-key-must-be-32-bytes!!")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, DefaultSessionTTL)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func testUser() *model.User {
	return &model.User{
		ID:    "user-123",
		Email: "taro@example.com",
		Name:  "山田太郎",
		Role:  model.RoleUser,
	}
}

func TestNewCodec_ShortSecret_ReturnsError(t *testing.T) {
	_, err := NewCodec([]byte("too-short"), DefaultSessionTTL)
	if err == nil {
		t.Fatal("expected error for short secret, got nil")
	}
}

func TestNewCodec_ZeroTTL_UsesDefault(t *testing.T) {
	codec, err := NewCodec(testSecret, 0)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	if codec.TTL() != DefaultSessionTTL {
		t.Errorf("TTL = %v, want %v", codec.TTL(), DefaultSessionTTL)
	}
}

func TestCodec_IssueAndVerify_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	tokenString, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := codec.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	identity := claims.Identity()
	if identity.UserID != "user-123" {
		t.Errorf("UserID = %q, want %q", identity.UserID, "user-123")
	}
	if identity.Email != "taro@example.com" {
		t.Errorf("Email = %q, want %q", identity.Email, "taro@example.com")
	}
	if identity.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", identity.Role, model.RoleUser)
	}
}

func TestCodec_Verify_ExpiredToken_ReturnsErrTokenExpired(t *testing.T) {
	codec := newTestCodec(t)

	issuedAt := time.Now()
	NowFunc = func() time.Time { return issuedAt }
	defer func() { NowFunc = time.Now }()

	tokenString, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// 有効期限の直前は有効
	NowFunc = func() time.Time { return issuedAt.Add(DefaultSessionTTL - time.Minute) }
	if _, err := codec.Verify(tokenString); err != nil {
		t.Errorf("token should still be valid just before expiry: %v", err)
	}

	// 有効期限を過ぎると期限切れ
	NowFunc = func() time.Time { return issuedAt.Add(DefaultSessionTTL + time.Minute) }
	_, err = codec.Verify(tokenString)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestCodec_Verify_TamperedSignature_ReturnsErrTokenInvalid(t *testing.T) {
	codec := newTestCodec(t)

	tokenString, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// 署名部分の1文字を差し替える
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", tokenString)
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_Verify_TamperedPayload_ReturnsErrTokenInvalid(t *testing.T) {
	codec := newTestCodec(t)

	tokenString, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// ペイロードを別トークンのものに差し替えると署名が一致しなくなる
	admin := testUser()
	admin.Role = model.RoleAdmin
	otherToken, err := codec.Issue(admin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(tokenString, ".")
	otherParts := strings.Split(otherToken, ".")
	spliced := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err = codec.Verify(spliced)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_Verify_DifferentKey_ReturnsErrTokenInvalid(t *testing.T) {
	codec := newTestCodec(t)
	otherCodec, err := NewCodec([]byte("another-secret-key-32-bytes-long!!"), DefaultSessionTTL)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	tokenString, err := otherCodec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = codec.Verify(tokenString)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_Verify_GarbageString_ReturnsErrTokenInvalid(t *testing.T) {
	codec := newTestCodec(t)

	for _, input := range []string{"", "not-a-token", "a.b.c", "あいうえお"} {
		_, err := codec.Verify(input)
		if !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) err = %v, want ErrTokenInvalid", input, err)
		}
	}
}

func TestCodec_Verify_UnknownRole_ReturnsErrTokenInvalid(t *testing.T) {
	codec := newTestCodec(t)

	// 正しい鍵で署名されていても、カタログ外の役割を持つトークンは拒否する
	claims := SessionClaims{
		Email: "taro@example.com",
		Role:  "superadmin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = codec.Verify(signed)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_Verify_MissingSubject_ReturnsErrTokenInvalid(t *testing.T) {
	codec := newTestCodec(t)

	claims := SessionClaims{
		Email: "taro@example.com",
		Role:  string(model.RoleUser),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	_, err = codec.Verify(signed)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestCodec_Verify_NoneAlgorithm_ReturnsErrTokenInvalid(t *testing.T) {
	codec := newTestCodec(t)

	// alg=noneのトークンは署名方式の許可リストで拒否される
	claims := SessionClaims{
		Email: "taro@example.com",
		Role:  string(model.RoleUser),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to create unsigned token: %v", err)
	}

	_, err = codec.Verify(unsigned)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}
