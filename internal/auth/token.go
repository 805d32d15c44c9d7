// Package auth は管理者セッショントークンの発行・検証と、管理者認証を提供する。
//
// 管理者は単一のアイデンティティのみで、権限モデルは持たない。
// 有効なトークンを保持していることが、すべての変更系操作の唯一の認可条件となる。
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName はセッショントークンを格納するCookie名。
const CookieName = "admin_token"

// DefaultTokenTTL はトークンのデフォルト有効期間。
const DefaultTokenTTL = 24 * time.Hour

// minSecretLength は署名鍵として受け付ける最小バイト数。
const minSecretLength = 16

// ErrInvalidToken はトークンが不正・改ざん・期限切れのいずれかであることを示す。
// 呼び出し元にどの検証で失敗したかは区別させない。
var ErrInvalidToken = errors.New("invalid session token")

// Claims はセッショントークンのペイロード。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService はHS256で署名されたセッショントークンを扱う。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// 署名鍵が空または短すぎる場合はエラーを返す。フォールバック鍵は使用しない。
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL はトークンの有効期間を返す。Cookieの有効期限にも使用する。
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// CreateToken はidentityを主体とする署名済みトークンを発行する。
func (s *TokenService) CreateToken(identity string) (string, error) {
	now := s.now()
	claims := Claims{
		Email: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken は署名と有効期限を検証し、ペイロードを返す。
// 失敗時は常にErrInvalidTokenを返す。
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// SessionState はリクエストのセッションCookieの状態。
type SessionState int

const (
	SessionAbsent  SessionState = iota // Cookieなし
	SessionInvalid                     // Cookieはあるが検証に失敗
	SessionValid
)

// Verifier はセッショントークンを検証する。
type Verifier interface {
	VerifyToken(token string) (*Claims, error)
}

// ReadSession はリクエストのCookieからトークンを読み取り検証する。
// 有効な場合のみClaimsを返す。
func ReadSession(r *http.Request, verifier Verifier) (*Claims, SessionState) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, SessionAbsent
	}

	claims, err := verifier.VerifyToken(cookie.Value)
	if err != nil {
		return nil, SessionInvalid
	}
	return claims, SessionValid
}
