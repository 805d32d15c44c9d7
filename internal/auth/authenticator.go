package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しないことを示す。
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator は設定された単一の管理者アカウントに対して資格情報を検証する。
type Authenticator struct {
	email        string
	passwordHash []byte
}

// NewAuthenticator はAuthenticatorを生成する。
// passwordHashはbcryptハッシュでなければならない。
func NewAuthenticator(email, passwordHash string) (*Authenticator, error) {
	email = strings.TrimSpace(email)
	if email == "" || passwordHash == "" {
		return nil, fmt.Errorf("admin email and password hash are required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}

	return &Authenticator{
		email:        email,
		passwordHash: []byte(passwordHash),
	}, nil
}

// Authenticate はメールアドレスとパスワードを検証し、成功時は管理者のアイデンティティを返す。
// メールアドレスが一致しない場合もbcryptの比較を行い、応答時間から一致を推測させない。
func (a *Authenticator) Authenticate(email, password string) (string, error) {
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(a.email)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))

	if !emailMatch || passwordErr != nil {
		return "", ErrInvalidCredentials
	}
	return a.email, nil
}

// HashPassword は平文パスワードからbcryptハッシュを生成する。
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
