package auth

import (
	"net/http"
	"time"
)

// CookieOptions はセッションCookieの属性。
type CookieOptions struct {
	Domain string
	Secure bool // 本番（HTTPS）でのみtrue
}

// NewSessionCookie はトークンを格納するHTTP Only・SameSite=LaxのCookieを生成する。
func NewSessionCookie(token string, ttl time.Duration, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
