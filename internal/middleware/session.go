// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/hitoshi/seleto/internal/auth"
	"github.com/hitoshi/seleto/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// adminContextKey はリクエストコンテキストに管理者のメールアドレスを格納するためのキー。
var adminContextKey = contextKey("admin_email")

// tokenStateContextKey はCookieにトークンがあったが検証に失敗したことを示すキー。
var tokenStateContextKey = contextKey("invalid_token")

// SessionVerifier はセッショントークンの検証に必要なインターフェース。
type SessionVerifier = auth.Verifier

// NewSessionMiddleware はCookieのセッショントークンを検証し、
// 有効な場合は管理者のメールアドレスをリクエストコンテキストに注入する。
// 未認証のリクエストも拒否せずに通過させる。拒否はRequireAdmin系で行う。
func NewSessionMiddleware(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, state := auth.ReadSession(r, verifier)
			switch state {
			case auth.SessionAbsent:
				next.ServeHTTP(w, r)
				return
			case auth.SessionInvalid:
				ctx := context.WithValue(r.Context(), tokenStateContextKey, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAdmin(r.Context(), claims.Email)))
		})
	}
}

// RequireAdmin は未認証のAPIリクエストに401を返すミドルウェア。
// どの検証に失敗したかはレスポンスに含めない。
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AdminFromContext(r.Context()); !ok {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRequireAdminPage は未認証の管理画面リクエストをログインページへリダイレクトするミドルウェアを返す。
// Cookieのトークンが不正だった場合はCookieも削除する。
func NewRequireAdminPage(loginPath string, cookieOpts auth.CookieOptions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := AdminFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			if invalid, _ := r.Context().Value(tokenStateContextKey).(bool); invalid {
				auth.ClearSessionCookie(w, cookieOpts)
			}
			http.Redirect(w, r, loginPath, http.StatusFound)
		})
	}
}

// AdminFromContext はリクエストコンテキストから管理者のメールアドレスを取得する。
func AdminFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(adminContextKey).(string)
	return email, ok && email != ""
}

// ContextWithAdmin はコンテキストに管理者のメールアドレスを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAdmin(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, adminContextKey, email)
}
