package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/seleto/internal/auth"
	"github.com/hitoshi/seleto/internal/metrics"
	"github.com/hitoshi/seleto/internal/middleware"
	"github.com/hitoshi/seleto/internal/model"
)

// CredentialChecker は管理者の資格情報を検証するインターフェース。
type CredentialChecker interface {
	Authenticate(email, password string) (string, error)
}

// TokenIssuer はセッショントークンを発行するインターフェース。
type TokenIssuer interface {
	CreateToken(identity string) (string, error)
	TTL() time.Duration
}

// AuthHandler は管理者ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	credentials CredentialChecker
	tokens      TokenIssuer
	cookie      auth.CookieOptions
	metrics     metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(credentials CredentialChecker, tokens TokenIssuer, cookie auth.CookieOptions, collector metrics.MetricsCollector) *AuthHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &AuthHandler{
		credentials: credentials,
		tokens:      tokens,
		cookie:      cookie,
		metrics:     collector,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// meResponse はログイン中の管理者情報のレスポンス。
type meResponse struct {
	Email string `json:"email"`
}

// Login は資格情報を検証し、セッションCookieを発行する。
// POST /api/auth/login
// レート制限はルーター側のミドルウェアで行う。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	identity, err := h.credentials.Authenticate(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.metrics.RecordLogin(metrics.LoginFailure)
		slog.Warn("admin login failed", slog.String("client_ip", middleware.ClientIP(r)))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}
	if err != nil {
		handleServiceError(w, r, err, "")
		return
	}

	token, err := h.tokens.CreateToken(identity)
	if err != nil {
		handleServiceError(w, r, err, "")
		return
	}

	http.SetCookie(w, auth.NewSessionCookie(token, h.tokens.TTL(), h.cookie))
	h.metrics.RecordLogin(metrics.LoginSuccess)
	slog.Info("admin logged in", slog.String("client_ip", middleware.ClientIP(r)))

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Logout はセッションCookieを削除する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookie)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Me はログイン中の管理者情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Email: email})
}
