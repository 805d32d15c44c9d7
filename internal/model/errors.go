package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageは画面表示用の文言（ポルトガル語）で、そのままレスポンスのerrorに入る。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInvalidLogin    = "INVALID_CREDENTIALS"
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"
	ErrCodeDuplicateSlug   = "DUPLICATE_SLUG"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeImportRejected  = "IMPORT_REJECTED"
	ErrCodeNotEnabled      = "NOT_ENABLED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
// messageには最初に違反したルールの文言を渡す。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidRequest,
		Message: "Dados inválidos.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// どの検証に失敗したかは明かさない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "Não autorizado.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidLogin,
		Message: "Credenciais inválidas.",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeProductNotFound,
		Message: "Produto não encontrado.",
	}
}

// NewDuplicateSlugError はslug重複エラーを生成する。
func NewDuplicateSlugError() *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateSlug,
		Message: "Já existe um produto com este slug.",
	}
}

// NewRateLimitError は試行回数超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimited,
		Message: "Muitas tentativas. Tente novamente mais tarde.",
	}
}

// NewImportRejectedError はCSVインポートをリクエスト単位で拒否するエラーを生成する。
func NewImportRejectedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeImportRejected,
		Message: message,
	}
}

// NewNotEnabledError は設定で無効化されている機能へのアクセスエラーを生成する。
func NewNotEnabledError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeNotEnabled,
		Message: message,
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError(message string) *APIError {
	if message == "" {
		message = "Erro interno do servidor."
	}
	return &APIError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}
