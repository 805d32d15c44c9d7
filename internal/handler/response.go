// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/middleware"
	"github.com/hitoshi/seleto/internal/model"
)

// productResponse は商品のAPIレスポンス。価格は小数点2桁の文字列で返す。
type productResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Comment       *string   `json:"comment"`
	ImageURL      string    `json:"image_url"`
	PriceFrom     string    `json:"price_from"`
	PriceTo       string    `json:"price_to"`
	AffiliateLink string    `json:"affiliate_link"`
	Theme         string    `json:"theme"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

func newProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		Description:   p.Description,
		Comment:       p.Comment,
		ImageURL:      p.ImageURL,
		PriceFrom:     catalog.PriceString(p.PriceFrom),
		PriceTo:       catalog.PriceString(p.PriceTo),
		AffiliateLink: p.AffiliateLink,
		Theme:         p.Theme,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
	}
}

func newProductListResponse(products []*model.Product) []productResponse {
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = newProductResponse(p)
	}
	return resp
}

// successResponse は処理結果のみを返すレスポンス。
type successResponse struct {
	Success bool `json:"success"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーはログに記録し、fallbackMessageを500で返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError(fallbackMessage))
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest, model.ErrCodeImportRejected:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidLogin:
		return http.StatusUnauthorized
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateSlug:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeNotEnabled:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをJSONとしてデコードする。
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// notFoundAPIError は存在しないAPIパスへのレスポンス。
var notFoundAPIError = &model.APIError{Code: "NOT_FOUND", Message: "Recurso não encontrado."}
