package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/middleware"
	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/security"
	"github.com/hitoshi/seleto/internal/validation"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	List(ctx context.Context, theme string, includeInactive bool) ([]*model.Product, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	Themes(ctx context.Context) ([]catalog.ThemeSummary, error)
	Create(ctx context.Context, in validation.ProductInput) (*model.Product, error)
	Replace(ctx context.Context, id string, in validation.ProductInput) (*model.Product, error)
	SetActive(ctx context.Context, id string, in validation.PatchInput) (*model.Product, error)
	Delete(ctx context.Context, id string) error
}

// LinkCheckerInterface はアフィリエイトリンクの疎通確認を行うインターフェース。
type LinkCheckerInterface interface {
	Check(ctx context.Context, rawURL string) security.LinkStatus
}

// ProductHandler は商品管理のHTTPハンドラー。
type ProductHandler struct {
	service     ProductServiceInterface
	linkChecker LinkCheckerInterface
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(service ProductServiceInterface, linkChecker LinkCheckerInterface) *ProductHandler {
	return &ProductHandler{
		service:     service,
		linkChecker: linkChecker,
	}
}

// themeResponse はテーマ一覧のAPIレスポンス。
type themeResponse struct {
	Theme string `json:"theme"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ListProducts は商品一覧を返す。
// GET /api/products?theme=xxx&all=true
// all=trueは管理者のみ。themeが指定された場合は公開中の商品のみを返す。
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	theme := r.URL.Query().Get("theme")
	all := r.URL.Query().Get("all") == "true"

	if all {
		if _, ok := middleware.AdminFromContext(r.Context()); !ok {
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
	}

	products, err := h.service.List(r.Context(), theme, all)
	if err != nil {
		handleServiceError(w, r, err, "Falha ao buscar produtos.")
		return
	}

	writeJSON(w, http.StatusOK, newProductListResponse(products))
}

// CreateProduct は商品を作成する。
// POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in validation.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	product, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err, "Falha ao criar produto.")
		return
	}

	writeJSON(w, http.StatusCreated, newProductResponse(product))
}

// ReplaceProduct は商品の全項目を更新する。
// PUT /api/products/{id}
func (h *ProductHandler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	var in validation.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	product, err := h.service.Replace(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, r, err, "Falha ao atualizar produto.")
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(product))
}

// PatchProduct は商品の公開フラグを更新する。
// PATCH /api/products/{id}
func (h *ProductHandler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	var in validation.PatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Dados de atualização inválidos."))
		return
	}

	product, err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, r, err, "Falha ao atualizar produto.")
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(product))
}

// DeleteProduct は商品を削除する。
// DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err, "Falha ao excluir produto.")
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// CheckLink は商品のアフィリエイトリンクに到達できるかを確認する。
// GET /api/products/{id}/link-check
func (h *ProductHandler) CheckLink(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err, "Falha ao verificar link.")
		return
	}

	writeJSON(w, http.StatusOK, h.linkChecker.Check(r.Context(), product.AffiliateLink))
}

// ListThemes は公開中の商品があるテーマを件数付きで返す。
// GET /api/themes
func (h *ProductHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.service.Themes(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "Falha ao buscar temas.")
		return
	}

	resp := make([]themeResponse, len(themes))
	for i, t := range themes {
		resp[i] = themeResponse{Theme: t.Theme, Label: t.Label, Count: t.Count}
	}
	writeJSON(w, http.StatusOK, resp)
}
