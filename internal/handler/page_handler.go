package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/middleware"
	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/view"
)

// PageServiceInterface はページ表示に必要なサービスインターフェース。
type PageServiceInterface interface {
	List(ctx context.Context, theme string, includeInactive bool) ([]*model.Product, error)
	Recent(ctx context.Context, limit int) ([]*model.Product, error)
	AllProducts(ctx context.Context) ([]*model.Product, error)
	GetActiveBySlug(ctx context.Context, slug string) (*model.Product, error)
	Themes(ctx context.Context) ([]catalog.ThemeSummary, error)
}

// PageRenderer はHTMLページを描画するインターフェース。
type PageRenderer interface {
	Render(w io.Writer, name, title string, admin bool, data any) error
	SiteName() string
}

// PageHandler はサーバーサイドレンダリングするページとRSSフィードのハンドラー。
type PageHandler struct {
	service  PageServiceInterface
	renderer PageRenderer
	cleaner  catalog.TextCleaner
	baseURL  string
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(service PageServiceInterface, renderer PageRenderer, cleaner catalog.TextCleaner, baseURL string) *PageHandler {
	return &PageHandler{
		service:  service,
		renderer: renderer,
		cleaner:  cleaner,
		baseURL:  baseURL,
	}
}

// Home はテーマ一覧と新着商品を表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	themes, err := h.service.Themes(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	featured, err := h.service.Recent(r.Context(), catalog.FeaturedLimit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, view.PageHome, "", false, view.HomeData{Themes: themes, Featured: featured})
}

// Theme はテーマ別の商品一覧を表示する。
// GET /catalogo/{tema}
func (h *PageHandler) Theme(w http.ResponseWriter, r *http.Request) {
	theme, err := url.PathUnescape(chi.URLParam(r, "tema"))
	if err != nil || theme == "" {
		h.NotFound(w, r)
		return
	}

	products, err := h.service.List(r.Context(), theme, false)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	label := catalog.ThemeLabel(theme)
	h.render(w, r, http.StatusOK, view.PageTheme, label, false, view.ThemeData{
		Theme:    theme,
		Label:    label,
		Products: products,
	})
}

// Product は公開中の商品の詳細を表示する。
// GET /produto/{slug}
func (h *PageHandler) Product(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetActiveBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, view.PageProduct, product.Title, false, view.ProductData{Product: product})
}

// ShortLink は短縮URLから商品ページへリダイレクトする。
// GET /p/{slug}
func (h *PageHandler) ShortLink(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/produto/"+url.PathEscape(chi.URLParam(r, "slug")), http.StatusTemporaryRedirect)
}

// AdminLogin はログインページを表示する。ログイン済みの場合は管理画面へリダイレクトする。
// GET /admin/login
func (h *PageHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.AdminFromContext(r.Context()); ok {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, view.PageAdminLogin, "Login", false, nil)
}

// AdminDashboard は非公開を含む全商品の管理画面を表示する。
// GET /admin
func (h *PageHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.AdminFromContext(r.Context())

	products, err := h.service.AllProducts(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, view.PageAdminDashboard, "Painel", true, view.AdminDashboardData{
		Email:    email,
		Products: products,
	})
}

// NotFound は404ページを表示する。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, view.PageNotFound, "Página não encontrada", false, nil)
}

// Feed は新着商品のRSSフィードを返す。
// GET /feed.xml
func (h *PageHandler) Feed(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Recent(r.Context(), catalog.FeedLimit)
	if err != nil {
		handleServiceError(w, r, err, "Falha ao buscar produtos.")
		return
	}

	body, err := catalog.BuildFeed(h.renderer.SiteName(), h.baseURL, products, h.cleaner)
	if err != nil {
		handleServiceError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// render はページを描画する。描画に失敗した場合は何も書き込まずに500を返す。
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, admin bool, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page, title, admin, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", page),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Erro interno do servidor.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError はサービス層のエラーをページとして表示する。
// 商品が見つからない場合は404ページ、それ以外は500を返す。
func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeProductNotFound {
		h.NotFound(w, r)
		return
	}

	slog.Error("failed to load page data",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, "Erro interno do servidor.", http.StatusInternalServerError)
}
