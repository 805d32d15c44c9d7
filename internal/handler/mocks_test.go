package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/seleto/internal/auth"
	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/security"
	"github.com/hitoshi/seleto/internal/validation"
	"github.com/hitoshi/seleto/internal/view"
)

// --- モック定義 ---

type mockCatalogService struct {
	listFn            func(ctx context.Context, theme string, includeInactive bool) ([]*model.Product, error)
	recentFn          func(ctx context.Context, limit int) ([]*model.Product, error)
	catalogProductsFn func(ctx context.Context) ([]*model.Product, error)
	allProductsFn     func(ctx context.Context) ([]*model.Product, error)
	getActiveBySlugFn func(ctx context.Context, slug string) (*model.Product, error)
	getByIDFn         func(ctx context.Context, id string) (*model.Product, error)
	themesFn          func(ctx context.Context) ([]catalog.ThemeSummary, error)
	createFn          func(ctx context.Context, in validation.ProductInput) (*model.Product, error)
	replaceFn         func(ctx context.Context, id string, in validation.ProductInput) (*model.Product, error)
	setActiveFn       func(ctx context.Context, id string, in validation.PatchInput) (*model.Product, error)
	deleteFn          func(ctx context.Context, id string) error
}

func (m *mockCatalogService) List(ctx context.Context, theme string, includeInactive bool) ([]*model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx, theme, includeInactive)
	}
	return nil, nil
}

func (m *mockCatalogService) Recent(ctx context.Context, limit int) ([]*model.Product, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCatalogService) CatalogProducts(ctx context.Context) ([]*model.Product, error) {
	if m.catalogProductsFn != nil {
		return m.catalogProductsFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) AllProducts(ctx context.Context) ([]*model.Product, error) {
	if m.allProductsFn != nil {
		return m.allProductsFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) GetActiveBySlug(ctx context.Context, slug string) (*model.Product, error) {
	if m.getActiveBySlugFn != nil {
		return m.getActiveBySlugFn(ctx, slug)
	}
	return nil, model.NewProductNotFoundError()
}

func (m *mockCatalogService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.NewProductNotFoundError()
}

func (m *mockCatalogService) Themes(ctx context.Context) ([]catalog.ThemeSummary, error) {
	if m.themesFn != nil {
		return m.themesFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) Create(ctx context.Context, in validation.ProductInput) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockCatalogService) Replace(ctx context.Context, id string, in validation.ProductInput) (*model.Product, error) {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, id, in)
	}
	return nil, nil
}

func (m *mockCatalogService) SetActive(ctx context.Context, id string, in validation.PatchInput) (*model.Product, error) {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, in)
	}
	return nil, nil
}

func (m *mockCatalogService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockImporter struct {
	importFn func(ctx context.Context, text string) (*model.ImportResult, error)
}

func (m *mockImporter) Import(ctx context.Context, text string) (*model.ImportResult, error) {
	return m.importFn(ctx, text)
}

type mockPDFRenderer struct {
	renderFn func(ctx context.Context, html []byte) ([]byte, error)
}

func (m *mockPDFRenderer) Render(ctx context.Context, html []byte) ([]byte, error) {
	return m.renderFn(ctx, html)
}

type mockLinkChecker struct {
	checkFn func(ctx context.Context, rawURL string) security.LinkStatus
}

func (m *mockLinkChecker) Check(ctx context.Context, rawURL string) security.LinkStatus {
	return m.checkFn(ctx, rawURL)
}

type mockCredentials struct {
	authenticateFn func(email, password string) (string, error)
}

func (m *mockCredentials) Authenticate(email, password string) (string, error) {
	return m.authenticateFn(email, password)
}

type plainCleaner struct{}

func (plainCleaner) PlainText(raw string) string { return raw }

// --- ヘルパー ---

const (
	testAdminEmail = "admin@seleto.com.br"
	testProductID  = "3f1c2b8e-0000-4000-8000-000000000001"
)

func sampleProduct() *model.Product {
	comment := "Vale cada centavo."
	return &model.Product{
		ID:            testProductID,
		Title:         "Fone Bluetooth",
		Slug:          "fone-bluetooth",
		Description:   "Fone sem fio com cancelamento de ruído.",
		Comment:       &comment,
		ImageURL:      "https://cdn.example.com/fone.jpg",
		PriceFrom:     decimal.RequireFromString("199.90"),
		PriceTo:       decimal.RequireFromString("149.90"),
		AffiliateLink: "https://loja.example.com/fone",
		Theme:         "Tecnologia",
		Active:        true,
		CreatedAt:     time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

func newTestRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.New("Seleto")
	if err != nil {
		t.Fatalf("view.New() error = %v", err)
	}
	return r
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	s, err := auth.NewTokenService("test-secret-with-enough-bytes", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return s
}

// adminCookie は有効なセッションCookieを生成する。
func adminCookie(t *testing.T, tokens *auth.TokenService) *http.Cookie {
	t.Helper()
	token, err := tokens.CreateToken(testAdminEmail)
	if err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}
	return &http.Cookie{Name: auth.CookieName, Value: token}
}
