package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/seleto/internal/auth"
	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/metrics"
	"github.com/hitoshi/seleto/internal/middleware"
	"github.com/hitoshi/seleto/internal/ratelimit"
)

// CatalogServiceInterface は商品API・エクスポート・ページが共有するカタログサービス。
type CatalogServiceInterface interface {
	ProductServiceInterface
	CatalogSourceInterface
	PageServiceInterface
}

// ViewRenderer はページとカタログドキュメントを描画するインターフェース。
type ViewRenderer interface {
	PageRenderer
	CatalogDocumentRenderer
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionVerifier   middleware.SessionVerifier
	CookieOptions     auth.CookieOptions
	CORSAllowedOrigin string
	TrustedProxies    []string
	HSTS              bool
	RateLimiter       *middleware.RateLimiter
	LoginLimiter      *ratelimit.Limiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler // nilの場合/metricsを公開しない

	// 認証
	Credentials CredentialChecker
	Tokens      TokenIssuer

	// カタログ
	Catalog        CatalogServiceInterface
	Importer       ImporterInterface
	LinkChecker    LinkCheckerInterface
	TextCleaner    catalog.TextCleaner
	PDFRenderer    PDFRendererInterface // nilの場合PDF出力は無効
	ImportMaxBytes int64

	// ページ
	Renderer      ViewRenderer
	StaticHandler http.Handler
	BaseURL       string

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Session → Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// Sessionは未認証のリクエストも通過させる。拒否はAPIではRequireAdmin、
// 管理画面ではRequireAdminPageが行う。
func NewRouter(deps *RouterDeps) http.Handler {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRealIPMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewSessionMiddleware(deps.SessionVerifier))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	productHandler := NewProductHandler(deps.Catalog, deps.LinkChecker)
	transferHandler := NewTransferHandler(
		deps.Catalog,
		deps.Importer,
		deps.Renderer,
		deps.PDFRenderer,
		deps.TextCleaner,
		collector,
		TransferHandlerConfig{SiteName: deps.Renderer.SiteName(), ImportMaxBytes: deps.ImportMaxBytes},
	)
	authHandler := NewAuthHandler(deps.Credentials, deps.Tokens, deps.CookieOptions, collector)
	pageHandler := NewPageHandler(deps.Catalog, deps.Renderer, deps.TextCleaner, deps.BaseURL)

	// --- 運用系 ---
	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.StaticHandler != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", deps.StaticHandler))
	}

	// --- 公開ページ ---
	r.Get("/", pageHandler.Home)
	r.Get("/catalogo/{tema}", pageHandler.Theme)
	r.Get("/produto/{slug}", pageHandler.Product)
	r.Get("/p/{slug}", pageHandler.ShortLink)
	r.Get("/feed.xml", pageHandler.Feed)
	r.NotFound(pageHandler.NotFound)

	// --- 管理画面 ---
	// /admin/login以外の/admin配下は未認証の場合ログインページへリダイレクトする
	r.Get("/admin/login", pageHandler.AdminLogin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRequireAdminPage("/admin/login", deps.CookieOptions))
		r.Get("/admin", pageHandler.AdminDashboard)
		r.Get("/admin/*", pageHandler.NotFound)
	})

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.NewLoginRateLimitMiddleware(deps.LoginLimiter, collector)).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/themes", productHandler.ListThemes)

		r.Route("/products", func(r chi.Router) {
			// all=trueの認可はハンドラー内で判定する
			r.Get("/", productHandler.ListProducts)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Post("/", productHandler.CreateProduct)

				r.Get("/export-csv", transferHandler.ExportCSV)
				r.Get("/export-template", transferHandler.ExportTemplate)
				r.Get("/export-pdf", transferHandler.ExportCatalog)
				r.Post("/import-csv", transferHandler.ImportCSV)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", productHandler.ReplaceProduct)
					r.Patch("/", productHandler.PatchProduct)
					r.Delete("/", productHandler.DeleteProduct)
					r.Get("/link-check", productHandler.CheckLink)
				})
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeAPIErrorResponse(w, http.StatusNotFound, notFoundAPIError)
		})
	})

	return r
}
