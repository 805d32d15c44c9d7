package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/seleto/internal/auth"
	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/config"
	"github.com/hitoshi/seleto/internal/document"
	"github.com/hitoshi/seleto/internal/handler"
	"github.com/hitoshi/seleto/internal/metrics"
	"github.com/hitoshi/seleto/internal/middleware"
	"github.com/hitoshi/seleto/internal/ratelimit"
	"github.com/hitoshi/seleto/internal/repository"
	"github.com/hitoshi/seleto/internal/security"
	"github.com/hitoshi/seleto/internal/view"
)

// redisKeyPrefix はログイン試行カウンタのRedisキー接頭辞。
const redisKeyPrefix = "seleto:ratelimit:"

// server はワイヤリング済みのHTTPハンドラーと、終了時に解放するリソースを保持する。
type server struct {
	Handler http.Handler

	closers []func()
}

// Close はバックグラウンドのgoroutineや外部接続を逆順に解放する。
func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newServer はConfigとDB接続から全依存関係を構築し、ルーターを返す。
// DBへの接続確認は呼び出し側が行う。
func newServer(cfg *config.Config, db *sql.DB) (*server, error) {
	s := &server{}

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. リポジトリとドメインサービス
	productRepo := repository.NewPostgresProductRepo(db)
	catalogService := catalog.NewService(productRepo)
	importer := catalog.NewImporter(productRepo)

	// 3. 認証
	authenticator, err := auth.NewAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to configure admin credentials: %w", err)
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionMaxAge)
	if err != nil {
		return nil, fmt.Errorf("failed to configure session tokens: %w", err)
	}

	// 4. レート制限
	loginStore, closeStore := newLoginStore(cfg)
	s.closers = append(s.closers, closeStore)
	loginLimiter := ratelimit.NewLimiter(loginStore, ratelimit.Config{
		Max:    cfg.LoginRateLimitMax,
		Window: cfg.LoginRateLimitWindow,
	})

	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.MaxKeys = cfg.RateLimitMaxKeys
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg, collector)
	s.closers = append(s.closers, rateLimiter.Stop)

	// 5. セキュリティ
	sanitizer := security.NewTextSanitizer()
	linkChecker := security.NewLinkChecker(security.NewURLGuard(), cfg.LinkCheckTimeout)

	// 6. ビュー
	renderer, err := view.New(cfg.SiteName)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// PDF出力は無効時にnilインターフェースのまま渡す
	var pdfRenderer handler.PDFRendererInterface
	if cfg.CatalogPDFEnabled {
		pdfRenderer = document.NewPDFRenderer(document.PDFRendererConfig{
			ExecPath:  cfg.ChromePath,
			NoSandbox: cfg.ChromeNoSandbox,
		})
		slog.Info("catalog PDF rendering enabled")
	}

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionVerifier:   tokens,
		CookieOptions:     auth.CookieOptions{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TrustedProxies:    cfg.TrustedProxies,
		HSTS:              cfg.CookieSecure,
		RateLimiter:       rateLimiter,
		LoginLimiter:      loginLimiter,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(registry),

		Credentials: authenticator,
		Tokens:      tokens,

		Catalog:        catalogService,
		Importer:       importer,
		LinkChecker:    linkChecker,
		TextCleaner:    sanitizer,
		PDFRenderer:    pdfRenderer,
		ImportMaxBytes: cfg.ImportMaxBytes,

		Renderer:      renderer,
		StaticHandler: view.StaticHandler(),
		BaseURL:       cfg.BaseURL,

		DB: db,
	}

	s.Handler = handler.NewRouter(deps)
	return s, nil
}

// newLoginStore はログイン試行カウンタのストアを返す。
// REDIS_URLが設定されていればRedis、未設定ならプロセス内ストアを使う。
// Redisに接続できない場合も起動は継続し、判定時にfail-openする。
func newLoginStore(cfg *config.Config) (ratelimit.Store, func()) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			client := redis.NewClient(opts)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := client.Ping(ctx).Err(); err != nil {
				slog.Warn("redis ping failed, login rate limit will fail open until it recovers",
					slog.String("error", err.Error()),
				)
			} else {
				slog.Info("login rate limit using redis store")
			}

			return ratelimit.NewRedisStore(client, redisKeyPrefix), func() { _ = client.Close() }
		}
		slog.Error("invalid REDIS_URL, falling back to in-process store",
			slog.String("error", err.Error()),
		)
	}

	store := ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{
		MaxKeys:       cfg.RateLimitMaxKeys,
		SweepInterval: time.Minute,
	})
	return store, store.Stop
}
