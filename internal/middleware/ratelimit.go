package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/seleto/internal/metrics"
	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/ratelimit"
)

// RateLimiterConfig はAPI全般のレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // バーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
	MaxKeys         int           // 保持するIPの上限。0以下は無制限
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/IP。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		CleanupInterval: 5 * time.Minute,
		MaxKeys:         10000,
	}
}

// ipLimiter はIPごとのレートリミッターとアクセス時刻を保持する。
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はクライアントIPごとのトークンバケット方式のレート制限を管理する。
type RateLimiter struct {
	config  RateLimiterConfig
	metrics metrics.MetricsCollector

	mu       sync.Mutex
	limiters map[string]*ipLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, collector metrics.MetricsCollector) *RateLimiter {
	if collector == nil {
		collector = metrics.Nop{}
	}
	rl := &RateLimiter{
		config:   config,
		metrics:  collector,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼んでも安全。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// RealIPミドルウェアの後に配置すること。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if !rl.limiterFor(ip).Allow() {
				rl.metrics.RecordRateLimited("api")
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", ip),
					slog.String("limit_type", "general"),
				)
				writeRateLimitResponse(w, tokenInterval(rl.config.GeneralRate))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LimiterCount は現在管理されているリミッターのエントリ数を返す。テスト用。
func (rl *RateLimiter) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// limiterFor はIPのリミッターを取得または作成する。
func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[ip]; ok {
		l.lastAccess = now
		return l.limiter
	}

	if rl.config.MaxKeys > 0 && len(rl.limiters) >= rl.config.MaxKeys {
		rl.evictOldestLocked()
	}

	l := &ipLimiter{
		limiter:    rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst),
		lastAccess: now,
	}
	rl.limiters[ip] = l
	return l.limiter
}

func (rl *RateLimiter) evictOldestLocked() {
	var (
		oldestIP string
		oldestAt time.Time
	)
	for ip, l := range rl.limiters {
		if oldestIP == "" || l.lastAccess.Before(oldestAt) {
			oldestIP, oldestAt = ip, l.lastAccess
		}
	}
	delete(rl.limiters, oldestIP)
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, l := range rl.limiters {
		if now.Sub(l.lastAccess) > ttl {
			delete(rl.limiters, ip)
		}
	}
}

// NewLoginRateLimitMiddleware はログイン試行をクライアントIP単位の固定ウィンドウで制限するミドルウェアを返す。
// 上限を超えた場合は429とRetry-Afterを返す。
func NewLoginRateLimitMiddleware(limiter *ratelimit.Limiter, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			result := limiter.Check(r.Context(), "login:"+ip)
			if !result.Allowed {
				collector.RecordRateLimited("login")
				collector.RecordLogin(metrics.LoginRateLimited)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", ip),
					slog.String("limit_type", "login"),
				)
				writeRateLimitResponse(w, result.RetryAfterSec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenInterval は1トークンが補充されるまでの秒数を切り上げで返す。最小1秒。
func tokenInterval(r rate.Limit) int {
	if r <= 0 {
		return 1
	}
	sec := int(math.Ceil(1.0 / float64(r)))
	if sec < 1 {
		return 1
	}
	return sec
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
func writeRateLimitResponse(w http.ResponseWriter, retryAfterSec int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitError())
}
