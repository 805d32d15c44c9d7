// Package ratelimit はキー単位の固定ウィンドウ方式レート制限を提供する。
//
// 固定ウィンドウのため、ウィンドウ境界をまたぐバーストでは最大2*Max件まで許可されうる。
// ログイン試行の抑制用途を想定しており、厳密なクォータ管理には使用しない。
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Config は固定ウィンドウの設定を保持する。
type Config struct {
	Max    int           // ウィンドウ内で許可する最大回数
	Window time.Duration // ウィンドウの長さ
}

// Result はレート制限判定の結果を表す。
type Result struct {
	Allowed       bool
	Remaining     int
	RetryAfterSec int
}

// Store はキーごとのカウンタを保持するバックエンド。
// Hitはキーのカウンタを1回分進め、現在のカウントとウィンドウのリセット時刻を返す。
// ウィンドウが存在しないか期限切れの場合は新しいウィンドウを開始する。
// 上限到達後の呼び出しでカウンタを進めるかどうかは実装に委ねるが、
// 返すカウントはmax+1以上でなければならない。
type Store interface {
	Hit(ctx context.Context, key string, max int, window time.Duration) (count int, resetAt time.Time, err error)
}

// Limiter は固定ウィンドウ方式のレートリミッター。
type Limiter struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewLimiter はLimiterを生成する。
func NewLimiter(store Store, config Config) *Limiter {
	return &Limiter{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// Config はリミッターの設定を返す。
func (l *Limiter) Config() Config {
	return l.config
}

// Check はkeyに対するリクエストを1回分カウントし、許可されるかどうかを返す。
// ストアのエラー時はリクエストを許可する（fail-open）。ログイン自体はパスワード検証で守られるため。
func (l *Limiter) Check(ctx context.Context, key string) Result {
	count, resetAt, err := l.store.Hit(ctx, key, l.config.Max, l.config.Window)
	if err != nil {
		slog.Warn("rate limit store unavailable, allowing request",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return Result{Allowed: true, Remaining: l.config.Max - 1, RetryAfterSec: retryAfter(l.config.Window)}
	}

	wait := retryAfter(resetAt.Sub(l.now()))

	if count > l.config.Max {
		return Result{Allowed: false, Remaining: 0, RetryAfterSec: wait}
	}

	return Result{Allowed: true, Remaining: l.config.Max - count, RetryAfterSec: wait}
}

// retryAfter は待機時間を秒単位に切り上げる。最小値は1秒。
func retryAfter(d time.Duration) int {
	sec := int(math.Ceil(d.Seconds()))
	if sec < 1 {
		return 1
	}
	return sec
}
