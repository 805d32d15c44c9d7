// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FallbackJWTSecret は過去に既定値として使われていた署名鍵。設定されていても拒否する。
const FallbackJWTSecret = "fallback-secret-change-me"

// minJWTSecretLength はJWT_SECRETとして受け付ける最小バイト数。
const minJWTSecretLength = 16

// ErrWeakJWTSecret はJWT_SECRETが短すぎるか既知の既定値であることを示す。
var ErrWeakJWTSecret = errors.New("JWT_SECRET must be at least 16 bytes and must not be the fallback secret")

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Admin
	AdminEmail        string
	AdminPasswordHash string

	// Session
	JWTSecret     string
	SessionMaxAge time.Duration

	// Rate Limit
	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration
	RateLimitGeneral     int // req/min/IP
	RateLimitMaxKeys     int
	RedisURL             string // 空の場合はプロセス内ストア

	// Catalog
	ImportMaxBytes    int64
	LinkCheckTimeout  time.Duration
	CatalogPDFEnabled bool
	ChromePath        string
	ChromeNoSandbox   bool

	// Server
	ServerPort     string
	BaseURL        string
	SiteName       string
	TrustedProxies []string
	LogLevel       string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定の変数名をすべて含むエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.JWTSecret = required("JWT_SECRET")
	cfg.AdminEmail = required("ADMIN_EMAIL")
	cfg.AdminPasswordHash = required("ADMIN_PASSWORD_HASH")
	cfg.BaseURL = strings.TrimRight(required("BASE_URL"), "/")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.JWTSecret == FallbackJWTSecret || len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, ErrWeakJWTSecret
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = time.Duration(getEnvInt("SESSION_MAX_AGE", 86400)) * time.Second
	cfg.LoginRateLimitMax = getEnvInt("LOGIN_RATE_LIMIT_MAX", 10)
	cfg.LoginRateLimitWindow = getEnvDuration("LOGIN_RATE_LIMIT_WINDOW", 15*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMaxKeys = getEnvInt("RATE_LIMIT_MAX_KEYS", 10000)
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.ImportMaxBytes = getEnvInt64("IMPORT_MAX_BYTES", 5<<20)
	cfg.LinkCheckTimeout = getEnvDuration("LINK_CHECK_TIMEOUT", 10*time.Second)
	cfg.CatalogPDFEnabled = getEnvBool("CATALOG_PDF_ENABLED", false)
	cfg.ChromePath = getEnvString("CHROME_PATH", "")
	cfg.ChromeNoSandbox = getEnvBool("CHROME_NO_SANDBOX", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.SiteName = getEnvString("SITE_NAME", "Seleto")
	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvList はカンマ区切りの環境変数を空要素を除いたスライスとして返す。
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
