package security

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultLinkCheckTimeout はリンク確認のデフォルトタイムアウト。
const DefaultLinkCheckTimeout = 10 * time.Second

// linkCheckUserAgent はリンク確認時に送信するUser-Agent。
const linkCheckUserAgent = "Seleto-LinkChecker/1.0"

// LinkStatus はアフィリエイトリンクの確認結果。
type LinkStatus struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// LinkChecker はアフィリエイトリンクがまだ有効かどうかを確認する。
// 外部への接続はSSRF防止付きのクライアントで行う。
type LinkChecker struct {
	client   *http.Client
	validate func(rawURL string) error
}

// NewLinkChecker はSSRF防止付きクライアントを使用するLinkCheckerを生成する。
func NewLinkChecker(guard *URLGuard, timeout time.Duration) *LinkChecker {
	if timeout <= 0 {
		timeout = DefaultLinkCheckTimeout
	}
	return &LinkChecker{
		client:   guard.NewSafeClient(timeout),
		validate: guard.ValidateURL,
	}
}

// Check はHEADリクエストでリンクを確認する。
// HEADを受け付けないサーバー（405/501）にはGETで再試行する。
// 2xx/3xxを有効とみなす。接続失敗はエラーとしてではなく結果のErrorに格納する。
func (c *LinkChecker) Check(ctx context.Context, rawURL string) LinkStatus {
	status := LinkStatus{URL: rawURL}

	if err := c.validate(rawURL); err != nil {
		status.Error = err.Error()
		return status
	}

	code, err := c.do(ctx, http.MethodHead, rawURL)
	if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, err = c.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		slog.Warn("affiliate link check failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		status.Error = err.Error()
		return status
	}

	status.StatusCode = code
	status.OK = code >= 200 && code < 400
	return status
}

func (c *LinkChecker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", linkCheckUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("リンクへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return resp.StatusCode, nil
}
