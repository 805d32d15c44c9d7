// Package document は印刷用カタログのHTMLをPDFに変換する。
//
// ヘッドレスChromeをchromedp経由で起動し、HTMLを直接ページに流し込んで印刷する。
// 外部URLへのナビゲーションは行わない。
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout は1回のPDF生成に許容する時間。
const DefaultRenderTimeout = 30 * time.Second

// A4サイズ（インチ）
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// ErrEmptyDocument は空のHTMLが渡された場合のエラー。
var ErrEmptyDocument = errors.New("document is empty")

// PDFRendererConfig はPDFRendererの設定。
type PDFRendererConfig struct {
	// ExecPath はChrome/Chromiumの実行ファイル。空の場合はchromedpが自動検出する。
	ExecPath string
	// Timeout は1回の変換のタイムアウト。0以下の場合はDefaultRenderTimeout。
	Timeout time.Duration
	// NoSandbox はコンテナ内でrootとして実行する場合に有効にする。
	NoSandbox bool
}

// PDFRenderer はHTMLをPDFに変換する。
// 呼び出しごとにブラウザプロセスを起動し、終了時に破棄する。
type PDFRenderer struct {
	config PDFRendererConfig
}

// NewPDFRenderer はPDFRendererを生成する。
func NewPDFRenderer(config PDFRendererConfig) *PDFRenderer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultRenderTimeout
	}
	return &PDFRenderer{config: config}
}

// allocatorOptions はChrome起動オプションを組み立てる。
func (r *PDFRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.DisableGPU,
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if r.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ExecPath))
	}
	return opts
}

// Render はHTMLをA4のPDFに変換する。背景色は印刷に含める。
func (r *PDFRenderer) Render(ctx context.Context, html []byte) ([]byte, error) {
	if len(html) == 0 {
		return nil, ErrEmptyDocument
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	start := time.Now()
	var pdf []byte

	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("PDFの生成に失敗しました: %w", err)
	}

	slog.Info("catalog pdf rendered",
		slog.Int("html_bytes", len(html)),
		slog.Int("pdf_bytes", len(pdf)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return pdf, nil
}
