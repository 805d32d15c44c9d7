package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/csvcodec"
	"github.com/hitoshi/seleto/internal/metrics"
	"github.com/hitoshi/seleto/internal/model"
)

// DefaultImportMaxBytes はインポートで受け付けるCSVファイルの既定の上限。
const DefaultImportMaxBytes = 5 << 20

// CatalogSourceInterface はエクスポートが必要とする商品取得のインターフェース。
type CatalogSourceInterface interface {
	AllProducts(ctx context.Context) ([]*model.Product, error)
	CatalogProducts(ctx context.Context) ([]*model.Product, error)
}

// ImporterInterface はCSVインポートを実行するインターフェース。
type ImporterInterface interface {
	Import(ctx context.Context, text string) (*model.ImportResult, error)
}

// CatalogDocumentRenderer は印刷用カタログをHTMLに描画するインターフェース。
type CatalogDocumentRenderer interface {
	CatalogDocument(doc *catalog.CatalogDocument) ([]byte, error)
}

// PDFRendererInterface はHTMLをPDFに変換するインターフェース。
type PDFRendererInterface interface {
	Render(ctx context.Context, html []byte) ([]byte, error)
}

// TransferHandlerConfig はTransferHandlerの設定。
type TransferHandlerConfig struct {
	SiteName       string
	ImportMaxBytes int64
}

// TransferHandler はCSVエクスポート・インポートと印刷用カタログのHTTPハンドラー。
type TransferHandler struct {
	source   CatalogSourceInterface
	importer ImporterInterface
	document CatalogDocumentRenderer
	pdf      PDFRendererInterface // nilの場合PDF出力は無効
	cleaner  catalog.TextCleaner
	metrics  metrics.MetricsCollector
	config   TransferHandlerConfig
	now      func() time.Time
}

// NewTransferHandler はTransferHandlerを生成する。pdfがnilの場合はPDF出力を501で拒否する。
func NewTransferHandler(
	source CatalogSourceInterface,
	importer ImporterInterface,
	document CatalogDocumentRenderer,
	pdf PDFRendererInterface,
	cleaner catalog.TextCleaner,
	collector metrics.MetricsCollector,
	config TransferHandlerConfig,
) *TransferHandler {
	if config.ImportMaxBytes <= 0 {
		config.ImportMaxBytes = DefaultImportMaxBytes
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &TransferHandler{
		source:   source,
		importer: importer,
		document: document,
		pdf:      pdf,
		cleaner:  cleaner,
		metrics:  collector,
		config:   config,
		now:      time.Now,
	}
}

// importResponse はCSVインポート結果のAPIレスポンス。
type importResponse struct {
	Success    bool     `json:"success"`
	Imported   int      `json:"imported"`
	Skipped    int      `json:"skipped"`
	ErrorCount int      `json:"errorCount"`
	Errors     []string `json:"errors"`
}

// ExportCSV は全商品をCSVでダウンロードさせる。
// GET /api/products/export-csv
func (h *TransferHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.source.AllProducts(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "Falha ao exportar produtos em CSV.")
		return
	}

	writeCSV(w, catalog.ExportFilename, csvcodec.Stringify(catalog.ExportRows(products)))
}

// ExportTemplate はインポート用のCSVテンプレートをダウンロードさせる。
// GET /api/products/export-template
func (h *TransferHandler) ExportTemplate(w http.ResponseWriter, r *http.Request) {
	writeCSV(w, catalog.TemplateFilename, csvcodec.Stringify(catalog.TemplateRows()))
}

// ExportCatalog は公開中の商品を印刷用カタログとして返す。
// GET /api/products/export-pdf[?format=pdf]
// 既定はブラウザで印刷するHTML。format=pdfの場合はサーバー側でPDFに変換する。
func (h *TransferHandler) ExportCatalog(w http.ResponseWriter, r *http.Request) {
	asPDF := r.URL.Query().Get("format") == "pdf"
	if asPDF && h.pdf == nil {
		writeAPIErrorResponse(w, http.StatusNotImplemented,
			model.NewNotEnabledError("Geração de PDF não habilitada neste servidor."))
		return
	}

	start := time.Now()
	now := h.now()

	products, err := h.source.CatalogProducts(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "Falha ao gerar catálogo em PDF.")
		return
	}

	doc := catalog.BuildCatalogDocument(h.config.SiteName, products, h.cleaner, now)
	body, err := h.document.CatalogDocument(doc)
	if err != nil {
		handleServiceError(w, r, err, "Falha ao gerar catálogo em PDF.")
		return
	}

	contentType := "text/html; charset=utf-8"
	filename := catalog.CatalogFilename(now, "html")
	format := "html"

	if asPDF {
		body, err = h.pdf.Render(r.Context(), body)
		if err != nil {
			handleServiceError(w, r, err, "Falha ao gerar catálogo em PDF.")
			return
		}
		contentType = "application/pdf"
		filename = catalog.CatalogFilename(now, "pdf")
		format = "pdf"
	}

	h.metrics.RecordCatalogRender(format, time.Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ImportCSV はアップロードされたCSVで商品を一括登録・更新する。
// POST /api/products/import-csv (multipart/form-data, field "file")
func (h *TransferHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.ImportMaxBytes+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge,
				model.NewImportRejectedError("Arquivo CSV muito grande."))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewImportRejectedError("Arquivo CSV não enviado."))
		return
	}
	defer file.Close()

	if header.Size > h.config.ImportMaxBytes {
		writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge,
			model.NewImportRejectedError("Arquivo CSV muito grande."))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.config.ImportMaxBytes))
	if err != nil {
		handleServiceError(w, r, err, "Falha ao importar CSV.")
		return
	}

	slog.Info("csv import received",
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(data)),
	)

	result, err := h.importer.Import(r.Context(), string(data))
	if err != nil {
		handleServiceError(w, r, err, "Falha ao importar CSV.")
		return
	}

	h.metrics.RecordImport(result.Imported, result.Skipped, result.ErrorCount())

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, importResponse{
		Success:    true,
		Imported:   result.Imported,
		Skipped:    result.Skipped,
		ErrorCount: result.ErrorCount(),
		Errors:     errs,
	})
}

// writeCSV はCSVを添付ファイルとして書き込む。
func writeCSV(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}
