package catalog

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"

	"github.com/hitoshi/seleto/internal/model"
)

// ダウンロード時のファイル名
const (
	ExportFilename   = "produtos-seleto.csv"
	TemplateFilename = "modelo-importacao-produtos.csv"
)

const (
	excerptLength = 80
	linkLength    = 40
	qrCodeSize    = 128
)

// templateExample はインポート用テンプレートCSVの記入例。
var templateExample = []string{
	"Exemplo de Produto",
	"exemplo-de-produto",
	"Descrição do produto para importação.",
	"Comentário opcional",
	"https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=600&h=400&fit=crop",
	"199.90",
	"149.90",
	"https://example.com/affiliate/exemplo",
	"Tecnologia",
	"true",
}

// ExportRows は商品一覧をヘッダー付きのCSV行に変換する。
// コメントがない場合は空文字、価格は小数点以下2桁、activeは"true"/"false"で出力する。
func ExportRows(products []*model.Product) [][]string {
	rows := make([][]string, 0, len(products)+1)
	rows = append(rows, append([]string(nil), Columns...))

	for _, p := range products {
		comment := ""
		if p.Comment != nil {
			comment = *p.Comment
		}
		rows = append(rows, []string{
			p.Title,
			p.Slug,
			p.Description,
			comment,
			p.ImageURL,
			PriceString(p.PriceFrom),
			PriceString(p.PriceTo),
			p.AffiliateLink,
			p.Theme,
			fmt.Sprintf("%t", p.Active),
		})
	}
	return rows
}

// TemplateRows はヘッダーと記入例1行からなるテンプレートCSVの行を返す。
func TemplateRows() [][]string {
	return [][]string{
		append([]string(nil), Columns...),
		append([]string(nil), templateExample...),
	}
}

// CatalogFilename は印刷用カタログのファイル名を返す（例: catalogo-seleto-18-10-2026.html）。
func CatalogFilename(now time.Time, ext string) string {
	return fmt.Sprintf("catalogo-seleto-%s.%s", now.Format("02-01-2006"), ext)
}

// TextCleaner はHTMLを含み得る文字列をプレーンテキストにする。
type TextCleaner interface {
	PlainText(raw string) string
}

// CatalogDocument は印刷用カタログの表示データ。
type CatalogDocument struct {
	SiteName    string
	GeneratedAt string // DD/MM/YYYY
	Total       int
	Groups      []CatalogGroup
}

// CatalogGroup はテーマごとの商品グループ。
type CatalogGroup struct {
	Theme   string
	Label   string
	Entries []CatalogEntry
}

// CatalogEntry はカタログ上の商品1件。
type CatalogEntry struct {
	Title     string
	Excerpt   string
	Comment   string
	PriceFrom string
	PriceTo   string
	Discount  int
	Link      string
	LinkText  string
	QRCode    template.URL // data:image/png;base64,...（生成失敗時は空）
}

// BuildCatalogDocument はテーマ・タイトル順に並んだ公開商品からカタログを組み立てる。
// 同じテーマが連続する商品を1グループにまとめる。
func BuildCatalogDocument(siteName string, products []*model.Product, cleaner TextCleaner, now time.Time) *CatalogDocument {
	doc := &CatalogDocument{
		SiteName:    siteName,
		GeneratedAt: now.Format("02/01/2006"),
		Total:       len(products),
		Groups:      make([]CatalogGroup, 0),
	}

	for _, p := range products {
		if n := len(doc.Groups); n == 0 || doc.Groups[n-1].Theme != p.Theme {
			doc.Groups = append(doc.Groups, CatalogGroup{
				Theme: p.Theme,
				Label: ThemeLabel(p.Theme),
			})
		}

		comment := ""
		if p.Comment != nil {
			comment = cleaner.PlainText(*p.Comment)
		}

		group := &doc.Groups[len(doc.Groups)-1]
		group.Entries = append(group.Entries, CatalogEntry{
			Title:     p.Title,
			Excerpt:   Truncate(cleaner.PlainText(p.Description), excerptLength),
			Comment:   comment,
			PriceFrom: FormatBRL(p.PriceFrom),
			PriceTo:   FormatBRL(p.PriceTo),
			Discount:  Discount(p.PriceFrom, p.PriceTo),
			Link:      p.AffiliateLink,
			LinkText:  Truncate(p.AffiliateLink, linkLength),
			QRCode:    qrDataURI(p.AffiliateLink),
		})
	}

	return doc
}

// Title は見出し用の文字列を返す。
func (d *CatalogDocument) Title() string {
	return "Catálogo de Produtos - " + d.SiteName
}

// Subtitle は生成日と件数を含む副題を返す。
func (d *CatalogDocument) Subtitle() string {
	return fmt.Sprintf("%s - Gerado em %s - %d produtos ativos", d.SiteName, d.GeneratedAt, d.Total)
}

// Truncate は文字数がmaxを超える場合に先頭max文字へ"..."を付けて返す。
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// qrDataURI はURLのQRコードをPNGのdata URIとして返す。
func qrDataURI(link string) template.URL {
	png, err := qrcode.Encode(link, qrcode.Medium, qrCodeSize)
	if err != nil {
		slog.Warn("qr code generation failed",
			slog.String("link", link),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}
