// Package view はサーバーサイドレンダリングするHTMLページを提供する。
//
// テンプレートと静的ファイルはバイナリに埋め込まれる。各ページは共通レイアウトと
// ページ固有の"content"ブロックの組み合わせで構成される。印刷用カタログは
// レイアウトを使わない単独のドキュメントとして出力する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/hitoshi/seleto/internal/catalog"
	"github.com/hitoshi/seleto/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ページ名
const (
	PageHome            = "home"
	PageTheme           = "theme"
	PageProduct         = "product"
	PageNotFound        = "not_found"
	PageAdminLogin      = "admin_login"
	PageAdminDashboard  = "admin_dashboard"
	PageCatalogDocument = "catalog_document"
)

// layoutPages は共通レイアウトでラップするページ。
var layoutPages = []string{
	PageHome,
	PageTheme,
	PageProduct,
	PageNotFound,
	PageAdminLogin,
	PageAdminDashboard,
}

// HomeData はトップページの表示データ。
type HomeData struct {
	Themes   []catalog.ThemeSummary
	Featured []*model.Product
}

// ThemeData はテーマ別一覧ページの表示データ。
type ThemeData struct {
	Theme    string
	Label    string
	Products []*model.Product
}

// ProductData は商品詳細ページの表示データ。
type ProductData struct {
	Product *model.Product
}

// AdminDashboardData は管理画面の表示データ。
type AdminDashboardData struct {
	Email    string
	Products []*model.Product
}

// Page はレイアウトに渡すデータ。
type Page struct {
	SiteName string
	Title    string
	Admin    bool
	Data     any
}

// Renderer はページテンプレートを保持し、HTMLを出力する。
type Renderer struct {
	siteName string
	pages    map[string]*template.Template
}

// New は埋め込みテンプレートを解析してRendererを生成する。
func New(siteName string) (*Renderer, error) {
	funcs := template.FuncMap{
		"brl":        catalog.FormatBRL,
		"themeLabel": catalog.ThemeLabel,
		"discount":   discount,
		"truncate":   catalog.Truncate,
		"deref":      deref,
	}

	r := &Renderer{
		siteName: siteName,
		pages:    make(map[string]*template.Template, len(layoutPages)+1),
	}

	for _, name := range layoutPages {
		tmpl, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("テンプレート%sの解析に失敗しました: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	doc, err := template.New(PageCatalogDocument+".html").Funcs(funcs).
		ParseFS(templateFS, "templates/"+PageCatalogDocument+".html")
	if err != nil {
		return nil, fmt.Errorf("テンプレート%sの解析に失敗しました: %w", PageCatalogDocument, err)
	}
	r.pages[PageCatalogDocument] = doc

	return r, nil
}

// SiteName はサイト名を返す。
func (r *Renderer) SiteName() string {
	return r.siteName
}

// Render はページをwに書き出す。
// 途中で失敗した場合に部分的なHTMLを送らないよう、一度バッファに描画する。
func (r *Renderer) Render(w io.Writer, name, title string, admin bool, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("未知のページです: %s", name)
	}

	var buf bytes.Buffer
	page := Page{SiteName: r.siteName, Title: title, Admin: admin, Data: data}
	if err := tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("ページ%sの描画に失敗しました: %w", name, err)
	}

	_, err := buf.WriteTo(w)
	return err
}

// CatalogDocument は印刷用カタログのHTMLを返す。
func (r *Renderer) CatalogDocument(doc *catalog.CatalogDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.pages[PageCatalogDocument].Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("カタログの描画に失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// StaticHandler は埋め込み静的ファイルを配信するハンドラを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func discount(p *model.Product) int {
	return catalog.Discount(p.PriceFrom, p.PriceTo)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
