package catalog

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/seleto/internal/model"
)

// FeedLimit はオファーフィードに含める新着商品の件数。
const FeedLimit = 20

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	Category    string        `xml:"category"`
	GUID        rssGUID       `xml:"guid"`
	PubDate     string        `xml:"pubDate"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

// BuildFeed は公開商品の一覧からRSS 2.0のXMLを生成する。
// 各アイテムのリンクは商品詳細ページ、説明には価格と割引率を含める。
func BuildFeed(siteName, baseURL string, products []*model.Product, cleaner TextCleaner) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")

	channel := rssChannel{
		Title:       siteName + " - Ofertas",
		Link:        base + "/",
		Description: "Produtos selecionados com os melhores preços.",
		Language:    "pt-BR",
		Items:       make([]rssItem, 0, len(products)),
	}
	if len(products) > 0 {
		channel.LastBuildDate = products[0].CreatedAt.UTC().Format(time.RFC1123Z)
	}

	for _, p := range products {
		link := base + "/produto/" + p.Slug
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			Description: feedDescription(p, cleaner),
			Category:    ThemeLabel(p.Theme),
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
		}
		if p.ImageURL != "" {
			item.Enclosure = &rssEnclosure{URL: p.ImageURL, Type: "image/jpeg"}
		}
		channel.Items = append(channel.Items, item)
	}

	body, err := xml.MarshalIndent(rss{Version: "2.0", Channel: channel}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("RSSの生成に失敗しました: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func feedDescription(p *model.Product, cleaner TextCleaner) string {
	var b strings.Builder
	b.WriteString(Truncate(cleaner.PlainText(p.Description), excerptLength))
	fmt.Fprintf(&b, " De %s por %s", FormatBRL(p.PriceFrom), FormatBRL(p.PriceTo))
	if d := Discount(p.PriceFrom, p.PriceTo); d > 0 {
		fmt.Fprintf(&b, " (-%d%%)", d)
	}
	return b.String()
}
