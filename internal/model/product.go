// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product はアフィリエイトカタログの商品を表す。
// slugは全商品で一意であり、CSVインポート時の自然キーとして使用する。
type Product struct {
	ID            string
	Title         string
	Slug          string
	Description   string
	Comment       *string // 空文字列は保存前にnilへ正規化される
	ImageURL      string
	PriceFrom     decimal.Decimal // 割引前の参考価格
	PriceTo       decimal.Decimal // 現在価格
	AffiliateLink string
	Theme         string
	Active        bool
	CreatedAt     time.Time
}

// ProductFilter は商品一覧取得時の絞り込み条件を表す。
type ProductFilter struct {
	// Theme が空でない場合、そのテーマの商品のみを返す。
	Theme string
	// IncludeInactive がtrueの場合、非公開商品も含める（管理者用）。
	IncludeInactive bool
	// Limit が0より大きい場合、その件数までを返す。
	Limit int
	// ByThemeAndTitle がtrueの場合はテーマ・タイトル順、falseの場合は新しい順で返す。
	ByThemeAndTitle bool
}

// ThemeCount はテーマごとの公開商品数を表す。
type ThemeCount struct {
	Theme string
	Count int
}

// ImportResult はCSVインポート全体の集計結果を表す。
// 行ごとに独立して処理されるため、一部の行が失敗しても結果は返される。
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []string // "Linha N: mensagem" 形式、入力順
}

// ErrorCount は失敗した行数を返す。
func (r *ImportResult) ErrorCount() int {
	return len(r.Errors)
}
