package catalog

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)

	brPrinter = message.NewPrinter(language.BrazilianPortuguese)
)

// Discount は割引率（%）を整数に丸めて返す。
// round((from - to) / from * 100) で計算し、0.5は切り上げる。
// fromが0以下の場合は0を返す。結果が0以下の場合、画面ではバッジを表示しない。
func Discount(from, to decimal.Decimal) int {
	if !from.IsPositive() {
		return 0
	}
	pct := from.Sub(to).Div(from).Mul(hundred)
	return int(pct.Add(half).Floor().IntPart())
}

// FormatBRL は金額をブラジルレアル表記（例: "R$ 1.299,90"）に整形する。
func FormatBRL(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return "R$ " + brPrinter.Sprint(number.Decimal(f, number.Scale(2)))
}

// PriceString はCSV出力用に金額を小数点以下2桁の文字列にする（例: "149.90"）。
func PriceString(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
