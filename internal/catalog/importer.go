package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/seleto/internal/csvcodec"
	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/validation"
)

// Columns はCSVのインポート/エクスポートで使用する必須列。
var Columns = []string{
	"title",
	"slug",
	"description",
	"comment",
	"image_url",
	"price_from",
	"price_to",
	"affiliate_link",
	"theme",
	"active",
}

const (
	msgEmptyCSV       = "CSV vazio ou sem linhas de dados."
	msgMissingHeaders = "Cabeçalhos obrigatórios ausentes: "
	msgInvalidActive  = `valor inválido para "active". Use true/false.`
	msgStorageFailure = "erro ao inserir/atualizar no banco."
)

// ProductUpserter はインポートで使用するupsert操作。
type ProductUpserter interface {
	UpsertBySlug(ctx context.Context, product *model.Product) error
}

// Importer はCSVから商品を一括で作成・更新する。
// 各行は独立して処理され、失敗した行は結果のErrorsに行番号付きで記録される。
type Importer struct {
	repo ProductUpserter
}

// NewImporter はImporterを生成する。
func NewImporter(repo ProductUpserter) *Importer {
	return &Importer{repo: repo}
}

// Import はCSV文字列を取り込み、集計結果を返す。
//
// データ行がない場合と必須列が欠けている場合は、行を処理せずにImportRejectedエラーを返す。
// 行番号はヘッダーを1行目とした1始まりで数える。行は入力順に逐次処理する。
func (im *Importer) Import(ctx context.Context, text string) (*model.ImportResult, error) {
	rows := csvcodec.Parse(text)
	if len(rows) < 2 {
		return nil, model.NewImportRejectedError(msgEmptyCSV)
	}

	index, missing := headerIndex(rows[0])
	if len(missing) > 0 {
		return nil, model.NewImportRejectedError(msgMissingHeaders + strings.Join(missing, ", "))
	}

	result := &model.ImportResult{Errors: make([]string, 0)}

	for i := 1; i < len(rows); i++ {
		line := i + 1
		row := rows[i]

		if csvcodec.IsBlankRow(row) {
			result.Skipped++
			continue
		}

		value := func(column string) string {
			pos := index[column]
			if pos >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[pos])
		}

		active, ok := ParseActive(value("active"))
		if !ok {
			result.Errors = append(result.Errors, lineError(line, msgInvalidActive))
			continue
		}

		comment := value("comment")
		product, err := validation.Import(validation.ProductInput{
			Title:         value("title"),
			Slug:          value("slug"),
			Description:   value("description"),
			Comment:       &comment,
			ImageURL:      value("image_url"),
			PriceFrom:     validation.PriceValue(value("price_from")),
			PriceTo:       validation.PriceValue(value("price_to")),
			AffiliateLink: value("affiliate_link"),
			Theme:         value("theme"),
			Active:        validation.ActiveOf(active),
		})
		if err != nil {
			result.Errors = append(result.Errors, lineError(line, errorMessage(err)))
			continue
		}

		if err := im.repo.UpsertBySlug(ctx, product); err != nil {
			slog.Warn("import row upsert failed",
				slog.Int("line", line),
				slog.String("slug", product.Slug),
				slog.String("error", err.Error()),
			)
			result.Errors = append(result.Errors, lineError(line, msgStorageFailure))
			continue
		}

		result.Imported++
	}

	slog.Info("csv import finished",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.ErrorCount()),
	)

	return result, nil
}

// headerIndex はヘッダー行を正規化（trim・小文字化）し、必須列の位置と欠けている列を返す。
// 同名の列が複数ある場合は最初の列を使う。
func headerIndex(header []string) (map[string]int, []string) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, exists := positions[name]; !exists {
			positions[name] = i
		}
	}

	index := make(map[string]int, len(Columns))
	var missing []string
	for _, col := range Columns {
		pos, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = pos
	}
	return index, missing
}

// ParseActive はCSVのactive列を解釈する。
// 空文字はtrue。true/1/sim/yesはtrue、false/0/nao/não/noはfalse（大文字小文字・前後空白は無視）。
// それ以外は解釈できないとしてok=falseを返す。
func ParseActive(raw string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "true", "1", "sim", "yes":
		return true, true
	case "false", "0", "nao", "não", "no":
		return false, true
	default:
		return false, false
	}
}

func lineError(line int, message string) string {
	return fmt.Sprintf("Linha %d: %s", line, message)
}

// errorMessage は検証エラーから表示用メッセージを取り出す。
func errorMessage(err error) string {
	if apiErr, ok := err.(*model.APIError); ok {
		return apiErr.Message
	}
	return err.Error()
}
