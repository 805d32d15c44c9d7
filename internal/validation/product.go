// Package validation は商品レコードの入力検証と正規化を提供する。
//
// 検証はfail-fastで、最初に違反したルールのメッセージのみを返す。
// ルールの評価順はフィールドの定義順（title, slug, description, comment, image_url,
// price_from, price_to, affiliate_link, theme, active）に従う。
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/seleto/internal/model"
)

// slugPattern はslugとして許可する形式。
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// PriceValue は文字列または数値として与えられた価格の生の値。
// JSONでは "149.90" と 149.90 のどちらも受け付ける。
type PriceValue string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (p *PriceValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PriceValue(n.String())
	return nil
}

// ActiveValue は公開フラグの生の値。
// 未指定（null含む）、真偽値、それ以外の不正値を区別する。
type ActiveValue struct {
	Set   bool // 値が指定されたか
	Valid bool // 真偽値として解釈できたか
	Value bool
}

// ActiveOf は解釈済みの真偽値からActiveValueを生成する。
func ActiveOf(v bool) ActiveValue {
	return ActiveValue{Set: true, Valid: true, Value: v}
}

// InvalidActive は真偽値として解釈できなかった値を表すActiveValueを返す。
func InvalidActive() ActiveValue {
	return ActiveValue{Set: true}
}

// UnmarshalJSON はjson.Unmarshalerを実装する。真偽値以外は不正値として保持する。
func (a *ActiveValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null":
		*a = ActiveValue{}
	case "true":
		*a = ActiveOf(true)
	case "false":
		*a = ActiveOf(false)
	default:
		*a = InvalidActive()
	}
	return nil
}

// ProductInput は作成・更新・インポートで受け取る商品の入力値。
type ProductInput struct {
	Title         string      `json:"title"`
	Slug          string      `json:"slug"`
	Description   string      `json:"description"`
	Comment       *string     `json:"comment"`
	ImageURL      string      `json:"image_url"`
	PriceFrom     PriceValue  `json:"price_from"`
	PriceTo       PriceValue  `json:"price_to"`
	AffiliateLink string      `json:"affiliate_link"`
	Theme         string      `json:"theme"`
	Active        ActiveValue `json:"active"`
}

// PatchInput は公開フラグのみの更新入力。
type PatchInput struct {
	Active ActiveValue `json:"active"`
}

// productRules は正規化後の値に適用する検証ルール。
type productRules struct {
	Title         string          `validate:"required,max=180"`
	Slug          string          `validate:"required,max=180,slug"`
	Description   string          `validate:"required,max=4000"`
	Comment       *string         `validate:"omitempty,max=500"`
	ImageURL      string          `validate:"url"`
	PriceFrom     decimal.Decimal `validate:"gt=0,lt=100000000,cents"` // NUMERIC(10,2)
	PriceTo       decimal.Decimal `validate:"gt=0,lt=100000000,cents"`
	AffiliateLink string          `validate:"url"`
	Theme         string          `validate:"required,max=120"`
}

// messages はフィールドとルールの組み合わせごとの表示メッセージ。
var messages = map[string]string{
	"Title.required":       "Título é obrigatório.",
	"Title.max":            "Título muito longo.",
	"Slug.required":        "Slug é obrigatório.",
	"Slug.max":             "Slug muito longo.",
	"Slug.slug":            "Slug inválido. Use apenas letras minúsculas, números e hífen.",
	"Description.required": "Descrição é obrigatória.",
	"Description.max":      "Descrição muito longa.",
	"Comment.max":          "Comentário muito longo.",
	"ImageURL.url":         "URL da imagem inválida.",
	"PriceFrom.gt":         "Preço de deve ser maior que zero.",
	"PriceFrom.lt":         "Preço de deve ser menor que 100.000.000.",
	"PriceFrom.cents":      "Preço de deve ter no máximo 2 casas decimais.",
	"PriceTo.gt":           "Preço por deve ser maior que zero.",
	"PriceTo.lt":           "Preço por deve ser menor que 100.000.000.",
	"PriceTo.cents":        "Preço por deve ter no máximo 2 casas decimais.",
	"AffiliateLink.url":    "Link de afiliado inválido.",
	"Theme.required":       "Tema é obrigatório.",
	"Theme.max":            "Tema muito longo.",
}

const (
	msgActiveRequired = "Status ativo/inativo é obrigatório."
	msgActiveInvalid  = "Status ativo/inativo inválido."
	msgFallback       = "Dados inválidos."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	// カスタム型関数でfloat64に変換される前の値を親構造体から取り出して判定する
	if err := v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		d, ok := reflect.Indirect(fl.Parent()).FieldByName(fl.StructFieldName()).Interface().(decimal.Decimal)
		return ok && d.Equal(d.Round(2))
	}); err != nil {
		panic(err)
	}

	return v
}

// Create は新規作成用の入力を検証する。activeは常にtrueとなる。
func Create(in ProductInput) (*model.Product, error) {
	p, err := validateBase(in)
	if err != nil {
		return nil, err
	}
	p.Active = true
	return p, nil
}

// Update は全項目置き換え用の入力を検証する。activeは必須。
func Update(in ProductInput) (*model.Product, error) {
	p, err := validateBase(in)
	if err != nil {
		return nil, err
	}
	active, err := requireActive(in.Active)
	if err != nil {
		return nil, err
	}
	p.Active = active
	return p, nil
}

// Patch は公開フラグのみの更新入力を検証する。
func Patch(in PatchInput) (bool, error) {
	return requireActive(in.Active)
}

// Import はCSVインポート行の入力を検証する。activeが未指定の場合はtrueとなる。
func Import(in ProductInput) (*model.Product, error) {
	p, err := validateBase(in)
	if err != nil {
		return nil, err
	}
	switch {
	case !in.Active.Set:
		p.Active = true
	case !in.Active.Valid:
		return nil, model.NewValidationError(msgActiveInvalid)
	default:
		p.Active = in.Active.Value
	}
	return p, nil
}

// validateBase は共通ルールを適用し、正規化済みの商品を返す。
func validateBase(in ProductInput) (*model.Product, error) {
	rules := productRules{
		Title:         strings.TrimSpace(in.Title),
		Slug:          strings.TrimSpace(in.Slug),
		Description:   strings.TrimSpace(in.Description),
		Comment:       NormalizeComment(in.Comment),
		ImageURL:      strings.TrimSpace(in.ImageURL),
		PriceFrom:     ParsePrice(string(in.PriceFrom)),
		PriceTo:       ParsePrice(string(in.PriceTo)),
		AffiliateLink: strings.TrimSpace(in.AffiliateLink),
		Theme:         strings.TrimSpace(in.Theme),
	}

	if err := validate.Struct(rules); err != nil {
		return nil, firstError(err)
	}

	return &model.Product{
		Title:         rules.Title,
		Slug:          rules.Slug,
		Description:   rules.Description,
		Comment:       rules.Comment,
		ImageURL:      rules.ImageURL,
		PriceFrom:     rules.PriceFrom,
		PriceTo:       rules.PriceTo,
		AffiliateLink: rules.AffiliateLink,
		Theme:         rules.Theme,
	}, nil
}

func requireActive(a ActiveValue) (bool, error) {
	if !a.Set {
		return false, model.NewValidationError(msgActiveRequired)
	}
	if !a.Valid {
		return false, model.NewValidationError(msgActiveInvalid)
	}
	return a.Value, nil
}

// firstError は最初の検証エラーを表示メッセージに変換する。
func firstError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError(msgFallback)
	}

	fe := verrs[0]
	if msg, ok := messages[fe.StructField()+"."+fe.Tag()]; ok {
		return model.NewValidationError(msg)
	}
	return model.NewValidationError(msgFallback)
}

// NormalizeComment は空白のみのコメントをnilに正規化し、それ以外は前後の空白を除去する。
func NormalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ParsePrice は価格文字列を10進数に変換する。
// "149,90" のような小数点カンマ、"1.299,90" のような桁区切り付きの表記も受け付ける。
// 解釈できない値はゼロを返し、正の値チェックで拒否される。
func ParsePrice(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
