package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は商品の説明文やコメントからHTMLを取り除き、プレーンテキストにする。
// 管理者が他サイトからコピーした説明文にタグが混入していても、抜粋やフィードに
// タグやスクリプトが残らないようにする。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
// bluemondayのStrictPolicyで全タグを除去する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// PlainText はタグを除去し、エンティティを復元して連続する空白を1つにまとめる。
// 出力はテンプレート側で改めてエスケープされる前提。
func (s *TextSanitizer) PlainText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}
