// Package csvcodec はスプレッドシート互換のCSVエンコード/デコードを提供する。
//
// デコード時は1行目から区切り文字（カンマまたはセミコロン）を自動判定する。
// エンコード時は常にカンマ区切りで、先頭にUTF-8 BOMを付与する。
package csvcodec

import (
	"strings"
)

// bom はUTF-8のバイトオーダーマーク。
const bom = "\uFEFF"

// Stringify は行の並びをCSV文字列に変換する。
// ダブルクォート、カンマ、改行を含むフィールドのみクォートし、
// 埋め込まれたダブルクォートは二重化する。行は"\n"で連結し、末尾に改行は付けない。
func Stringify(rows [][]string) string {
	var b strings.Builder
	b.WriteString(bom)

	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, value := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escape(value))
		}
	}

	return b.String()
}

// escape は必要な場合のみフィールドをクォートする。
func escape(value string) string {
	if !strings.ContainsAny(value, "\",\n\r") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// Parse はCSV文字列を行の並びに変換する。
//
// 改行コードを"\n"に正規化し、先頭のBOMを除去してから解析する。
// 区切り文字は1行目（クォート外）のカンマとセミコロンの出現数で決定し、
// セミコロンが厳密に多い場合のみセミコロンを使う。
// 末尾の空行（全フィールドが空白のみの行）は取り除くが、途中の空行は残す。
func Parse(text string) [][]string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.TrimPrefix(normalized, bom)

	delimiter := DetectDelimiter(normalized)

	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(normalized); i++ {
		c := normalized[i]

		if inQuotes {
			switch {
			case c == '"' && i+1 < len(normalized) && normalized[i+1] == '"':
				field.WriteByte('"')
				i++
			case c == '"':
				inQuotes = false
			default:
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case delimiter:
			row = append(row, field.String())
			field.Reset()
		case '\n':
			row = append(row, field.String())
			rows = append(rows, row)
			row = nil
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}

	row = append(row, field.String())
	rows = append(rows, row)

	for len(rows) > 0 && IsBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	return rows
}

// DetectDelimiter は1行目のクォート外にあるカンマとセミコロンを数え、区切り文字を返す。
func DetectDelimiter(text string) byte {
	commas, semicolons := 0, 0
	inQuotes := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' {
			break
		}

		if inQuotes {
			if c == '"' && i+1 < len(text) && text[i+1] == '"' {
				i++
			} else if c == '"' {
				inQuotes = false
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			commas++
		case ';':
			semicolons++
		}
	}

	if semicolons > commas {
		return ';'
	}
	return ','
}

// IsBlankRow は行の全フィールドが空白のみかどうかを判定する。
func IsBlankRow(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
