package catalog

// themeLabels は保存されたテーマ名から表示用ラベルへの対応表。
// 表示時のみ適用し、保存値は変更しない。
var themeLabels = map[string]string{
	"Casa e Escritorio": "Casa e Escritório",
	"Casa e Escritório": "Casa e Escritório",
	"Beleza e Saude":    "Beleza e Saúde",
	"Beleza e Saúde":    "Beleza e Saúde",
	"Viagem":            "Infantil (Bebês)",
	"Infantil (bebes)":  "Infantil (Bebês)",
	"Infantil (Bebes)":  "Infantil (Bebês)",
	"Infantil (Bebês)":  "Infantil (Bebês)",
}

// ThemeLabel はテーマの表示用ラベルを返す。対応表にない場合はそのまま返す。
func ThemeLabel(theme string) string {
	if label, ok := themeLabels[theme]; ok {
		return label
	}
	return theme
}
