package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/seleto/internal/csvcodec"
	"github.com/hitoshi/seleto/internal/model"
)

const importHeader = "title,slug,description,comment,image_url,price_from,price_to,affiliate_link,theme,active"

func importRow(slug, active string) string {
	return "Fone " + slug + "," + slug + ",Fone sem fio,,https://cdn.example.com/f.jpg,199.90,149.90,https://loja.example.com/f,Tecnologia," + active
}

func TestImport_RejectsEmptyCSV(t *testing.T) {
	im := NewImporter(newMemoryRepo())

	for _, text := range []string{"", importHeader, importHeader + "\n\n \n"} {
		_, err := im.Import(context.Background(), text)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeImportRejected {
			t.Fatalf("Import(%q) error = %v, want ImportRejected", text, err)
		}
		if apiErr.Message != "CSV vazio ou sem linhas de dados." {
			t.Errorf("message = %q", apiErr.Message)
		}
	}
}

func TestImport_RejectsMissingColumnsWithoutProcessingRows(t *testing.T) {
	repo := newMemoryRepo()
	im := NewImporter(repo)

	text := "title,description,comment,image_url,price_from,price_to,affiliate_link,theme\n" +
		"Fone,Fone sem fio,,https://cdn.example.com/f.jpg,199.90,149.90,https://loja.example.com/f,Tecnologia"

	_, err := im.Import(context.Background(), text)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeImportRejected {
		t.Fatalf("error = %v, want ImportRejected", err)
	}
	if apiErr.Message != "Cabeçalhos obrigatórios ausentes: slug, active" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if repo.count() != 0 {
		t.Errorf("stored %d products, want 0", repo.count())
	}
}

func TestImport_PartialFailureReportsLineNumbers(t *testing.T) {
	repo := newMemoryRepo()
	im := NewImporter(repo)

	text := strings.Join([]string{
		importHeader,
		importRow("fone-a", "true"),
		importRow("fone-b", "maybe"),
	}, "\n")

	result, err := im.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 || result.ErrorCount() != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want imported=1 errors=1", result)
	}
	want := `Linha 3: valor inválido para "active". Use true/false.`
	if result.Errors[0] != want {
		t.Errorf("Errors[0] = %q, want %q", result.Errors[0], want)
	}
}

func TestImport_OutOfRangePriceIsRowValidationError(t *testing.T) {
	repo := newMemoryRepo()
	im := NewImporter(repo)

	text := strings.Join([]string{
		importHeader,
		strings.Replace(importRow("fone-a", "true"), "199.90", "0.001", 1),
		strings.Replace(importRow("fone-b", "true"), "149.90", "100000000", 1),
	}, "\n")

	result, err := im.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	want := []string{
		"Linha 2: Preço de deve ter no máximo 2 casas decimais.",
		"Linha 3: Preço por deve ser menor que 100.000.000.",
	}
	if result.Imported != 0 || len(result.Errors) != len(want) {
		t.Fatalf("result = %+v", result)
	}
	for i := range want {
		if result.Errors[i] != want[i] {
			t.Errorf("Errors[%d] = %q, want %q", i, result.Errors[i], want[i])
		}
	}
	if repo.count() != 0 {
		t.Errorf("stored %d products, want 0", repo.count())
	}
}

func TestImport_ValidationAndBlankRows(t *testing.T) {
	repo := newMemoryRepo()
	im := NewImporter(repo)

	text := strings.Join([]string{
		importHeader,
		importRow("ok", ""),
		" , , ,,,,,,,",
		importRow("Slug Ruim", "sim"),
		importRow("desligado", "Não"),
	}, "\r\n")

	result, err := im.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 2 || result.Skipped != 1 || result.ErrorCount() != 1 {
		t.Fatalf("result = %+v", result)
	}
	want := "Linha 4: Slug inválido. Use apenas letras minúsculas, números e hífen."
	if result.Errors[0] != want {
		t.Errorf("Errors[0] = %q, want %q", result.Errors[0], want)
	}

	off, _ := repo.FindBySlug(context.Background(), "desligado")
	if off == nil || off.Active {
		t.Errorf("desligado = %+v, want inactive", off)
	}
	on, _ := repo.FindBySlug(context.Background(), "ok")
	if on == nil || !on.Active {
		t.Errorf("ok = %+v, want active by default", on)
	}
	if on != nil && on.Comment != nil {
		t.Errorf("blank comment should be nil, got %q", *on.Comment)
	}
}

func TestImport_HeaderIsCaseAndOrderInsensitive(t *testing.T) {
	repo := newMemoryRepo()
	im := NewImporter(repo)

	text := " Slug ;TITLE;description;comment;image_url;price_from;price_to;affiliate_link;theme;active;extra\n" +
		`fone;Fone;"Descrição; com ponto e vírgula";;https://cdn.example.com/f.jpg;199,90;149,90;https://loja.example.com/f;Tecnologia;1;x`

	result, err := im.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("result = %+v", result)
	}

	p, _ := repo.FindBySlug(context.Background(), "fone")
	if p == nil {
		t.Fatal("product not stored")
	}
	if p.Description != "Descrição; com ponto e vírgula" {
		t.Errorf("Description = %q", p.Description)
	}
	if PriceString(p.PriceFrom) != "199.90" {
		t.Errorf("PriceFrom = %s", p.PriceFrom)
	}
}

func TestImport_UpsertIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	im := NewImporter(repo)
	text := importHeader + "\n" + importRow("fone", "true")

	for i := 0; i < 2; i++ {
		result, err := im.Import(context.Background(), text)
		if err != nil || result.Imported != 1 {
			t.Fatalf("import #%d = %+v, %v", i+1, result, err)
		}
	}

	if repo.count() != 1 {
		t.Errorf("stored %d products, want 1", repo.count())
	}
	if p, _ := repo.FindBySlug(context.Background(), "fone"); p == nil {
		t.Error("FindBySlug(fone) = nil")
	}
}

func TestImport_StorageFailureDoesNotAbort(t *testing.T) {
	repo := newMemoryRepo()
	repo.upsertErr = func(p *model.Product) error {
		if p.Slug == "quebrado" {
			return errors.New("connection reset")
		}
		return nil
	}
	im := NewImporter(repo)

	text := strings.Join([]string{
		importHeader,
		importRow("quebrado", "true"),
		importRow("inteiro", "true"),
	}, "\n")

	result, err := im.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 || result.ErrorCount() != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[0] != "Linha 2: erro ao inserir/atualizar no banco." {
		t.Errorf("Errors[0] = %q", result.Errors[0])
	}
}

func TestImport_ExportRoundTrip(t *testing.T) {
	source := newMemoryRepo()
	ctx := context.Background()
	for _, slug := range []string{"a", "b"} {
		if _, err := source.Create(ctx, product(slug, "Tecnologia", "Produto, "+slug, true)); err != nil {
			t.Fatal(err)
		}
	}
	note := `Diz "ótimo"`
	c := product("c", "Casa e Escritório", "Cadeira", false)
	c.Comment = &note
	if _, err := source.Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	all, _ := source.List(ctx, model.ProductFilter{IncludeInactive: true})
	text := csvcodec.Stringify(ExportRows(all))

	target := newMemoryRepo()
	result, err := NewImporter(target).Import(ctx, text)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 3 || result.ErrorCount() != 0 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := target.FindBySlug(ctx, "c")
	if got == nil || got.Active || got.Comment == nil || *got.Comment != note {
		t.Errorf("round-tripped c = %+v", got)
	}
}

func TestParseActive(t *testing.T) {
	tests := []struct {
		raw    string
		want   bool
		wantOK bool
	}{
		{"", true, true},
		{"true", true, true},
		{" TRUE ", true, true},
		{"1", true, true},
		{"Sim", true, true},
		{"yes", true, true},
		{"false", false, true},
		{"0", false, true},
		{"nao", false, true},
		{"NÃO", false, true},
		{"no", false, true},
		{"maybe", false, false},
		{"2", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseActive(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseActive(%q) = %v, %v, want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
