package catalog

import (
	"context"
	"testing"

	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/validation"
)

func validProductInput(slug string) validation.ProductInput {
	return validation.ProductInput{
		Title:         "Fone Bluetooth",
		Slug:          slug,
		Description:   "Fone sem fio",
		ImageURL:      "https://cdn.example.com/fone.jpg",
		PriceFrom:     "199.90",
		PriceTo:       "149.90",
		AffiliateLink: "https://loja.example.com/fone",
		Theme:         "Tecnologia",
	}
}

func TestService_CreateThenDiscount(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, validProductInput("fone"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !created.Active {
		t.Error("created product should be active")
	}

	got, err := svc.GetActiveBySlug(ctx, "fone")
	if err != nil {
		t.Fatalf("GetActiveBySlug() error = %v", err)
	}
	if d := Discount(got.PriceFrom, got.PriceTo); d != 25 {
		t.Errorf("Discount() = %d, want 25", d)
	}
}

func TestService_CreateDuplicateSlug(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, validProductInput("fone")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, validProductInput("fone"))
	if code := apiErrorCode(err); code != model.ErrCodeDuplicateSlug {
		t.Errorf("code = %q, want %q", code, model.ErrCodeDuplicateSlug)
	}
}

func TestService_CreateValidationError(t *testing.T) {
	svc := NewService(newMemoryRepo())
	in := validProductInput("fone")
	in.Title = ""

	_, err := svc.Create(context.Background(), in)
	if code := apiErrorCode(err); code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", code, model.ErrCodeValidation)
	}
}

func TestService_List(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	repo.Create(ctx, product("a", "Tecnologia", "A", true))
	repo.Create(ctx, product("b", "Tecnologia", "B", false))
	repo.Create(ctx, product("c", "Viagem", "C", true))

	tests := []struct {
		name            string
		theme           string
		includeInactive bool
		want            []string
	}{
		{"public", "", false, []string{"c", "a"}},
		{"admin all", "", true, []string{"c", "b", "a"}},
		{"theme", "Tecnologia", false, []string{"a"}},
		{"theme ignores all", "Tecnologia", true, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := svc.List(ctx, tt.theme, tt.includeInactive)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(products) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(products), len(tt.want))
			}
			for i, slug := range tt.want {
				if products[i].Slug != slug {
					t.Errorf("products[%d] = %q, want %q", i, products[i].Slug, slug)
				}
			}
		})
	}
}

func TestService_GetActiveBySlugHidesInactive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	repo.Create(ctx, product("oculto", "Tecnologia", "Oculto", false))

	for _, slug := range []string{"oculto", "inexistente"} {
		_, err := svc.GetActiveBySlug(ctx, slug)
		if code := apiErrorCode(err); code != model.ErrCodeProductNotFound {
			t.Errorf("GetActiveBySlug(%q) code = %q", slug, code)
		}
	}
}

func TestService_ReplaceSetActiveDelete(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, validProductInput("fone"))
	if err != nil {
		t.Fatal(err)
	}

	in := validProductInput("fone-novo")
	in.Active = validation.ActiveOf(false)
	updated, err := svc.Replace(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if updated.Slug != "fone-novo" || updated.Active {
		t.Errorf("Replace() = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("Replace() should keep created_at")
	}

	toggled, err := svc.SetActive(ctx, created.ID, validation.PatchInput{Active: validation.ActiveOf(true)})
	if err != nil || !toggled.Active {
		t.Fatalf("SetActive() = %+v, %v", toggled, err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, created.ID); apiErrorCode(err) != model.ErrCodeProductNotFound {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestService_ReplaceDuplicateSlug(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	svc.Create(ctx, validProductInput("um"))
	dois, _ := svc.Create(ctx, validProductInput("dois"))

	in := validProductInput("um")
	in.Active = validation.ActiveOf(true)
	_, err := svc.Replace(ctx, dois.ID, in)
	if code := apiErrorCode(err); code != model.ErrCodeDuplicateSlug {
		t.Errorf("code = %q, want %q", code, model.ErrCodeDuplicateSlug)
	}
}

func TestService_InvalidIDIsNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	in := validProductInput("fone")
	in.Active = validation.ActiveOf(true)

	if _, err := svc.GetByID(ctx, "nao-e-uuid"); apiErrorCode(err) != model.ErrCodeProductNotFound {
		t.Errorf("GetByID() error = %v", err)
	}
	if _, err := svc.Replace(ctx, "nao-e-uuid", in); apiErrorCode(err) != model.ErrCodeProductNotFound {
		t.Errorf("Replace() error = %v", err)
	}
	if err := svc.Delete(ctx, "nao-e-uuid"); apiErrorCode(err) != model.ErrCodeProductNotFound {
		t.Errorf("Delete() error = %v", err)
	}
	_, err := svc.SetActive(ctx, "00000000-0000-4000-8000-000000000000", validation.PatchInput{Active: validation.ActiveOf(true)})
	if apiErrorCode(err) != model.ErrCodeProductNotFound {
		t.Errorf("SetActive() error = %v", err)
	}
}

func TestService_Themes(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	repo.Create(ctx, product("a", "Casa e Escritorio", "A", true))
	repo.Create(ctx, product("b", "Tecnologia", "B", true))
	repo.Create(ctx, product("c", "Tecnologia", "C", true))
	repo.Create(ctx, product("d", "Moda", "D", false))

	themes, err := svc.Themes(ctx)
	if err != nil {
		t.Fatalf("Themes() error = %v", err)
	}
	want := []ThemeSummary{
		{Theme: "Casa e Escritorio", Label: "Casa e Escritório", Count: 1},
		{Theme: "Tecnologia", Label: "Tecnologia", Count: 2},
	}
	if len(themes) != len(want) {
		t.Fatalf("Themes() = %+v", themes)
	}
	for i := range want {
		if themes[i] != want[i] {
			t.Errorf("themes[%d] = %+v, want %+v", i, themes[i], want[i])
		}
	}
}

func TestService_RecentAndCatalogProducts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	repo.Create(ctx, product("z", "Tecnologia", "Zeta", true))
	repo.Create(ctx, product("a", "Tecnologia", "Alfa", true))
	repo.Create(ctx, product("m", "Beleza e Saude", "Mascara", true))

	recent, err := svc.Recent(ctx, 2)
	if err != nil || len(recent) != 2 || recent[0].Slug != "m" {
		t.Fatalf("Recent() = %v, %v", recent, err)
	}

	catalog, err := svc.CatalogProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, p := range catalog {
		got = append(got, p.Slug)
	}
	if len(got) != 3 || got[0] != "m" || got[1] != "a" || got[2] != "z" {
		t.Errorf("CatalogProducts() order = %v, want [m a z]", got)
	}
}
