package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/repository"
)

// memoryRepo はテスト用のインメモリ商品リポジトリ。
type memoryRepo struct {
	mu        sync.Mutex
	products  map[string]*model.Product // key: id
	now       time.Time
	upsertErr func(p *model.Product) error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[string]*model.Product),
		now:      time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

var _ repository.ProductRepository = (*memoryRepo)(nil)

func (r *memoryRepo) tick() time.Time {
	r.now = r.now.Add(time.Minute)
	return r.now
}

func clone(p *model.Product) *model.Product {
	c := *p
	return &c
}

func (r *memoryRepo) List(_ context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.Product, 0)
	for _, p := range r.products {
		if !filter.IncludeInactive && !p.Active {
			continue
		}
		if filter.Theme != "" && p.Theme != filter.Theme {
			continue
		}
		out = append(out, clone(p))
	}

	if filter.ByThemeAndTitle {
		sort.Slice(out, func(i, j int) bool {
			if out[i].Theme != out[j].Theme {
				return out[i].Theme < out[j].Theme
			}
			return out[i].Title < out[j].Title
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		return clone(p), nil
	}
	return nil, nil
}

func (r *memoryRepo) FindBySlug(_ context.Context, slug string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findBySlugLocked(slug), nil
}

func (r *memoryRepo) findBySlugLocked(slug string) *model.Product {
	for _, p := range r.products {
		if p.Slug == slug {
			return clone(p)
		}
	}
	return nil
}

func (r *memoryRepo) Create(_ context.Context, p *model.Product) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findBySlugLocked(p.Slug) != nil {
		return nil, repository.ErrDuplicateSlug
	}
	c := clone(p)
	c.ID = uuid.New().String()
	c.CreatedAt = r.tick()
	r.products[c.ID] = c
	return clone(c), nil
}

func (r *memoryRepo) Update(_ context.Context, p *model.Product) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.products[p.ID]
	if !ok {
		return nil, nil
	}
	if other := r.findBySlugLocked(p.Slug); other != nil && other.ID != p.ID {
		return nil, repository.ErrDuplicateSlug
	}
	c := clone(p)
	c.CreatedAt = existing.CreatedAt
	r.products[p.ID] = c
	return clone(c), nil
}

func (r *memoryRepo) SetActive(_ context.Context, id string, active bool) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	p.Active = active
	return clone(p), nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return false, nil
	}
	delete(r.products, id)
	return true, nil
}

func (r *memoryRepo) UpsertBySlug(_ context.Context, p *model.Product) error {
	if r.upsertErr != nil {
		if err := r.upsertErr(p); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c := clone(p)
	if existing := r.findBySlugLocked(p.Slug); existing != nil {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = uuid.New().String()
		c.CreatedAt = r.tick()
	}
	r.products[c.ID] = c
	return nil
}

func (r *memoryRepo) ThemeCounts(_ context.Context) ([]model.ThemeCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, p := range r.products {
		if p.Active {
			counts[p.Theme]++
		}
	}
	out := make([]model.ThemeCount, 0, len(counts))
	for theme, n := range counts {
		out = append(out, model.ThemeCount{Theme: theme, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Theme < out[j].Theme })
	return out, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products)
}

// plainCleaner はタグを除去しない単純なTextCleaner。
type plainCleaner struct{}

func (plainCleaner) PlainText(raw string) string { return strings.TrimSpace(raw) }

func product(slug, theme, title string, active bool) *model.Product {
	return &model.Product{
		Title:         title,
		Slug:          slug,
		Description:   "Descrição de " + title,
		ImageURL:      "https://cdn.example.com/" + slug + ".jpg",
		PriceFrom:     decimal.RequireFromString("199.90"),
		PriceTo:       decimal.RequireFromString("149.90"),
		AffiliateLink: "https://loja.example.com/" + slug,
		Theme:         theme,
		Active:        active,
	}
}

func apiErrorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
