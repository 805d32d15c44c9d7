// Package catalog は商品カタログのドメインロジックを提供する。
// 一覧・詳細・テーマ集計の参照系と、管理者による作成・更新・削除、
// CSVインポート/エクスポート、印刷用カタログの組み立てを扱う。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/seleto/internal/model"
	"github.com/hitoshi/seleto/internal/repository"
	"github.com/hitoshi/seleto/internal/validation"
)

// FeaturedLimit はトップページに表示する新着商品の件数。
const FeaturedLimit = 6

// ThemeSummary はテーマごとの公開商品数と表示ラベル。
type ThemeSummary struct {
	Theme string
	Label string
	Count int
}

// Service は商品カタログのサービス層。
type Service struct {
	repo repository.ProductRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.ProductRepository) *Service {
	return &Service{repo: repo}
}

// List は商品一覧を新しい順で返す。
// themeが指定された場合は、includeInactiveに関わらず公開中の商品のみを返す。
func (s *Service) List(ctx context.Context, theme string, includeInactive bool) ([]*model.Product, error) {
	filter := model.ProductFilter{
		Theme:           theme,
		IncludeInactive: includeInactive && theme == "",
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	return products, nil
}

// Recent は公開中の新着商品を最大limit件返す。
func (s *Service) Recent(ctx context.Context, limit int) ([]*model.Product, error) {
	products, err := s.repo.List(ctx, model.ProductFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("新着商品の取得に失敗しました: %w", err)
	}
	return products, nil
}

// CatalogProducts は印刷用カタログ向けに公開中の商品をテーマ・タイトル順で返す。
func (s *Service) CatalogProducts(ctx context.Context) ([]*model.Product, error) {
	products, err := s.repo.List(ctx, model.ProductFilter{ByThemeAndTitle: true})
	if err != nil {
		return nil, fmt.Errorf("カタログ商品の取得に失敗しました: %w", err)
	}
	return products, nil
}

// AllProducts はCSVエクスポート向けに非公開を含む全商品を新しい順で返す。
func (s *Service) AllProducts(ctx context.Context) ([]*model.Product, error) {
	return s.List(ctx, "", true)
}

// GetActiveBySlug は公開中の商品をslugで取得する。
// 存在しないか非公開の場合はProductNotFoundエラーを返す。
func (s *Service) GetActiveBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil || !p.Active {
		return nil, model.NewProductNotFoundError()
	}
	return p, nil
}

// GetByID は商品をIDで取得する。UUID形式でないIDは存在しないものとして扱う。
func (s *Service) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if !isValidID(id) {
		return nil, model.NewProductNotFoundError()
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProductNotFoundError()
	}
	return p, nil
}

// Themes は公開中の商品があるテーマを表示ラベル付きで返す。
func (s *Service) Themes(ctx context.Context) ([]ThemeSummary, error) {
	counts, err := s.repo.ThemeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("テーマ一覧の取得に失敗しました: %w", err)
	}

	themes := make([]ThemeSummary, len(counts))
	for i, c := range counts {
		themes[i] = ThemeSummary{
			Theme: c.Theme,
			Label: ThemeLabel(c.Theme),
			Count: c.Count,
		}
	}
	return themes, nil
}

// Create は入力を検証して商品を作成する。
func (s *Service) Create(ctx context.Context, in validation.ProductInput) (*model.Product, error) {
	p, err := validation.Create(in)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, p)
	if errors.Is(err, repository.ErrDuplicateSlug) {
		return nil, model.NewDuplicateSlugError()
	}
	if err != nil {
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}

	slog.Info("product created",
		slog.String("product_id", created.ID),
		slog.String("slug", created.Slug),
	)
	return created, nil
}

// Replace は入力を検証して商品の全項目を置き換える。
func (s *Service) Replace(ctx context.Context, id string, in validation.ProductInput) (*model.Product, error) {
	p, err := validation.Update(in)
	if err != nil {
		return nil, err
	}
	if !isValidID(id) {
		return nil, model.NewProductNotFoundError()
	}
	p.ID = id

	updated, err := s.repo.Update(ctx, p)
	if errors.Is(err, repository.ErrDuplicateSlug) {
		return nil, model.NewDuplicateSlugError()
	}
	if err != nil {
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewProductNotFoundError()
	}

	slog.Info("product updated",
		slog.String("product_id", updated.ID),
		slog.String("slug", updated.Slug),
	)
	return updated, nil
}

// SetActive は公開フラグのみを更新する。
func (s *Service) SetActive(ctx context.Context, id string, in validation.PatchInput) (*model.Product, error) {
	active, err := validation.Patch(in)
	if err != nil {
		return nil, err
	}
	if !isValidID(id) {
		return nil, model.NewProductNotFoundError()
	}

	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, fmt.Errorf("公開状態の更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, model.NewProductNotFoundError()
	}

	slog.Info("product visibility changed",
		slog.String("product_id", updated.ID),
		slog.Bool("active", updated.Active),
	)
	return updated, nil
}

// Delete は商品を削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if !isValidID(id) {
		return model.NewProductNotFoundError()
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewProductNotFoundError()
	}

	slog.Info("product deleted", slog.String("product_id", id))
	return nil
}

// isValidID はIDがUUID形式かどうかを判定する。
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
