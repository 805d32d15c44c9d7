// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/seleto/internal/model"
)

// ErrDuplicateSlug はslugの一意制約違反を示す。
var ErrDuplicateSlug = errors.New("duplicate product slug")

// ProductRepository は商品データの永続化インターフェース。
type ProductRepository interface {
	// List はフィルタ条件に一致する商品を取得する。
	List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)

	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// FindBySlug は指定slugの商品を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)

	// Create は商品を作成し、採番されたIDと作成日時を含む商品を返す。
	// slugが重複している場合はErrDuplicateSlugを返す。
	Create(ctx context.Context, product *model.Product) (*model.Product, error)

	// Update はid・created_at以外の全項目を置き換える。見つからない場合はnilを返す。
	// slugが他の商品と重複する場合はErrDuplicateSlugを返す。
	Update(ctx context.Context, product *model.Product) (*model.Product, error)

	// SetActive は公開フラグのみを更新する。見つからない場合はnilを返す。
	SetActive(ctx context.Context, id string, active bool) (*model.Product, error)

	// Delete は商品を削除する。削除対象が存在しなかった場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// UpsertBySlug はslugをキーに商品を作成または更新する。
	// 既存商品のid・created_atは保持される。
	UpsertBySlug(ctx context.Context, product *model.Product) error

	// ThemeCounts は公開中の商品数をテーマごとに集計する。テーマ名順で返す。
	ThemeCounts(ctx context.Context) ([]model.ThemeCount, error)
}
