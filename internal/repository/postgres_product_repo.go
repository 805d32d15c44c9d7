package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/seleto/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

const productColumns = `id, title, slug, description, comment, image_url,
	price_from, price_to, affiliate_link, theme, active, created_at`

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct は1行分の商品を読み取る。
func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var comment sql.NullString

	if err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &comment, &p.ImageURL,
		&p.PriceFrom, &p.PriceTo, &p.AffiliateLink, &p.Theme, &p.Active, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.Comment = nullStringPtr(comment)
	return p, nil
}

// List はフィルタ条件に一致する商品を取得する。
func (r *PostgresProductRepo) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	products := make([]*model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("商品のスキャンに失敗しました: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("商品一覧の読み取りに失敗しました: %w", err)
	}

	return products, nil
}

// buildListQuery はフィルタ条件からSELECT文とパラメータを組み立てる。
func buildListQuery(filter model.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if !filter.IncludeInactive {
		conds = append(conds, "active = TRUE")
	}
	if filter.Theme != "" {
		args = append(args, filter.Theme)
		conds = append(conds, fmt.Sprintf("theme = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(productColumns)
	b.WriteString(" FROM products")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	if filter.ByThemeAndTitle {
		b.WriteString(" ORDER BY theme ASC, title ASC")
	} else {
		b.WriteString(" ORDER BY created_at DESC")
	}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	return p, nil
}

// FindBySlug は指定slugの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1`, slug,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("slugによる商品の検索に失敗しました: %w", err)
	}
	return p, nil
}

// Create は商品を作成する。IDはアプリケーション側でUUIDv4を採番する。
func (r *PostgresProductRepo) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`INSERT INTO products (id, title, slug, description, comment, image_url,
		                       price_from, price_to, affiliate_link, theme, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+productColumns,
		uuid.New().String(), product.Title, product.Slug, product.Description,
		nullStringFromPtr(product.Comment), product.ImageURL,
		product.PriceFrom, product.PriceTo, product.AffiliateLink, product.Theme, product.Active,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}
	return p, nil
}

// Update はid・created_at以外の全項目を置き換える。見つからない場合はnilを返す。
func (r *PostgresProductRepo) Update(ctx context.Context, product *model.Product) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`UPDATE products SET
		    title = $2, slug = $3, description = $4, comment = $5, image_url = $6,
		    price_from = $7, price_to = $8, affiliate_link = $9, theme = $10, active = $11
		 WHERE id = $1
		 RETURNING `+productColumns,
		product.ID, product.Title, product.Slug, product.Description,
		nullStringFromPtr(product.Comment), product.ImageURL,
		product.PriceFrom, product.PriceTo, product.AffiliateLink, product.Theme, product.Active,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}
	return p, nil
}

// SetActive は公開フラグのみを更新する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) SetActive(ctx context.Context, id string, active bool) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`UPDATE products SET active = $2 WHERE id = $1 RETURNING `+productColumns,
		id, active,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("公開状態の更新に失敗しました: %w", err)
	}
	return p, nil
}

// Delete は商品を削除する。削除対象が存在しなかった場合はfalseを返す。
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("商品の削除に失敗しました: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// UpsertBySlug はslugをキーに商品を作成または更新する。
// ON CONFLICTにより、既存商品のid・created_atは保持される。
func (r *PostgresProductRepo) UpsertBySlug(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, title, slug, description, comment, image_url,
		                       price_from, price_to, affiliate_link, theme, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (slug) DO UPDATE SET
		    title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    comment = EXCLUDED.comment,
		    image_url = EXCLUDED.image_url,
		    price_from = EXCLUDED.price_from,
		    price_to = EXCLUDED.price_to,
		    affiliate_link = EXCLUDED.affiliate_link,
		    theme = EXCLUDED.theme,
		    active = EXCLUDED.active`,
		uuid.New().String(), product.Title, product.Slug, product.Description,
		nullStringFromPtr(product.Comment), product.ImageURL,
		product.PriceFrom, product.PriceTo, product.AffiliateLink, product.Theme, product.Active,
	)
	if err != nil {
		return fmt.Errorf("商品のupsertに失敗しました: %w", err)
	}
	return nil
}

// ThemeCounts は公開中の商品数をテーマごとに集計する。
func (r *PostgresProductRepo) ThemeCounts(ctx context.Context) ([]model.ThemeCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT theme, count(*) FROM products WHERE active = TRUE GROUP BY theme ORDER BY theme`,
	)
	if err != nil {
		return nil, fmt.Errorf("テーマ集計に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := make([]model.ThemeCount, 0)
	for rows.Next() {
		var tc model.ThemeCount
		if err := rows.Scan(&tc.Theme, &tc.Count); err != nil {
			return nil, fmt.Errorf("テーマ集計のスキャンに失敗しました: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("テーマ集計の読み取りに失敗しました: %w", err)
	}

	return counts, nil
}

// isUniqueViolation はエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// nullStringFromPtr は*stringをsql.NullStringに変換する。nilはNULLとなる。
func nullStringFromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
