package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func CreateBrand(ctx context.Context, db *sql.DB, name, slug, description string) (*models.Brand, error) {
	if slug == "" {
		slug = slugFor("brand", name)
	}

	brand := &models.Brand{}
	err := db.QueryRowContext(ctx, `
		INSERT INTO brands (name, slug, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING id, name, slug, description, is_active, created_at, updated_at`,
		name, slug, description).Scan(
		&brand.ID,
		&brand.Name,
		&brand.Slug,
		&brand.Description,
		&brand.IsActive,
		&brand.CreatedAt,
		&brand.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create brand: %w", err)
	}

	return brand, nil
}

func CreateCategory(ctx context.Context, db *sql.DB, name, slug, description string, displayOrder int) (*models.Category, error) {
	if slug == "" {
		slug = slugFor("category", name)
	}

	category := &models.Category{}
	err := db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description, display_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, name, slug, description, display_order, is_active, created_at, updated_at`,
		name, slug, description, displayOrder).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.DisplayOrder,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func SetBrandActive(ctx context.Context, db *sql.DB, id int64, active bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE brands SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("update brand: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return database.ErrBrandNotFound
	}
	return nil
}

func GetBrandBySlug(ctx context.Context, db *sql.DB, slug string) (*models.Brand, error) {
	brand := &models.Brand{}
	err := db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, is_active, created_at, updated_at
		FROM brands
		WHERE slug = $1`, slug).Scan(
		&brand.ID,
		&brand.Name,
		&brand.Slug,
		&brand.Description,
		&brand.IsActive,
		&brand.CreatedAt,
		&brand.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrBrandNotFound
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}

	return brand, nil
}

func GetCategoryBySlug(ctx context.Context, db *sql.DB, slug string) (*models.Category, error) {
	category := &models.Category{}
	err := db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, display_order, is_active, created_at, updated_at
		FROM categories
		WHERE slug = $1`, slug).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.DisplayOrder,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	return category, nil
}

// ListBrands orders by name; limit <= 0 means no limit.
func ListBrands(ctx context.Context, db *sql.DB, activeOnly bool, limit int) ([]models.Brand, error) {
	query := `
		SELECT id, name, slug, description, is_active, created_at, updated_at
		FROM brands
		WHERE ($1 = FALSE OR is_active)
		ORDER BY name, id`
	args := []any{activeOnly}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	brands := []models.Brand{}
	for rows.Next() {
		var brand models.Brand
		if err := rows.Scan(
			&brand.ID,
			&brand.Name,
			&brand.Slug,
			&brand.Description,
			&brand.IsActive,
			&brand.CreatedAt,
			&brand.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, brand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return brands, nil
}

func ListCategories(ctx context.Context, db *sql.DB, activeOnly bool) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, slug, description, display_order, is_active, created_at, updated_at
		FROM categories
		WHERE ($1 = FALSE OR is_active)
		ORDER BY display_order, name, id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Slug,
			&category.Description,
			&category.DisplayOrder,
			&category.IsActive,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

type NewProduct struct {
	CategoryID    int64
	BrandID       int64
	Name          string
	Slug          string
	SKU           string
	Description   string
	FrameShape    string
	FrameMaterial string
	Price         decimal.Decimal
	SalePrice     decimal.NullDecimal
	StockQuantity int
	Featured      bool
}

const productColumns = `
	p.id, p.category_id, c.name, p.brand_id, b.name, p.name, p.slug, p.sku, p.description,
	p.frame_shape, p.frame_material, p.price, p.sale_price, p.is_available, p.in_stock,
	p.stock_quantity, p.featured, p.created_at, p.updated_at, p.version`

const productFrom = `
	FROM products p
	JOIN categories c ON c.id = p.category_id
	JOIN brands b ON b.id = p.brand_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.CategoryName,
		&product.BrandID,
		&product.BrandName,
		&product.Name,
		&product.Slug,
		&product.SKU,
		&product.Description,
		&product.FrameShape,
		&product.FrameMaterial,
		&product.Price,
		&product.SalePrice,
		&product.IsAvailable,
		&product.InStock,
		&product.StockQuantity,
		&product.Featured,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
}

func CreateProduct(ctx context.Context, db *sql.DB, np NewProduct) (*models.Product, error) {
	if np.Slug == "" {
		np.Slug = slugFor("product", np.Name, np.SKU)
	}

	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO products (
			category_id, brand_id, name, slug, sku, description, frame_shape, frame_material,
			price, sale_price, is_available, in_stock, stock_quantity, featured,
			created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11 > 0, $11, $12, NOW(), NOW(), 1)
		RETURNING id`,
		np.CategoryID, np.BrandID, np.Name, np.Slug, np.SKU, np.Description, np.FrameShape,
		np.FrameMaterial, np.Price, np.SalePrice, np.StockQuantity, np.Featured).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return GetProduct(ctx, db, id)
}

func GetProduct(ctx context.Context, db database.Queryer, id int64) (*models.Product, error) {
	product := &models.Product{}

	err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductBySlug only returns products that are offered for sale.
func GetProductBySlug(ctx context.Context, db *sql.DB, slug string) (*models.Product, error) {
	product := &models.Product{}

	err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.slug = $1 AND p.is_available`, slug), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	return product, nil
}

type ProductUpdate struct {
	Price         decimal.Decimal
	SalePrice     decimal.NullDecimal
	StockQuantity int
	IsAvailable   bool
}

// UpdateProduct applies the change only if the stored version still matches.
func UpdateProduct(ctx context.Context, db *sql.DB, productID int64, upd ProductUpdate, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET price = $1, sale_price = $2, stock_quantity = $3, in_stock = $3 > 0,
		     is_available = $4, version = version + 1, updated_at = NOW()
		 WHERE id = $5 AND version = $6`,
		upd.Price, upd.SalePrice, upd.StockQuantity, upd.IsAvailable, productID, version)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}

func DeleteProduct(ctx context.Context, db *sql.DB, productID int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return database.ErrProductNotFound
	}
	return nil
}

const (
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortNewest    = "newest"
	SortDiscount  = "discount"
)

type ProductFilter struct {
	CategorySlug  string
	BrandSlug     string
	FrameShape    string
	FrameMaterial string
	MinPrice      decimal.NullDecimal
	MaxPrice      decimal.NullDecimal
	Query         string
	// OnSale restricts to in-stock products with a sale price and makes the
	// price sorts use the sale price.
	OnSale bool
	Sort   string
}

func (f ProductFilter) where() (string, []any) {
	conds := []string{"p.is_available"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategorySlug != "" {
		conds = append(conds, "c.slug = "+arg(f.CategorySlug))
	}
	if f.BrandSlug != "" {
		conds = append(conds, "b.slug = "+arg(f.BrandSlug))
	}
	if f.FrameShape != "" {
		conds = append(conds, "p.frame_shape = "+arg(f.FrameShape))
	}
	if f.FrameMaterial != "" {
		conds = append(conds, "p.frame_material = "+arg(f.FrameMaterial))
	}
	if f.MinPrice.Valid {
		conds = append(conds, "p.price >= "+arg(f.MinPrice.Decimal))
	}
	if f.MaxPrice.Valid {
		conds = append(conds, "p.price <= "+arg(f.MaxPrice.Decimal))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := arg("%" + escapeLike(q) + "%")
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR b.name ILIKE %[1]s OR c.name ILIKE %[1]s)",
			pattern))
	}
	if f.OnSale {
		conds = append(conds, "p.sale_price IS NOT NULL", "p.in_stock")
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f ProductFilter) orderBy() string {
	priceColumn := "p.price"
	if f.OnSale {
		priceColumn = "p.sale_price"
	}

	switch f.Sort {
	case SortPriceLow:
		return " ORDER BY " + priceColumn + " ASC, p.id"
	case SortPriceHigh:
		return " ORDER BY " + priceColumn + " DESC, p.id"
	case SortDiscount:
		return ` ORDER BY CASE WHEN p.sale_price IS NULL OR p.price = 0 THEN 0
			ELSE (p.price - p.sale_price) / p.price END DESC, p.id`
	default:
		return " ORDER BY p.created_at DESC, p.id DESC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListProducts returns one page of available products matching filter.
func ListProducts(ctx context.Context, db *sql.DB, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	where, args := filter.where()

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*)`+productFrom+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	if lastPage := int((total + int64(pageSize) - 1) / int64(pageSize)); lastPage > 0 && page > lastPage {
		page = lastPage
	}

	query := `SELECT ` + productColumns + productFrom + where + filter.orderBy() +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	products, err := queryProducts(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

// RelatedProducts returns other products from the same category.
func RelatedProducts(ctx context.Context, db *sql.DB, product *models.Product, limit int) ([]models.Product, error) {
	return queryProducts(ctx, db,
		`SELECT `+productColumns+productFrom+`
		 WHERE p.is_available AND p.category_id = $1 AND p.id <> $2
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT $3`,
		product.CategoryID, product.ID, limit)
}

func FeaturedProducts(ctx context.Context, db *sql.DB, limit int) ([]models.Product, error) {
	return queryProducts(ctx, db,
		`SELECT `+productColumns+productFrom+`
		 WHERE p.is_available AND p.featured
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT $1`,
		limit)
}

func queryProducts(ctx context.Context, db *sql.DB, query string, args ...any) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
