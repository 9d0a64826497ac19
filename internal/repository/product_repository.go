package repository

import (
	"context"
	"errors"
	"fmt"

	"product-api/internal/database"
	"product-api/internal/domain"

	"github.com/jackc/pgx/v5"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrVersionConflict is returned when a conditional update matches no
	// row. The caller's version was stale, or the product was deleted
	// between the read and the write; the two cases are indistinguishable.
	ErrVersionConflict = errors.New("product version conflict")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindAll(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	Count(ctx context.Context) (int, error)
}

type productRepository struct {
	db *database.Service
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *database.Service) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product and fills in the database-assigned fields:
// id, version 0, and both timestamps.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query, err := loadQuery(queryCreateProduct)
	if err != nil {
		return err
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	err = conn.QueryRow(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
	).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update applies the product's fields only if the stored version still
// matches product.Version. The version check and the increment run in one
// statement, so concurrent writers race on the database row, not in Go.
// On success the product is refreshed from the returned row.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query, err := loadQuery(queryUpdateProduct)
	if err != nil {
		return err
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	err = conn.QueryRow(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.ID,
		product.Version,
	).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product unconditionally. Deleting an id that does not
// exist returns ErrProductNotFound.
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	query, err := loadQuery(queryDeleteProduct)
	if err != nil {
		return err
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	result, err := conn.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query, err := loadQuery(queryFindProductByID)
	if err != nil {
		return nil, err
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	product := &domain.Product{}
	err = conn.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.Version,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindAll retrieves a page of products ordered by id
func (r *productRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	query, err := loadQuery(queryFindAllProducts)
	if err != nil {
		return nil, err
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.StockQuantity,
			&product.Version,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Count returns the total number of products
func (r *productRepository) Count(ctx context.Context) (int, error) {
	query, err := loadQuery(queryCountProducts)
	if err != nil {
		return 0, err
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var total int
	if err := conn.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return total, nil
}
