package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"product-api/internal/domain"
	"product-api/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	// MaxNameLength is the longest accepted product name, in characters
	MaxNameLength = 255

	// Pagination bounds for listing products
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// ProductService defines the interface for product business logic
type ProductService interface {
	CreateProduct(ctx context.Context, name string, description *string, price decimal.Decimal, stockQuantity int) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, int, error)
	UpdateProduct(ctx context.Context, id int64, name string, description *string, price decimal.Decimal, stockQuantity, version int) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// CreateProduct validates the fields and stores a new product. The returned
// product carries the database-assigned id, version 0, and timestamps.
func (s *productService) CreateProduct(ctx context.Context, name string, description *string, price decimal.Decimal, stockQuantity int) (*domain.Product, error) {
	if err := s.validateFields(name, price, stockQuantity); err != nil {
		return nil, err
	}

	product := &domain.Product{
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stockQuantity,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// GetProduct retrieves a product by ID
func (s *productService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// ListProducts returns one page of products plus the total count across all
// pages.
func (s *productService) ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, int, error) {
	if limit < 1 || limit > MaxListLimit {
		return nil, 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxListLimit)
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}

	products, err := s.productRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// UpdateProduct replaces the product's fields if the caller's version still
// matches the stored one. A stale version, or an id that no longer exists,
// surfaces as repository.ErrVersionConflict.
func (s *productService) UpdateProduct(ctx context.Context, id int64, name string, description *string, price decimal.Decimal, stockQuantity, version int) (*domain.Product, error) {
	if err := s.validateFields(name, price, stockQuantity); err != nil {
		return nil, err
	}
	if version < 0 {
		return nil, fmt.Errorf("%w: version must not be negative", ErrInvalidInput)
	}

	product := &domain.Product{
		ID:            id,
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stockQuantity,
		Version:       version,
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct removes a product regardless of its version
func (s *productService) DeleteProduct(ctx context.Context, id int64) error {
	return s.productRepo.Delete(ctx, id)
}

// validateFields enforces the field rules shared by create and update.
// Names are measured in characters, not bytes, and are not trimmed:
// whitespace-only names are legal.
func (s *productService) validateFields(name string, price decimal.Decimal, stockQuantity int) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, MaxNameLength)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if stockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity must not be negative", ErrInvalidInput)
	}
	return nil
}
