package service

import (
	"context"
	"strings"
	"time"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultStock is the stock of a product created without one
const DefaultStock = 10

// Pagination bounds for product listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductFilter selects and orders a page of products
type ProductFilter struct {
	CategoryID *uuid.UUID
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  repository.SortOrder
}

func (f *ProductFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	f.SortOrder = repository.SortOrder(strings.ToUpper(string(f.SortOrder)))
}

// ProductInput carries the editable fields of a product
type ProductInput struct {
	Name        string
	Description string
	Price       int64
	CategoryID  *uuid.UUID
	ImageURL    string
	Stock       *int
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// CatalogService defines the interface for catalog business logic
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	SearchProducts(ctx context.Context, query string, page, pageSize int) (*ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, identity domain.Identity, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, identity domain.Identity, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, identity domain.Identity, id uuid.UUID) error

	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, identity domain.Identity, name, description string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, identity domain.Identity, id uuid.UUID, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, identity domain.Identity, id uuid.UUID) error

	ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error)
}

type catalogService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(store repository.Store, logger *zap.Logger) CatalogService {
	return &catalogService{store: store, logger: logger}
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	filter.normalize()

	products, total, err := s.store.Repos().Products.List(ctx, filter.CategoryID, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
	if err != nil {
		return nil, err
	}

	return &ProductPage{Products: products, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *catalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) (*ProductPage, error) {
	filter := ProductFilter{Page: page, PageSize: pageSize}
	filter.normalize()

	products, total, err := s.store.Repos().Products.Search(ctx, query, filter.Page, filter.PageSize)
	if err != nil {
		return nil, err
	}

	return &ProductPage{Products: products, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.store.Repos().Products.FindByID(ctx, id)
}

func (s *catalogService) CreateProduct(ctx context.Context, identity domain.Identity, input ProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Stock:     DefaultStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProductInput(product, input)
	if err := product.Validate(); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := authorizeEdit(ctx, repos, identity); err != nil {
			return err
		}
		return repos.Products.Create(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, identity domain.Identity, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := authorizeEdit(ctx, repos, identity); err != nil {
			return err
		}

		var err error
		product, err = repos.Products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		applyProductInput(product, input)
		product.UpdatedAt = time.Now()
		if err := product.Validate(); err != nil {
			return err
		}
		return repos.Products.Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", id.String()))
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, identity domain.Identity, id uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := authorizeDelete(ctx, repos, identity); err != nil {
			return err
		}
		return repos.Products.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func applyProductInput(product *domain.Product, input ProductInput) {
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Price = input.Price
	product.CategoryID = input.CategoryID
	product.ImageURL = input.ImageURL
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.store.Repos().Categories.List(ctx)
}

func (s *catalogService) CreateCategory(ctx context.Context, identity domain.Identity, name, description string) (*domain.Category, error) {
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   time.Now(),
	}
	if category.Name == "" {
		return nil, domain.NewError(domain.KindValidation, "category name is required")
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := authorizeEdit(ctx, repos, identity); err != nil {
			return err
		}
		return repos.Categories.Create(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, identity domain.Identity, id uuid.UUID, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.KindValidation, "category name is required")
	}

	var category *domain.Category
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := authorizeEdit(ctx, repos, identity); err != nil {
			return err
		}

		var err error
		category, err = repos.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		category.Name = name
		category.Description = description
		return repos.Categories.Update(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, identity domain.Identity, id uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := authorizeDelete(ctx, repos, identity); err != nil {
			return err
		}
		return repos.Categories.Delete(ctx, id)
	})
}

func (s *catalogService) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	return s.store.Repos().PaymentMethods.List(ctx)
}
