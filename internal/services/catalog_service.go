package services

import (
	"context"
	"errors"
	"strings"

	"github.com/loomcart/api/internal/repositories"
)

var errCatalogRepositoryRequired = errors.New("catalog service: product repository is required")

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogNotFound indicates the requested product does not exist.
var ErrCatalogNotFound = errors.New("catalog service: product not found")

// ErrCatalogUnavailable indicates the catalog cannot reach its backing store.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// CatalogServiceDeps wires the repository dependency for the read-only product surface.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
}

type catalogService struct {
	products repositories.ProductRepository
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errCatalogRepositoryRequired
	}
	return &catalogService{products: deps.Products}, nil
}

// GetProduct fetches a single product by identifier.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return Product{}, ErrCatalogInvalidInput
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return Product{}, translateCatalogError(err)
	}
	return product, nil
}

// ListProducts returns the full catalog.
func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return products, nil
}

func translateCatalogError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return ErrCatalogNotFound
	}
	return ErrCatalogUnavailable
}
