package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	domain "github.com/loomcart/api/internal/domain"
	"github.com/loomcart/api/internal/repositories"
)

// ProductRepository is an in-memory product store. The conditional stock decrement is
// performed inside the write lock so concurrent reservations are linearized here, the
// same guarantee the Firestore implementation gets from transactions.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

// NewProductRepository constructs an empty in-memory product repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
	}
}

// Insert stores a product, rejecting duplicate IDs.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	_ = ctx
	if product.ID == "" {
		return errors.New("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; exists {
		return repositories.NewConflict("product insert", fmt.Errorf("product %s already exists", product.ID))
	}
	r.products[product.ID] = cloneProduct(&product)
	return nil
}

// FindByID returns the product or a not-found repository error.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, repositories.NewNotFound("product find", fmt.Errorf("product %s not found", productID))
	}
	return *cloneProduct(product), nil
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.products))
	for _, product := range r.products {
		out = append(out, *cloneProduct(product))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ReserveStock decrements stock by quantity only when current stock covers it.
func (r *ProductRepository) ReserveStock(ctx context.Context, productID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return fmt.Errorf("product repository: reserve quantity must be positive, got %d", quantity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return repositories.NewNotFound("stock reserve", fmt.Errorf("product %s not found", productID))
	}
	if product.Stock < quantity {
		return &repositories.StockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.Stock,
		}
	}
	product.Stock -= quantity
	return nil
}

// RestoreStock increments stock by quantity. No upper bound is enforced.
func (r *ProductRepository) RestoreStock(ctx context.Context, productID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return fmt.Errorf("product repository: restore quantity must be positive, got %d", quantity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return repositories.NewNotFound("stock restore", fmt.Errorf("product %s not found", productID))
	}
	product.Stock += quantity
	return nil
}

func cloneProduct(product *domain.Product) *domain.Product {
	if product == nil {
		return nil
	}
	clone := *product
	return &clone
}
