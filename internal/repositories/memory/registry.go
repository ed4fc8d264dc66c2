package memory

import (
	"context"

	"github.com/loomcart/api/internal/repositories"
)

// Registry bundles the in-memory repositories behind the repositories.Registry contract.
// Used for local runs and tests.
type Registry struct {
	products *ProductRepository
	carts    *CartRepository
	orders   *OrderRepository
}

// NewRegistry constructs a registry with fresh empty repositories.
func NewRegistry() *Registry {
	return &Registry{
		products: NewProductRepository(),
		carts:    NewCartRepository(),
		orders:   NewOrderRepository(),
	}
}

// Close is a no-op for the in-memory registry.
func (r *Registry) Close(ctx context.Context) error {
	_ = ctx
	return nil
}

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }
