package repositories

import (
	"context"

	domain "github.com/loomcart/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository reads catalog products and owns the only mutation path for stock.
// ReserveStock and RestoreStock are the storage-level atomic primitives: the
// check-and-decrement is a single step from the caller's perspective, never a
// read-then-write sequence.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)

	// ReserveStock decrements stock by quantity only when current stock covers it,
	// returning *StockError when it does not. Stock is left untouched on failure.
	ReserveStock(ctx context.Context, productID string, quantity int) error

	// RestoreStock increments stock by quantity. No upper bound is enforced.
	RestoreStock(ctx context.Context, productID string, quantity int) error
}

// CartRepository persists cart documents keyed by owner. Expired carts behave as absent.
type CartRepository interface {
	Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error)
	Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Delete(ctx context.Context, owner domain.CartOwner) error
}

// OrderRepository persists order aggregates. List results are ordered newest first.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, orderID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
}
