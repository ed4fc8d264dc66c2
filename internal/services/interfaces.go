package services

import (
	"context"

	domain "github.com/loomcart/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product         = domain.Product
	Variant         = domain.Variant
	Cart            = domain.Cart
	CartItem        = domain.CartItem
	CartOwner       = domain.CartOwner
	Order           = domain.Order
	OrderItem       = domain.OrderItem
	OrderStatus     = domain.OrderStatus
	ShippingAddress = domain.ShippingAddress
	PaymentResult   = domain.PaymentResult
	PriceBreakdown  = domain.PriceBreakdown
)

// InventoryService is the stock ledger: the only mutation path for product stock.
// Reserve and Restore delegate to the storage layer's atomic primitives so that
// check-and-decrement is never a caller-side read-then-write sequence.
type InventoryService interface {
	// CheckAvailable reports whether the requested quantity can currently be covered,
	// together with the live stock count.
	CheckAvailable(ctx context.Context, productID string, quantity int) (bool, int, error)
	// Reserve atomically decrements stock when coverage is sufficient, failing with
	// *InsufficientStockError otherwise.
	Reserve(ctx context.Context, productID string, quantity int) error
	// Restore atomically increments stock. No upper bound is enforced.
	Restore(ctx context.Context, productID string, quantity int) error
}

// CatalogService exposes the read-only product surface.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// AddItemCommand carries the input for CartService.AddItem.
type AddItemCommand struct {
	Owner     CartOwner
	ProductID string
	Quantity  int
	Variant   Variant
}

// UpdateQuantityCommand carries the input for CartService.UpdateQuantity.
type UpdateQuantityCommand struct {
	Owner     CartOwner
	ProductID string
	Quantity  int
}

// CartService owns per-identity cart documents and their mutation rules.
type CartService interface {
	GetOrCreate(ctx context.Context, owner CartOwner) (Cart, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (Cart, error)
	UpdateQuantity(ctx context.Context, cmd UpdateQuantityCommand) (Cart, error)
	RemoveItem(ctx context.Context, owner CartOwner, productID string) (Cart, error)
	Clear(ctx context.Context, owner CartOwner) (Cart, error)
	Merge(ctx context.Context, userID, guestSessionID string) (Cart, error)
}

// PlaceOrderCommand carries the input for OrderService.Place. Item snapshots and the
// price breakdown are caller-supplied and stored as-is.
type PlaceOrderCommand struct {
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	Prices          PriceBreakdown
}

// MarkPaidCommand carries the input for OrderService.MarkPaid. Empty Result fields fall
// back to the order's existing payment result, then to the caller email where relevant.
type MarkPaidCommand struct {
	OrderID     string
	CallerEmail string
	Result      PaymentResult
}

// OrderService drives order placement and lifecycle transitions. Ownership and role
// rules are evaluated by the authorisation gate before these operations are entered.
type OrderService interface {
	Place(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	MarkPaid(ctx context.Context, cmd MarkPaidCommand) (Order, error)
	MarkDelivered(ctx context.Context, orderID string) (Order, error)
	Cancel(ctx context.Context, orderID string) error
	GetByID(ctx context.Context, orderID string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}
