package domain

import (
	"errors"
	"strings"
	"time"
)

// CartRetention is the window after the last write before an unclaimed cart expires.
const CartRetention = 7 * 24 * time.Hour

// ErrInvalidOwner indicates a cart owner carrying neither a user ID nor a session ID,
// or both at once.
var ErrInvalidOwner = errors.New("domain: cart owner must be exactly one of user or session")

// OwnerKind distinguishes authenticated cart owners from anonymous sessions.
type OwnerKind string

const (
	// OwnerKindUser marks a cart owned by an authenticated user.
	OwnerKindUser OwnerKind = "user"
	// OwnerKindGuest marks a cart keyed by an anonymous session.
	OwnerKindGuest OwnerKind = "guest"
)

// CartOwner is the tagged identity a cart is keyed by: an authenticated user ID or an
// anonymous session ID, never both.
type CartOwner struct {
	Kind      OwnerKind
	UserID    string
	SessionID string
}

// UserOwner builds an authenticated cart owner.
func UserOwner(userID string) CartOwner {
	return CartOwner{Kind: OwnerKindUser, UserID: strings.TrimSpace(userID)}
}

// GuestOwner builds an anonymous cart owner keyed by session.
func GuestOwner(sessionID string) CartOwner {
	return CartOwner{Kind: OwnerKindGuest, SessionID: strings.TrimSpace(sessionID)}
}

// Validate checks the owner invariant: exactly one identity field set, matching the kind.
func (o CartOwner) Validate() error {
	switch o.Kind {
	case OwnerKindUser:
		if strings.TrimSpace(o.UserID) == "" || strings.TrimSpace(o.SessionID) != "" {
			return ErrInvalidOwner
		}
	case OwnerKindGuest:
		if strings.TrimSpace(o.SessionID) == "" || strings.TrimSpace(o.UserID) != "" {
			return ErrInvalidOwner
		}
	default:
		return ErrInvalidOwner
	}
	return nil
}

// Key returns the storage key the cart document is addressed by.
func (o CartOwner) Key() string {
	switch o.Kind {
	case OwnerKindUser:
		return "user:" + strings.TrimSpace(o.UserID)
	case OwnerKindGuest:
		return "session:" + strings.TrimSpace(o.SessionID)
	}
	return ""
}

// IsUser reports whether the owner is an authenticated user.
func (o CartOwner) IsUser() bool { return o.Kind == OwnerKindUser }

// Product is the catalog view the core reads: identity, presentation snapshot sources,
// price, and the stock count owned by the inventory ledger.
type Product struct {
	ID        string
	Name      string
	Image     string
	Price     int64
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Variant is a product's size/colour combination; it forms part of a cart line's identity.
type Variant struct {
	Size  string
	Color string
}

// Equal compares variants ignoring surrounding whitespace and case.
func (v Variant) Equal(other Variant) bool {
	return strings.EqualFold(strings.TrimSpace(v.Size), strings.TrimSpace(other.Size)) &&
		strings.EqualFold(strings.TrimSpace(v.Color), strings.TrimSpace(other.Color))
}

// CartItem is a single cart line. Name, image, unit price, and stock are snapshots taken
// when the line was first inserted and are never refreshed on later adds.
type CartItem struct {
	ProductID  string
	Name       string
	Image      string
	UnitPrice  int64
	Quantity   int
	StockAtAdd int
	Variant    Variant
	AddedAt    time.Time
}

// Cart aggregates the mutable shopping state for one owner.
type Cart struct {
	ID         string
	Owner      CartOwner
	Items      []CartItem
	TotalItems int
	TotalPrice int64
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recalculate recomputes the derived totals from the item lines. Totals are never
// trusted as independently mutable state; every persist path calls this first.
func (c *Cart) Recalculate() {
	var items int
	var price int64
	for _, item := range c.Items {
		items += item.Quantity
		price += item.UnitPrice * int64(item.Quantity)
	}
	c.TotalItems = items
	c.TotalPrice = price
}

// FindItem returns the index of the line matching product and variant, or -1.
func (c *Cart) FindItem(productID string, variant Variant) int {
	target := strings.TrimSpace(productID)
	for i, item := range c.Items {
		if strings.EqualFold(strings.TrimSpace(item.ProductID), target) && item.Variant.Equal(variant) {
			return i
		}
	}
	return -1
}

// FindItemByProduct returns the index of the first line for the product regardless of
// variant, or -1. Merge and quantity updates address lines by product only.
func (c *Cart) FindItemByProduct(productID string) int {
	target := strings.TrimSpace(productID)
	for i, item := range c.Items {
		if strings.EqualFold(strings.TrimSpace(item.ProductID), target) {
			return i
		}
	}
	return -1
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order exists but payment has not been confirmed.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaid indicates payment has been confirmed.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusShipped indicates the order has been dispatched.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered indicates the order reached the customer. Terminal.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled indicates the order was cancelled before payment. Terminal.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusDelivered},
	OrderStatusShipped: {OrderStatusDelivered},
}

// CanTransition reports whether the status may move to the target state.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s == to {
		return false
	}
	for _, allowed := range orderStatusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AtOrBeyondPaid reports whether payment has already been confirmed for this status.
func (s OrderStatus) AtOrBeyondPaid() bool {
	switch s {
	case OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// OrderItem is an immutable line snapshot captured at order creation. It must survive
// later product mutation or deletion.
type OrderItem struct {
	ProductID string
	Name      string
	Image     string
	Quantity  int
	UnitPrice int64
	Size      string
	Color     string
}

// ShippingAddress is the destination captured with the order.
type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// PaymentResult stores the payment authority's reference and status for an order.
type PaymentResult struct {
	Reference    string
	Status       string
	Amount       int64
	Currency     string
	UpdateTime   string
	EmailAddress string
}

// PriceBreakdown carries the caller-supplied price components fixed at order creation.
type PriceBreakdown struct {
	ItemsPrice    int64
	ShippingPrice int64
	TaxPrice      int64
	TotalPrice    int64
}

// Order is the persisted order aggregate. Item snapshots and prices are fixed at
// creation; only status, payment result, and the lifecycle timestamps mutate.
type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	Status          OrderStatus
	PaymentResult   *PaymentResult
	ItemsPrice      int64
	ShippingPrice   int64
	TaxPrice        int64
	TotalPrice      int64
	PaidAt          *time.Time
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy safe to hand across goroutine or storage boundaries.
func (o Order) Clone() Order {
	dup := o
	if len(o.Items) > 0 {
		dup.Items = make([]OrderItem, len(o.Items))
		copy(dup.Items, o.Items)
	}
	if o.PaymentResult != nil {
		result := *o.PaymentResult
		dup.PaymentResult = &result
	}
	if o.PaidAt != nil {
		ts := *o.PaidAt
		dup.PaidAt = &ts
	}
	if o.DeliveredAt != nil {
		ts := *o.DeliveredAt
		dup.DeliveredAt = &ts
	}
	return dup
}
