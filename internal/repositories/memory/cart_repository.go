package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/loomcart/api/internal/domain"
	"github.com/loomcart/api/internal/repositories"
)

// CartRepository is an in-memory cart store keyed by owner. Expiry is enforced on read:
// a cart past its retention window behaves as absent, matching the TTL deletion the
// Firestore implementation relies on.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
	now   func() time.Time
}

// NewCartRepository constructs an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string]*domain.Cart),
		now:   time.Now,
	}
}

// WithClock overrides the clock used for expiry checks. Test hook.
func (r *CartRepository) WithClock(clock func() time.Time) *CartRepository {
	if clock != nil {
		r.now = clock
	}
	return r
}

// Get returns the owner's cart or a not-found repository error.
func (r *CartRepository) Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	_ = ctx
	key := owner.Key()
	if key == "" {
		return domain.Cart{}, fmt.Errorf("cart repository: owner key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[key]
	if !ok {
		return domain.Cart{}, repositories.NewNotFound("cart get", fmt.Errorf("cart for %s not found", key))
	}
	if !cart.ExpiresAt.IsZero() && !r.now().UTC().Before(cart.ExpiresAt) {
		delete(r.carts, key)
		return domain.Cart{}, repositories.NewNotFound("cart get", fmt.Errorf("cart for %s expired", key))
	}
	return *cloneCart(cart), nil
}

// Upsert stores the cart under its owner key, stamping the retention window.
func (r *CartRepository) Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	_ = ctx
	key := cart.Owner.Key()
	if key == "" {
		return domain.Cart{}, fmt.Errorf("cart repository: owner key is required")
	}

	now := r.now().UTC()
	cart.ExpiresAt = now.Add(domain.CartRetention)
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[key] = cloneCart(&cart)
	return cart, nil
}

// Delete removes the owner's cart. Deleting an absent cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, owner domain.CartOwner) error {
	_ = ctx
	key := owner.Key()
	if key == "" {
		return fmt.Errorf("cart repository: owner key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, key)
	return nil
}

func cloneCart(cart *domain.Cart) *domain.Cart {
	if cart == nil {
		return nil
	}
	clone := *cart
	if len(cart.Items) > 0 {
		clone.Items = make([]domain.CartItem, len(cart.Items))
		copy(clone.Items, cart.Items)
	}
	return &clone
}
