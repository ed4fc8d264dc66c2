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

// OrderRepository is an in-memory order store.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

// NewOrderRepository constructs an empty in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// Insert stores a new order, rejecting duplicate IDs.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	_ = ctx
	if order.ID == "" {
		return errors.New("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return repositories.NewConflict("order insert", fmt.Errorf("order %s already exists", order.ID))
	}
	clone := order.Clone()
	r.orders[order.ID] = &clone
	return nil
}

// FindByID returns the order or a not-found repository error.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewNotFound("order find", fmt.Errorf("order %s not found", orderID))
	}
	return order.Clone(), nil
}

// Update replaces an existing order.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	_ = ctx
	if order.ID == "" {
		return errors.New("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; !exists {
		return repositories.NewNotFound("order update", fmt.Errorf("order %s not found", order.ID))
	}
	clone := order.Clone()
	r.orders[order.ID] = &clone
	return nil
}

// Delete removes the order.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[orderID]; !exists {
		return repositories.NewNotFound("order delete", fmt.Errorf("order %s not found", orderID))
	}
	delete(r.orders, orderID)
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0)
	for _, order := range r.orders {
		if order.UserID == userID {
			out = append(out, order.Clone())
		}
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, order.Clone())
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func sortOrdersNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
