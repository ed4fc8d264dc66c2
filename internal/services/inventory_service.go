package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loomcart/api/internal/repositories"
)

var (
	errInventoryRepositoryRequired = errors.New("inventory service: product repository is required")
	errInventoryClockRequired      = errors.New("inventory service: clock is required")
)

// ErrInventoryInvalidInput indicates the caller supplied invalid input.
var ErrInventoryInvalidInput = errors.New("inventory service: invalid input")

// ErrInventoryNotFound indicates the product does not exist.
var ErrInventoryNotFound = errors.New("inventory service: product not found")

// ErrInventoryUnavailable indicates the ledger cannot reach its backing store.
var ErrInventoryUnavailable = errors.New("inventory service: unavailable")

// InsufficientStockError reports a reservation the live stock could not cover.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// AsInsufficientStock extracts an InsufficientStockError from an error chain.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr, true
	}
	return nil, false
}

// InventoryServiceDeps wires the repository dependencies for the stock ledger.
type InventoryServiceDeps struct {
	Products repositories.ProductRepository
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type inventoryService struct {
	products repositories.ProductRepository
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewInventoryService constructs an InventoryService enforcing dependency validation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Products == nil {
		return nil, errInventoryRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errInventoryClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &inventoryService{
		products: deps.Products,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// CheckAvailable performs a fresh stock read. The answer is advisory only; Reserve is
// the authoritative step.
func (s *inventoryService) CheckAvailable(ctx context.Context, productID string, quantity int) (bool, int, error) {
	id := strings.TrimSpace(productID)
	if id == "" || quantity <= 0 {
		return false, 0, ErrInventoryInvalidInput
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return false, 0, s.translateRepoError(err)
	}
	return product.Stock >= quantity, product.Stock, nil
}

// Reserve delegates to the repository's atomic decrement-if-sufficient primitive.
func (s *inventoryService) Reserve(ctx context.Context, productID string, quantity int) error {
	id := strings.TrimSpace(productID)
	if id == "" || quantity <= 0 {
		return ErrInventoryInvalidInput
	}

	if err := s.products.ReserveStock(ctx, id, quantity); err != nil {
		translated := s.translateRepoError(err)
		if stockErr, ok := AsInsufficientStock(translated); ok {
			s.logger(ctx, "inventory.reserve_rejected", map[string]any{
				"productID": stockErr.ProductID,
				"requested": stockErr.Requested,
				"available": stockErr.Available,
			})
		}
		return translated
	}
	return nil
}

// Restore delegates to the repository's atomic increment primitive.
func (s *inventoryService) Restore(ctx context.Context, productID string, quantity int) error {
	id := strings.TrimSpace(productID)
	if id == "" || quantity <= 0 {
		return ErrInventoryInvalidInput
	}

	if err := s.products.RestoreStock(ctx, id, quantity); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *inventoryService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	if repoStock, ok := repositories.AsStockError(err); ok {
		return &InsufficientStockError{
			ProductID: repoStock.ProductID,
			Requested: repoStock.Requested,
			Available: repoStock.Available,
		}
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrInventoryNotFound
		case repoErr.IsConflict():
			return ErrInventoryUnavailable
		case repoErr.IsUnavailable():
			return ErrInventoryUnavailable
		}
	}
	return ErrInventoryUnavailable
}
