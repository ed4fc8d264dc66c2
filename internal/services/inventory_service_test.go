package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/loomcart/api/internal/domain"
	"github.com/loomcart/api/internal/repositories"
)

type stubProductRepo struct {
	insertFn  func(ctx context.Context, product domain.Product) error
	findFn    func(ctx context.Context, productID string) (domain.Product, error)
	listFn    func(ctx context.Context) ([]domain.Product, error)
	reserveFn func(ctx context.Context, productID string, quantity int) error
	restoreFn func(ctx context.Context, productID string, quantity int) error
}

func (s *stubProductRepo) Insert(ctx context.Context, product domain.Product) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, product)
	}
	return nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn != nil {
		return s.findFn(ctx, productID)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubProductRepo) ReserveStock(ctx context.Context, productID string, quantity int) error {
	if s.reserveFn != nil {
		return s.reserveFn(ctx, productID, quantity)
	}
	return nil
}

func (s *stubProductRepo) RestoreStock(ctx context.Context, productID string, quantity int) error {
	if s.restoreFn != nil {
		return s.restoreFn(ctx, productID, quantity)
	}
	return nil
}

func newTestInventoryService(t *testing.T, repo repositories.ProductRepository) InventoryService {
	t.Helper()
	svc, err := NewInventoryService(InventoryServiceDeps{
		Products: repo,
		Clock:    func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new inventory service: %v", err)
	}
	return svc
}

func TestInventoryServiceCheckAvailable(t *testing.T) {
	repo := &stubProductRepo{
		findFn: func(_ context.Context, productID string) (domain.Product, error) {
			if productID != "prod-1" {
				t.Fatalf("unexpected product id %s", productID)
			}
			return domain.Product{ID: "prod-1", Stock: 5}, nil
		},
	}
	svc := newTestInventoryService(t, repo)

	ok, stock, err := svc.CheckAvailable(context.Background(), "prod-1", 3)
	if err != nil {
		t.Fatalf("check available: %v", err)
	}
	if !ok || stock != 5 {
		t.Fatalf("expected available with stock 5, got ok=%v stock=%d", ok, stock)
	}

	ok, stock, err = svc.CheckAvailable(context.Background(), "prod-1", 6)
	if err != nil {
		t.Fatalf("check available: %v", err)
	}
	if ok || stock != 5 {
		t.Fatalf("expected unavailable with stock 5, got ok=%v stock=%d", ok, stock)
	}
}

func TestInventoryServiceCheckAvailableNotFound(t *testing.T) {
	repo := &stubProductRepo{
		findFn: func(_ context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, repositories.NewNotFound("product find", errors.New("missing"))
		},
	}
	svc := newTestInventoryService(t, repo)

	if _, _, err := svc.CheckAvailable(context.Background(), "ghost", 1); !errors.Is(err, ErrInventoryNotFound) {
		t.Fatalf("expected ErrInventoryNotFound, got %v", err)
	}
}

func TestInventoryServiceReserveTranslatesStockError(t *testing.T) {
	repo := &stubProductRepo{
		reserveFn: func(_ context.Context, productID string, quantity int) error {
			return &repositories.StockError{ProductID: productID, Requested: quantity, Available: 2}
		},
	}
	svc := newTestInventoryService(t, repo)

	err := svc.Reserve(context.Background(), "prod-1", 4)
	stockErr, ok := AsInsufficientStock(err)
	if !ok {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != "prod-1" || stockErr.Requested != 4 || stockErr.Available != 2 {
		t.Fatalf("unexpected stock error: %+v", stockErr)
	}
}

func TestInventoryServiceReserveNotFound(t *testing.T) {
	repo := &stubProductRepo{
		reserveFn: func(_ context.Context, _ string, _ int) error {
			return repositories.NewNotFound("stock reserve", errors.New("missing"))
		},
	}
	svc := newTestInventoryService(t, repo)

	if err := svc.Reserve(context.Background(), "ghost", 1); !errors.Is(err, ErrInventoryNotFound) {
		t.Fatalf("expected ErrInventoryNotFound, got %v", err)
	}
}

func TestInventoryServiceRejectsInvalidInput(t *testing.T) {
	svc := newTestInventoryService(t, &stubProductRepo{})

	if _, _, err := svc.CheckAvailable(context.Background(), "", 1); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected invalid input for empty id, got %v", err)
	}
	if err := svc.Reserve(context.Background(), "prod-1", 0); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected invalid input for zero quantity, got %v", err)
	}
	if err := svc.Restore(context.Background(), "prod-1", -2); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected invalid input for negative quantity, got %v", err)
	}
}
