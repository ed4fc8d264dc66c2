package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/loomcart/api/internal/domain"
	"github.com/loomcart/api/internal/repositories"
	"github.com/loomcart/api/internal/repositories/memory"
)

type cartFixture struct {
	svc      CartService
	carts    *memory.CartRepository
	products *memory.ProductRepository
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()

	clock := func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	carts := memory.NewCartRepository().WithClock(clock)
	products := memory.NewProductRepository()

	seed := []domain.Product{
		{ID: "prod-1", Name: "Canvas Tote", Image: "/img/tote.jpg", Price: 45000, Stock: 10},
		{ID: "prod-2", Name: "Ceramic Mug", Image: "/img/mug.jpg", Price: 25000, Stock: 3},
	}
	for _, product := range seed {
		if err := products.Insert(context.Background(), product); err != nil {
			t.Fatalf("seed product %s: %v", product.ID, err)
		}
	}

	svc, err := NewCartService(CartServiceDeps{
		Carts:       carts,
		Products:    products,
		Clock:       clock,
		IDGenerator: func() string { return "cart-test-id" },
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	return cartFixture{svc: svc, carts: carts, products: products}
}

func TestCartServiceGetOrCreateCreatesEmptyCart(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")

	cart, err := fx.svc.GetOrCreate(context.Background(), owner)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalItems != 0 || cart.TotalPrice != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}

	again, err := fx.svc.GetOrCreate(context.Background(), owner)
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if again.ID != cart.ID {
		t.Fatalf("expected the same cart on second access, got %s and %s", cart.ID, again.ID)
	}
}

func TestCartServiceRejectsInvalidOwner(t *testing.T) {
	fx := newCartFixture(t)

	if _, err := fx.svc.GetOrCreate(context.Background(), domain.CartOwner{}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid input for empty owner, got %v", err)
	}
	both := domain.CartOwner{Kind: domain.OwnerKindUser, UserID: "u", SessionID: "s"}
	if _, err := fx.svc.GetOrCreate(context.Background(), both); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid input for owner with both ids, got %v", err)
	}
}

func TestCartServiceAddItemSnapshotsProduct(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.GuestOwner("session-1")

	cart, err := fx.svc.AddItem(context.Background(), AddItemCommand{
		Owner:     owner,
		ProductID: "prod-1",
		Quantity:  2,
		Variant:   Variant{Size: "M", Color: "black"},
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	line := cart.Items[0]
	if line.Name != "Canvas Tote" || line.UnitPrice != 45000 || line.StockAtAdd != 10 {
		t.Fatalf("unexpected snapshot: %+v", line)
	}
	if cart.TotalItems != 2 || cart.TotalPrice != 90000 {
		t.Fatalf("unexpected totals: items=%d price=%d", cart.TotalItems, cart.TotalPrice)
	}
}

func TestCartServiceAddItemCombinesQuantitiesForSameLine(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")
	variant := Variant{Size: "M", Color: "black"}

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 4, Variant: variant}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 3, Variant: variant})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 7 {
		t.Fatalf("expected one line with quantity 7, got %+v", cart.Items)
	}

	// The combined total is validated, not the increment alone: 7 + 4 > 10.
	_, err = fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 4, Variant: variant})
	stockErr, ok := AsInsufficientStock(err)
	if !ok {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if stockErr.Requested != 11 || stockErr.Available != 10 {
		t.Fatalf("unexpected stock error: %+v", stockErr)
	}

	// The rejected add must not change the cart.
	unchanged, err := fx.svc.GetOrCreate(context.Background(), owner)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if unchanged.Items[0].Quantity != 7 {
		t.Fatalf("expected quantity to stay 7, got %d", unchanged.Items[0].Quantity)
	}
}

func TestCartServiceAddItemDistinctVariantsGetDistinctLines(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 1, Variant: Variant{Size: "M"}}); err != nil {
		t.Fatalf("add M: %v", err)
	}
	cart, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 1, Variant: Variant{Size: "L"}})
	if err != nil {
		t.Fatalf("add L: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected two lines for distinct variants, got %d", len(cart.Items))
	}
}

func TestCartServiceAddItemProductNotFound(t *testing.T) {
	fx := newCartFixture(t)

	_, err := fx.svc.AddItem(context.Background(), AddItemCommand{
		Owner:     domain.UserOwner("user-1"),
		ProductID: "ghost",
		Quantity:  1,
	})
	if !errors.Is(err, ErrCartProductNotFound) {
		t.Fatalf("expected ErrCartProductNotFound, got %v", err)
	}
}

func TestCartServiceUpdateQuantityRemovesLineOnNonPositive(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	cart, err := fx.svc.UpdateQuantity(context.Background(), UpdateQuantityCommand{Owner: owner, ProductID: "prod-1", Quantity: 0})
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalItems != 0 || cart.TotalPrice != 0 {
		t.Fatalf("expected line removed and totals reset, got %+v", cart)
	}

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	cart, err = fx.svc.UpdateQuantity(context.Background(), UpdateQuantityCommand{Owner: owner, ProductID: "prod-1", Quantity: -3})
	if err != nil {
		t.Fatalf("update to negative: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected negative quantity to remove the line, got %+v", cart.Items)
	}
}

func TestCartServiceUpdateQuantityRevalidatesStock(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-2", Quantity: 1}); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	_, err := fx.svc.UpdateQuantity(context.Background(), UpdateQuantityCommand{Owner: owner, ProductID: "prod-2", Quantity: 5})
	stockErr, ok := AsInsufficientStock(err)
	if !ok {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if stockErr.ProductID != "prod-2" || stockErr.Available != 3 {
		t.Fatalf("unexpected stock error: %+v", stockErr)
	}

	cart, err := fx.svc.UpdateQuantity(context.Background(), UpdateQuantityCommand{Owner: owner, ProductID: "prod-2", Quantity: 3})
	if err != nil {
		t.Fatalf("update within stock: %v", err)
	}
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", cart.Items[0].Quantity)
	}
}

func TestCartServiceUpdateQuantityMissingLine(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")

	if _, err := fx.svc.GetOrCreate(context.Background(), owner); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if _, err := fx.svc.UpdateQuantity(context.Background(), UpdateQuantityCommand{Owner: owner, ProductID: "prod-1", Quantity: 1}); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}

	absent := domain.UserOwner("nobody")
	if _, err := fx.svc.UpdateQuantity(context.Background(), UpdateQuantityCommand{Owner: absent, ProductID: "prod-1", Quantity: 1}); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound for absent cart, got %v", err)
	}
}

func TestCartServiceRemoveItemAbsentLineIsNoop(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 1}); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	cart, err := fx.svc.RemoveItem(context.Background(), owner, "prod-2")
	if err != nil {
		t.Fatalf("remove absent line: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected the existing line untouched, got %+v", cart.Items)
	}

	cart, err = fx.svc.RemoveItem(context.Background(), owner, "prod-1")
	if err != nil {
		t.Fatalf("remove present line: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart.Items)
	}
}

func TestCartServiceClearResetsTotals(t *testing.T) {
	fx := newCartFixture(t)
	owner := domain.UserOwner("user-1")

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: owner, ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	cart, err := fx.svc.Clear(context.Background(), owner)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalItems != 0 || cart.TotalPrice != 0 {
		t.Fatalf("expected cleared cart, got %+v", cart)
	}
}

func TestCartServiceMergeSumsQuantitiesAndDeletesGuestCart(t *testing.T) {
	fx := newCartFixture(t)
	guest := domain.GuestOwner("session-1")
	user := domain.UserOwner("user-1")

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: guest, ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: user, ProductID: "prod-1", Quantity: 1}); err != nil {
		t.Fatalf("user add prod-1: %v", err)
	}
	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: user, ProductID: "prod-2", Quantity: 3}); err != nil {
		t.Fatalf("user add prod-2: %v", err)
	}

	merged, err := fx.svc.Merge(context.Background(), "user-1", "session-1")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged.Items) != 2 {
		t.Fatalf("expected two lines after merge, got %d", len(merged.Items))
	}
	if idx := merged.FindItemByProduct("prod-1"); idx < 0 || merged.Items[idx].Quantity != 3 {
		t.Fatalf("expected prod-1 quantity 3, got %+v", merged.Items)
	}
	if idx := merged.FindItemByProduct("prod-2"); idx < 0 || merged.Items[idx].Quantity != 3 {
		t.Fatalf("expected prod-2 quantity 3, got %+v", merged.Items)
	}

	if _, err := fx.carts.Get(context.Background(), guest); !repositories.IsNotFoundError(err) {
		t.Fatalf("expected guest cart to be deleted, got %v", err)
	}
}

func TestCartServiceMergeWithoutGuestCartReturnsUserCart(t *testing.T) {
	fx := newCartFixture(t)

	cart, err := fx.svc.Merge(context.Background(), "user-1", "session-ghost")
	if err != nil {
		t.Fatalf("merge without guest cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected an empty user cart, got %+v", cart.Items)
	}
}

func TestCartServiceMergeCopiesGuestSnapshotsVerbatim(t *testing.T) {
	fx := newCartFixture(t)
	guest := domain.GuestOwner("session-1")

	if _, err := fx.svc.AddItem(context.Background(), AddItemCommand{Owner: guest, ProductID: "prod-2", Quantity: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	merged, err := fx.svc.Merge(context.Background(), "user-1", "session-1")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	line := merged.Items[merged.FindItemByProduct("prod-2")]
	if line.UnitPrice != 25000 || line.StockAtAdd != 3 {
		t.Fatalf("expected guest snapshot carried over, got %+v", line)
	}
}
