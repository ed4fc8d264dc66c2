package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/loomcart/api/internal/domain"
	"github.com/loomcart/api/internal/platform/auth"
	"github.com/loomcart/api/internal/services"
)

type stubCartService struct {
	getOrCreateFn    func(ctx context.Context, owner services.CartOwner) (services.Cart, error)
	addItemFn        func(ctx context.Context, cmd services.AddItemCommand) (services.Cart, error)
	updateQuantityFn func(ctx context.Context, cmd services.UpdateQuantityCommand) (services.Cart, error)
	removeItemFn     func(ctx context.Context, owner services.CartOwner, productID string) (services.Cart, error)
	clearFn          func(ctx context.Context, owner services.CartOwner) (services.Cart, error)
	mergeFn          func(ctx context.Context, userID, guestSessionID string) (services.Cart, error)
}

func (s *stubCartService) GetOrCreate(ctx context.Context, owner services.CartOwner) (services.Cart, error) {
	if s.getOrCreateFn != nil {
		return s.getOrCreateFn(ctx, owner)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddItemCommand) (services.Cart, error) {
	if s.addItemFn != nil {
		return s.addItemFn(ctx, cmd)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cmd services.UpdateQuantityCommand) (services.Cart, error) {
	if s.updateQuantityFn != nil {
		return s.updateQuantityFn(ctx, cmd)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, owner services.CartOwner, productID string) (services.Cart, error) {
	if s.removeItemFn != nil {
		return s.removeItemFn(ctx, owner, productID)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) Clear(ctx context.Context, owner services.CartOwner) (services.Cart, error) {
	if s.clearFn != nil {
		return s.clearFn(ctx, owner)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) Merge(ctx context.Context, userID, guestSessionID string) (services.Cart, error) {
	if s.mergeFn != nil {
		return s.mergeFn(ctx, userID, guestSessionID)
	}
	return services.Cart{}, nil
}

func newCartTestServer(svc services.CartService) http.Handler {
	router := chi.NewRouter()
	router.Route("/cart", NewCartHandlers(svc).Routes)
	return router
}

func asUser(req *http.Request, uid string) *http.Request {
	identity := &auth.Identity{UID: uid, Role: auth.RoleUser}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func withSession(req *http.Request, sessionID string) *http.Request {
	return req.WithContext(auth.WithSessionID(req.Context(), sessionID))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestGetCartReturnsOwnerCart(t *testing.T) {
	var gotOwner services.CartOwner
	svc := &stubCartService{
		getOrCreateFn: func(_ context.Context, owner services.CartOwner) (services.Cart, error) {
			gotOwner = owner
			return services.Cart{
				ID: "cart-1",
				Items: []services.CartItem{{
					ProductID: "prod-1",
					Name:      "Canvas Tote",
					UnitPrice: 45000,
					Quantity:  2,
					AddedAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
				}},
				TotalItems: 2,
				TotalPrice: 90000,
			}, nil
		},
	}
	server := newCartTestServer(svc)

	req := asUser(httptest.NewRequest(http.MethodGet, "/cart", nil), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotOwner != domain.UserOwner("user-1") {
		t.Fatalf("expected user owner, got %+v", gotOwner)
	}
	body := decodeBody(t, rec)
	if body["id"] != "cart-1" || body["totalPrice"] != float64(90000) {
		t.Fatalf("unexpected payload: %v", body)
	}
}

func TestGetCartUsesGuestSession(t *testing.T) {
	var gotOwner services.CartOwner
	svc := &stubCartService{
		getOrCreateFn: func(_ context.Context, owner services.CartOwner) (services.Cart, error) {
			gotOwner = owner
			return services.Cart{ID: "cart-g"}, nil
		},
	}
	server := newCartTestServer(svc)

	req := withSession(httptest.NewRequest(http.MethodGet, "/cart", nil), "sess-42")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotOwner != domain.GuestOwner("sess-42") {
		t.Fatalf("expected guest owner, got %+v", gotOwner)
	}
}

func TestGetCartWithoutIdentityOrSession(t *testing.T) {
	server := newCartTestServer(&stubCartService{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "identity_required" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestAddToCartPassesCommand(t *testing.T) {
	var gotCmd services.AddItemCommand
	svc := &stubCartService{
		addItemFn: func(_ context.Context, cmd services.AddItemCommand) (services.Cart, error) {
			gotCmd = cmd
			return services.Cart{ID: "cart-1"}, nil
		},
	}
	server := newCartTestServer(svc)

	payload := `{"productId":"prod-1","quantity":2,"size":"M","color":"navy"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(payload)), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCmd.ProductID != "prod-1" || gotCmd.Quantity != 2 {
		t.Fatalf("unexpected command: %+v", gotCmd)
	}
	if gotCmd.Variant.Size != "M" || gotCmd.Variant.Color != "navy" {
		t.Fatalf("unexpected variant: %+v", gotCmd.Variant)
	}
}

func TestAddToCartInsufficientStock(t *testing.T) {
	svc := &stubCartService{
		addItemFn: func(_ context.Context, _ services.AddItemCommand) (services.Cart, error) {
			return services.Cart{}, &services.InsufficientStockError{ProductID: "prod-1", Requested: 5, Available: 3}
		},
	}
	server := newCartTestServer(svc)

	req := asUser(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"prod-1","quantity":5}`)), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "insufficient_stock" {
		t.Fatalf("unexpected error code: %v", body)
	}
	if body["productId"] != "prod-1" || body["requested"] != float64(5) || body["available"] != float64(3) {
		t.Fatalf("expected stock details in body, got %v", body)
	}
}

func TestAddToCartUnknownProduct(t *testing.T) {
	svc := &stubCartService{
		addItemFn: func(_ context.Context, _ services.AddItemCommand) (services.Cart, error) {
			return services.Cart{}, services.ErrCartProductNotFound
		},
	}
	server := newCartTestServer(svc)

	req := asUser(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"ghost","quantity":1}`)), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "product_not_found" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestAddToCartRejectsMalformedBody(t *testing.T) {
	server := newCartTestServer(&stubCartService{})

	req := asUser(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader("{not json")), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateCartItemMissingLine(t *testing.T) {
	svc := &stubCartService{
		updateQuantityFn: func(_ context.Context, _ services.UpdateQuantityCommand) (services.Cart, error) {
			return services.Cart{}, services.ErrCartItemNotFound
		},
	}
	server := newCartTestServer(svc)

	req := asUser(httptest.NewRequest(http.MethodPatch, "/cart/items/prod-1", strings.NewReader(`{"quantity":3}`)), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "item_not_in_cart" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestUpdateCartItemRequiresQuantity(t *testing.T) {
	server := newCartTestServer(&stubCartService{})

	req := asUser(httptest.NewRequest(http.MethodPatch, "/cart/items/prod-1", strings.NewReader(`{}`)), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRemoveFromCartPassesProductID(t *testing.T) {
	var gotProductID string
	svc := &stubCartService{
		removeItemFn: func(_ context.Context, _ services.CartOwner, productID string) (services.Cart, error) {
			gotProductID = productID
			return services.Cart{ID: "cart-1"}, nil
		},
	}
	server := newCartTestServer(svc)

	req := asUser(httptest.NewRequest(http.MethodDelete, "/cart/items/prod-9", nil), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotProductID != "prod-9" {
		t.Fatalf("expected prod-9, got %s", gotProductID)
	}
}

func TestMergeCartsRequiresAuthenticatedUser(t *testing.T) {
	server := newCartTestServer(&stubCartService{})

	req := withSession(httptest.NewRequest(http.MethodPost, "/cart/merge", nil), "sess-42")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "unauthenticated" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestMergeCartsUsesSessionFromContext(t *testing.T) {
	var gotUser, gotSession string
	svc := &stubCartService{
		mergeFn: func(_ context.Context, userID, guestSessionID string) (services.Cart, error) {
			gotUser, gotSession = userID, guestSessionID
			return services.Cart{ID: "cart-1"}, nil
		},
	}
	server := newCartTestServer(svc)

	req := withSession(asUser(httptest.NewRequest(http.MethodPost, "/cart/merge", nil), "user-1"), "sess-42")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotUser != "user-1" || gotSession != "sess-42" {
		t.Fatalf("expected merge(user-1, sess-42), got (%s, %s)", gotUser, gotSession)
	}
}

func TestMergeCartsBodySessionOverridesHeader(t *testing.T) {
	var gotSession string
	svc := &stubCartService{
		mergeFn: func(_ context.Context, _ string, guestSessionID string) (services.Cart, error) {
			gotSession = guestSessionID
			return services.Cart{ID: "cart-1"}, nil
		},
	}
	server := newCartTestServer(svc)

	req := withSession(asUser(httptest.NewRequest(http.MethodPost, "/cart/merge", strings.NewReader(`{"sessionId":"sess-body"}`)), "user-1"), "sess-header")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotSession != "sess-body" {
		t.Fatalf("expected body session to win, got %s", gotSession)
	}
}

func TestMergeCartsWithoutSession(t *testing.T) {
	server := newCartTestServer(&stubCartService{})

	req := asUser(httptest.NewRequest(http.MethodPost, "/cart/merge", nil), "user-1")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
