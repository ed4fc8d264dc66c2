package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loomcart/api/internal/platform/auth"
	"github.com/loomcart/api/internal/platform/httpx"
	"github.com/loomcart/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes cart endpoints for authenticated users and anonymous sessions.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs the cart route handlers.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addToCart)
	r.Patch("/items/{productID}", h.updateCartItem)
	r.Delete("/items/{productID}", h.removeFromCart)
	r.Post("/merge", h.mergeCarts)
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

type mergeCartsRequest struct {
	SessionID string `json:"sessionId"`
}

type cartItemPayload struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
	UnitPrice  int64  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
	StockAtAdd int    `json:"stockAtAdd"`
	Size       string `json:"size,omitempty"`
	Color      string `json:"color,omitempty"`
	AddedAt    string `json:"addedAt,omitempty"`
}

type cartPayload struct {
	ID         string            `json:"id"`
	Items      []cartItemPayload `json:"items"`
	TotalItems int               `json:"totalItems"`
	TotalPrice int64             `json:"totalPrice"`
	ExpiresAt  string            `json:"expiresAt,omitempty"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		ID:         cart.ID,
		Items:      make([]cartItemPayload, 0, len(cart.Items)),
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
		ExpiresAt:  formatTime(cart.ExpiresAt),
		UpdatedAt:  formatTime(cart.UpdatedAt),
	}
	for _, item := range cart.Items {
		payload.Items = append(payload.Items, cartItemPayload{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Image:      item.Image,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			StockAtAdd: item.StockAtAdd,
			Size:       item.Variant.Size,
			Color:      item.Variant.Color,
			AddedAt:    formatTime(item.AddedAt),
		})
	}
	return payload
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := cartOwnerFromContext(r)
	if !ok {
		writeIdentityRequired(ctx, w)
		return
	}

	cart, err := h.carts.GetOrCreate(ctx, owner)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) addToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := cartOwnerFromContext(r)
	if !ok {
		writeIdentityRequired(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req addToCartRequest
	if err := decodeJSONBody(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddItemCommand{
		Owner:     owner,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Variant:   services.Variant{Size: req.Size, Color: req.Color},
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) updateCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := cartOwnerFromContext(r)
	if !ok {
		writeIdentityRequired(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateCartItemRequest
	if err := decodeJSONBody(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, services.UpdateQuantityCommand{
		Owner:     owner,
		ProductID: chi.URLParam(r, "productID"),
		Quantity:  *req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) removeFromCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := cartOwnerFromContext(r)
	if !ok {
		writeIdentityRequired(ctx, w)
		return
	}

	cart, err := h.carts.RemoveItem(ctx, owner, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := cartOwnerFromContext(r)
	if !ok {
		writeIdentityRequired(ctx, w)
		return
	}

	cart, err := h.carts.Clear(ctx, owner)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) mergeCarts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	if decision := auth.Authorize(identity, auth.ActionCartMerge, auth.Resource{Type: "cart"}); !decision.Allowed {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", decision.Reason, http.StatusForbidden))
		return
	}

	sessionID, _ := auth.SessionIDFromContext(ctx)
	if body, err := readLimitedBody(r, maxCartBodySize); err == nil {
		var req mergeCartsRequest
		if err := decodeJSONBody(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		if strings.TrimSpace(req.SessionID) != "" {
			sessionID = strings.TrimSpace(req.SessionID)
		}
	}
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "guest session id is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.Merge(ctx, identity.UID, sessionID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if stockErr, ok := services.AsInsufficientStock(err); ok {
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", stockErr.Error(), http.StatusConflict).
			WithDetails(map[string]any{
				"productId": stockErr.ProductID,
				"requested": stockErr.Requested,
				"available": stockErr.Available,
			}))
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid cart request", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_in_cart", "item not in cart", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart was modified concurrently", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	}
}

func writeIdentityRequired(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("identity_required", "an authenticated user or a session id is required", http.StatusUnauthorized))
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}
