package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loomcart/api/internal/platform/auth"
	"github.com/loomcart/api/internal/platform/httpx"
	"github.com/loomcart/api/internal/services"
)

const maxOrderBodySize = 64 * 1024

// OrderHandlers exposes order placement and lifecycle endpoints. Every route requires
// an authenticated caller; ownership and admin rules are evaluated through the
// authorisation gate before the service operation runs.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs the order route handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.getUserOrders)
	r.Get("/all", h.getAllOrders)
	r.Get("/{orderID}", h.getOrderByID)
	r.Post("/{orderID}/pay", h.updateOrderToPaid)
	r.Post("/{orderID}/deliver", h.updateOrderToDelivered)
	r.Delete("/{orderID}", h.cancelOrder)
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type shippingAddressRequest struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type createOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ItemsPrice      int64                  `json:"itemsPrice"`
	ShippingPrice   int64                  `json:"shippingPrice"`
	TaxPrice        int64                  `json:"taxPrice"`
	TotalPrice      int64                  `json:"totalPrice"`
}

type payOrderRequest struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	UpdateTime   string `json:"updateTime"`
	EmailAddress string `json:"emailAddress"`
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type paymentResultPayload struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount,omitempty"`
	Currency     string `json:"currency,omitempty"`
	UpdateTime   string `json:"updateTime,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type orderPayload struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"userId"`
	Items           []orderItemPayload     `json:"orderItems"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Status          string                 `json:"status"`
	PaymentResult   *paymentResultPayload  `json:"paymentResult,omitempty"`
	ItemsPrice      int64                  `json:"itemsPrice"`
	ShippingPrice   int64                  `json:"shippingPrice"`
	TaxPrice        int64                  `json:"taxPrice"`
	TotalPrice      int64                  `json:"totalPrice"`
	PaidAt          string                 `json:"paidAt,omitempty"`
	DeliveredAt     string                 `json:"deliveredAt,omitempty"`
	CreatedAt       string                 `json:"createdAt,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:     order.ID,
		UserID: order.UserID,
		Items:  make([]orderItemPayload, 0, len(order.Items)),
		ShippingAddress: shippingAddressRequest{
			Address:    order.ShippingAddress.Address,
			City:       order.ShippingAddress.City,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
		},
		PaymentMethod: order.PaymentMethod,
		Status:        string(order.Status),
		ItemsPrice:    order.ItemsPrice,
		ShippingPrice: order.ShippingPrice,
		TaxPrice:      order.TaxPrice,
		TotalPrice:    order.TotalPrice,
		PaidAt:        formatTimePtr(order.PaidAt),
		DeliveredAt:   formatTimePtr(order.DeliveredAt),
		CreatedAt:     formatTime(order.CreatedAt),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	if order.PaymentResult != nil {
		payload.PaymentResult = &paymentResultPayload{
			Reference:    order.PaymentResult.Reference,
			Status:       order.PaymentResult.Status,
			Amount:       order.PaymentResult.Amount,
			Currency:     order.PaymentResult.Currency,
			UpdateTime:   order.PaymentResult.UpdateTime,
			EmailAddress: order.PaymentResult.EmailAddress,
		}
	}
	return payload
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if decision := auth.Authorize(identity, auth.ActionOrderCreate, auth.Resource{Type: "order"}); !decision.Allowed {
		writeForbidden(ctx, w, decision.Reason)
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req createOrderRequest
	if err := decodeJSONBody(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.PlaceOrderCommand{
		UserID: identity.UID,
		ShippingAddress: services.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
		Prices: services.PriceBreakdown{
			ItemsPrice:    req.ItemsPrice,
			ShippingPrice: req.ShippingPrice,
			TaxPrice:      req.TaxPrice,
			TotalPrice:    req.TotalPrice,
		},
	}
	for _, item := range req.OrderItems {
		cmd.Items = append(cmd.Items, services.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	order, err := h.orders.Place(ctx, cmd)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildOrderPayload(order))
}

func (h *OrderHandlers) getUserOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if decision := auth.Authorize(identity, auth.ActionOrderListOwn, auth.Resource{Type: "order"}); !decision.Allowed {
		writeForbidden(ctx, w, decision.Reason)
		return
	}

	orders, err := h.orders.ListByUser(ctx, identity.UID)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListPayload(orders))
}

func (h *OrderHandlers) getAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if decision := auth.Authorize(identity, auth.ActionOrderListAll, auth.Resource{Type: "order"}); !decision.Allowed {
		writeForbidden(ctx, w, decision.Reason)
		return
	}

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListPayload(orders))
}

func (h *OrderHandlers) getOrderByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	if decision := auth.Authorize(identity, auth.ActionOrderRead, auth.Resource{Type: "order", OwnerID: order.UserID}); !decision.Allowed {
		writeForbidden(ctx, w, decision.Reason)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) updateOrderToPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	if decision := auth.Authorize(identity, auth.ActionOrderMarkPaid, auth.Resource{Type: "order", OwnerID: order.UserID}); !decision.Allowed {
		writeForbidden(ctx, w, decision.Reason)
		return
	}

	var req payOrderRequest
	if body, err := readLimitedBody(r, maxOrderBodySize); err == nil {
		if err := decodeJSONBody(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
	}

	updated, err := h.orders.MarkPaid(ctx, services.MarkPaidCommand{
		OrderID:     order.ID,
		CallerEmail: identity.Email,
		Result: services.PaymentResult{
			Reference:    req.Reference,
			Status:       req.Status,
			Amount:       req.Amount,
			Currency:     req.Currency,
			UpdateTime:   req.UpdateTime,
			EmailAddress: req.EmailAddress,
		},
	})
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(updated))
}

func (h *OrderHandlers) updateOrderToDelivered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if decision := auth.Authorize(identity, auth.ActionOrderMarkDelivered, auth.Resource{Type: "order"}); !decision.Allowed {
		writeForbidden(ctx, w, decision.Reason)
		return
	}

	updated, err := h.orders.MarkDelivered(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(updated))
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	if decision := auth.Authorize(identity, auth.ActionOrderCancel, auth.Resource{Type: "order", OwnerID: order.UserID}); !decision.Allowed {
		writeForbidden(ctx, w, decision.Reason)
		return
	}

	if err := h.orders.Cancel(ctx, order.ID); err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func buildOrderListPayload(orders []services.Order) []orderPayload {
	payloads := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, buildOrderPayload(order))
	}
	return payloads
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeForbidden(ctx context.Context, w http.ResponseWriter, reason string) {
	if reason == "" {
		reason = "access denied"
	}
	httpx.WriteError(ctx, w, httpx.NewError("forbidden", reason, http.StatusForbidden))
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
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
	case errors.Is(err, services.ErrOrderEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("empty_order", "order has no items", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid order request", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderAlreadyPaid):
		httpx.WriteError(ctx, w, httpx.NewError("already_paid", "order has already been paid", http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotPaid):
		httpx.WriteError(ctx, w, httpx.NewError("not_paid", "order has not been paid", http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order state does not allow this transition", http.StatusConflict))
	case errors.Is(err, services.ErrOrderPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment authorization failed", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
	}
}
