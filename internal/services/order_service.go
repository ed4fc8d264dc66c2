package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/loomcart/api/internal/domain"
	"github.com/loomcart/api/internal/payments"
	"github.com/loomcart/api/internal/repositories"
)

var (
	errOrderRepositoryRequired = errors.New("order service: order repository is required")
	errOrderInventoryRequired  = errors.New("order service: inventory service is required")
	errOrderClockRequired      = errors.New("order service: clock is required")
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderEmpty indicates an order placement with no items.
var ErrOrderEmpty = errors.New("order service: order has no items")

// ErrOrderNotFound indicates the requested order does not exist.
var ErrOrderNotFound = errors.New("order service: order not found")

// ErrOrderAlreadyPaid indicates a cancellation attempt on an order at or beyond payment.
var ErrOrderAlreadyPaid = errors.New("order service: order already paid")

// ErrOrderNotPaid indicates a delivery transition on an order that has not been paid.
var ErrOrderNotPaid = errors.New("order service: order not paid")

// ErrOrderConflict indicates the order could not be updated due to concurrent modifications
// or an invalid lifecycle transition.
var ErrOrderConflict = errors.New("order service: conflict")

// ErrOrderUnavailable indicates the order service cannot fulfil the request due to missing dependencies or backend issues.
var ErrOrderUnavailable = errors.New("order service: unavailable")

// ErrOrderPaymentFailed indicates the payment authority rejected the authorization.
var ErrOrderPaymentFailed = errors.New("order service: payment authorization failed")

// OrderServiceDeps wires the repositories and collaborators for order operations.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Inventory   InventoryService
	Carts       CartService
	Payments    payments.Provider
	Currency    string
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type orderService struct {
	orders    repositories.OrderRepository
	inventory InventoryService
	carts     CartService
	payments  payments.Provider
	currency  string
	newID     func() string
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.Inventory == nil {
		return nil, errOrderInventoryRequired
	}
	if deps.Clock == nil {
		return nil, errOrderClockRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "INR"
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &orderService{
		orders:    deps.Orders,
		inventory: deps.Inventory,
		carts:     deps.Carts,
		payments:  deps.Payments,
		currency:  currency,
		newID:     idGen,
		now:       func() time.Time { return deps.Clock().UTC() },
		logger:    logger,
	}, nil
}

// Place creates a PENDING order from caller-supplied item snapshots. Stock is validated
// for every line first, then reserved line by line; a late reservation failure rolls
// back the lines already reserved for this order and no order is created. Prices are
// stored exactly as supplied, with no server-side recomputation.
func (s *orderService) Place(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, ErrOrderInvalidInput
	}
	if len(cmd.Items) == 0 {
		return Order{}, ErrOrderEmpty
	}
	for _, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			return Order{}, ErrOrderInvalidInput
		}
	}

	// Validate-all pass. Advisory only; the reserve pass below is authoritative and a
	// concurrent order can still win the race in between.
	for _, item := range cmd.Items {
		ok, available, err := s.inventory.CheckAvailable(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return Order{}, s.translateInventoryError(err)
		}
		if !ok {
			return Order{}, &InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity, Available: available}
		}
	}

	// Reserve-all pass, sequenced so a failure identifies exactly the lines to revert.
	reserved := make([]OrderItem, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		if err := s.inventory.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			s.rollbackReservations(ctx, reserved)
			return Order{}, s.translateInventoryError(err)
		}
		reserved = append(reserved, item)
	}

	now := s.now()
	order := Order{
		ID:              s.newID(),
		UserID:          userID,
		Items:           cloneOrderItems(cmd.Items),
		ShippingAddress: cmd.ShippingAddress,
		PaymentMethod:   strings.TrimSpace(cmd.PaymentMethod),
		Status:          domain.OrderStatusPending,
		ItemsPrice:      cmd.Prices.ItemsPrice,
		ShippingPrice:   cmd.Prices.ShippingPrice,
		TaxPrice:        cmd.Prices.TaxPrice,
		TotalPrice:      cmd.Prices.TotalPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if s.payments != nil && cmd.Prices.TotalPrice > 0 {
		auth, err := s.payments.Authorize(ctx, payments.AuthorizeRequest{
			Amount:   cmd.Prices.TotalPrice,
			Currency: s.currency,
			Metadata: map[string]string{
				"orderId": order.ID,
				"userId":  userID,
			},
		})
		if err != nil {
			s.rollbackReservations(ctx, reserved)
			s.logger(ctx, "order.payment_authorization_failed", map[string]any{
				"orderID": order.ID,
				"error":   err.Error(),
			})
			return Order{}, ErrOrderPaymentFailed
		}
		order.PaymentResult = &domain.PaymentResult{
			Reference: auth.Reference,
			Status:    string(auth.Status),
			Amount:    cmd.Prices.TotalPrice,
			Currency:  s.currency,
		}
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		s.rollbackReservations(ctx, reserved)
		return Order{}, s.translateRepoError(err)
	}

	if s.carts != nil {
		if _, err := s.carts.Clear(ctx, domain.UserOwner(userID)); err != nil && !errors.Is(err, ErrCartNotFound) {
			s.logger(ctx, "order.cart_clear_failed", map[string]any{
				"orderID": order.ID,
				"userID":  userID,
				"error":   err.Error(),
			})
		}
	}

	s.logger(ctx, "order.placed", map[string]any{
		"orderID": order.ID,
		"userID":  userID,
		"lines":   len(order.Items),
		"total":   order.TotalPrice,
	})
	return order.Clone(), nil
}

// MarkPaid confirms payment: sets PAID, stamps paidAt once, and overlays the supplied
// payment result over the existing one field by field. Repeating the call with the same
// result is a no-op in effect; a conflicting result overwrites without a guard.
func (s *orderService) MarkPaid(ctx context.Context, cmd MarkPaidCommand) (Order, error) {
	order, err := s.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusDelivered {
		return Order{}, ErrOrderConflict
	}

	now := s.now()
	order.Status = domain.OrderStatusPaid
	if order.PaidAt == nil {
		order.PaidAt = &now
	}
	order.PaymentResult = overlayPaymentResult(order.PaymentResult, cmd.Result, strings.TrimSpace(cmd.CallerEmail))
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	s.logger(ctx, "order.paid", map[string]any{
		"orderID":   order.ID,
		"reference": order.PaymentResult.Reference,
	})
	return order.Clone(), nil
}

// MarkDelivered completes a paid order.
func (s *orderService) MarkDelivered(ctx context.Context, orderID string) (Order, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !order.Status.AtOrBeyondPaid() {
		return Order{}, ErrOrderNotPaid
	}
	if !order.Status.CanTransition(domain.OrderStatusDelivered) {
		return Order{}, ErrOrderConflict
	}

	now := s.now()
	order.Status = domain.OrderStatusDelivered
	order.DeliveredAt = &now
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	s.logger(ctx, "order.delivered", map[string]any{"orderID": order.ID})
	return order.Clone(), nil
}

// Cancel restores stock for every line best-effort, then deletes the order. Orders at
// or beyond payment cannot be cancelled through this path.
func (s *orderService) Cancel(ctx context.Context, orderID string) error {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.AtOrBeyondPaid() {
		return ErrOrderAlreadyPaid
	}

	// A line that fails to restore, e.g. because the product was deleted, must not
	// block the remaining lines or the cancellation itself.
	for _, item := range order.Items {
		if err := s.inventory.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger(ctx, "order.cancel_restore_failed", map[string]any{
				"orderID":   order.ID,
				"productID": item.ProductID,
				"quantity":  item.Quantity,
				"error":     err.Error(),
			})
		}
	}

	if err := s.orders.Delete(ctx, order.ID); err != nil {
		return s.translateRepoError(err)
	}

	s.logger(ctx, "order.cancelled", map[string]any{"orderID": order.ID})
	return nil
}

// GetByID fetches a single order.
func (s *orderService) GetByID(ctx context.Context, orderID string) (Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, ErrOrderInvalidInput
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	return order, nil
}

// ListByUser returns the user's orders newest first.
func (s *orderService) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrOrderInvalidInput
	}

	orders, err := s.orders.ListByUser(ctx, uid)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return orders, nil
}

// ListAll returns every order newest first.
func (s *orderService) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return orders, nil
}

func (s *orderService) rollbackReservations(ctx context.Context, reserved []OrderItem) {
	for _, item := range reserved {
		if err := s.inventory.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger(ctx, "order.reservation_rollback_failed", map[string]any{
				"productID": item.ProductID,
				"quantity":  item.Quantity,
				"error":     err.Error(),
			})
		}
	}
}

func (s *orderService) translateInventoryError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsInsufficientStock(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrInventoryNotFound):
		return ErrOrderNotFound
	case errors.Is(err, ErrInventoryInvalidInput):
		return ErrOrderInvalidInput
	}
	return ErrOrderUnavailable
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsConflict():
			return ErrOrderConflict
		case repoErr.IsUnavailable():
			return ErrOrderUnavailable
		}
	}
	return ErrOrderUnavailable
}

func overlayPaymentResult(existing *domain.PaymentResult, supplied PaymentResult, callerEmail string) *domain.PaymentResult {
	merged := domain.PaymentResult{}
	if existing != nil {
		merged = *existing
	}
	if v := strings.TrimSpace(supplied.Reference); v != "" {
		merged.Reference = v
	}
	if v := strings.TrimSpace(supplied.Status); v != "" {
		merged.Status = v
	}
	if supplied.Amount > 0 {
		merged.Amount = supplied.Amount
	}
	if v := strings.TrimSpace(supplied.Currency); v != "" {
		merged.Currency = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(supplied.UpdateTime); v != "" {
		merged.UpdateTime = v
	}
	if v := strings.TrimSpace(supplied.EmailAddress); v != "" {
		merged.EmailAddress = v
	} else if merged.EmailAddress == "" {
		merged.EmailAddress = callerEmail
	}
	return &merged
}

func cloneOrderItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].ProductID = strings.TrimSpace(out[i].ProductID)
	}
	return out
}
