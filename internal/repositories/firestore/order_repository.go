package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/loomcart/api/internal/domain"
	pfirestore "github.com/loomcart/api/internal/platform/firestore"
	"github.com/loomcart/api/internal/repositories"
)

const orderCollection = "orders"

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image,omitempty"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice int64  `firestore:"unitPrice"`
	Size      string `firestore:"size,omitempty"`
	Color     string `firestore:"color,omitempty"`
}

type shippingAddressDocument struct {
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
}

type paymentResultDocument struct {
	Reference    string `firestore:"reference"`
	Status       string `firestore:"status"`
	Amount       int64  `firestore:"amount,omitempty"`
	Currency     string `firestore:"currency,omitempty"`
	UpdateTime   string `firestore:"updateTime,omitempty"`
	EmailAddress string `firestore:"emailAddress,omitempty"`
}

type orderDocument struct {
	UserID          string                  `firestore:"userId"`
	Items           []orderItemDocument     `firestore:"orderItems"`
	ShippingAddress shippingAddressDocument `firestore:"shippingAddress"`
	PaymentMethod   string                  `firestore:"paymentMethod"`
	Status          string                  `firestore:"status"`
	PaymentResult   *paymentResultDocument  `firestore:"paymentResult,omitempty"`
	ItemsPrice      int64                   `firestore:"itemsPrice"`
	ShippingPrice   int64                   `firestore:"shippingPrice"`
	TaxPrice        int64                   `firestore:"taxPrice"`
	TotalPrice      int64                   `firestore:"totalPrice"`
	PaidAt          *time.Time              `firestore:"paidAt,omitempty"`
	DeliveredAt     *time.Time              `firestore:"deliveredAt,omitempty"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		UserID: strings.TrimSpace(order.UserID),
		ShippingAddress: shippingAddressDocument{
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
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
	doc.Items = make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
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
		doc.PaymentResult = &paymentResultDocument{
			Reference:    order.PaymentResult.Reference,
			Status:       order.PaymentResult.Status,
			Amount:       order.PaymentResult.Amount,
			Currency:     order.PaymentResult.Currency,
			UpdateTime:   order.PaymentResult.UpdateTime,
			EmailAddress: order.PaymentResult.EmailAddress,
		}
	}
	if order.PaidAt != nil {
		ts := order.PaidAt.UTC()
		doc.PaidAt = &ts
	}
	if order.DeliveredAt != nil {
		ts := order.DeliveredAt.UTC()
		doc.DeliveredAt = &ts
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	order := domain.Order{
		ID:     id,
		UserID: d.UserID,
		ShippingAddress: domain.ShippingAddress{
			Address:    d.ShippingAddress.Address,
			City:       d.ShippingAddress.City,
			PostalCode: d.ShippingAddress.PostalCode,
			Country:    d.ShippingAddress.Country,
		},
		PaymentMethod: d.PaymentMethod,
		Status:        domain.OrderStatus(d.Status),
		ItemsPrice:    d.ItemsPrice,
		ShippingPrice: d.ShippingPrice,
		TaxPrice:      d.TaxPrice,
		TotalPrice:    d.TotalPrice,
		PaidAt:        d.PaidAt,
		DeliveredAt:   d.DeliveredAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	order.Items = make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	if d.PaymentResult != nil {
		order.PaymentResult = &domain.PaymentResult{
			Reference:    d.PaymentResult.Reference,
			Status:       d.PaymentResult.Status,
			Amount:       d.PaymentResult.Amount,
			Currency:     d.PaymentResult.Currency,
			UpdateTime:   d.PaymentResult.UpdateTime,
			EmailAddress: d.PaymentResult.EmailAddress,
		}
	}
	return order
}

// OrderRepository persists order aggregates in Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

// Insert creates the order document, failing on duplicate identifiers.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	_, err = client.Collection(orderCollection).Doc(id).Create(ctx, newOrderDocument(order))
	return pfirestore.WrapError("orders.insert", err)
}

// FindByID fetches a single order by identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, repositories.NewNotFound("orders.find", errors.New("order id is required"))
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	snap, err := client.Collection(orderCollection).Doc(id).Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.find", err)
	}

	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("orders.find: decode %s: %w", id, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// Update overwrites the order document. The document must already exist.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return repositories.NewNotFound("orders.update", errors.New("order id is required"))
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	ref := client.Collection(orderCollection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	if _, err := ref.Set(ctx, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	return nil
}

// Delete removes the order document.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return repositories.NewNotFound("orders.delete", errors.New("order id is required"))
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	ref := client.Collection(orderCollection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

// ListByUser returns the user's orders ordered newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("order repository: user id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(orderCollection).
		Where("userId", "==", uid).
		OrderBy("createdAt", firestore.Desc)
	return r.collect(ctx, query, "orders.listByUser")
}

// ListAll returns every order ordered newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(orderCollection).OrderBy("createdAt", firestore.Desc)
	return r.collect(ctx, query, "orders.listAll")
}

func (r *OrderRepository) collect(ctx context.Context, query firestore.Query, op string) ([]domain.Order, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError(op, err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", op, snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}
	return orders, nil
}
