package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/loomcart/api/internal/domain"
	pfirestore "github.com/loomcart/api/internal/platform/firestore"
	"github.com/loomcart/api/internal/repositories"
)

const cartCollection = "carts"

type cartItemDocument struct {
	ProductID  string    `firestore:"productId"`
	Name       string    `firestore:"name"`
	Image      string    `firestore:"image,omitempty"`
	UnitPrice  int64     `firestore:"unitPrice"`
	Quantity   int       `firestore:"quantity"`
	StockAtAdd int       `firestore:"stockAtAdd"`
	Size       string    `firestore:"size,omitempty"`
	Color      string    `firestore:"color,omitempty"`
	AddedAt    time.Time `firestore:"addedAt"`
}

type cartDocument struct {
	OwnerKind  string             `firestore:"ownerKind"`
	UserID     string             `firestore:"userId,omitempty"`
	SessionID  string             `firestore:"sessionId,omitempty"`
	Items      []cartItemDocument `firestore:"items"`
	TotalItems int                `firestore:"totalItems"`
	TotalPrice int64              `firestore:"totalPrice"`
	ExpiresAt  time.Time          `firestore:"expiresAt"`
	CreatedAt  time.Time          `firestore:"createdAt"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

func newCartDocument(cart domain.Cart) cartDocument {
	doc := cartDocument{
		OwnerKind:  string(cart.Owner.Kind),
		UserID:     strings.TrimSpace(cart.Owner.UserID),
		SessionID:  strings.TrimSpace(cart.Owner.SessionID),
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
		ExpiresAt:  cart.ExpiresAt.UTC(),
		CreatedAt:  cart.CreatedAt.UTC(),
		UpdatedAt:  cart.UpdatedAt.UTC(),
	}
	doc.Items = make([]cartItemDocument, 0, len(cart.Items))
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Image:      item.Image,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			StockAtAdd: item.StockAtAdd,
			Size:       item.Variant.Size,
			Color:      item.Variant.Color,
			AddedAt:    item.AddedAt.UTC(),
		})
	}
	return doc
}

func (d cartDocument) toDomain(id string) domain.Cart {
	cart := domain.Cart{
		ID:         id,
		TotalItems: d.TotalItems,
		TotalPrice: d.TotalPrice,
		ExpiresAt:  d.ExpiresAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	switch domain.OwnerKind(d.OwnerKind) {
	case domain.OwnerKindUser:
		cart.Owner = domain.UserOwner(d.UserID)
	case domain.OwnerKindGuest:
		cart.Owner = domain.GuestOwner(d.SessionID)
	}
	cart.Items = make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Image:      item.Image,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			StockAtAdd: item.StockAtAdd,
			Variant:    domain.Variant{Size: item.Size, Color: item.Color},
			AddedAt:    item.AddedAt,
		})
	}
	return cart
}

// CartRepository persists cart documents keyed by owner. Expired documents are treated
// as absent on read and removed opportunistically.
type CartRepository struct {
	provider *pfirestore.Provider
	clock    func() time.Time
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{provider: provider, clock: time.Now}, nil
}

// Get fetches the owner's cart. An expired cart is deleted and reported as not found.
func (r *CartRepository) Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return domain.Cart{}, err
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Cart{}, err
	}

	ref := client.Collection(cartCollection).Doc(owner.Key())
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.get", err)
	}

	var doc cartDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Cart{}, fmt.Errorf("carts.get: decode %s: %w", owner.Key(), err)
	}

	if !r.clock().UTC().Before(doc.ExpiresAt) {
		_, _ = ref.Delete(ctx)
		return domain.Cart{}, repositories.NewNotFound("carts.get", fmt.Errorf("cart %s expired", owner.Key()))
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// Upsert writes the cart document, restarting the retention window from now.
func (r *CartRepository) Upsert(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if err := cart.Owner.Validate(); err != nil {
		return domain.Cart{}, err
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Cart{}, err
	}

	now := r.clock().UTC()
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(domain.CartRetention)
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.ID = cart.Owner.Key()

	doc := newCartDocument(cart)
	if _, err := client.Collection(cartCollection).Doc(cart.ID).Set(ctx, doc); err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.upsert", err)
	}
	return doc.toDomain(cart.ID), nil
}

// Delete removes the owner's cart document. Deleting an absent cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, owner domain.CartOwner) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	if _, err := client.Collection(cartCollection).Doc(owner.Key()).Delete(ctx); err != nil {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}
