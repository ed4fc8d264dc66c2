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

const productCollection = "products"

type productDocument struct {
	Name      string    `firestore:"name"`
	Image     string    `firestore:"image,omitempty"`
	Price     int64     `firestore:"price"`
	Stock     int       `firestore:"countInStock"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:        id,
		Name:      d.Name,
		Image:     d.Image,
		Price:     d.Price,
		Stock:     d.Stock,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ProductRepository reads catalog products and performs stock mutations inside
// Firestore transactions so the check-and-decrement is a single atomic step.
type ProductRepository struct {
	provider *pfirestore.Provider
	clock    func() time.Time
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{provider: provider, clock: time.Now}, nil
}

// Insert creates the product document, failing when the identifier is already taken.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return errors.New("product repository: product id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	now := r.clock().UTC()
	doc := productDocument{
		Name:      strings.TrimSpace(product.Name),
		Image:     strings.TrimSpace(product.Image),
		Price:     product.Price,
		Stock:     product.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !product.CreatedAt.IsZero() {
		doc.CreatedAt = product.CreatedAt.UTC()
	}

	_, err = client.Collection(productCollection).Doc(id).Create(ctx, doc)
	return pfirestore.WrapError("products.insert", err)
}

// FindByID fetches a single product by identifier.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, repositories.NewNotFound("products.find", errors.New("product id is required"))
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	snap, err := client.Collection(productCollection).Doc(id).Get(ctx)
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("products.find", err)
	}

	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Product{}, fmt.Errorf("products.find: decode %s: %w", id, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// List returns the full catalog ordered by document identifier.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	iter := client.Collection(productCollection).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var products []domain.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("products.list", err)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("products.list: decode %s: %w", snap.Ref.ID, err)
		}
		products = append(products, doc.toDomain(snap.Ref.ID))
	}
	return products, nil
}

// ReserveStock decrements stock by quantity inside a transaction only when the current
// stock covers it. Insufficient stock surfaces as *repositories.StockError carrying the
// quantity available at the transactional read.
func (r *ProductRepository) ReserveStock(ctx context.Context, productID string, quantity int) error {
	id := strings.TrimSpace(productID)
	if id == "" {
		return repositories.NewNotFound("products.reserve", errors.New("product id is required"))
	}
	if quantity <= 0 {
		return fmt.Errorf("products.reserve: quantity must be positive, got %d", quantity)
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		ref := client.Collection(productCollection).Doc(id)

		snap, err := tx.Get(ref)
		if err != nil {
			if pfirestore.IsNotFound(err) {
				return repositories.NewNotFound("products.reserve", fmt.Errorf("product %s not found", id))
			}
			return err
		}

		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("products.reserve: decode %s: %w", id, err)
		}
		if doc.Stock < quantity {
			return &repositories.StockError{ProductID: id, Requested: quantity, Available: doc.Stock}
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "countInStock", Value: doc.Stock - quantity},
			{Path: "updatedAt", Value: r.clock().UTC()},
		})
	})
	return pfirestore.WrapError("products.reserve", err)
}

// RestoreStock increments stock by quantity inside a transaction.
func (r *ProductRepository) RestoreStock(ctx context.Context, productID string, quantity int) error {
	id := strings.TrimSpace(productID)
	if id == "" {
		return repositories.NewNotFound("products.restore", errors.New("product id is required"))
	}
	if quantity <= 0 {
		return fmt.Errorf("products.restore: quantity must be positive, got %d", quantity)
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		ref := client.Collection(productCollection).Doc(id)

		snap, err := tx.Get(ref)
		if err != nil {
			if pfirestore.IsNotFound(err) {
				return repositories.NewNotFound("products.restore", fmt.Errorf("product %s not found", id))
			}
			return err
		}

		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("products.restore: decode %s: %w", id, err)
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "countInStock", Value: doc.Stock + quantity},
			{Path: "updatedAt", Value: r.clock().UTC()},
		})
	})
	return pfirestore.WrapError("products.restore", err)
}
