package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/loomcart/api/internal/domain"
	"github.com/loomcart/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: cart repository is required")
	errCartProductsRequired   = errors.New("cart service: product repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input, including an identity
// that is neither a valid user nor a valid session.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the requested cart does not exist.
var ErrCartNotFound = errors.New("cart service: cart not found")

// ErrCartProductNotFound indicates the referenced product does not exist in the catalog.
var ErrCartProductNotFound = errors.New("cart service: product not found")

// ErrCartItemNotFound indicates the cart holds no line for the referenced product.
var ErrCartItemNotFound = errors.New("cart service: item not in cart")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// CartServiceDeps wires the repository dependencies for cart operations.
type CartServiceDeps struct {
	Carts       repositories.CartRepository
	Products    repositories.ProductRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartProductsRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// GetOrCreate loads the owner's cart, creating an empty one when absent. Plain
// retrieval performs no stock revalidation.
func (s *cartService) GetOrCreate(ctx context.Context, owner CartOwner) (Cart, error) {
	if err := owner.Validate(); err != nil {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.carts.Get(ctx, owner)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return Cart{}, s.translateRepoError(err)
		}
		saved, err := s.carts.Upsert(ctx, s.newCart(owner))
		if err != nil {
			return Cart{}, s.translateRepoError(err)
		}
		cart = saved
	}
	return cart, nil
}

// AddItem inserts or grows a cart line. Re-adding an existing (product, variant) line
// adds to its quantity and revalidates the combined total against live stock. The
// name/image/price snapshots are captured on first insertion only.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (Cart, error) {
	if err := cmd.Owner.Validate(); err != nil {
		return Cart{}, ErrCartInvalidInput
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" || cmd.Quantity <= 0 {
		return Cart{}, ErrCartInvalidInput
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return Cart{}, ErrCartProductNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}

	cart, err := s.GetOrCreate(ctx, cmd.Owner)
	if err != nil {
		return Cart{}, err
	}

	if idx := cart.FindItem(productID, cmd.Variant); idx >= 0 {
		combined := cart.Items[idx].Quantity + cmd.Quantity
		if combined > product.Stock {
			return Cart{}, &InsufficientStockError{ProductID: productID, Requested: combined, Available: product.Stock}
		}
		cart.Items[idx].Quantity = combined
	} else {
		if cmd.Quantity > product.Stock {
			return Cart{}, &InsufficientStockError{ProductID: productID, Requested: cmd.Quantity, Available: product.Stock}
		}
		cart.Items = append(cart.Items, CartItem{
			ProductID:  productID,
			Name:       product.Name,
			Image:      product.Image,
			UnitPrice:  product.Price,
			Quantity:   cmd.Quantity,
			StockAtAdd: product.Stock,
			Variant:    cmd.Variant,
			AddedAt:    s.now(),
		})
	}

	return s.persist(ctx, cart)
}

// UpdateQuantity sets a line's quantity after a fresh stock check. A non-positive
// quantity removes the line entirely rather than failing.
func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateQuantityCommand) (Cart, error) {
	if err := cmd.Owner.Validate(); err != nil {
		return Cart{}, ErrCartInvalidInput
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.carts.Get(ctx, cmd.Owner)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}

	idx := cart.FindItemByProduct(productID)
	if idx < 0 {
		return Cart{}, ErrCartItemNotFound
	}

	if cmd.Quantity <= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return s.persist(ctx, cart)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return Cart{}, ErrCartProductNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	if cmd.Quantity > product.Stock {
		return Cart{}, &InsufficientStockError{ProductID: productID, Requested: cmd.Quantity, Available: product.Stock}
	}

	cart.Items[idx].Quantity = cmd.Quantity
	return s.persist(ctx, cart)
}

// RemoveItem drops the line for the product. Removing an absent line is not an error.
func (s *cartService) RemoveItem(ctx context.Context, owner CartOwner, productID string) (Cart, error) {
	if err := owner.Validate(); err != nil {
		return Cart{}, ErrCartInvalidInput
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.carts.Get(ctx, owner)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}

	idx := cart.FindItemByProduct(productID)
	if idx < 0 {
		return cart, nil
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return s.persist(ctx, cart)
}

// Clear empties the cart and resets the derived totals.
func (s *cartService) Clear(ctx context.Context, owner CartOwner) (Cart, error) {
	if err := owner.Validate(); err != nil {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.carts.Get(ctx, owner)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}

	cart.Items = nil
	return s.persist(ctx, cart)
}

// Merge folds the guest session's cart into the user's cart, then deletes the guest
// cart. Quantities for shared products are summed without stock revalidation; the next
// add or quantity update revalidates. The read-merge-delete sequence is not atomic; a
// failure after the user-cart write may leave the guest cart behind.
func (s *cartService) Merge(ctx context.Context, userID, guestSessionID string) (Cart, error) {
	userID = strings.TrimSpace(userID)
	guestSessionID = strings.TrimSpace(guestSessionID)
	if userID == "" || guestSessionID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	userOwner := domain.UserOwner(userID)
	guestOwner := domain.GuestOwner(guestSessionID)

	guestCart, err := s.carts.Get(ctx, guestOwner)
	if err != nil && !repositories.IsNotFoundError(err) {
		return Cart{}, s.translateRepoError(err)
	}
	if err != nil || len(guestCart.Items) == 0 {
		return s.GetOrCreate(ctx, userOwner)
	}

	userCart, err := s.GetOrCreate(ctx, userOwner)
	if err != nil {
		return Cart{}, err
	}

	for _, line := range guestCart.Items {
		if idx := userCart.FindItemByProduct(line.ProductID); idx >= 0 {
			userCart.Items[idx].Quantity += line.Quantity
		} else {
			userCart.Items = append(userCart.Items, line)
		}
	}

	merged, err := s.persist(ctx, userCart)
	if err != nil {
		return Cart{}, err
	}

	if err := s.carts.Delete(ctx, guestOwner); err != nil {
		s.logger(ctx, "cart.merge_guest_delete_failed", map[string]any{
			"sessionID": guestSessionID,
			"error":     err.Error(),
		})
	}
	return merged, nil
}

func (s *cartService) newCart(owner CartOwner) Cart {
	now := s.now()
	return Cart{
		ID:        s.newID(),
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *cartService) persist(ctx context.Context, cart Cart) (Cart, error) {
	cart.Recalculate()
	saved, err := s.carts.Upsert(ctx, cart)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidOwner) {
		return ErrCartInvalidInput
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
	}
	return ErrCartUnavailable
}
