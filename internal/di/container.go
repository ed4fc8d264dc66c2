package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loomcart/api/internal/payments"
	"github.com/loomcart/api/internal/platform/config"
	"github.com/loomcart/api/internal/repositories"
	"github.com/loomcart/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete
// implementations are assembled via dependency injection in NewContainer.
type Services struct {
	Inventory services.InventoryService
	Catalog   services.CatalogService
	Cart      services.CartService
	Orders    services.OrderService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerDeps carries the externally constructed collaborators.
type ContainerDeps struct {
	Registry repositories.Registry
	Payments payments.Provider
	Logger   func(context.Context, string, map[string]any)
	Clock    func() time.Time
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore registry and Stripe provider; tests supply in-memory registries and stubs.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	_ = ctx
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	inventory, err := services.NewInventoryService(services.InventoryServiceDeps{
		Products: deps.Registry.Products(),
		Clock:    clock,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build inventory service: %w", err)
	}

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: deps.Registry.Products(),
	})
	if err != nil {
		return nil, fmt.Errorf("build catalog service: %w", err)
	}

	carts, err := services.NewCartService(services.CartServiceDeps{
		Carts:    deps.Registry.Carts(),
		Products: deps.Registry.Products(),
		Clock:    clock,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build cart service: %w", err)
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:    deps.Registry.Orders(),
		Inventory: inventory,
		Carts:     carts,
		Payments:  deps.Payments,
		Currency:  cfg.Payments.Currency,
		Clock:     clock,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build order service: %w", err)
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services: Services{
			Inventory: inventory,
			Catalog:   catalog,
			Cart:      carts,
			Orders:    orders,
		},
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}
