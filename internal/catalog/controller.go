package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_cart/shopcore/internal/domain"
	"github.com/fjod/go_cart/shopcore/internal/live"
)

// Catalog is what the controller needs to load a view.
type Catalog interface {
	FetchByCategory(ctx context.Context, category string) ([]domain.Product, error)
	FetchCategories(ctx context.Context) ([]string, error)
	Refetch(ctx context.Context, category string) ([]domain.Product, error)
}

// Controller drives the catalog view state for a selected category. Every
// selection restarts from Loading and supersedes any load still in flight;
// results of superseded loads are discarded.
type Controller struct {
	catalog Catalog
	log     *slog.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	loadCtx  context.Context
	category string
	products *live.Subject[[]domain.Product]
	closed   bool
	state    *live.Subject[ViewState]
}

// NewController starts loading category immediately.
func NewController(catalog Catalog, category string, log *slog.Logger) *Controller {
	ctx, stop := context.WithCancel(context.Background())
	c := &Controller{
		catalog: catalog,
		log:     log,
		ctx:     ctx,
		stop:    stop,
		state:   live.New[ViewState](Loading{}),
	}
	c.Select(category)
	return c
}

// Select switches to category and starts a fresh load.
func (c *Controller) Select(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	ctx, gen := c.supersede(category)
	c.state.Publish(Loading{})

	c.wg.Add(1)
	go c.load(ctx, gen, category)
}

// Refresh refetches the products of the current category into the live list
// of the current Success state. From any other state it behaves like
// selecting the current category again.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	success, ok := c.state.Value().(Success)
	if !ok {
		ctx, gen := c.supersede(c.category)
		c.state.Publish(Loading{})
		c.wg.Add(1)
		go c.load(ctx, gen, c.category)
		return
	}

	c.wg.Add(1)
	go c.refetch(c.loadCtx, c.gen, c.category, success.Products)
}

// State returns the current view state.
func (c *Controller) State() ViewState {
	return c.state.Value()
}

// Subscribe yields the current state and then every transition.
func (c *Controller) Subscribe(ctx context.Context) <-chan ViewState {
	return c.state.Subscribe(ctx)
}

// Category returns the most recently selected category as given.
func (c *Controller) Category() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category
}

// View returns the selected category together with the state it belongs to.
func (c *Controller) View() (string, ViewState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category, c.state.Value()
}

// Close cancels in-flight loads, waits for them and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	c.stop()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.products != nil {
		c.products.Close()
		c.products = nil
	}
	c.state.Close()
}

// supersede cancels the current load and drops the current product list.
// Callers hold c.mu.
func (c *Controller) supersede(category string) (context.Context, uint64) {
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	c.loadCtx, c.cancel = context.WithCancel(c.ctx)
	c.category = category
	c.dropProducts()
	return c.loadCtx, c.gen
}

func (c *Controller) dropProducts() {
	if c.products != nil {
		c.products.Close()
		c.products = nil
	}
}

func (c *Controller) load(ctx context.Context, gen uint64, category string) {
	defer c.wg.Done()

	var (
		products   []domain.Product
		categories []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.catalog.FetchByCategory(gctx, category)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = c.catalog.FetchCategories(gctx)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.log.Debug("discarding superseded catalog load", slog.String("category", category))
		return
	}
	if err != nil {
		c.fail(category, err)
		return
	}

	c.products = live.New(products)
	c.state.Publish(Success{Products: c.products, Categories: categories})
}

func (c *Controller) refetch(ctx context.Context, gen uint64, category string, into *live.Subject[[]domain.Product]) {
	defer c.wg.Done()

	products, err := c.catalog.Refetch(ctx, category)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.log.Debug("discarding superseded catalog refresh", slog.String("category", category))
		return
	}
	if err != nil {
		c.fail(category, err)
		return
	}
	into.Publish(products)
}

// fail publishes Error and drops the previous data. Callers hold c.mu.
func (c *Controller) fail(category string, err error) {
	c.log.Warn("catalog load failed", slog.String("category", category), slog.Any("error", err))
	c.dropProducts()
	c.state.Publish(Error{Message: errorMessage(err)})
}

func errorMessage(err error) string {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return err.Error()
}
