// Package terminal owns the process-wide stores of one point-of-sale
// terminal and switches the active bill session between tables, tabs and
// counter mode.
package terminal

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/angelmondragon/pdv-terminal/internal/attendant"
	"github.com/angelmondragon/pdv-terminal/internal/billing"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/internal/cashier"
	"github.com/angelmondragon/pdv-terminal/internal/counter"
	"github.com/angelmondragon/pdv-terminal/internal/fiscal"
	"github.com/angelmondragon/pdv-terminal/internal/poll"
	"github.com/angelmondragon/pdv-terminal/internal/roster"
	"github.com/angelmondragon/pdv-terminal/internal/tables"
	"github.com/angelmondragon/pdv-terminal/internal/tabs"
	"github.com/angelmondragon/pdv-terminal/pkg/config"
	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/metrics"
	"go.uber.org/multierr"
)

// API is the backend client every component shares.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Params wire a Terminal.
type Params struct {
	Config   *config.Config
	API      API
	Store    localstore.Backend
	Operator attendant.Operator
	Notifier billing.Notifier
	Poller   *poll.Service
	Metrics  *metrics.BillingMetrics
	Logger   *logger.Logger
	// Closers run on Close, after polling stops.
	Closers []func() error
}

// Terminal is the composition root of the terminal service.
type Terminal struct {
	cfg      *config.Config
	operator attendant.Operator
	notifier billing.Notifier
	poller   *poll.Service
	metrics  *metrics.BillingMetrics
	logg     *logger.Logger
	closers  []func() error

	cart      *cart.Store
	tables    *tables.Resource
	tabs      *tabs.Resource
	counter   *counter.Backend
	tableGrid *roster.Grid[tables.Table]
	tabGrid   *roster.Grid[tabs.Tab]
	cashier   *cashier.Gate
	fiscal    *fiscal.Issuer

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	active *billing.Controller
	closed bool
}

func New(p Params) (*Terminal, error) {
	if p.Config == nil {
		return nil, errors.New("config is required")
	}
	if p.API == nil {
		return nil, errors.New("api client is required")
	}
	if p.Poller == nil {
		return nil, errors.New("poll service is required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	cartStore := cart.NewStore(localstore.New[cart.State](p.Store, localstore.KeyCart), logg)
	tableRoster := roster.NewStore(tables.TableID, localstore.New[[]tables.Table](p.Store, localstore.KeyTables), logg)
	tabRoster := roster.NewStore(tabs.TabID, localstore.New[[]tabs.Tab](p.Store, localstore.KeyTabs), logg)

	tableRes, err := tables.NewResource(p.API, tableRoster)
	if err != nil {
		return nil, err
	}
	tabRes, err := tabs.NewResource(p.API, tabRoster)
	if err != nil {
		return nil, err
	}
	counterBackend, err := counter.NewBackend(p.API, localstore.New[string](p.Store, localstore.KeyCounterSale), logg)
	if err != nil {
		return nil, err
	}
	gate, err := cashier.NewGate(p.API, logg)
	if err != nil {
		return nil, err
	}
	issuer, err := fiscal.NewIssuer(p.API, p.Config.Fiscal)
	if err != nil {
		return nil, err
	}

	pageSize := p.Config.Polling.PageSize
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Terminal{
		cfg:       p.Config,
		operator:  p.Operator,
		notifier:  p.Notifier,
		poller:    p.Poller,
		metrics:   p.Metrics,
		logg:      logg,
		closers:   p.Closers,
		cart:      cartStore,
		tables:    tableRes,
		tabs:      tabRes,
		counter:   counterBackend,
		tableGrid: roster.NewGrid[tables.Table]("tables", tableRoster, tableRes, pageSize, logg),
		tabGrid:   roster.NewGrid[tabs.Tab]("tabs", tabRoster, tabRes, pageSize, logg),
		cashier:   gate,
		fiscal:    issuer,
		baseCtx:   baseCtx,
		cancel:    cancel,
	}, nil
}

// Load restores persisted state: the cart, both roster caches and the open
// counter sale.
func (t *Terminal) Load(ctx context.Context) error {
	return multierr.Combine(
		t.cart.Load(ctx),
		t.tables.Roster().Load(ctx),
		t.tabs.Roster().Load(ctx),
		t.counter.Load(ctx),
	)
}

// Registry lists the background poll jobs: both grids and the session check.
func (t *Terminal) Registry() *poll.Registry {
	return poll.NewRegistry(
		poll.Entry{Job: t.tableGrid.Job(), Interval: t.cfg.Polling.GridInterval},
		poll.Entry{Job: t.tabGrid.Job(), Interval: t.cfg.Polling.GridInterval},
		poll.Entry{Job: t.cashier.Job(), Interval: t.cfg.Polling.SessionInterval},
	)
}

// Run starts the background jobs and blocks until ctx is canceled. On
// return every poll loop has been told to stop, bill polling included, and
// no later selection starts a new one.
func (t *Terminal) Run(ctx context.Context) error {
	err := t.poller.Run(ctx, t.Registry())
	t.stopPolling()
	return err
}

func (t *Terminal) stopPolling() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil {
		t.active.StopPolling()
	}
	t.cancel()
}

// SelectTable makes the table the active context. The table must be in the
// roster.
func (t *Terminal) SelectTable(ctx context.Context, id string) (*billing.Controller, error) {
	if _, err := t.tables.Get(id); err != nil {
		return nil, err
	}
	return t.switchTo(ctx, t.tables.Backend(id))
}

func (t *Terminal) SelectTab(ctx context.Context, id string) (*billing.Controller, error) {
	if _, err := t.tabs.Get(id); err != nil {
		return nil, err
	}
	return t.switchTo(ctx, t.tabs.Backend(id))
}

func (t *Terminal) SelectCounter(ctx context.Context) (*billing.Controller, error) {
	return t.switchTo(ctx, t.counter)
}

// switchTo stops polling the previous context, moves the cart to the new
// context (clearing it when the context changes), loads the bill and starts
// polling it. Re-selecting the active context is a no-op. The bill is fetched
// outside the lock so readers of Active are not held behind the network.
func (t *Terminal) switchTo(ctx context.Context, backend billing.Backend) (*billing.Controller, error) {
	ctl, fresh, err := t.activate(ctx, backend)
	if err != nil || !fresh {
		return ctl, err
	}
	if err := ctl.Refresh(ctx); err != nil {
		t.logg.Warn(ctx, "initial bill fetch failed: "+err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// A newer selection or shutdown may have happened during the fetch.
	if t.active == ctl && !t.closed && t.baseCtx.Err() == nil {
		ctl.StartPolling(t.baseCtx)
	}
	return ctl, nil
}

// activate installs a controller for backend. fresh is false when backend's
// context was already active and the current controller is returned as is.
func (t *Terminal) activate(ctx context.Context, backend billing.Backend) (ctl *billing.Controller, fresh bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, false, errors.New("terminal is closed")
	}
	ref := backend.Ref()
	if t.active != nil && t.active.Ref() == ref {
		return t.active, false, nil
	}

	ctl, err = billing.NewController(billing.ControllerParams{
		Backend:      backend,
		Cart:         t.cart,
		Gate:         t.cashier,
		Fiscal:       t.fiscal,
		Notifier:     t.notifier,
		Operator:     t.operator,
		Poller:       t.poller,
		BillInterval: t.cfg.Polling.BillInterval,
		Metrics:      t.metrics,
		Logger:       t.logg,
	})
	if err != nil {
		return nil, false, err
	}

	if t.active != nil {
		t.active.StopPolling()
	}
	t.cart.SelectContext(ctx, ref)
	t.active = ctl
	return ctl, true, nil
}

// Active is the current bill session, nil before the first selection.
func (t *Terminal) Active() *billing.Controller {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Terminal) Cart() *cart.Store { return t.cart }

func (t *Terminal) Tables() *tables.Resource { return t.tables }

func (t *Terminal) Tabs() *tabs.Resource { return t.tabs }

func (t *Terminal) TableGrid() *roster.Grid[tables.Table] { return t.tableGrid }

func (t *Terminal) TabGrid() *roster.Grid[tabs.Tab] { return t.tabGrid }

func (t *Terminal) Cashier() *cashier.Gate { return t.cashier }

func (t *Terminal) Operator() attendant.Operator { return t.operator }

// Close stops bill polling and runs the closers.
func (t *Terminal) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.active != nil {
		t.active.StopPolling()
	}
	t.mu.Unlock()
	t.cancel()

	var err error
	for _, closer := range t.closers {
		if closer != nil {
			err = multierr.Append(err, closer())
		}
	}
	return err
}
