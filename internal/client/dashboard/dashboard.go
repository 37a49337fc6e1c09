// Package dashboard is the catalog view: items, stock statistics, low-stock
// notifications and search, the admin item operations, and the countdown
// that refreshes the view periodically.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/logging"
	"golang.org/x/sync/errgroup"
)

const DefaultRefreshInterval = 30 * time.Second

// API is the part of the backend the dashboard uses.
type API interface {
	Me(ctx context.Context) (*models.Identity, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	CountItems(ctx context.Context) (*models.ItemStats, error)
	SearchItems(ctx context.Context, query string) ([]models.Item, error)
	CreateItem(ctx context.Context, item models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, brand string, item models.Item) (*models.ItemUpdate, error)
	DeleteItem(ctx context.Context, brand string) (*models.ItemDeletion, error)
	BuyItem(ctx context.Context, brand string) (*models.Message, error)
	Notifications(ctx context.Context) ([]models.Notification, error)
	ClearNotifications(ctx context.Context) (*models.Message, error)
}

// State is the dashboard view state. Countdown is the number of ticks left
// before the next automatic refresh.
type State struct {
	Items         []models.Item
	Stats         models.ItemStats
	Notifications []models.Notification
	SearchResults []models.Item
	Role          models.Role
	LastRefresh   time.Time
	Countdown     int
}

type Option func(*Dashboard)

// WithRefresh sets the refresh interval and the countdown tick.
func WithRefresh(interval, tick time.Duration) Option {
	return func(d *Dashboard) {
		d.interval = interval
		d.tick = tick
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

func WithUnauthorized(fn func(ctx context.Context)) Option {
	return func(d *Dashboard) { d.onUnauthorized = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(d *Dashboard) { d.log = l }
}

// Dashboard is the catalog view state container. It is safe for concurrent
// use: the refresh loop and the command loop share it.
type Dashboard struct {
	api            API
	log            logging.Logger
	now            func() time.Time
	interval       time.Duration
	tick           time.Duration
	onUnauthorized func(ctx context.Context)

	mu    sync.Mutex
	state State
}

func New(api API, opts ...Option) *Dashboard {
	d := &Dashboard{
		api:            api,
		log:            logging.Discard(),
		now:            time.Now,
		interval:       DefaultRefreshInterval,
		tick:           time.Second,
		onUnauthorized: func(context.Context) {},
	}
	for _, o := range opts {
		o(d)
	}
	if d.tick <= 0 {
		d.tick = time.Second
	}
	if d.interval < d.tick {
		d.interval = d.tick
	}
	d.state.Countdown = d.ticks()
	return d
}

func (d *Dashboard) ticks() int {
	return int(d.interval / d.tick)
}

// State returns a snapshot.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state
	st.Items = append([]models.Item(nil), d.state.Items...)
	st.Notifications = append([]models.Notification(nil), d.state.Notifications...)
	st.SearchResults = append([]models.Item(nil), d.state.SearchResults...)
	return st
}

// FetchData loads items, stats and notifications concurrently and replaces
// all three on success. A 403 on notifications means the user may not see
// them and yields an empty list. Any other failure leaves the state as is.
func (d *Dashboard) FetchData(ctx context.Context) error {
	var (
		items  []models.Item
		stats  *models.ItemStats
		alerts []models.Notification
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = d.api.ListItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = d.api.CountItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		alerts, err = d.api.Notifications(gctx)
		if errors.Is(err, client.ErrForbidden) {
			alerts = []models.Notification{}
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		d.log.Warn(ctx, "failed to fetch dashboard data", "error", err)
		d.unauthorized(ctx, err)
		return fmt.Errorf("fetch dashboard data: %w", err)
	}

	d.mu.Lock()
	d.state.Items = items
	d.state.Stats = *stats
	d.state.Notifications = alerts
	d.state.LastRefresh = d.now()
	d.state.Countdown = d.ticks()
	d.mu.Unlock()
	return nil
}

// FetchRole asks the backend who we are. Errors are ignored and leave the
// role empty.
func (d *Dashboard) FetchRole(ctx context.Context) models.Role {
	id, err := d.api.Me(ctx)
	if err != nil {
		d.log.Debug(ctx, "failed to fetch role", "error", err)
		return d.State().Role
	}
	d.mu.Lock()
	d.state.Role = id.Role
	d.mu.Unlock()
	return id.Role
}

// Search runs a text search. A blank query clears the results; a failed
// search yields none.
func (d *Dashboard) Search(ctx context.Context, query string) []models.Item {
	var res []models.Item
	if strings.TrimSpace(query) != "" {
		var err error
		res, err = d.api.SearchItems(ctx, query)
		if err != nil {
			d.log.Warn(ctx, "search failed", "query", query, "error", err)
			res = nil
		}
	}
	if res == nil {
		res = []models.Item{}
	}
	d.mu.Lock()
	d.state.SearchResults = res
	d.mu.Unlock()
	return append([]models.Item(nil), res...)
}

func (d *Dashboard) ClearSearch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.SearchResults = []models.Item{}
}

func (d *Dashboard) unauthorized(ctx context.Context, err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		d.onUnauthorized(ctx)
	}
}

func (d *Dashboard) fail(ctx context.Context, op string, err error, fallback string) models.Notice {
	d.log.Warn(ctx, op+" failed", "error", err)
	d.unauthorized(ctx, err)
	return models.Failure(client.Detail(err, fallback))
}
