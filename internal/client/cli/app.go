package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/cart"
	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/config"
	"github.com/dmitrijs2005/gophstore/internal/client/dashboard"
	"github.com/dmitrijs2005/gophstore/internal/client/services"
	"github.com/dmitrijs2005/gophstore/internal/client/session"
	"github.com/dmitrijs2005/gophstore/internal/logging"
)

// countdownTick is the resolution of the dashboard refresh countdown.
// Tests shorten it.
var countdownTick = time.Second

type App struct {
	config      *config.Config
	log         logging.Logger
	out         io.Writer
	reader      *bufio.Reader
	db          *sql.DB
	api         *client.HTTPClient
	store       *session.SQLiteStore
	authService services.AuthService
	guard       *session.Guard
	cart        *cart.Engine
	dash        *dashboard.Dashboard
	userName    string

	// redirect is set by the guard, possibly from a timer goroutine, and
	// consumed by the REPL.
	redirect atomic.Bool

	// waiting is true while the REPL is blocked reading the next line.
	promptMu sync.Mutex
	waiting  bool

	refreshMu   sync.Mutex
	stopRefresh context.CancelFunc
	refreshDone chan struct{}
}

// NewApp wires the local store, the API client and the views. in and out are
// the user's terminal.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		l.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	store := session.NewSQLiteStore(db)

	api, err := client.NewHTTPClient(client.Options{
		BaseURL:    c.ServerURL,
		Timeout:    c.RequestTimeout,
		RetryCount: c.RetryCount,
		RetryDelay: c.RetryDelay,
		Tokens:     store,
		Logger:     l,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config:      c,
		log:         l,
		out:         out,
		reader:      bufio.NewReader(in),
		db:          db,
		api:         api,
		store:       store,
		authService: services.NewAuthService(api, store),
	}

	a.guard = session.NewGuard(store, api, a,
		session.WithRedirectDelay(c.RedirectDelay),
		session.WithLogger(l.With("component", "session")),
	)
	a.dash = dashboard.New(api,
		dashboard.WithRefresh(c.RefreshInterval, countdownTick),
		dashboard.WithUnauthorized(a.guard.Invalidate),
		dashboard.WithLogger(l.With("component", "dashboard")),
	)
	a.cart = cart.NewEngine(api,
		cart.WithCatalogRefresh(func(ctx context.Context) { _ = a.dash.FetchData(ctx) }),
		cart.WithUnauthorized(a.guard.Invalidate),
		cart.WithLogger(l.With("component", "cart")),
	)

	return a, nil
}

// Replace is called by the session guard when the user has to log in. It
// may run on the refresh loop or the redirect timer, so it only cancels the
// refresh and never waits for it.
func (a *App) Replace(path string) {
	a.log.Debug(context.Background(), "redirect", "path", path)
	a.redirect.Store(true)
	a.cancelAutoRefresh()

	a.promptMu.Lock()
	defer a.promptMu.Unlock()
	if a.waiting {
		a.println(sessionEndedNotice)
	}
}

func (a *App) takeRedirect() bool {
	return a.redirect.Swap(false)
}

func (a *App) isLoggedIn() bool {
	return a.guard.State().Status == session.StatusAuthenticated
}

func (a *App) isAdmin() bool {
	st := a.guard.State()
	return st.Status == session.StatusAuthenticated && st.Role.IsAdmin()
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	role := a.dash.State().Role
	if role == "" {
		role = a.guard.State().Role
	}
	s := strings.TrimSpace(a.userName + " " + string(role))
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s
}

// Run verifies the stored session, then serves commands until the user
// exits or input ends. Everything NewApp opened is released on return.
func (a *App) Run(ctx context.Context) error {
	defer a.close(ctx)

	a.println("Welcome to GophStore CLI (type 'help' for commands)")

	a.mount(ctx)
	if a.takeRedirect() {
		_ = a.Login(ctx)
	}

	runREPL(ctx, a, a.getStatus, a.nextLine(lineSource(a.reader)))
	return nil
}

// nextLine marks the REPL as waiting for input while src blocks, so a
// redirect arriving meanwhile can tell the user right away.
func (a *App) nextLine(src func() (string, bool)) func() (string, bool) {
	return func() (string, bool) {
		a.setWaiting(true)
		defer a.setWaiting(false)
		return src()
	}
}

func (a *App) setWaiting(v bool) {
	a.promptMu.Lock()
	a.waiting = v
	a.promptMu.Unlock()
}

// mount runs a verification round and, when it succeeds, loads the views and
// starts the auto refresh.
func (a *App) mount(ctx context.Context) {
	a.stopAutoRefresh()

	st, err := a.guard.Mount(ctx)
	if err != nil {
		a.log.Warn(ctx, "session verification interrupted", "error", err)
		return
	}

	switch st.Status {
	case session.StatusAuthenticated:
		name, err := a.authService.Username(ctx)
		if err != nil {
			a.log.Warn(ctx, "failed to read username", "error", err)
		}
		a.userName = name
		if err := a.dash.FetchData(ctx); err != nil {
			a.println(client.Detail(err, "Error fetching data"))
		}
		if err := a.cart.FetchCart(ctx); err != nil {
			a.log.Warn(ctx, "initial cart fetch failed", "error", err)
		}
		a.startAutoRefresh(ctx)
	case session.StatusVerificationFailed:
		a.println(a.guard.View())
	}
}

func (a *App) startAutoRefresh(ctx context.Context) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	if a.stopRefresh != nil || a.config.RefreshInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.stopRefresh, a.refreshDone = cancel, done
	go func() {
		defer close(done)
		a.dash.Run(ctx)
	}()
}

// cancelAutoRefresh asks the refresh loop to stop without waiting for it.
// The next stopAutoRefresh still waits for the loop to finish.
func (a *App) cancelAutoRefresh() {
	a.refreshMu.Lock()
	cancel := a.stopRefresh
	a.refreshMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// stopAutoRefresh cancels the refresh loop and waits for it. It must not be
// called from the loop itself.
func (a *App) stopAutoRefresh() {
	a.refreshMu.Lock()
	cancel, done := a.stopRefresh, a.refreshDone
	a.stopRefresh, a.refreshDone = nil, nil
	a.refreshMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *App) close(ctx context.Context) {
	a.stopAutoRefresh()
	a.guard.Close()
	if err := a.authService.Close(ctx); err != nil {
		a.log.Warn(ctx, "failed to close client", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn(ctx, "failed to close database", "error", err)
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
