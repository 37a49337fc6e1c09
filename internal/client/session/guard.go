// Package session gates protected commands behind a verified bearer token.
//
// The guard is a small state machine. Transitions live in the pure Reduce
// function; the Guard feeds it events, keeps the current State and runs the
// effects it returns (verify the token, clear it, redirect to login now or
// after a delay).
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/common"
	"github.com/dmitrijs2005/gophstore/internal/logging"
)

var ErrNotAuthenticated = errors.New("not authenticated")

const (
	DefaultRedirectDelay = 3 * time.Second

	LoadingText            = "Loading..."
	VerificationFailedText = "Unable to verify token. Please check if the backend server is running and try logging in again."
)

// Verifier checks a token against the backend.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Identity, error)
}

// Navigator performs a replace-navigation: the current view is dropped, not
// stacked.
type Navigator interface {
	Replace(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Replace(path string) { f(path) }

// Scheduler runs fn once after d. The returned stop prevents a pending run.
// fn must not be called before the Scheduler returns.
type Scheduler func(d time.Duration, fn func()) (stop func() bool)

// AfterFunc is the default Scheduler.
func AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

type Option func(*Guard)

func WithRedirectDelay(d time.Duration) Option {
	return func(g *Guard) { g.delay = d }
}

func WithScheduler(s Scheduler) Option {
	return func(g *Guard) { g.schedule = s }
}

func WithLogger(l logging.Logger) Option {
	return func(g *Guard) { g.log = l }
}

// Guard owns the session State. It is safe for concurrent use.
type Guard struct {
	store    CredentialStore
	verifier Verifier
	nav      Navigator
	schedule Scheduler
	delay    time.Duration
	log      logging.Logger

	mu    sync.Mutex
	state State
	// gen is bumped by every Mount and Close; work belonging to an older
	// generation is dropped.
	gen  uint64
	stop func() bool
}

func NewGuard(store CredentialStore, verifier Verifier, nav Navigator, opts ...Option) *Guard {
	g := &Guard{
		store:    store,
		verifier: verifier,
		nav:      nav,
		schedule: AfterFunc,
		delay:    DefaultRedirectDelay,
		log:      logging.Discard(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Mount starts a verification round from StatusUnknown and returns the state
// it settles in. A pending delayed redirect from an earlier round is
// cancelled. The only error is ctx's own.
func (g *Guard) Mount(ctx context.Context) (State, error) {
	g.mu.Lock()
	g.cancelPendingLocked()
	g.gen++
	gen := g.gen
	g.state = State{Status: StatusUnknown}
	g.mu.Unlock()

	token, err := g.store.Token(ctx)
	if err != nil {
		g.log.Warn(ctx, "failed to read stored token", "error", err)
		token = ""
	}

	return g.run(ctx, gen, Mounted{HasToken: token != ""}, token)
}

// Close cancels a pending delayed redirect and detaches any round still in
// flight.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelPendingLocked()
	g.gen++
}

// Invalidate handles a 401 received after verification: the token is
// cleared and the user is sent to login.
func (g *Guard) Invalidate(ctx context.Context) {
	g.mu.Lock()
	gen := g.gen
	g.mu.Unlock()

	_, _ = g.run(ctx, gen, Expired{}, "")
}

// Protect runs fn only while authenticated. A 401 from fn invalidates the
// session.
func (g *Guard) Protect(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.State().Status != StatusAuthenticated {
		return ErrNotAuthenticated
	}
	err := fn(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		g.Invalidate(ctx)
	}
	return err
}

// View is the text shown instead of protected content: loading while the
// outcome is open, the error text after a failed verification, and nothing
// otherwise.
func (g *Guard) View() string {
	switch g.State().Status {
	case StatusUnknown, StatusVerifying:
		return LoadingText
	case StatusVerificationFailed:
		return VerificationFailedText
	default:
		return ""
	}
}

func (g *Guard) run(ctx context.Context, gen uint64, ev Event, token string) (State, error) {
	for ev != nil {
		g.mu.Lock()
		if gen != g.gen {
			st := g.state
			g.mu.Unlock()
			return st, nil
		}
		prev := g.state
		next, effects := Reduce(prev, ev)
		g.state = next
		g.mu.Unlock()

		if next.Status != prev.Status {
			g.log.Debug(ctx, "session transition", "from", prev.Status.String(), "to", next.Status.String())
		}

		ev = nil
		for _, eff := range effects {
			switch eff {
			case EffectVerify:
				var err error
				ev, err = g.verify(ctx, token)
				if err != nil {
					return g.State(), err
				}
			case EffectClearToken:
				if err := g.store.ClearToken(ctx); err != nil {
					g.log.Error(ctx, "failed to clear token", "error", err)
				}
			case EffectRedirect:
				g.nav.Replace(common.LoginPath)
			case EffectScheduleRedirect:
				g.scheduleRedirect(gen)
			}
		}
	}
	return g.State(), nil
}

func (g *Guard) verify(ctx context.Context, token string) (Event, error) {
	id, err := g.verifier.VerifyToken(ctx, token)
	switch {
	case err == nil:
		return Verified{Role: id.Role}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, client.ErrUnavailable):
		g.log.Warn(ctx, "token verification failed", "error", err)
		return TransportFailed{Reason: err.Error()}, nil
	default:
		g.log.Info(ctx, "token rejected", "error", err)
		return Rejected{StatusCode: client.StatusCode(err)}, nil
	}
}

func (g *Guard) scheduleRedirect(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return
	}
	g.cancelPendingLocked()
	g.stop = g.schedule(g.delay, func() {
		g.mu.Lock()
		fire := gen == g.gen
		if fire {
			g.stop = nil
		}
		g.mu.Unlock()
		if fire {
			g.nav.Replace(common.LoginPath)
		}
	})
}

func (g *Guard) cancelPendingLocked() {
	if g.stop != nil {
		g.stop()
		g.stop = nil
	}
}
