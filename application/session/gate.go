// Package session tracks the signed-in identity and gates per-user state on
// its transitions: sign-in triggers the initial remote load, sign-out tears
// every trace of the user out of memory.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"trendguard/domain"
)

// Identity is one identity-provider transition.
type Identity struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	SignedIn    bool
}

// Provider emits identity transitions. The channel closes when the provider
// shuts down.
type Provider interface {
	Identities(ctx context.Context) (<-chan Identity, error)
}

// PortfolioStore is the slice of the portfolio store the gate drives.
type PortfolioStore interface {
	Load(ctx context.Context, userID string) []domain.Holding
	Detach()
}

// Gate applies identity transitions to the portfolio store. The store
// refuses remote writes until Load attaches a user, so a stale empty local
// state can never overwrite remote data during sign-in.
type Gate struct {
	store PortfolioStore
	log   zerolog.Logger

	mu      sync.Mutex
	current Identity
	sctx    context.Context
	cancel  context.CancelFunc
}

// NewGate creates a gate driving store.
func NewGate(store PortfolioStore, log zerolog.Logger) *Gate {
	return &Gate{
		store: store,
		log:   log.With().Str("component", "session").Logger(),
	}
}

// Run consumes transitions until ctx is cancelled or the channel closes.
// Either way the gate signs out on exit, honoring the privacy invariant
// that no per-user data outlives the session.
func (g *Gate) Run(ctx context.Context, transitions <-chan Identity) error {
	defer g.signOut()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-transitions:
			if !ok {
				return nil
			}
			g.apply(ctx, id)
		}
	}
}

func (g *Gate) apply(parent context.Context, id Identity) {
	if !id.SignedIn {
		g.signOut()
		return
	}

	g.mu.Lock()
	if g.current.SignedIn && g.current.UserID == id.UserID {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	// A different user was attached: tear down before loading the new one.
	g.signOut()

	sctx, cancel := context.WithCancel(parent)
	g.mu.Lock()
	g.sctx = sctx
	g.cancel = cancel
	g.mu.Unlock()

	g.log.Info().Str("user", id.UserID).Msg("signed in, loading remote portfolio")
	g.store.Load(sctx, id.UserID)

	// Only now does the identity become visible: sync batches and persists
	// must not run against a half-loaded session.
	g.mu.Lock()
	g.current = id
	g.mu.Unlock()
}

// signOut cancels the session context, so in-flight sync batches stop
// before their next ticker, then wipes the store.
func (g *Gate) signOut() {
	g.mu.Lock()
	wasSignedIn := g.current.SignedIn
	user := g.current.UserID
	cancel := g.cancel
	g.current = Identity{}
	g.sctx = nil
	g.cancel = nil
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.store.Detach()
	if wasSignedIn {
		g.log.Info().Str("user", user).Msg("signed out, per-user state cleared")
	}
}

// Current returns the signed-in user, if any. The sync coordinator consults
// this before each ticker.
func (g *Gate) Current() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current.UserID, g.current.SignedIn
}

// SessionContext returns the context scoped to the current sign-in. It is
// cancelled on sign-out.
func (g *Gate) SessionContext() (context.Context, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sctx == nil {
		return nil, false
	}
	return g.sctx, true
}

// StaticProvider emits a fixed sign-in once and stays signed in until ctx
// ends. The CLI host uses it: commands run as one configured user.
type StaticProvider struct {
	UserID string
}

// Identities implements Provider.
func (p StaticProvider) Identities(ctx context.Context) (<-chan Identity, error) {
	ch := make(chan Identity, 1)
	ch <- Identity{UserID: p.UserID, SignedIn: true}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
