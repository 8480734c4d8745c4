// Package portfolio keeps the in-memory holdings for the signed-in user and
// coalesces persistence to the remote user document.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trendguard/domain"
	"trendguard/infrastructure/docstore"
)

// DefaultDebounce is the quiet period that collapses rapid successive
// mutations into a single remote write.
const DefaultDebounce = 500 * time.Millisecond

// SaveStatus is the persistence state reported to the UI.
type SaveStatus string

const (
	StatusSaved  SaveStatus = "saved"
	StatusSaving SaveStatus = "saving"
	StatusError  SaveStatus = "error"
)

// userDocument is the persisted shape of the per-user portfolio document.
type userDocument struct {
	Portfolio []domain.Holding `json:"portfolio"`
	UpdatedAt string           `json:"updatedAt"`
}

// Option configures a Store.
type Option func(*Store)

// WithDebounce overrides the persist quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithStatusFunc registers a callback for save-status transitions.
func WithStatusFunc(fn func(SaveStatus)) Option {
	return func(s *Store) { s.onStatus = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the portfolio for one signed-in session. Mutations apply to
// memory immediately; persistence trails behind through a single pending
// payload slot whose timer resets on every mutation. A persist failure
// never rolls memory back; the next mutation retries naturally.
type Store struct {
	docs     docstore.Store
	log      zerolog.Logger
	debounce time.Duration
	onStatus func(SaveStatus)
	now      func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	userID   string
	holdings []domain.Holding
	loading  bool
	pending  []byte
	timer    *time.Timer
}

// NewStore creates a portfolio store persisting through docs.
func NewStore(docs docstore.Store, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		docs:     docs,
		log:      log.With().Str("component", "portfolio").Logger(),
		debounce: DefaultDebounce,
		onStatus: func(SaveStatus) {},
		now:      time.Now,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reconciles the remote snapshot for userID with whatever is already
// in memory. Remote holdings win per ticker; local holdings with no remote
// counterpart are kept. A failed remote read degrades to local-only state.
// Mutations made by the merge itself are not persisted back.
func (s *Store) Load(ctx context.Context, userID string) []domain.Holding {
	s.mu.Lock()
	s.ctx = ctx
	s.userID = userID
	s.loading = true
	local := s.holdings
	s.mu.Unlock()

	remote := s.readRemote(ctx, userID)
	merged := domain.MergeRemote(remote, local)

	s.mu.Lock()
	s.holdings = merged
	s.loading = false
	s.mu.Unlock()

	s.log.Info().Str("user", userID).Int("holdings", len(merged)).Msg("portfolio loaded")
	return snapshot(merged)
}

func (s *Store) readRemote(ctx context.Context, userID string) []domain.Holding {
	raw, found, err := s.docs.Get(ctx, docstore.UserDocKey(userID))
	if err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("remote portfolio read failed, continuing local-only")
		return nil
	}
	if !found {
		return nil
	}
	var doc userDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("remote portfolio document malformed, continuing local-only")
		return nil
	}
	return doc.Portfolio
}

// Holdings returns a copy of the current portfolio.
func (s *Store) Holdings() []domain.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.holdings)
}

// ReplaceAll discards the current portfolio and installs holdings.
func (s *Store) ReplaceAll(holdings []domain.Holding) {
	s.mu.Lock()
	s.holdings = snapshot(holdings)
	s.scheduleLocked()
	s.mu.Unlock()
}

// MergeAdd adds only holdings whose ticker is not already present.
func (s *Store) MergeAdd(holdings []domain.Holding) {
	s.mu.Lock()
	s.holdings = domain.MergeAdd(s.holdings, holdings)
	s.scheduleLocked()
	s.mu.Unlock()
}

// Clear empties the portfolio and persists the empty state. Used for the
// explicit user-confirmed reset.
func (s *Store) Clear() {
	s.mu.Lock()
	s.holdings = nil
	s.scheduleLocked()
	s.mu.Unlock()
}

// Detach wipes all per-user state without persisting. Used on sign-out:
// nothing may be written under the departed identity and nothing may
// linger in memory.
func (s *Store) Detach() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.holdings = nil
	s.userID = ""
	s.ctx = context.Background()
	s.mu.Unlock()
}

// Flush persists the current portfolio immediately, bypassing the debounce
// window. Used by the manual "sync now" action.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	if s.userID == "" {
		s.mu.Unlock()
		return fmt.Errorf("no signed-in user")
	}
	payload, err := s.encodeLocked()
	userID := s.userID
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.persist(ctx, userID, payload)
}

// scheduleLocked stages the serialized portfolio in the pending slot and
// resets the debounce timer. Callers hold s.mu. Mutations during the load
// window or with no signed-in user stay memory-only.
func (s *Store) scheduleLocked() {
	if s.loading || s.userID == "" {
		return
	}
	payload, err := s.encodeLocked()
	if err != nil {
		s.log.Error().Err(err).Msg("encode portfolio document")
		return
	}
	s.pending = payload
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.firePending)
}

func (s *Store) firePending() {
	s.mu.Lock()
	payload := s.pending
	s.pending = nil
	s.timer = nil
	userID := s.userID
	ctx := s.ctx
	s.mu.Unlock()

	if payload == nil || userID == "" {
		return
	}
	if err := s.persist(ctx, userID, payload); err != nil {
		s.log.Warn().Err(err).Msg("debounced persist failed")
	}
}

func (s *Store) persist(ctx context.Context, userID string, payload []byte) error {
	s.onStatus(StatusSaving)
	err := s.docs.Set(ctx, docstore.UserDocKey(userID), payload, true)
	if err != nil {
		s.onStatus(StatusError)
		if errors.Is(err, docstore.ErrPermissionDenied) {
			s.log.Error().Str("user", userID).Msg("portfolio write denied, check access rules")
		} else {
			s.log.Warn().Err(err).Str("user", userID).Msg("portfolio persist failed")
		}
		return fmt.Errorf("persist portfolio: %w", err)
	}
	s.onStatus(StatusSaved)
	return nil
}

func (s *Store) encodeLocked() ([]byte, error) {
	doc := userDocument{
		Portfolio: s.holdings,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if doc.Portfolio == nil {
		doc.Portfolio = []domain.Holding{}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode portfolio document: %w", err)
	}
	return payload, nil
}

func snapshot(holdings []domain.Holding) []domain.Holding {
	out := make([]domain.Holding, len(holdings))
	copy(out, holdings)
	return out
}
