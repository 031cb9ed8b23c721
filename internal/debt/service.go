package debt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/cache"
	"github.com/connorcarey/bakra/internal/member"
	"github.com/connorcarey/bakra/internal/money"
)

// Common errors
var (
	ErrNotLoggedIn     = errors.New("no active identity; log in first")
	ErrNoCounterparty  = errors.New("select a member to pay")
	ErrPaymentInFlight = errors.New("a payment to this member is already being processed")
)

// DebtAPI is the slice of the API the debt service needs.
type DebtAPI interface {
	GetIndebtedTo(ctx context.Context, memberID string) (api.IndebtedTo, error)
	ResolveDebt(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*api.Settlement, error)
}

// Service drives debt payments from the current user to another family
// member.
type Service struct {
	client      DebtAPI
	store       *cache.Store
	members     *member.Service
	settleDelay time.Duration

	mu         sync.Mutex
	processing map[string]bool
}

// NewService creates a new debt service. settleDelay is the wait after a
// confirmed payment before dependent views are refreshed; the backend
// settles balances asynchronously and an immediate read can race it.
func NewService(client DebtAPI, store *cache.Store, members *member.Service, settleDelay time.Duration) *Service {
	return &Service{
		client:      client,
		store:       store,
		members:     members,
		settleDelay: settleDelay,
		processing:  make(map[string]bool),
	}
}

// IndebtedTo returns the map of counterparty id to amount the member owes
// them.
func (s *Service) IndebtedTo(ctx context.Context, memberID string) (api.IndebtedTo, error) {
	return cache.Fetch(ctx, s.store, cache.IndebtedToKey(memberID), func(ctx context.Context) (api.IndebtedTo, error) {
		return s.client.GetIndebtedTo(ctx, memberID)
	})
}

// RefreshIndebtedTo re-reads the member's debt map.
func (s *Service) RefreshIndebtedTo(ctx context.Context, memberID string) error {
	s.store.Invalidate(cache.IndebtedToKey(memberID))
	_, err := s.IndebtedTo(ctx, memberID)
	return err
}

// Resolve pays amount of the debt fromID owes toID.
//
// On success it waits out the settle delay, invalidates the entire cache and
// re-fetches every view that depends on debt state (debt map, own record,
// roster, dashboard) before returning, so the caller may only close its
// input affordance once balances are consistent again. On failure the error
// is returned for inline display and the input stays open.
func (s *Service) Resolve(ctx context.Context, fromID, familyID, toID, amount string) error {
	if fromID == "" {
		return ErrNotLoggedIn
	}
	if toID == "" {
		return ErrNoCounterparty
	}
	value, err := money.Parse(amount)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.processing[toID] {
		s.mu.Unlock()
		return ErrPaymentInFlight
	}
	s.processing[toID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.processing, toID)
		s.mu.Unlock()
	}()

	if _, err := s.client.ResolveDebt(ctx, fromID, toID, value); err != nil {
		return err
	}

	// Bridge the backend's eventual-consistency window before reading back.
	select {
	case <-time.After(s.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.store.InvalidateAll()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.RefreshIndebtedTo(ctx, fromID) })
	g.Go(func() error { return s.members.RefreshSelf(ctx, familyID, fromID) })
	g.Go(func() error { return s.members.RefreshRoster(ctx, familyID) })
	g.Go(func() error { return s.members.RefreshDashboard(ctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("payment confirmed but refresh failed: %w", err)
	}
	return nil
}

// IsProcessing reports whether a payment to the counterparty is in flight.
func (s *Service) IsProcessing(toID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing[toID]
}
