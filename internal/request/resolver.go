package request

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/cache"
	"github.com/connorcarey/bakra/internal/member"
)

// Common errors
var (
	ErrResolveInFlight = errors.New("this request is already being resolved")
)

// RequestReader is the slice of the API the resolver needs.
type RequestReader interface {
	GetPendingRequests(ctx context.Context, memberID string) ([]api.MoneyRequest, error)
	ResolveRequest(ctx context.Context, memberID, requestID string, accept bool) (*api.MoneyRequest, error)
}

// Resolver drives accept/reject of money requests addressed to the current
// user.
//
// Resolution is optimistic-removal with pessimistic confirmation: a request
// disappears from the pending view the moment the server accepts the resolve
// call, not before. The disappearance is enforced locally through a
// suppressed-ids set because the server's list is eventually consistent and
// a stale read may still contain the resolved request. A suppressed id is
// evicted once an authoritative read no longer contains it at all, which
// bounds the set.
type Resolver struct {
	client  RequestReader
	store   *cache.Store
	members *member.Service

	mu         sync.Mutex
	resolving  map[string]bool
	suppressed map[string]bool
}

// NewResolver creates a new request resolver
func NewResolver(client RequestReader, store *cache.Store, members *member.Service) *Resolver {
	return &Resolver{
		client:     client,
		store:      store,
		members:    members,
		resolving:  make(map[string]bool),
		suppressed: make(map[string]bool),
	}
}

// Pending returns the requests awaiting the member's decision, with locally
// resolved ones filtered out.
func (r *Resolver) Pending(ctx context.Context, memberID string) ([]api.MoneyRequest, error) {
	requests, err := cache.Fetch(ctx, r.store, cache.PendingRequestsKey(memberID), func(ctx context.Context) ([]api.MoneyRequest, error) {
		requests, err := r.client.GetPendingRequests(ctx, memberID)
		if err != nil {
			return nil, err
		}
		// Only an authoritative read may evict suppressed ids.
		r.evict(requests)
		return requests, nil
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	pending := make([]api.MoneyRequest, 0, len(requests))
	for _, req := range requests {
		if r.suppressed[req.ID] {
			continue
		}
		pending = append(pending, req)
	}
	return pending, nil
}

// Resolve accepts or rejects a request on behalf of the member it is
// addressed to. While a resolution for an id is in flight, re-invoking for
// the same id is a no-op; other ids resolve independently.
//
// On success the request id is suppressed so it vanishes from the pending
// view immediately, and every dependent aggregate (own record, dashboard,
// transaction history) is re-fetched before Resolve returns. On failure the
// request stays visible and interactive; there is no automatic retry.
func (r *Resolver) Resolve(ctx context.Context, memberID, familyID, requestID string, accept bool) error {
	r.mu.Lock()
	if r.resolving[requestID] {
		r.mu.Unlock()
		return ErrResolveInFlight
	}
	r.resolving[requestID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.resolving, requestID)
		r.mu.Unlock()
	}()

	if _, err := r.client.ResolveRequest(ctx, memberID, requestID, accept); err != nil {
		return err
	}

	r.mu.Lock()
	r.suppressed[requestID] = true
	r.mu.Unlock()

	// Accepting turns the request into a debt owed to the requester, which
	// the group view reads through indebted-to and the roster's per-member
	// debt totals. Those keys go stale here along with the pending list;
	// invalidating on a reject too costs one extra read at most.
	r.store.Invalidate(
		cache.PendingRequestsKey(memberID),
		cache.IndebtedToKey(memberID),
		cache.FamilyMembersKey(familyID),
	)

	// Balances must reflect the resolution without waiting for a full
	// reload. The refetches run concurrently and all must settle before we
	// report the resolution complete.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.members.RefreshSelf(ctx, familyID, memberID) })
	g.Go(func() error { return r.members.RefreshDashboard(ctx) })
	g.Go(func() error { return r.members.RefreshTransactions(ctx, memberID) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("request resolved but refresh failed: %w", err)
	}
	return nil
}

// IsResolving reports whether a resolution for the id is in flight, so the
// view can disable that request's controls only.
func (r *Resolver) IsResolving(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolving[requestID]
}

// Suppressed reports whether the id is locally hidden from the pending view.
func (r *Resolver) Suppressed(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suppressed[requestID]
}

// evict drops suppressed ids the server no longer returns at all.
func (r *Resolver) evict(authoritative []api.MoneyRequest) {
	present := make(map[string]bool, len(authoritative))
	for _, req := range authoritative {
		present[req.ID] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.suppressed {
		if !present[id] {
			delete(r.suppressed, id)
		}
	}
}
