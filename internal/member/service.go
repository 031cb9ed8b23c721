package member

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/cache"
)

// Common errors
var (
	ErrSelfNotFound = errors.New("current user data not found")
)

// Reader is the slice of the API the member views need.
type Reader interface {
	GetFamilyMembers(ctx context.Context, familyID string) ([]api.Member, error)
	GetMember(ctx context.Context, memberID string) (*api.Member, error)
	GetBakraUser(ctx context.Context) (*api.Member, error)
	GetTransactions(ctx context.Context, memberID string) ([]api.Transaction, error)
}

// Service provides the read-side member views. All reads go through the
// query cache; Refresh variants force the next read to the remote source and
// are what mutation flows call after the server confirms a write.
type Service struct {
	client Reader
	store  *cache.Store
}

// NewService creates a new member service
func NewService(client Reader, store *cache.Store) *Service {
	return &Service{client: client, store: store}
}

// Roster returns the full roster for a family.
func (s *Service) Roster(ctx context.Context, familyID string) ([]api.Member, error) {
	return cache.Fetch(ctx, s.store, cache.FamilyMembersKey(familyID), func(ctx context.Context) ([]api.Member, error) {
		return s.client.GetFamilyMembers(ctx, familyID)
	})
}

// RefreshRoster re-reads the roster from the remote source.
func (s *Service) RefreshRoster(ctx context.Context, familyID string) error {
	s.store.Invalidate(cache.FamilyMembersKey(familyID))
	_, err := s.Roster(ctx, familyID)
	return err
}

// Self returns the logged-in member's own record, looked up in the roster.
func (s *Service) Self(ctx context.Context, familyID, memberID string) (*api.Member, error) {
	return cache.Fetch(ctx, s.store, cache.CurrentUserDataKey(memberID), func(ctx context.Context) (*api.Member, error) {
		members, err := s.client.GetFamilyMembers(ctx, familyID)
		if err != nil {
			return nil, err
		}
		for i := range members {
			if members[i].ID == memberID {
				return &members[i], nil
			}
		}
		return nil, ErrSelfNotFound
	})
}

// RefreshSelf re-reads the logged-in member's record.
func (s *Service) RefreshSelf(ctx context.Context, familyID, memberID string) error {
	s.store.Invalidate(cache.CurrentUserDataKey(memberID))
	_, err := s.Self(ctx, familyID, memberID)
	return err
}

// Details returns a single member's record.
func (s *Service) Details(ctx context.Context, memberID string) (*api.Member, error) {
	return cache.Fetch(ctx, s.store, cache.MemberDetailsKey(memberID), func(ctx context.Context) (*api.Member, error) {
		return s.client.GetMember(ctx, memberID)
	})
}

// MultipleDetails returns the records for a batch of members, keyed by id.
// A member that fails to load gets a nil entry instead of failing the whole
// batch; the view shows "Unknown" for those.
func (s *Service) MultipleDetails(ctx context.Context, memberIDs []string) (map[string]*api.Member, error) {
	if len(memberIDs) == 0 {
		return map[string]*api.Member{}, nil
	}
	return cache.Fetch(ctx, s.store, cache.MultipleMemberDetailsKey(memberIDs), func(ctx context.Context) (map[string]*api.Member, error) {
		var mu sync.Mutex
		details := make(map[string]*api.Member, len(memberIDs))

		g, ctx := errgroup.WithContext(ctx)
		for _, id := range memberIDs {
			id := id
			g.Go(func() error {
				m, err := s.client.GetMember(ctx, id)
				if err != nil {
					m = nil
				}
				mu.Lock()
				details[id] = m
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return details, nil
	})
}

// Dashboard returns the bakra account aggregate with its derived net worth.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	return cache.Fetch(ctx, s.store, cache.BakraUserKey(), func(ctx context.Context) (*Dashboard, error) {
		user, err := s.client.GetBakraUser(ctx)
		if err != nil {
			return nil, err
		}
		return &Dashboard{
			User:        *user,
			Balance:     user.Balance,
			CurrentDebt: user.CurrentDebt,
			NetWorth:    user.Balance.Sub(user.CurrentDebt),
		}, nil
	})
}

// RefreshDashboard re-reads the bakra aggregate.
func (s *Service) RefreshDashboard(ctx context.Context) error {
	s.store.Invalidate(cache.BakraUserKey())
	_, err := s.Dashboard(ctx)
	return err
}

// Transactions returns the transaction history for a member, newest first.
func (s *Service) Transactions(ctx context.Context, memberID string) ([]api.Transaction, error) {
	return cache.Fetch(ctx, s.store, cache.TransactionsKey(memberID), func(ctx context.Context) ([]api.Transaction, error) {
		transactions, err := s.client.GetTransactions(ctx, memberID)
		if err != nil {
			return nil, err
		}
		// Dates are RFC 3339, so lexicographic order is chronological.
		sort.SliceStable(transactions, func(i, j int) bool {
			return transactions[i].Date > transactions[j].Date
		})
		return transactions, nil
	})
}

// RefreshTransactions re-reads a member's transaction history.
func (s *Service) RefreshTransactions(ctx context.Context, memberID string) error {
	s.store.Invalidate(cache.TransactionsKey(memberID))
	_, err := s.Transactions(ctx, memberID)
	return err
}
