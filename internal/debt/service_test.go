package debt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/cache"
	"github.com/connorcarey/bakra/internal/member"
	"github.com/connorcarey/bakra/internal/money"
)

// fakeBackend settles a payment as the real backend would: the indebted-to
// map and balances only change once ResolveDebt has been called.
type fakeBackend struct {
	mu           sync.Mutex
	debts        api.IndebtedTo
	balance      decimal.Decimal
	resolveErr   error
	resolveCalls int
}

func (f *fakeBackend) GetIndebtedTo(ctx context.Context, memberID string) (api.IndebtedTo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := api.IndebtedTo{}
	for id, amount := range f.debts {
		out[id] = amount
	}
	return out, nil
}

func (f *fakeBackend) ResolveDebt(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*api.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	remaining := f.debts[toID].Sub(amount)
	if remaining.IsZero() {
		delete(f.debts, toID)
	} else {
		f.debts[toID] = remaining
	}
	f.balance = f.balance.Sub(amount)
	return &api.Settlement{FromID: fromID, ToID: toID, Amount: amount, Remaining: remaining}, nil
}

// memberReader serves roster records whose balance tracks the fake backend.
type memberReader struct {
	backend *fakeBackend
}

func (m *memberReader) GetFamilyMembers(ctx context.Context, familyID string) ([]api.Member, error) {
	m.backend.mu.Lock()
	defer m.backend.mu.Unlock()
	return []api.Member{{ID: "1", FirstName: "Ada", Balance: m.backend.balance}}, nil
}

func (m *memberReader) GetMember(ctx context.Context, memberID string) (*api.Member, error) {
	return &api.Member{ID: memberID}, nil
}

func (m *memberReader) GetBakraUser(ctx context.Context) (*api.Member, error) {
	return &api.Member{ID: "bakra"}, nil
}

func (m *memberReader) GetTransactions(ctx context.Context, memberID string) ([]api.Transaction, error) {
	return nil, nil
}

func newTestService(backend *fakeBackend, settleDelay time.Duration) (*Service, *cache.Store) {
	store := cache.NewStore()
	members := member.NewService(&memberReader{backend: backend}, store)
	return NewService(backend, store, members, settleDelay), store
}

func TestResolveValidatesBeforeNetwork(t *testing.T) {
	backend := &fakeBackend{debts: api.IndebtedTo{}}
	service, _ := newTestService(backend, 0)
	ctx := context.Background()

	assert.ErrorIs(t, service.Resolve(ctx, "", "fam-1", "2", "10.00"), ErrNotLoggedIn)
	assert.ErrorIs(t, service.Resolve(ctx, "1", "fam-1", "", "10.00"), ErrNoCounterparty)
	assert.ErrorIs(t, service.Resolve(ctx, "1", "fam-1", "2", "-5"), money.ErrInvalidAmount)
	assert.ErrorIs(t, service.Resolve(ctx, "1", "fam-1", "2", "10.555"), money.ErrInvalidAmount)
	assert.Equal(t, 0, backend.resolveCalls)
}

func TestResolveRefreshesDebtState(t *testing.T) {
	backend := &fakeBackend{
		debts:   api.IndebtedTo{"2": decimal.RequireFromString("25.00")},
		balance: decimal.RequireFromString("100.00"),
	}
	service, _ := newTestService(backend, time.Millisecond)
	ctx := context.Background()

	// Prime the cache with pre-payment values.
	owed, err := service.IndebtedTo(ctx, "1")
	require.NoError(t, err)
	assert.True(t, owed["2"].Equal(decimal.RequireFromString("25.00")))

	require.NoError(t, service.Resolve(ctx, "1", "fam-1", "2", "10.00"))

	// Once Resolve returns, no read may see a pre-payment value.
	owed, err = service.IndebtedTo(ctx, "1")
	require.NoError(t, err)
	assert.True(t, owed["2"].Equal(decimal.RequireFromString("15.00")))
	assert.False(t, service.IsProcessing("2"))
}

func TestResolvePaysOffEntireDebt(t *testing.T) {
	backend := &fakeBackend{debts: api.IndebtedTo{"2": decimal.RequireFromString("25.00")}}
	service, _ := newTestService(backend, 0)
	ctx := context.Background()

	require.NoError(t, service.Resolve(ctx, "1", "fam-1", "2", "25.00"))

	owed, err := service.IndebtedTo(ctx, "1")
	require.NoError(t, err)
	_, stillOwed := owed["2"]
	assert.False(t, stillOwed)
}

func TestResolveFailureClearsProcessing(t *testing.T) {
	backend := &fakeBackend{
		debts:      api.IndebtedTo{"2": decimal.RequireFromString("25.00")},
		resolveErr: &api.Error{StatusCode: 400, Message: "amount exceeds the outstanding debt"},
	}
	service, _ := newTestService(backend, 0)

	err := service.Resolve(context.Background(), "1", "fam-1", "2", "10.00")
	require.Error(t, err)
	assert.Equal(t, "amount exceeds the outstanding debt", api.UserMessage(err))
	assert.False(t, service.IsProcessing("2"))
}

func TestResolveRejectsConcurrentPaymentToSameMember(t *testing.T) {
	backend := &fakeBackend{debts: api.IndebtedTo{"2": decimal.RequireFromString("25.00")}}
	service, _ := newTestService(backend, 50*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- service.Resolve(context.Background(), "1", "fam-1", "2", "5.00")
	}()

	require.Eventually(t, func() bool {
		return service.IsProcessing("2")
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, service.Resolve(context.Background(), "1", "fam-1", "2", "5.00"), ErrPaymentInFlight)
	require.NoError(t, <-done)
}

func TestResolveCancelledDuringSettleDelay(t *testing.T) {
	backend := &fakeBackend{debts: api.IndebtedTo{"2": decimal.RequireFromString("25.00")}}
	service, _ := newTestService(backend, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Resolve(ctx, "1", "fam-1", "2", "5.00")
	}()

	require.Eventually(t, func() bool {
		return service.IsProcessing("2")
	}, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}
