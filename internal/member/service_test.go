package member

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/cache"
)

type fakeReader struct {
	mu           sync.Mutex
	members      []api.Member
	bakra        api.Member
	transactions []api.Transaction
	failMember   map[string]bool
	rosterCalls  int
	memberCalls  int
}

func (f *fakeReader) GetFamilyMembers(ctx context.Context, familyID string) ([]api.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	return f.members, nil
}

func (f *fakeReader) GetMember(ctx context.Context, memberID string) (*api.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberCalls++
	if f.failMember[memberID] {
		return nil, errors.New("boom")
	}
	for i := range f.members {
		if f.members[i].ID == memberID {
			return &f.members[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeReader) GetBakraUser(ctx context.Context) (*api.Member, error) {
	return &f.bakra, nil
}

func (f *fakeReader) GetTransactions(ctx context.Context, memberID string) ([]api.Transaction, error) {
	return f.transactions, nil
}

func newTestService(reader *fakeReader) *Service {
	return NewService(reader, cache.NewStore())
}

func TestDisplayNameFallback(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", DisplayName(api.Member{FirstName: "Ada", LastName: "Lovelace"}))
	assert.Equal(t, "Ada", DisplayName(api.Member{FirstName: "Ada"}))
	assert.Equal(t, "Grace Hopper", DisplayName(api.Member{Name: "Grace", Surname: "Hopper"}))
	assert.Equal(t, "Unknown", DisplayName(api.Member{ID: "9", Username: "ghost"}))
}

func TestRosterIsCached(t *testing.T) {
	reader := &fakeReader{members: []api.Member{{ID: "1"}}}
	service := newTestService(reader)

	for i := 0; i < 3; i++ {
		members, err := service.Roster(context.Background(), "fam-1")
		require.NoError(t, err)
		assert.Len(t, members, 1)
	}
	assert.Equal(t, 1, reader.rosterCalls)

	require.NoError(t, service.RefreshRoster(context.Background(), "fam-1"))
	assert.Equal(t, 2, reader.rosterCalls)
}

func TestSelfFindsOwnRecord(t *testing.T) {
	reader := &fakeReader{members: []api.Member{
		{ID: "1", FirstName: "Ada"},
		{ID: "2", FirstName: "Grace"},
	}}
	service := newTestService(reader)

	self, err := service.Self(context.Background(), "fam-1", "2")
	require.NoError(t, err)
	assert.Equal(t, "Grace", self.FirstName)

	_, err = service.Self(context.Background(), "fam-1", "99")
	assert.ErrorIs(t, err, ErrSelfNotFound)
}

func TestMultipleDetailsToleratesFailures(t *testing.T) {
	reader := &fakeReader{
		members: []api.Member{
			{ID: "1", FirstName: "Ada"},
			{ID: "2", FirstName: "Grace"},
		},
		failMember: map[string]bool{"2": true},
	}
	service := newTestService(reader)

	details, err := service.MultipleDetails(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, details, 2)
	require.NotNil(t, details["1"])
	assert.Equal(t, "Ada", details["1"].FirstName)
	assert.Nil(t, details["2"])
}

func TestMultipleDetailsEmpty(t *testing.T) {
	service := newTestService(&fakeReader{})
	details, err := service.MultipleDetails(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestDashboardDerivesNetWorth(t *testing.T) {
	reader := &fakeReader{bakra: api.Member{
		ID:          "bakra",
		Balance:     decimal.RequireFromString("100.00"),
		CurrentDebt: decimal.RequireFromString("125.50"),
	}}
	service := newTestService(reader)

	dash, err := service.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, dash.NetWorth.Equal(decimal.RequireFromString("-25.50")))
}

func TestTransactionsSortedNewestFirst(t *testing.T) {
	reader := &fakeReader{transactions: []api.Transaction{
		{ID: "a", Date: "2026-01-01T10:00:00Z"},
		{ID: "b", Date: "2026-03-01T10:00:00Z"},
		{ID: "c", Date: "2026-02-01T10:00:00Z"},
	}}
	service := newTestService(reader)

	transactions, err := service.Transactions(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, transactions, 3)
	assert.Equal(t, "b", transactions[0].ID)
	assert.Equal(t, "c", transactions[1].ID)
	assert.Equal(t, "a", transactions[2].ID)
}
