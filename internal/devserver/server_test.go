package devserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connorcarey/bakra/internal/api"
)

func newTestClient(t *testing.T, settleLag time.Duration) (*api.Client, *Server) {
	t.Helper()
	server := New(settleLag)
	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)
	return api.NewClient(ts.URL, 2*time.Second), server
}

func TestFamilyAndRoster(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	family, err := client.GetFamily(ctx)
	require.NoError(t, err)
	require.Equal(t, "fam-1", family.FamilyID)

	members, err := client.GetFamilyMembers(ctx, family.FamilyID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Ada", members[0].FirstName)

	_, err = client.GetFamilyMembers(ctx, "other-family")
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestSeededDebtVisible(t *testing.T) {
	client, _ := newTestClient(t, 0)

	debts, err := client.GetIndebtedTo(context.Background(), "2")
	require.NoError(t, err)
	assert.True(t, debts["1"].Equal(decimal.RequireFromString("25.00")))

	members, err := client.GetFamilyMembers(context.Background(), "fam-1")
	require.NoError(t, err)
	for _, m := range members {
		if m.ID == "2" {
			assert.True(t, m.CurrentDebt.Equal(decimal.RequireFromString("25.00")))
		}
	}
}

func TestRequestMoneyFlow(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	req, err := client.RequestMoney(ctx, "1", "3", decimal.RequireFromString("12.50"), "groceries")
	require.NoError(t, err)
	assert.Equal(t, api.RequestStatusPending, req.Status)
	assert.NotEmpty(t, req.ID)

	pending, err := client.GetPendingRequests(ctx, "3")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1", pending[0].FromID)
	assert.Equal(t, "groceries", pending[0].Description)
}

func TestRequestMoneyRejectsBadInput(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	_, err := client.RequestMoney(ctx, "1", "1", decimal.RequireFromString("5"), "")
	assert.Equal(t, "Cannot request money from yourself", api.UserMessage(err))

	_, err = client.RequestMoney(ctx, "1", "99", decimal.RequireFromString("5"), "")
	assert.Equal(t, "Member not found", api.UserMessage(err))
}

func TestResolveRequestAcceptCreatesDebtAndTransaction(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	req, err := client.RequestMoney(ctx, "1", "3", decimal.RequireFromString("12.50"), "")
	require.NoError(t, err)

	resolved, err := client.ResolveRequest(ctx, "3", req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, api.RequestStatusAccepted, resolved.Status)

	// Accepting means the recipient now owes the requester.
	debts, err := client.GetIndebtedTo(ctx, "3")
	require.NoError(t, err)
	assert.True(t, debts["1"].Equal(decimal.RequireFromString("12.50")))

	pending, err := client.GetPendingRequests(ctx, "3")
	require.NoError(t, err)
	assert.Empty(t, pending)

	history, err := client.GetTransactions(ctx, "3")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "request", history[0].TypeTransaction)
	assert.Equal(t, "Grace Hopper", history[0].ToName)
}

func TestResolveRequestOnlyRecipientMayResolve(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	req, err := client.RequestMoney(ctx, "1", "3", decimal.RequireFromString("5"), "")
	require.NoError(t, err)

	_, err = client.ResolveRequest(ctx, "2", req.ID, true)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)

	_, err = client.ResolveRequest(ctx, "3", "missing", true)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 404, apiErr.StatusCode)
}

func TestResolveRequestTwiceFails(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	req, err := client.RequestMoney(ctx, "1", "3", decimal.RequireFromString("5"), "")
	require.NoError(t, err)

	_, err = client.ResolveRequest(ctx, "3", req.ID, false)
	require.NoError(t, err)

	_, err = client.ResolveRequest(ctx, "3", req.ID, false)
	assert.Equal(t, "Request is already resolved", api.UserMessage(err))
}

func TestResolveDebtUpdatesBalances(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	settlement, err := client.ResolveDebt(ctx, "2", "1", decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	assert.True(t, settlement.Remaining.Equal(decimal.RequireFromString("15.00")))

	debts, err := client.GetIndebtedTo(ctx, "2")
	require.NoError(t, err)
	assert.True(t, debts["1"].Equal(decimal.RequireFromString("15.00")))

	members, err := client.GetFamilyMembers(ctx, "fam-1")
	require.NoError(t, err)
	for _, m := range members {
		switch m.ID {
		case "1":
			assert.True(t, m.Balance.Equal(decimal.RequireFromString("130")))
		case "2":
			assert.True(t, m.Balance.Equal(decimal.RequireFromString("70")))
		}
	}
}

func TestResolveDebtRejectsOverpayment(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()

	_, err := client.ResolveDebt(ctx, "2", "1", decimal.RequireFromString("100.00"))
	assert.Equal(t, "Amount exceeds the outstanding debt", api.UserMessage(err))

	_, err = client.ResolveDebt(ctx, "1", "3", decimal.RequireFromString("1.00"))
	assert.Equal(t, "No outstanding debt to this member", api.UserMessage(err))
}

func TestSettleLagDelaysVisibility(t *testing.T) {
	client, _ := newTestClient(t, 50*time.Millisecond)
	ctx := context.Background()

	_, err := client.ResolveDebt(ctx, "2", "1", decimal.RequireFromString("10.00"))
	require.NoError(t, err)

	// Immediately after the call the old amount is still readable; this is
	// the window the client's settle delay bridges.
	debts, err := client.GetIndebtedTo(ctx, "2")
	require.NoError(t, err)
	assert.True(t, debts["1"].Equal(decimal.RequireFromString("25.00")))

	require.Eventually(t, func() bool {
		debts, err := client.GetIndebtedTo(ctx, "2")
		return err == nil && debts["1"].Equal(decimal.RequireFromString("15.00"))
	}, time.Second, 10*time.Millisecond)
}

func TestBakraUserAggregatesFamilyDebt(t *testing.T) {
	client, server := newTestClient(t, 0)
	server.SeedDebt("3", "1", decimal.RequireFromString("5.00"))

	bakra, err := client.GetBakraUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bakra", bakra.ID)
	assert.True(t, bakra.CurrentDebt.Equal(decimal.RequireFromString("30.00")))
}
