// Package devserver is an in-memory stand-in for the hosted Bakra backend,
// used for local development and integration tests. State is seeded fixtures
// held in memory and lost on exit; it is not a ledger implementation.
package devserver

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/connorcarey/bakra/internal/api"
)

// Server holds the in-memory backend state. All access goes through the
// mutex; handlers are safe for concurrent use.
type Server struct {
	// settleLag delays the application of mutations, mimicking the hosted
	// backend's asynchronous settlement. Zero applies mutations immediately.
	settleLag time.Duration

	mu           sync.Mutex
	family       api.Family
	members      []*api.Member
	bakra        *api.Member
	requests     []*api.MoneyRequest
	transactions []api.Transaction
	// debts[from][to] is the amount from owes to.
	debts map[string]map[string]decimal.Decimal
}

// New creates a dev server seeded with a fixture family.
func New(settleLag time.Duration) *Server {
	s := &Server{
		settleLag: settleLag,
		debts:     make(map[string]map[string]decimal.Decimal),
	}
	s.seed()
	return s
}

func (s *Server) seed() {
	s.family = api.Family{FamilyID: "fam-1", Name: "Bakra"}
	s.members = []*api.Member{
		{ID: "1", FirstName: "Ada", LastName: "Lovelace", Balance: decimal.NewFromInt(120)},
		{ID: "2", FirstName: "Charles", LastName: "Babbage", Balance: decimal.NewFromInt(80)},
		{ID: "3", FirstName: "Grace", LastName: "Hopper", Balance: decimal.NewFromInt(200)},
	}
	s.bakra = &api.Member{ID: "bakra", FirstName: "Bakra", LastName: "Family", Balance: decimal.NewFromInt(400)}
	s.setDebt("2", "1", decimal.RequireFromString("25.00"))
}

// SeedDebt records that from owes to the given amount. Test hook.
func (s *Server) SeedDebt(fromID, toID string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setDebt(fromID, toID, amount)
}

// SeedRequest adds a pending money request. Test hook.
func (s *Server) SeedRequest(req api.MoneyRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Status == "" {
		req.Status = api.RequestStatusPending
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format(time.RFC3339)
	}
	s.requests = append(s.requests, &req)
}

func (s *Server) setDebt(fromID, toID string, amount decimal.Decimal) {
	if s.debts[fromID] == nil {
		s.debts[fromID] = make(map[string]decimal.Decimal)
	}
	if amount.IsZero() {
		delete(s.debts[fromID], toID)
		return
	}
	s.debts[fromID][toID] = amount
}

func (s *Server) findMember(id string) *api.Member {
	for _, m := range s.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Server) findRequest(id string) *api.MoneyRequest {
	for _, r := range s.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// memberView returns a copy of m with its derived debt total filled in.
func (s *Server) memberView(m *api.Member) api.Member {
	view := *m
	view.CurrentDebt = s.totalDebt(m.ID)
	return view
}

func (s *Server) totalDebt(memberID string) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range s.debts[memberID] {
		total = total.Add(amount)
	}
	return total
}

// apply runs fn after the settle lag, or immediately when the lag is zero.
// It mimics mutations the hosted backend acknowledges before their effects
// are readable.
func (s *Server) apply(fn func()) {
	if s.settleLag <= 0 {
		fn()
		return
	}
	time.AfterFunc(s.settleLag, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
	})
}
