package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/member"
	"github.com/connorcarey/bakra/internal/money"
	"github.com/connorcarey/bakra/pkg/middleware"
	"github.com/connorcarey/bakra/pkg/response"
)

// Routes returns the router serving the Bakra API surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.MemberID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/family", s.GetFamily)
		r.Get("/family/{familyID}/members", s.GetFamilyMembers)
		r.Get("/members/bakra", s.GetBakraUser)
		r.Get("/members/{memberID}", s.GetMember)
		r.Get("/members/{memberID}/indebted-to", s.GetIndebtedTo)
		r.Get("/members/{memberID}/requests", s.GetPendingRequests)
		r.Get("/members/{memberID}/transactions", s.GetTransactions)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMember)
			r.Post("/members/{fromID}/request-money", s.RequestMoney)
			r.Post("/requests/{requestID}/resolve", s.ResolveRequest)
			r.Post("/members/{fromID}/resolve-debt/{toID}", s.ResolveDebt)
		})
	})

	return r
}

// GetFamily handles GET /family
func (s *Server) GetFamily(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	family := s.family
	s.mu.Unlock()

	response.JSON(w, http.StatusOK, family)
}

// GetFamilyMembers handles GET /family/{familyID}/members
func (s *Server) GetFamilyMembers(w http.ResponseWriter, r *http.Request) {
	familyID := chi.URLParam(r, "familyID")

	s.mu.Lock()
	defer s.mu.Unlock()

	if familyID != s.family.FamilyID {
		response.NotFound(w, "Family not found")
		return
	}

	roster := api.Roster{Members: make([]api.Member, 0, len(s.members))}
	for _, m := range s.members {
		roster.Members = append(roster.Members, s.memberView(m))
	}
	response.JSON(w, http.StatusOK, roster)
}

// GetMember handles GET /members/{memberID}
func (s *Server) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.findMember(memberID)
	if m == nil {
		response.NotFound(w, "Member not found")
		return
	}
	response.JSON(w, http.StatusOK, s.memberView(m))
}

// GetBakraUser handles GET /members/bakra
func (s *Server) GetBakraUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := *s.bakra
	// The bakra account's debt is the family's total outstanding debt.
	total := decimal.Zero
	for _, m := range s.members {
		total = total.Add(s.totalDebt(m.ID))
	}
	view.CurrentDebt = total
	response.JSON(w, http.StatusOK, view)
}

// GetIndebtedTo handles GET /members/{memberID}/indebted-to
func (s *Server) GetIndebtedTo(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findMember(memberID) == nil {
		response.NotFound(w, "Member not found")
		return
	}
	debts := api.IndebtedTo{}
	for toID, amount := range s.debts[memberID] {
		debts[toID] = amount
	}
	response.JSON(w, http.StatusOK, debts)
}

// GetPendingRequests handles GET /members/{memberID}/requests
func (s *Server) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]api.MoneyRequest, 0)
	for _, req := range s.requests {
		if req.ToID == memberID && req.Status == api.RequestStatusPending {
			pending = append(pending, *req)
		}
	}
	response.JSON(w, http.StatusOK, pending)
}

// GetTransactions handles GET /members/{memberID}/transactions
func (s *Server) GetTransactions(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]api.Transaction, 0)
	for _, t := range s.transactions {
		if t.FromID == memberID || t.ToID == memberID {
			history = append(history, t)
		}
	}
	response.JSON(w, http.StatusOK, history)
}

// RequestMoney handles POST /members/{fromID}/request-money
func (s *Server) RequestMoney(w http.ResponseWriter, r *http.Request) {
	fromID := chi.URLParam(r, "fromID")
	toID := r.URL.Query().Get("to_id")
	amount := r.URL.Query().Get("amount")
	description := r.URL.Query().Get("description")

	if !money.Valid(amount) {
		response.BadRequest(w, "Amount must be a positive number with at most 2 decimal places")
		return
	}
	value, _ := money.Parse(amount)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findMember(fromID) == nil || s.findMember(toID) == nil {
		response.NotFound(w, "Member not found")
		return
	}
	if fromID == toID {
		response.BadRequest(w, "Cannot request money from yourself")
		return
	}

	req := &api.MoneyRequest{
		ID:          uuid.NewString(),
		FromID:      fromID,
		ToID:        toID,
		Amount:      value,
		Date:        time.Now().UTC().Format(time.RFC3339),
		Status:      api.RequestStatusPending,
		Description: description,
	}
	s.requests = append(s.requests, req)

	response.JSON(w, http.StatusCreated, req)
}

// ResolveRequest handles POST /requests/{requestID}/resolve
func (s *Server) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	accept, err := strconv.ParseBool(r.URL.Query().Get("success"))
	if err != nil {
		response.BadRequest(w, "success must be true or false")
		return
	}
	callerID, _ := middleware.GetMemberID(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.findRequest(requestID)
	if req == nil {
		response.NotFound(w, "Request not found")
		return
	}
	if req.Status != api.RequestStatusPending {
		response.BadRequest(w, "Request is already resolved")
		return
	}
	if req.ToID != callerID {
		response.Unauthorized(w, "Only the recipient can resolve a request")
		return
	}

	resolved := *req
	if accept {
		resolved.Status = api.RequestStatusAccepted
	} else {
		resolved.Status = api.RequestStatusRejected
	}

	// The status flip and its ledger effects apply after the settle lag, so
	// reads in between still see the request as pending. Clients hide it
	// locally until the list catches up.
	s.apply(func() {
		req.Status = resolved.Status
		if !accept {
			return
		}
		from := s.findMember(req.FromID)
		to := s.findMember(req.ToID)
		if from == nil || to == nil {
			return
		}
		outstanding := decimal.Zero
		if d, ok := s.debts[req.ToID]; ok {
			outstanding = d[req.FromID]
		}
		s.setDebt(req.ToID, req.FromID, outstanding.Add(req.Amount))
		s.transactions = append(s.transactions, api.Transaction{
			ID:              uuid.NewString(),
			TypeTransaction: "request",
			FromID:          req.FromID,
			ToID:            req.ToID,
			FromName:        member.DisplayName(*from),
			ToName:          member.DisplayName(*to),
			Amount:          req.Amount,
			FromDebt:        s.totalDebt(req.FromID),
			ToDebt:          s.totalDebt(req.ToID),
			Date:            time.Now().UTC().Format(time.RFC3339),
			Description:     req.Description,
		})
	})

	response.JSON(w, http.StatusOK, resolved)
}

// ResolveDebt handles POST /members/{fromID}/resolve-debt/{toID}
func (s *Server) ResolveDebt(w http.ResponseWriter, r *http.Request) {
	fromID := chi.URLParam(r, "fromID")
	toID := chi.URLParam(r, "toID")
	amount := r.URL.Query().Get("amount")

	if !money.Valid(amount) {
		response.BadRequest(w, "Amount must be a positive number with at most 2 decimal places")
		return
	}
	value, _ := money.Parse(amount)

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.findMember(fromID)
	to := s.findMember(toID)
	if from == nil || to == nil {
		response.NotFound(w, "Member not found")
		return
	}

	outstanding := decimal.Zero
	if d, ok := s.debts[fromID]; ok {
		outstanding = d[toID]
	}
	if outstanding.IsZero() {
		response.BadRequest(w, "No outstanding debt to this member")
		return
	}
	if value.GreaterThan(outstanding) {
		response.BadRequest(w, "Amount exceeds the outstanding debt")
		return
	}

	remaining := outstanding.Sub(value)
	s.apply(func() {
		s.setDebt(fromID, toID, remaining)
		from.Balance = from.Balance.Sub(value)
		to.Balance = to.Balance.Add(value)
		s.transactions = append(s.transactions, api.Transaction{
			ID:              uuid.NewString(),
			TypeTransaction: "settlement",
			FromID:          fromID,
			ToID:            toID,
			FromName:        member.DisplayName(*from),
			ToName:          member.DisplayName(*to),
			Amount:          value,
			FromDebt:        s.totalDebt(fromID),
			ToDebt:          s.totalDebt(toID),
			Date:            time.Now().UTC().Format(time.RFC3339),
		})
	})

	response.JSON(w, http.StatusOK, api.Settlement{
		FromID:    fromID,
		ToID:      toID,
		Amount:    value,
		Remaining: remaining,
	})
}
