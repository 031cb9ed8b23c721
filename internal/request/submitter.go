package request

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/cache"
	"github.com/connorcarey/bakra/internal/money"
)

// Common errors
var (
	ErrNotLoggedIn    = errors.New("no active identity; log in first")
	ErrNoRecipient    = errors.New("select a member to request from")
	ErrRequestSelf    = errors.New("cannot request money from yourself")
	ErrSubmitInFlight = errors.New("a request is already being submitted")
)

// SubmitState is the submission lifecycle state the view renders from.
type SubmitState int

const (
	SubmitIdle SubmitState = iota
	SubmitPending
	SubmitSuccess
	SubmitError
)

// RequestSender is the slice of the API the submitter needs.
type RequestSender interface {
	RequestMoney(ctx context.Context, fromID, toID string, amount decimal.Decimal, description string) (*api.MoneyRequest, error)
}

// Submitter drives the money request submission flow: validate, submit,
// reflect the outcome, invalidate dependent views. One Submitter backs one
// input form; while a submission is in flight further submits are rejected
// so a double tap cannot create duplicate requests.
type Submitter struct {
	client     RequestSender
	store      *cache.Store
	successTTL time.Duration

	mu      sync.Mutex
	state   SubmitState
	message string
	timer   *time.Timer
}

// NewSubmitter creates a new request submitter
func NewSubmitter(client RequestSender, store *cache.Store, successTTL time.Duration) *Submitter {
	return &Submitter{client: client, store: store, successTTL: successTTL}
}

// Submit validates the inputs and issues the request-money mutation.
//
// Validation failures and submit-in-flight are returned before anything
// reaches the network. On success the caller should clear its amount field;
// on failure it should keep it so the user can retry without re-entering.
func (s *Submitter) Submit(ctx context.Context, fromID, familyID, toID, amount, description string) error {
	if fromID == "" {
		return ErrNotLoggedIn
	}
	if toID == "" {
		return ErrNoRecipient
	}
	if toID == fromID {
		return ErrRequestSelf
	}
	value, err := money.Parse(amount)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == SubmitPending {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.setStateLocked(SubmitPending, "")
	s.mu.Unlock()

	_, err = s.client.RequestMoney(ctx, fromID, toID, value, description)
	if err != nil {
		s.mu.Lock()
		s.setStateLocked(SubmitError, api.UserMessage(err))
		s.mu.Unlock()
		return err
	}

	// Subsequent reads must see the new pending request.
	s.store.Invalidate(
		cache.PendingRequestsKey(toID),
		cache.FamilyMembersKey(familyID),
	)

	s.mu.Lock()
	s.setStateLocked(SubmitSuccess, "Request sent!")
	s.scheduleClearLocked()
	s.mu.Unlock()
	return nil
}

// State returns the current submission state and its transient message.
func (s *Submitter) State() (SubmitState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.message
}

// Reset returns the submitter to idle, cancelling any pending auto-clear.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(SubmitIdle, "")
}

func (s *Submitter) setStateLocked(state SubmitState, message string) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = state
	s.message = message
}

// scheduleClearLocked auto-dismisses the success message after the TTL.
func (s *Submitter) scheduleClearLocked() {
	s.timer = time.AfterFunc(s.successTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == SubmitSuccess {
			s.state = SubmitIdle
			s.message = ""
		}
	})
}
