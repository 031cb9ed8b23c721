package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/connorcarey/bakra/internal/api"
)

// Common errors
var (
	ErrNoFamily     = errors.New("family information is unavailable")
	ErrBadRoster    = errors.New("family roster is missing or malformed")
	ErrUserNotFound = errors.New("no member matches that email; use the firstnamelastname@gmail.com format")
)

// FamilyReader is the slice of the API the resolver needs.
type FamilyReader interface {
	GetFamily(ctx context.Context) (*api.Family, error)
	GetFamilyMembers(ctx context.Context, familyID string) ([]api.Member, error)
}

// Resolver turns a human-entered email-shaped username into a concrete
// member identity.
type Resolver struct {
	client FamilyReader
}

// NewResolver creates a new login resolver
func NewResolver(client FamilyReader) *Resolver {
	return &Resolver{client: client}
}

// Login resolves username against the family roster and returns the matched
// identity. It never returns a partial identity: any failure leaves the
// caller's session untouched.
//
// Each roster member's candidate email is
// lowercase(first_name)+lowercase(last_name)+"@gmail.com", compared
// case-insensitively against the input. The first match in roster order wins;
// the backend defines no tie-break if two members compute the same candidate.
func (r *Resolver) Login(ctx context.Context, username string) (*CurrentUser, error) {
	family, err := r.client.GetFamily(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFamily, err)
	}
	if family == nil || family.FamilyID == "" {
		return nil, ErrNoFamily
	}

	members, err := r.client.GetFamilyMembers(ctx, family.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRoster, err)
	}
	if members == nil {
		return nil, ErrBadRoster
	}

	for _, member := range members {
		candidate := CandidateEmail(member)
		if candidate == "" {
			continue
		}
		if strings.EqualFold(candidate, strings.TrimSpace(username)) {
			user := &CurrentUser{Member: member, FamilyID: family.FamilyID}
			user.Email = username
			return user, nil
		}
	}

	return nil, ErrUserNotFound
}

// CandidateEmail computes the login email a roster member is expected to use.
// Members with no usable name have no candidate and can never log in.
func CandidateEmail(member api.Member) string {
	first := strings.TrimSpace(member.FirstName)
	last := strings.TrimSpace(member.LastName)
	if first == "" && last == "" {
		return ""
	}
	return strings.ToLower(first) + strings.ToLower(last) + "@gmail.com"
}
