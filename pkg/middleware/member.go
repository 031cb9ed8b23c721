package middleware

import (
	"context"
	"net/http"

	"github.com/connorcarey/bakra/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// MemberIDKey is the context key for the calling member's ID
	MemberIDKey ContextKey = "member_id"
)

// MemberHeader is the header the client uses to identify the acting member.
// The hosted backend derives the caller from its session instead; the dev
// server has no sessions, so the header stands in for one.
const MemberHeader = "X-Member-ID"

// MemberID extracts the caller's member ID from the request header and adds
// it to the request context. Requests without the header pass through with no
// member ID set; handlers that need one use RequireMember.
func MemberID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(MemberHeader); id != "" {
			ctx := context.WithValue(r.Context(), MemberIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireMember rejects requests that carry no member identification.
func RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetMemberID(r.Context()); !ok {
			response.Unauthorized(w, "Member identification required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetMemberID extracts the member ID from the request context
func GetMemberID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(MemberIDKey).(string)
	return id, ok
}
