package member

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/connorcarey/bakra/internal/api"
)

// Dashboard is the aggregate shown on the dashboard view.
type Dashboard struct {
	User        api.Member
	Balance     decimal.Decimal
	CurrentDebt decimal.Decimal
	// NetWorth is balance minus outstanding debt; the only place a derived
	// amount may be negative, and the view labels it accordingly.
	NetWorth decimal.Decimal
}

// DisplayName resolves a member's name, falling back through the naming
// schemes the backend has used over time.
func DisplayName(m api.Member) string {
	if name := strings.TrimSpace(m.FirstName + " " + m.LastName); name != "" {
		return name
	}
	if name := strings.TrimSpace(m.Name + " " + m.Surname); name != "" {
		return name
	}
	return "Unknown"
}
