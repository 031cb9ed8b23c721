package api

import (
	"github.com/shopspring/decimal"
)

// Family is the family root record.
type Family struct {
	FamilyID string `json:"family_id"`
	Name     string `json:"name,omitempty"`
}

// Member represents a person in the family roster. The hosted backend has
// grown several naming schemes over time, so most name fields are optional
// and display-name resolution falls back through them.
type Member struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Name      string `json:"name,omitempty"`
	Surname   string `json:"surname,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`

	Balance     decimal.Decimal `json:"balance"`
	CurrentDebt decimal.Decimal `json:"current_debt"`
}

// Roster is the response shape of the family members endpoint.
type Roster struct {
	Members []Member `json:"members"`
}

// RequestStatus represents the status of a money request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// MoneyRequest represents a pending ask for money from one member to another.
type MoneyRequest struct {
	ID          string          `json:"id"`
	FromID      string          `json:"from_id"`
	ToID        string          `json:"to_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Status      RequestStatus   `json:"status"`
	Description string          `json:"description,omitempty"`
}

// Transaction is an immutable historical ledger entry, read-only on the
// client.
type Transaction struct {
	ID              string          `json:"id"`
	TypeTransaction string          `json:"type_transaction"`
	FromID          string          `json:"from_id"`
	ToID            string          `json:"to_id"`
	FromName        string          `json:"from_name"`
	ToName          string          `json:"to_name"`
	Amount          decimal.Decimal `json:"amount"`
	FromDebt        decimal.Decimal `json:"from_debt"`
	ToDebt          decimal.Decimal `json:"to_debt"`
	Date            string          `json:"date"`
	Description     string          `json:"description,omitempty"`
}

// Settlement is the result of a resolve-debt call.
type Settlement struct {
	FromID    string          `json:"from_id"`
	ToID      string          `json:"to_id"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

// IndebtedTo maps a counterparty member id to the outstanding amount the
// subject member owes them.
type IndebtedTo map[string]decimal.Decimal
