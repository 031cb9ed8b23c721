package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/connorcarey/bakra/internal/api"
	"github.com/connorcarey/bakra/internal/cache"
	"github.com/connorcarey/bakra/internal/config"
	"github.com/connorcarey/bakra/internal/debt"
	"github.com/connorcarey/bakra/internal/identity"
	"github.com/connorcarey/bakra/internal/member"
	"github.com/connorcarey/bakra/internal/money"
	"github.com/connorcarey/bakra/internal/poll"
	"github.com/connorcarey/bakra/internal/request"
)

// app wires the services behind the terminal views.
type app struct {
	cfg       *config.Config
	session   *identity.Session
	resolver  *identity.Resolver
	store     *cache.Store
	members   *member.Service
	submitter *request.Submitter
	requests  *request.Resolver
	debts     *debt.Service
	alerts    *poll.Poller
	in        *bufio.Scanner
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	store := cache.NewStore()
	members := member.NewService(client, store)

	a := &app{
		cfg:       cfg,
		session:   identity.NewSession(),
		resolver:  identity.NewResolver(client),
		store:     store,
		members:   members,
		submitter: request.NewSubmitter(client, store, cfg.SuccessMessageTTL),
		requests:  request.NewResolver(client, store, members),
		debts:     debt.NewService(client, store, members, cfg.SettleDelay),
		in:        bufio.NewScanner(os.Stdin),
	}

	ctx := context.Background()
	for {
		if !a.session.IsLoggedIn() {
			if !a.login(ctx) {
				return
			}
		}
		if !a.home(ctx) {
			return
		}
	}
}

// prompt reads one line of input, returning false on EOF.
func (a *app) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

// login runs the login view until an identity is resolved. Returns false on
// EOF.
func (a *app) login(ctx context.Context) bool {
	fmt.Println("== Bakra ==")
	for {
		username, ok := a.prompt("Email: ")
		if !ok {
			return false
		}
		if username == "" {
			continue
		}

		user, err := a.resolver.Login(ctx, username)
		if err != nil {
			fmt.Println("Login failed:", api.UserMessage(err))
			continue
		}

		a.session.SetCurrentUser(user)
		fmt.Printf("Welcome, %s!\n", member.DisplayName(user.Member))
		return true
	}
}

// home runs the main tab loop. Returns false on EOF or quit.
func (a *app) home(ctx context.Context) bool {
	for {
		user, ok := a.session.Current()
		if !ok {
			return true
		}

		choice, ok := a.prompt("\n[d]ashboard  [r]equest money  [g]roup  [a]lerts  [l]ogout  [q]uit > ")
		if !ok {
			return false
		}
		switch choice {
		case "d":
			a.dashboard(ctx)
		case "r":
			a.requestMoney(ctx, user)
		case "g":
			a.group(ctx, user)
		case "a":
			if !a.alertsView(ctx, user) {
				return false
			}
		case "l":
			a.logout()
		case "q":
			a.logout()
			return false
		}
	}
}

// logout clears the session and everything derived from it.
func (a *app) logout() {
	if a.alerts != nil {
		a.alerts.Stop()
		a.alerts = nil
	}
	a.session.Logout()
	a.store.Clear()
	fmt.Println("Logged out.")
}

func (a *app) dashboard(ctx context.Context) {
	// Entering the tab re-reads, as the alerts view does on focus; the cache
	// has no staleness of its own.
	a.store.Invalidate(cache.BakraUserKey())
	dash, err := a.members.Dashboard(ctx)
	if err != nil {
		a.showError(ctx, "Failed to load user data", err, func(ctx context.Context) error {
			return a.members.RefreshDashboard(ctx)
		})
		return
	}

	fmt.Printf("Current Balance:  $%s\n", money.Format(dash.Balance))
	fmt.Printf("Outstanding Debt: $%s\n", money.Format(dash.CurrentDebt))
	position := "positive"
	if dash.NetWorth.IsNegative() {
		position = "negative"
	}
	fmt.Printf("Net Worth:        $%s (%s)\n", money.Format(dash.NetWorth), position)
}

func (a *app) requestMoney(ctx context.Context, user *identity.CurrentUser) {
	a.store.Invalidate(cache.FamilyMembersKey(user.FamilyID))
	roster, err := a.members.Roster(ctx, user.FamilyID)
	if err != nil {
		a.showError(ctx, "Failed to load family members", err, func(ctx context.Context) error {
			return a.members.RefreshRoster(ctx, user.FamilyID)
		})
		return
	}

	fmt.Println("Request money from:")
	for _, m := range roster {
		if m.ID == user.ID {
			continue
		}
		fmt.Printf("  %s  %s\n", m.ID, member.DisplayName(m))
	}
	toID, ok := a.prompt("Member id: ")
	if !ok {
		return
	}
	amount, ok := a.prompt("Amount: ")
	if !ok {
		return
	}
	description, ok := a.prompt("Description (optional): ")
	if !ok {
		return
	}

	if err := a.submitter.Submit(ctx, user.ID, user.FamilyID, toID, amount, description); err != nil {
		// Keep the entered amount visible so the user can retry.
		fmt.Printf("Could not send request (amount %q kept): %s\n", amount, api.UserMessage(err))
		return
	}
	if _, message := a.submitter.State(); message != "" {
		fmt.Println(message)
	}
}

func (a *app) group(ctx context.Context, user *identity.CurrentUser) {
	a.store.Invalidate(cache.FamilyMembersKey(user.FamilyID), cache.IndebtedToKey(user.ID))
	roster, err := a.members.Roster(ctx, user.FamilyID)
	if err != nil {
		a.showError(ctx, "Failed to load family members", err, func(ctx context.Context) error {
			return a.members.RefreshRoster(ctx, user.FamilyID)
		})
		return
	}
	owed, err := a.debts.IndebtedTo(ctx, user.ID)
	if err != nil {
		a.showError(ctx, "Failed to load debts", err, func(ctx context.Context) error {
			return a.debts.RefreshIndebtedTo(ctx, user.ID)
		})
		return
	}

	for _, m := range roster {
		if m.ID == user.ID {
			continue
		}
		line := fmt.Sprintf("  %s  %s", m.ID, member.DisplayName(m))
		if amount, ok := owed[m.ID]; ok {
			line += fmt.Sprintf("  (you owe $%s)", money.Format(amount))
		}
		fmt.Println(line)
	}

	toID, ok := a.prompt("Pay member id (blank to go back): ")
	if !ok || toID == "" {
		return
	}
	amount, ok := a.prompt("Amount: ")
	if !ok {
		return
	}

	if err := a.debts.Resolve(ctx, user.ID, user.FamilyID, toID, amount); err != nil {
		fmt.Println("Payment failed:", api.UserMessage(err))
		return
	}
	fmt.Println("Payment complete, balances refreshed.")
}

// alertsView shows pending requests and polls for new ones while active.
// Returns false on EOF.
func (a *app) alertsView(ctx context.Context, user *identity.CurrentUser) bool {
	a.alerts = poll.New(a.cfg.PollInterval, a.cfg.PollJitter, func(ctx context.Context) {
		a.store.Invalidate(cache.PendingRequestsKey(user.ID))
		if _, err := a.requests.Pending(ctx, user.ID); err != nil {
			log.Printf("alerts refresh: %v", err)
		}
	})
	a.alerts.Start()
	a.alerts.Focus()
	defer func() {
		a.alerts.Stop()
		a.alerts = nil
	}()

	for {
		pending, err := a.requests.Pending(ctx, user.ID)
		if err != nil {
			fmt.Println("Failed to load requests:", api.UserMessage(err))
		}

		names := a.requestNames(ctx, pending)
		if len(pending) == 0 {
			fmt.Println("No pending requests.")
		}
		for i, req := range pending {
			fmt.Printf("  %d) %s asks for $%s  %s\n", i+1, names[req.FromID], money.Format(req.Amount), req.Description)
		}

		choice, ok := a.prompt("accept <n> / reject <n> / [b]ack > ")
		if !ok {
			return false
		}
		if choice == "b" || choice == "" {
			return true
		}

		var n int
		var accept bool
		if _, err := fmt.Sscanf(choice, "accept %d", &n); err == nil {
			accept = true
		} else if _, err := fmt.Sscanf(choice, "reject %d", &n); err != nil {
			continue
		}
		if n < 1 || n > len(pending) {
			continue
		}

		req := pending[n-1]
		if err := a.requests.Resolve(ctx, user.ID, user.FamilyID, req.ID, accept); err != nil {
			fmt.Println("Could not resolve request:", api.UserMessage(err))
		}
	}
}

// requestNames resolves the display names of each request's sender.
func (a *app) requestNames(ctx context.Context, pending []api.MoneyRequest) map[string]string {
	ids := make([]string, 0, len(pending))
	seen := make(map[string]bool)
	for _, req := range pending {
		if !seen[req.FromID] {
			seen[req.FromID] = true
			ids = append(ids, req.FromID)
		}
	}

	names := make(map[string]string, len(ids))
	details, err := a.members.MultipleDetails(ctx, ids)
	if err != nil {
		details = nil
	}
	for _, id := range ids {
		if m := details[id]; m != nil {
			names[id] = member.DisplayName(*m)
		} else {
			names[id] = "Unknown"
		}
	}
	return names
}

// showError renders a failed read with a manual retry affordance.
func (a *app) showError(ctx context.Context, title string, err error, reload func(ctx context.Context) error) {
	fmt.Printf("%s: %s\n", title, api.UserMessage(err))
	choice, ok := a.prompt("[r]etry / [b]ack > ")
	if !ok || choice != "r" {
		return
	}
	if err := reload(ctx); err != nil {
		fmt.Println("Still failing:", api.UserMessage(err))
	} else {
		fmt.Println("Reloaded.")
	}
}
