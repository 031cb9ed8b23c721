package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/connorcarey/bakra/pkg/response"
)

// Client is a typed HTTP client for the Bakra backend. All methods are safe
// for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetFamily retrieves the family root record.
func (c *Client) GetFamily(ctx context.Context) (*Family, error) {
	family := &Family{}
	if err := c.get(ctx, "/api/v1/family", nil, family); err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetFamilyMembers retrieves the full roster for a family.
func (c *Client) GetFamilyMembers(ctx context.Context, familyID string) ([]Member, error) {
	roster := &Roster{}
	path := fmt.Sprintf("/api/v1/family/%s/members", url.PathEscape(familyID))
	if err := c.get(ctx, path, nil, roster); err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return roster.Members, nil
}

// GetMember retrieves a single member by ID.
func (c *Client) GetMember(ctx context.Context, memberID string) (*Member, error) {
	member := &Member{}
	path := fmt.Sprintf("/api/v1/members/%s", url.PathEscape(memberID))
	if err := c.get(ctx, path, nil, member); err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// GetBakraUser retrieves the dashboard aggregate for the bakra account.
func (c *Client) GetBakraUser(ctx context.Context) (*Member, error) {
	member := &Member{}
	if err := c.get(ctx, "/api/v1/members/bakra", nil, member); err != nil {
		return nil, fmt.Errorf("failed to get bakra user: %w", err)
	}
	return member, nil
}

// GetIndebtedTo retrieves the map of counterparty id to amount the given
// member owes them.
func (c *Client) GetIndebtedTo(ctx context.Context, memberID string) (IndebtedTo, error) {
	debts := IndebtedTo{}
	path := fmt.Sprintf("/api/v1/members/%s/indebted-to", url.PathEscape(memberID))
	if err := c.get(ctx, path, nil, &debts); err != nil {
		return nil, fmt.Errorf("failed to get indebted-to: %w", err)
	}
	return debts, nil
}

// GetPendingRequests retrieves the money requests currently addressed to the
// given member.
func (c *Client) GetPendingRequests(ctx context.Context, memberID string) ([]MoneyRequest, error) {
	var requests []MoneyRequest
	path := fmt.Sprintf("/api/v1/members/%s/requests", url.PathEscape(memberID))
	if err := c.get(ctx, path, nil, &requests); err != nil {
		return nil, fmt.Errorf("failed to get pending requests: %w", err)
	}
	return requests, nil
}

// GetTransactions retrieves the transaction history involving the given
// member.
func (c *Client) GetTransactions(ctx context.Context, memberID string) ([]Transaction, error) {
	var transactions []Transaction
	path := fmt.Sprintf("/api/v1/members/%s/transactions", url.PathEscape(memberID))
	if err := c.get(ctx, path, nil, &transactions); err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return transactions, nil
}

// RequestMoney creates a money request from one member to another.
func (c *Client) RequestMoney(ctx context.Context, fromID, toID string, amount decimal.Decimal, description string) (*MoneyRequest, error) {
	request := &MoneyRequest{}
	path := fmt.Sprintf("/api/v1/members/%s/request-money", url.PathEscape(fromID))
	params := url.Values{}
	params.Set("to_id", toID)
	params.Set("amount", amount.String())
	if description != "" {
		params.Set("description", description)
	}
	if err := c.post(ctx, fromID, path, params, request); err != nil {
		return nil, fmt.Errorf("failed to request money: %w", err)
	}
	return request, nil
}

// ResolveRequest accepts or rejects a money request.
func (c *Client) ResolveRequest(ctx context.Context, memberID, requestID string, accept bool) (*MoneyRequest, error) {
	request := &MoneyRequest{}
	path := fmt.Sprintf("/api/v1/requests/%s/resolve", url.PathEscape(requestID))
	params := url.Values{}
	params.Set("success", strconv.FormatBool(accept))
	if err := c.post(ctx, memberID, path, params, request); err != nil {
		return nil, fmt.Errorf("failed to resolve request: %w", err)
	}
	return request, nil
}

// ResolveDebt pays down the debt the from member owes the to member.
func (c *Client) ResolveDebt(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*Settlement, error) {
	settlement := &Settlement{}
	path := fmt.Sprintf("/api/v1/members/%s/resolve-debt/%s", url.PathEscape(fromID), url.PathEscape(toID))
	params := url.Values{}
	params.Set("amount", amount.String())
	if err := c.post(ctx, fromID, path, params, settlement); err != nil {
		return nil, fmt.Errorf("failed to resolve debt: %w", err)
	}
	return settlement, nil
}

// get issues a GET request and decodes the data envelope into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, "", path, params, out)
}

// post issues a POST request on behalf of memberID and decodes the data
// envelope into out.
func (c *Client) post(ctx context.Context, memberID, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodPost, memberID, path, params, out)
}

func (c *Client) do(ctx context.Context, method, memberID, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	if memberID != "" {
		req.Header.Set("X-Member-ID", memberID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	envelope := response.APIResponse{}
	if jsonErr := json.Unmarshal(body, &envelope); jsonErr != nil || (!envelope.Success && envelope.Error == nil) {
		// Not our envelope (proxy error page, truncated body). Fall back to
		// the HTTP status.
		if resp.StatusCode >= 400 {
			return &Error{StatusCode: resp.StatusCode}
		}
		if jsonErr != nil {
			return fmt.Errorf("failed to decode response: %w", jsonErr)
		}
	}

	if !envelope.Success {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
