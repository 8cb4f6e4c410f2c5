// Package dashboard is the client side of the vendor API: a typed HTTP
// client, the persisted login session and the controller that reconciles
// server listings, search results and the bundled fallback list.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vendorrisk/internal/models"
	"vendorrisk/internal/vendorquery"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 10 * time.Second

var (
	// ErrUnauthorized is returned for a 401; the session is no longer usable.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnexpectedResponse is returned when a response is not a successful
	// envelope carrying the expected data.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// APIError is a failed request that the server described.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// AuthResult is the body of a successful register or login.
type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// VendorPage is one page of the server listing.
type VendorPage struct {
	Vendors    []models.Vendor
	Pagination vendorquery.Pagination
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the vendor API on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the API rooted at baseURL (for example
// http://localhost:8000/api). When the session carries a token every request
// is sent with it as a bearer credential.
func NewClient(baseURL string, session Session) *Client {
	return newClient(baseURL, session, http.DefaultTransport)
}

func newClient(baseURL string, session Session, base http.RoundTripper) *Client {
	transport := base
	if session.Authenticated() {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: session.Token, TokenType: "Bearer"}),
			Base:   base,
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout, Transport: transport},
	}
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.credentials(ctx, "/auth/register", email, password)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.credentials(ctx, "/auth/login", email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.User.ID == 0 {
		return nil, ErrUnexpectedResponse
	}
	return &out, nil
}

// Me returns the user the session belongs to.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, ErrUnexpectedResponse
	}
	return out.User, nil
}

// ListVendors fetches one page of the filtered listing.
func (c *Client) ListVendors(ctx context.Context, f vendorquery.Filter) (*VendorPage, error) {
	var out struct {
		Vendors    *[]models.Vendor        `json:"vendors"`
		Pagination *vendorquery.Pagination `json:"pagination"`
	}
	if err := c.do(ctx, http.MethodGet, "/vendors?"+filterValues(f).Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Vendors == nil || out.Pagination == nil {
		return nil, ErrUnexpectedResponse
	}
	return &VendorPage{Vendors: *out.Vendors, Pagination: *out.Pagination}, nil
}

// SearchVendors runs the name search.
func (c *Client) SearchVendors(ctx context.Context, title string) ([]models.Vendor, error) {
	var out struct {
		Vendors *[]models.Vendor `json:"vendors"`
	}
	q := url.Values{"title": {title}}
	if err := c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Vendors == nil {
		return nil, ErrUnexpectedResponse
	}
	return *out.Vendors, nil
}

// ToggleMonitoring flips the monitored flag of a vendor.
func (c *Client) ToggleMonitoring(ctx context.Context, id uint) (*models.Vendor, error) {
	var out models.Vendor
	path := "/vendors/" + strconv.FormatUint(uint64(id), 10) + "/toggle-monitoring"
	if err := c.do(ctx, http.MethodPatch, path, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, ErrUnexpectedResponse
	}
	return &out, nil
}

// DeleteVendor removes a vendor.
func (c *Client) DeleteVendor(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/vendors/"+strconv.FormatUint(uint64(id), 10), nil, nil)
}

func filterValues(f vendorquery.Filter) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("limit", strconv.Itoa(f.Limit))
	q.Set("sortBy", string(f.SortBy))
	q.Set("sortOrder", string(f.SortOrder))
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.Monitored != nil {
		q.Set("monitored", strconv.FormatBool(*f.Monitored))
	}
	return q
}

// do sends one request and decodes the envelope data into out, which may
// be nil when the data is not needed.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if !env.Success {
		return ErrUnexpectedResponse
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return ErrUnexpectedResponse
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}
