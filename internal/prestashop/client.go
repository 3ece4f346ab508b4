// Package prestashop implements the upstream adapter against a PrestaShop
// style administrative webservice.
//
// The webservice issues short-lived session tokens from POST /api/login.
// The service stays stateless: every operation logs in first and uses the
// token for its own calls only. Nothing survives across inbound requests, so
// a rotated key or revoked token is picked up immediately at the cost of one
// extra HTTP call per operation.
package prestashop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"
	"golang.org/x/mod/semver"

	"storefront-bridge/internal/adapter"
	"storefront-bridge/internal/model"
	"storefront-bridge/internal/transport"
)

const (
	// apiBasePath prefixes every webservice route.
	apiBasePath = "/api"

	// serviceName labels upstream failures in error envelopes and logs.
	serviceName = "PrestaShop"

	// userAgent identifies the service to the platform. Some CDN rules
	// throttle unknown agents harder, so keep it browser-shaped.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// requestTimeout bounds each upstream call. Longer than typical admin
	// API latency but short enough that a hung upstream doesn't pin the
	// inbound request forever.
	requestTimeout = 25 * time.Second
)

// Config holds platform-specific client configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string

	// ShopSegment selects a shop in multistore installations; empty for
	// single-store setups.
	ShopSegment string

	// MinAPIVersion rejects upstreams older than this webservice version
	// ("1.7.8" or "v1.7.8"); empty disables the check.
	MinAPIVersion string
}

// Client talks to the platform's administrative webservice.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	apiSecret   string
	shopSegment string
	minVersion  string
}

// New creates a webservice client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("API credentials are required")
	}
	if cfg.MinAPIVersion != "" && !semver.IsValid(normalizeVersion(cfg.MinAPIVersion)) {
		return nil, fmt.Errorf("invalid minimum API version %q", cfg.MinAPIVersion)
	}

	// Chrome TLS fingerprint transport avoids JA3-based rate limiting on
	// CDN-fronted stores. See internal/transport for rationale.
	return &Client{
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport.NewChromeTransport(requestTimeout),
		},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		shopSegment: cfg.ShopSegment,
		minVersion:  normalizeVersion(cfg.MinAPIVersion),
	}, nil
}

var _ adapter.Adapter = (*Client)(nil)

// ResolveCustomer looks up the customer identifier for an email address.
func (c *Client) ResolveCustomer(ctx context.Context, email string) (string, error) {
	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}

	path := "/customers?filter[email]=" + url.QueryEscape(email) + "&limit=1"
	var list psCustomerList
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &list); err != nil {
		return "", err
	}
	if len(list.Customers) == 0 {
		return "", model.NewNotFoundError("customer")
	}
	return list.Customers[0].ID, nil
}

// GetAddressBook fetches a fresh snapshot of the customer's addresses.
func (c *Client) GetAddressBook(ctx context.Context, customerID string) (*model.AddressBook, error) {
	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	return c.fetchAddressBook(ctx, token, customerID)
}

// CreateAddress submits a new address-book entry. The platform answers 201
// with no identifier; callers resolve the assigned ID by re-fetching the
// book and matching on the identity key.
func (c *Client) CreateAddress(ctx context.Context, customerID string, addr *model.Address) error {
	token, err := c.login(ctx)
	if err != nil {
		return err
	}

	payload := fromModel(addr)
	payload.ID = "" // identifiers are assigned server-side
	return c.doJSON(ctx, http.MethodPost, "/customers/"+url.PathEscape(customerID)+"/addresses", token, payload, nil)
}

// UpdateAddress rewrites an existing entry identified by addr.ID.
func (c *Client) UpdateAddress(ctx context.Context, customerID string, addr *model.Address) error {
	if addr.ID == "" {
		return model.NewValidationError("id", "address identifier required for update")
	}

	token, err := c.login(ctx)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, "/addresses/"+url.PathEscape(addr.ID), token, fromModel(addr), nil)
}

// ResolveProduct looks up a product identifier by its URL slug.
func (c *Client) ResolveProduct(ctx context.Context, slug string) (string, error) {
	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}

	path := "/products?filter[link_rewrite]=" + url.QueryEscape(slug) + "&limit=1"
	var list psProductList
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &list); err != nil {
		return "", err
	}
	if len(list.Products) == 0 {
		return "", model.NewNotFoundError("product")
	}
	return list.Products[0].ID, nil
}

// GetCart returns the customer's active cart identifier. The platform
// creates an empty cart on demand, so success always yields an ID.
func (c *Client) GetCart(ctx context.Context, customerID string) (string, error) {
	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}

	var cart psCart
	if err := c.doJSON(ctx, http.MethodGet, "/customers/"+url.PathEscape(customerID)+"/cart", token, nil, &cart); err != nil {
		return "", err
	}
	if cart.Cart.ID == "" {
		return "", model.NewUpstreamError(serviceName, 0, "", fmt.Errorf("cart response missing identifier"))
	}
	return cart.Cart.ID, nil
}

// AddCartItem appends one line item to the cart.
func (c *Client) AddCartItem(ctx context.Context, cartID string, item *adapter.CartItemInsert) error {
	token, err := c.login(ctx)
	if err != nil {
		return err
	}

	payload := psCartItem{
		ProductID:      item.ProductID,
		AddressID:      item.AddressID,
		Quantity:       item.Quantity,
		Carrier:        item.ShippingMethod,
		Customizations: item.PricingOptions,
	}
	return c.doJSON(ctx, http.MethodPost, "/carts/"+url.PathEscape(cartID)+"/items", token, payload, nil)
}

// === Internals ===

// login authenticates against the webservice and returns a session token.
// Called at the start of every operation; tokens are never cached.
func (c *Client) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(loginRequest{Key: c.apiKey, Secret: c.apiSecret})
	if err != nil {
		return "", fmt.Errorf("marshaling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiBasePath+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", model.NewUpstreamError(serviceName, 0, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading login response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if resp.StatusCode == 401 || resp.StatusCode == 403 {
			return "", model.NewUnauthorizedError("upstream rejected API credentials")
		}
		return "", c.parseErrorResponse(resp.StatusCode, resp.Header, respBody)
	}

	var login loginResponse
	if err := json.Unmarshal(respBody, &login); err != nil {
		return "", fmt.Errorf("parsing login response: %w", err)
	}
	if login.Token == "" {
		return "", model.NewUnauthorizedError("upstream returned no session token")
	}
	if err := c.checkVersion(login.Version); err != nil {
		return "", err
	}
	return login.Token, nil
}

// checkVersion gates on the webservice version reported at login.
func (c *Client) checkVersion(version string) error {
	if c.minVersion == "" || version == "" {
		return nil
	}
	got := normalizeVersion(version)
	if !semver.IsValid(got) {
		// Unparseable version strings pass; the gate only rejects
		// upstreams that are provably too old.
		return nil
	}
	if semver.Compare(got, c.minVersion) < 0 {
		return &model.APIError{
			Code:       "UPSTREAM_VERSION",
			Message:    fmt.Sprintf("upstream webservice %s is older than required %s", version, strings.TrimPrefix(c.minVersion, "v")),
			StatusCode: 502,
			Err:        model.ErrVersionTooOld,
		}
	}
	return nil
}

// normalizeVersion adds the "v" prefix golang.org/x/mod/semver expects.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// apiPath builds a webservice path, inserting the shop segment when the
// installation is multistore.
func (c *Client) apiPath(path string) string {
	if c.shopSegment != "" {
		return apiBasePath + "/" + c.shopSegment + path
	}
	return apiBasePath + path
}

// doJSON performs one authenticated webservice call. in is marshaled as the
// request body when non-nil; out is filled from the response when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var bodyReader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+c.apiPath(path), bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError(serviceName, 0, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return c.parseErrorResponse(resp.StatusCode, resp.Header, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// fetchAddressBook retrieves and translates the customer's address book
// using an already-established session token.
func (c *Client) fetchAddressBook(ctx context.Context, token, customerID string) (*model.AddressBook, error) {
	var wire psAddressBook
	if err := c.doJSON(ctx, http.MethodGet, "/customers/"+url.PathEscape(customerID)+"/addresses", token, nil, &wire); err != nil {
		return nil, err
	}

	book := &model.AddressBook{Additional: make([]model.Address, 0, len(wire.Addresses))}
	if wire.Default != nil {
		def := wire.Default.toModel()
		book.Default = &def
	}
	for i := range wire.Addresses {
		book.Additional = append(book.Additional, wire.Addresses[i].toModel())
	}
	return book, nil
}

// setHeaders applies common headers to a webservice request.
func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// parseErrorResponse converts a webservice error to an APIError, preserving
// the upstream status so it can flow through to the caller.
func (c *Client) parseErrorResponse(statusCode int, header http.Header, body []byte) error {
	var psErr psError
	json.Unmarshal(body, &psErr) // best effort parse

	switch statusCode {
	case 404:
		return model.NewNotFoundError("resource")
	case 401, 403:
		return model.NewUnauthorizedError("upstream authentication failed")
	case 429:
		return model.NewRateLimitError(serviceName, parseRateLimitReset(header))
	default:
		msg := psErr.message()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return model.NewUpstreamError(serviceName, statusCode, msg,
			fmt.Errorf("status %d: %s", statusCode, msg))
	}
}

// parseRateLimitReset extracts the reset delay in seconds from a RateLimit
// header (RFC 8941 Dictionary, e.g. `limit=100, remaining=0, reset=30`).
// Returns zero when the header is absent or malformed.
func parseRateLimitReset(header http.Header) int {
	raw := header.Get("RateLimit")
	if raw == "" {
		return 0
	}
	dict, err := httpsfv.UnmarshalDictionary([]string{raw})
	if err != nil {
		return 0
	}
	member, ok := dict.Get("reset")
	if !ok {
		return 0
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return 0
	}
	reset, ok := item.Value.(int64)
	if !ok || reset < 0 {
		return 0
	}
	return int(reset)
}
