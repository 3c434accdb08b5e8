package gateway

import (
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

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/folio-org/mod-rtac-cache-sub000/pkg/logger"
)

// ClientConfig configures the HTTP gateway client.
type ClientConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	RetryMax int
}

// Client talks to the upstream record systems over their storage HTTP APIs.
// Transient transport failures are retried; HTTP error statuses are not, they
// surface to the caller as operation failures.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

// NewClient constructs a gateway client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway: base url is required")
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	if cfg.RetryMax > 0 {
		rc.RetryMax = cfg.RetryMax
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{baseURL: base, token: cfg.Token, http: rc}, nil
}

// HoldingsCount returns the number of holdings attached to an instance.
func (c *Client) HoldingsCount(ctx context.Context, tenant, instanceID string) (int, error) {
	var out struct {
		TotalRecords int `json:"totalRecords"`
	}
	query := fmt.Sprintf(`instanceId==%q`, instanceID)
	if err := c.get(ctx, tenant, "/holdings-storage/holdings", query, 0, 0, &out); err != nil {
		return 0, err
	}
	return out.TotalRecords, nil
}

// Holdings pages the holdings of an instance.
func (c *Client) Holdings(ctx context.Context, tenant, instanceID string, limit, offset int) ([]Holding, error) {
	var out struct {
		HoldingsRecords []Holding `json:"holdingsRecords"`
	}
	query := fmt.Sprintf(`instanceId==%q`, instanceID)
	if err := c.get(ctx, tenant, "/holdings-storage/holdings", query, limit, offset, &out); err != nil {
		return nil, err
	}
	return out.HoldingsRecords, nil
}

// Items pages the items of a holdings record.
func (c *Client) Items(ctx context.Context, tenant, holdingsID string, limit, offset int) ([]Item, error) {
	var out struct {
		Items []Item `json:"items"`
	}
	query := fmt.Sprintf(`holdingsRecordId==%q`, holdingsID)
	if err := c.get(ctx, tenant, "/item-storage/items", query, limit, offset, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Pieces fetches the pieces of a holdings record, bounded by limit.
func (c *Client) Pieces(ctx context.Context, tenant, holdingID string, limit int) ([]Piece, error) {
	var out struct {
		Pieces []Piece `json:"pieces"`
	}
	query := fmt.Sprintf(`holdingId==%q`, holdingID)
	if err := c.get(ctx, tenant, "/orders-storage/pieces", query, limit, 0, &out); err != nil {
		return nil, err
	}
	return out.Pieces, nil
}

// OpenLoans returns open loans for the supplied item ids.
func (c *Client) OpenLoans(ctx context.Context, tenant string, itemIDs []string) ([]Loan, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var out struct {
		Loans []Loan `json:"loans"`
	}
	query := fmt.Sprintf(`status.name=="Open" and itemId==%s`, cqlAny(itemIDs))
	if err := c.get(ctx, tenant, "/loan-storage/loans", query, len(itemIDs), 0, &out); err != nil {
		return nil, err
	}
	return out.Loans, nil
}

// OpenRequests returns open requests for the supplied item ids.
func (c *Client) OpenRequests(ctx context.Context, tenant string, itemIDs []string) ([]Request, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var out struct {
		Requests []Request `json:"requests"`
	}
	query := fmt.Sprintf(`status=="Open*" and itemId==%s`, cqlAny(itemIDs))
	if err := c.get(ctx, tenant, "/request-storage/requests", query, referencePageLimit, 0, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// referencePageLimit is large enough to load full reference data sets in one
// call; the upstream reference tables are small by design.
const referencePageLimit = 5000

// Locations loads all locations for the tenant.
func (c *Client) Locations(ctx context.Context, tenant string) ([]Location, error) {
	var out struct {
		Locations []Location `json:"locations"`
	}
	if err := c.get(ctx, tenant, "/locations", "", referencePageLimit, 0, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// Libraries loads all libraries for the tenant.
func (c *Client) Libraries(ctx context.Context, tenant string) ([]Library, error) {
	var out struct {
		Loclibs []Library `json:"loclibs"`
	}
	if err := c.get(ctx, tenant, "/location-units/libraries", "", referencePageLimit, 0, &out); err != nil {
		return nil, err
	}
	return out.Loclibs, nil
}

// MaterialTypes loads all material types for the tenant.
func (c *Client) MaterialTypes(ctx context.Context, tenant string) ([]NamedRef, error) {
	var out struct {
		Mtypes []NamedRef `json:"mtypes"`
	}
	if err := c.get(ctx, tenant, "/material-types", "", referencePageLimit, 0, &out); err != nil {
		return nil, err
	}
	return out.Mtypes, nil
}

// LoanTypes loads all loan types for the tenant.
func (c *Client) LoanTypes(ctx context.Context, tenant string) ([]NamedRef, error) {
	var out struct {
		Loantypes []NamedRef `json:"loantypes"`
	}
	if err := c.get(ctx, tenant, "/loan-types", "", referencePageLimit, 0, &out); err != nil {
		return nil, err
	}
	return out.Loantypes, nil
}

// NoteTypes loads all holdings note types for the tenant.
func (c *Client) NoteTypes(ctx context.Context, tenant string) ([]NamedRef, error) {
	var out struct {
		HoldingsNoteTypes []NamedRef `json:"holdingsNoteTypes"`
	}
	if err := c.get(ctx, tenant, "/holdings-note-types", "", referencePageLimit, 0, &out); err != nil {
		return nil, err
	}
	return out.HoldingsNoteTypes, nil
}

func (c *Client) get(ctx context.Context, tenant, path, query string, limit, offset int, out any) error {
	values := url.Values{}
	if query != "" {
		values.Set("query", query)
	}
	values.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}

	endpoint := c.baseURL + path + "?" + values.Encode()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gateway: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Okapi-Tenant", tenant)
	if c.token != "" {
		req.Header.Set("X-Okapi-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.WithModule("gateway").Warn("upstream returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("gateway: %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: %s: decode response: %w", path, err)
	}
	return nil
}

// cqlAny renders a parenthesised CQL alternation for the supplied ids.
func cqlAny(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return "(" + strings.Join(quoted, " or ") + ")"
}
