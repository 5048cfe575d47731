package vinted

import (
	"compress/gzip"
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

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/logistix/vintedsync/internal/cache"
	"github.com/logistix/vintedsync/internal/model"
)

const defaultBaseURL = "https://www.vinted.fr"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxErrorBody caps how much of an error response we keep around.
const maxErrorBody = 2048

// ErrNoSession is returned when no marketplace session exists for the user.
var ErrNoSession = errors.New("no marketplace session for user")

// AuthError means the marketplace rejected the session (401/403). Callers
// must not retry; the session needs replacing.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("marketplace authentication failed (HTTP %d): session cookie invalid or expired", e.StatusCode)
}

// APIError carries a non-2xx marketplace response. Retry policy lives in
// callers, never here.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// SessionSource provides per-user marketplace credentials. Implemented by
// session.Manager.
type SessionSource interface {
	// Cookie returns the raw session cookie header value for the user.
	Cookie(ctx context.Context, userID string) (string, error)
	// UID returns the marketplace user id extracted from the session.
	UID(ctx context.Context, userID string) (string, error)
}

// API is the surface the sync, mapping and market services consume.
type API interface {
	SearchItems(ctx context.Context, userID string, params SearchParams) (*SearchResult, error)
	GetSoldItems(ctx context.Context, userID string) ([]model.MarketplaceItem, error)
}

// Client is the authenticated marketplace HTTP client. One instance is
// shared by all services; the rate limiter keeps the whole process under the
// marketplace's tolerance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionSource
	limiter    *rate.Limiter
	cache      *cache.Cache
	cacheTTL   time.Duration
	userAgent  string
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the marketplace base URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache enables response caching for catalog searches.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithRateLimit overrides the default request rate.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// NewClient creates a marketplace client backed by the given session source.
func NewClient(sessions SessionSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sessions:   sessions,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchItems runs a catalog search with the user's session. Results are
// validated into model items; malformed wire items are counted and dropped.
func (c *Client) SearchItems(ctx context.Context, userID string, params SearchParams) (*SearchResult, error) {
	query := buildSearchQuery(params)

	if c.cache != nil {
		var cached SearchResult
		if found, _ := c.cache.Get(cache.SearchKey(userID, query), &cached); found {
			return &cached, nil
		}
	}

	body, err := c.get(ctx, userID, "/api/v2/catalog/items?"+query)
	if err != nil {
		return nil, err
	}

	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	items, skipped := validateItems(resp.Items)
	result := &SearchResult{Items: items, Skipped: skipped}
	if resp.Pagination != nil {
		result.Page = resp.Pagination.CurrentPage
		result.TotalPages = resp.Pagination.TotalPages
		result.TotalEntries = resp.Pagination.TotalEntries
	}

	if c.cache != nil {
		_ = c.cache.Put(cache.SearchKey(userID, query), result, c.cacheTTL)
	}
	return result, nil
}

// GetSoldItems fetches the user's full wardrobe listing. The wardrobe URL is
// keyed by the marketplace uid carried in the session cookie.
func (c *Client) GetSoldItems(ctx context.Context, userID string) ([]model.MarketplaceItem, error) {
	uid, err := c.sessions.UID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve wardrobe uid: %w", err)
	}

	body, err := c.get(ctx, userID, "/api/v2/wardrobe/"+url.PathEscape(uid)+"/items")
	if err != nil {
		return nil, err
	}

	var resp wardrobeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode wardrobe response: %w", err)
	}

	items, _ := validateItems(resp.Items)
	return items, nil
}

// GetBrands searches marketplace brands by title.
func (c *Client) GetBrands(ctx context.Context, userID, search string) ([]Brand, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search_text", search)
	} else {
		q.Set("per_page", "1000")
	}

	body, err := c.get(ctx, userID, "/api/v2/brands?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp brandsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode brands response: %w", err)
	}
	return resp.Brands, nil
}

// GetCatalogs searches marketplace catalogs (categories) by title.
func (c *Client) GetCatalogs(ctx context.Context, userID, search string) ([]Catalog, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search_text", search)
	}

	body, err := c.get(ctx, userID, "/api/v2/catalogs?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp catalogsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode catalogs response: %w", err)
	}
	return resp.Catalogs, nil
}

func (c *Client) get(ctx context.Context, userID, path string) ([]byte, error) {
	cookie, err := c.sessions.Cookie(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketplace request failed: %w", err)
	}
	defer resp.Body.Close()

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	return body, nil
}

func (c *Client) setHeaders(req *http.Request, cookie string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Cookie", cookie)
}

// decodeBody unwraps the response compression. The marketplace routinely
// serves brotli even to API clients.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func buildSearchQuery(params SearchParams) string {
	q := url.Values{}
	if params.Text != "" {
		q.Set("search_text", params.Text)
	}
	if len(params.BrandIDs) > 0 {
		q.Set("brand_ids", joinInts(params.BrandIDs))
	}
	if len(params.CatalogIDs) > 0 {
		q.Set("catalog_ids", joinInts(params.CatalogIDs))
	}
	if len(params.StatusIDs) > 0 {
		q.Set("status_ids", joinInts(params.StatusIDs))
	}
	if params.PriceFrom != nil {
		q.Set("price_from", strconv.FormatFloat(*params.PriceFrom, 'f', 2, 64))
	}
	if params.PriceTo != nil {
		q.Set("price_to", strconv.FormatFloat(*params.PriceTo, 'f', 2, 64))
	}
	order := params.Order
	if order == "" {
		order = "relevance"
	}
	q.Set("order", order)
	page := params.Page
	if page <= 0 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = 96
	}
	q.Set("per_page", strconv.Itoa(perPage))
	return q.Encode()
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
