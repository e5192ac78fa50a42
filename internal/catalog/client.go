package catalog

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

	"github.com/stocklinehq/stockline-backend/pkg/config"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

const (
	productsPath        = "/products.json"
	inventoryLevelsPath = "/inventory_levels.json"

	accessTokenHeader = "X-Catalog-Access-Token"

	// One initial attempt plus up to five retries on HTTP 429.
	maxRateLimitRetries = 5
	minRetryAfter       = 2 * time.Second
	retryJitter         = 300 * time.Millisecond

	defaultPageSize = 250
)

var (
	errBaseURLRequired     = errors.New("catalog base url is required")
	errAccessTokenRequired = errors.New("catalog access token is required")
	errLoggerRequired      = errors.New("catalog logger is required")
)

// Client exposes the upstream commerce catalog with centralized auth,
// rate-limit backoff, and error mapping.
type Client struct {
	baseURL     string
	accessToken string
	pageSize    int
	http        *http.Client
	logger      *logger.Logger

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// NewClient initializes the catalog wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.CatalogConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		pageSize:    pageSize,
		http:        &http.Client{Timeout: timeout},
		logger:      logg,
		sleep:       time.Sleep,
	}

	logg.Info(ctx, "catalog client initialized")
	return c, nil
}

// PageSize reports the configured page limit sent with list calls.
func (c *Client) PageSize() int {
	if c == nil {
		return 0
	}
	return c.pageSize
}

// Cursor identifies the next catalog page. PageInfo takes precedence when the
// upstream advertises a Link header; SinceID is the legacy fallback.
type Cursor struct {
	PageInfo string
	SinceID  int64
}

// ProductPage is one page of products plus the cursor to the next page.
type ProductPage struct {
	Products []Product
	Next     Cursor
	HasNext  bool
}

// ListProducts fetches one catalog page. An optional field projection narrows
// the upstream payload; pass nil for full products.
func (c *Client) ListProducts(ctx context.Context, cursor Cursor, fields []string) (ProductPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageSize))
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}
	switch {
	case cursor.PageInfo != "":
		query.Set("page_info", cursor.PageInfo)
	case cursor.SinceID > 0:
		query.Set("since_id", strconv.FormatInt(cursor.SinceID, 10))
	}

	var payload struct {
		Products []Product `json:"products"`
	}
	header, err := c.getJSON(ctx, productsPath, query, &payload)
	if err != nil {
		return ProductPage{}, err
	}

	page := ProductPage{Products: payload.Products}
	link := header.Get("Link")
	switch {
	case link != "":
		if pageInfo := nextPageInfo(link); pageInfo != "" {
			page.Next = Cursor{PageInfo: pageInfo}
			page.HasNext = true
		}
	case len(payload.Products) > 0:
		// No Link support upstream: walk forward from the last seen id.
		page.Next = Cursor{SinceID: payload.Products[len(payload.Products)-1].ID}
		page.HasNext = true
	}
	return page, nil
}

// ListInventoryLevels performs one bulk availability read for the given stock
// item ids. Callers own batching; this issues exactly one request.
func (c *Client) ListInventoryLevels(ctx context.Context, stockItemIDs []int64) ([]InventoryLevel, error) {
	if len(stockItemIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("inventory_item_ids", joinIDs(stockItemIDs))
	query.Set("limit", strconv.Itoa(c.pageSize))

	var payload struct {
		InventoryLevels []InventoryLevel `json:"inventory_levels"`
	}
	if _, err := c.getJSON(ctx, inventoryLevelsPath, query, &payload); err != nil {
		return nil, err
	}
	return payload.InventoryLevels, nil
}

// getJSON issues a GET with the 429 backoff policy: sleep
// max(retry-after, 2s) + 300ms jitter before each retry, give up after
// maxRateLimitRetries. Any other non-2xx status fails immediately.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building catalog request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(accessTokenHeader, c.accessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling catalog api")
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			drainAndClose(resp.Body)

			if attempt >= maxRateLimitRetries {
				return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "catalog api rate limit retries exhausted")
			}

			delay := retryAfter
			if delay < minRetryAfter {
				delay = minRetryAfter
			}
			delay += retryJitter

			logCtx := c.logger.WithFields(ctx, map[string]any{
				"path":    path,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			})
			c.logger.Warn(logCtx, "catalog api rate limited, backing off")
			c.sleep(delay)
			continue
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return nil, pkgerrors.
				New(codeForStatus(resp.StatusCode), fmt.Sprintf("catalog api returned status %d", resp.StatusCode)).
				WithDetails(strings.TrimSpace(string(body)))
		}

		decodeErr := json.NewDecoder(resp.Body).Decode(out)
		drainAndClose(resp.Body)
		if decodeErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decoding catalog response")
		}
		return resp.Header, nil
	}
}

// nextPageInfo extracts the page_info cursor from a Link header rel="next" entry.
func nextPageInfo(link string) string {
	for _, entry := range strings.Split(link, ",") {
		segments := strings.Split(entry, ";")
		if len(segments) < 2 {
			continue
		}

		isNext := false
		for _, segment := range segments[1:] {
			if strings.EqualFold(strings.TrimSpace(segment), `rel="next"`) {
				isNext = true
				break
			}
		}
		if !isNext {
			continue
		}

		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		parsed, err := url.Parse(target)
		if err != nil {
			continue
		}
		if pageInfo := parsed.Query().Get("page_info"); pageInfo != "" {
			return pageInfo
		}
	}
	return ""
}

func parseRetryAfter(raw string) time.Duration {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		return pkgerrors.CodeDependency
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
