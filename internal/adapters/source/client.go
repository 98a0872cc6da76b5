package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/edupulse/edusync/pkg/logger"
	"github.com/edupulse/edusync/pkg/metrics"
)

// Default client configuration.
const (
	defaultPageSize       = 500 // the source caps rows per page at 1000
	defaultMaxRetries     = 5
	defaultRequestTimeout = 30 * time.Second
	defaultPageDelay      = 350 * time.Millisecond
	defaultRetryInterval  = 500 * time.Millisecond
)

// Client fetches paginated stream listings. It is created once by the
// orchestrator and passed explicitly; there is no package-level shared
// instance.
type Client struct {
	baseURL       string
	appID         string
	apiKey        string
	httpc         *http.Client
	pageSize      int
	maxRetries    int
	retryInterval time.Duration
	limiter       *rate.Limiter
	log           logger.Logger
}

// NewClient creates a Client for the given API credentials.
func NewClient(baseURL, appID, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		appID:         appID,
		apiKey:        apiKey,
		httpc:         &http.Client{Timeout: defaultRequestTimeout},
		pageSize:      defaultPageSize,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		limiter:       rate.NewLimiter(rate.Every(defaultPageDelay), 1),
		log:           logger.Named("source"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage fetches one page of a stream, retrying transient failures
// with exponential backoff. The inter-page delay is enforced before
// every request; the serialization is deliberate rate-limit politeness.
func (c *Client) FetchPage(ctx context.Context, stream string, page int, filters []Filter) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL, err := c.pageURL(stream, page, filters)
	if err != nil {
		return nil, err
	}

	var result *Page
	operation := func() error {
		p, err := c.doRequest(ctx, stream, reqURL)
		if err != nil {
			return err
		}
		result = p
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryInterval
	bo := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		metrics.RecordFetchRetry(stream)
		c.log.Warn(ctx, "retrying source fetch",
			logger.String("stream", stream),
			logger.Int("page", page),
			logger.Duration("backoff", wait),
			logger.Error(err))
	}
	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		metrics.RecordFetchError(stream)
		if errors.Is(err, ErrRequest) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: stream %s page %d: %v", ErrTransient, stream, page, err)
	}

	metrics.RecordPageFetched(stream, len(result.Records))
	return result, nil
}

// PageFunc handles one fetched page. Returning an error stops the walk.
type PageFunc func(ctx context.Context, page int, records []Record) error

// FetchAll walks every page of a stream starting at fromPage (1-based),
// invoking fn per page. It is restartable from any page index, which is
// what checkpoint resume relies on.
func (c *Client) FetchAll(ctx context.Context, stream string, filters []Filter, fromPage int, fn PageFunc) error {
	if fromPage < 1 {
		fromPage = 1
	}
	totalPages := fromPage // refined by the first response
	for page := fromPage; page <= totalPages; page++ {
		p, err := c.FetchPage(ctx, stream, page, filters)
		if err != nil {
			return err
		}
		totalPages = p.TotalPages
		c.log.Debug(ctx, "fetched page",
			logger.String("stream", stream),
			logger.Int("page", page),
			logger.Int("total_pages", totalPages),
			logger.Int("records", len(p.Records)))
		if err := fn(ctx, page, p.Records); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) pageURL(stream string, page int, filters []Filter) (string, error) {
	encoded, err := encodeFilters(filters)
	if err != nil {
		return "", fmt.Errorf("encode filters: %w", err)
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("rows_per_page", strconv.Itoa(c.pageSize))
	if encoded != "" {
		q.Set("filters", encoded)
	}
	return fmt.Sprintf("%s/objects/%s/records?%s", c.baseURL, url.PathEscape(stream), q.Encode()), nil
}

func (c *Client) doRequest(ctx context.Context, stream, reqURL string) (*Page, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("X-App-ID", c.appID)
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		// timeouts and connection errors are retryable
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordSourceRequestDuration(stream, time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrRequest, resp.StatusCode, body))
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: decode page: %v", ErrRequest, err))
	}
	if page.TotalPages < 1 {
		page.TotalPages = 1
	}
	return &page, nil
}
