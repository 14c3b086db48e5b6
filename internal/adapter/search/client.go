package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/proxy"
	"github.com/user/listing-pipeline/internal/repository"
	"github.com/user/listing-pipeline/pkg/utils"
)

type Config struct {
	RPS         int
	MaxRetries  int
	BaseBackoff time.Duration
	Timeout     time.Duration
}

// Client queries a source's paginated search endpoint.
type Client struct {
	hc         *http.Client
	rl         *rate.Limiter
	proxies    *proxy.Manager
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewClient(cfg Config, proxies *proxy.Manager, logger *zap.Logger) *Client {
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxies.ProxyURL
	return &Client{
		hc:         &http.Client{Timeout: cfg.Timeout, Transport: transport},
		rl:         rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		proxies:    proxies,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.BaseBackoff,
		logger:     logger,
	}
}

var _ repository.SearchClient = (*Client)(nil)

// SearchPage fetches one page. Every failure is wrapped in
// repository.ErrDiscoveryPage.
func (c *Client) SearchPage(ctx context.Context, q entity.SearchQuery) (*entity.SearchPage, error) {
	pageURL, err := BuildURL(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrDiscoveryPage, err)
	}

	body, err := c.get(ctx, pageURL, q.Source.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: offset %d: %v", repository.ErrDiscoveryPage, q.Offset, err)
	}

	page, err := decodePage(body, q.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: offset %d: %v", repository.ErrDiscoveryPage, q.Offset, err)
	}
	return page, nil
}

// BuildURL renders the search request for a query.
func BuildURL(q entity.SearchQuery) (string, error) {
	u, err := url.Parse(q.Source.SearchURL)
	if err != nil {
		return "", err
	}
	business, ok := q.Source.OperationParams[q.Operation]
	if !ok {
		return "", fmt.Errorf("source %s has no parameter for operation %q", q.Source.Website, q.Operation)
	}
	params := u.Query()
	params.Set("realEstateTypeList", q.Source.PropertyType)
	params.Set("realEstateBusinessList", business)
	params.Set("city", q.Source.City)
	params.Set("from", strconv.Itoa(q.Offset))
	params.Set("size", strconv.Itoa(q.Size))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// get retries on 429 and transient 5xx with exponential backoff, honoring
// Retry-After when provided.
func (c *Client) get(ctx context.Context, pageURL, apiKey string) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		if apiKey != "" {
			req.Header.Set("X-Api-Key", apiKey)
		}
		req.Header.Set("Accept", "application/json")
		if ua := c.proxies.GetUserAgent(); ua != "" {
			req.Header.Set("User-Agent", ua)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < c.maxRetries && sleepCtx(ctx, c.backoffFor(i)) {
				continue
			}
			return nil, lastErr
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			return body, err

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = c.backoffFor(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			c.logger.Debug("retrying search page", zap.String("url", pageURL), zap.Int("status", resp.StatusCode), zap.Int("attempt", i+1))
			if i < c.maxRetries && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return nil, lastErr
}

type resultEntry struct {
	Link        string          `json:"link"`
	MidInmueble json.RawMessage `json:"midinmueble"`
	PropertyID  json.RawMessage `json:"propertyId"`
	ID          json.RawMessage `json:"id"`
}

type searchResponse struct {
	TotalHits int           `json:"totalHits"`
	Results   []resultEntry `json:"results"`
}

// decodePage accepts either {"totalHits": n, "results": [...]} or a bare
// array of results.
func decodePage(body []byte, src entity.Source) (*entity.SearchPage, error) {
	trimmed := bytes.TrimSpace(body)
	var resp searchResponse
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &resp.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	default:
		return nil, fmt.Errorf("unexpected response body")
	}

	page := &entity.SearchPage{Total: resp.TotalHits, Refs: make([]entity.ListingRef, 0, len(resp.Results))}
	for _, r := range resp.Results {
		if r.Link == "" {
			continue
		}
		detailURL, err := utils.JoinDetailURL(src.DetailBaseURL, r.Link)
		if err != nil {
			continue
		}
		page.Refs = append(page.Refs, entity.ListingRef{
			Code:    firstCode(r.MidInmueble, r.PropertyID, r.ID),
			URL:     detailURL,
			Website: src.Website,
		})
	}
	return page, nil
}

// firstCode returns the first identifier that is a non-empty string or number.
func firstCode(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n != "" {
			return n.String()
		}
	}
	return ""
}

func (c *Client) backoffFor(i int) time.Duration {
	return c.backoff * time.Duration(1<<i)
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// sleepCtx waits for d or returns false if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
