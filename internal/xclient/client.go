package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"xsearch/internal/model"
)

// ErrNoData is returned when a 2xx response carries no data payload.
var ErrNoData = errors.New("x api returned no data")

// APIError is a non-2xx response from the X API.
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("x api status %d", e.Status)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// SearchParams maps onto the query string of GET /2/tweets/search/recent.
type SearchParams struct {
	Query      string
	StartTime  time.Time
	EndTime    time.Time
	MaxResults int
}

// SearchPage is one response page: posts in API order plus the expanded authors.
type SearchPage struct {
	Posts   []model.Post
	Authors map[string]model.Author
}

// Auth modes.
const (
	AuthBearer = "bearer"
	AuthUser   = "user"
)

// HTTPClient is a thin client for X API v2 recent search.
type HTTPClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	signer      *OAuth1Signer
	onRetry     func(endpoint string)
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *HTTPClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = h }
}

// WithRetryHook calls f with the endpoint name before every retried attempt.
func WithRetryHook(f func(endpoint string)) Option {
	return func(c *HTTPClient) { c.onRetry = f }
}

// WithUserContext signs requests with OAuth 1.0a instead of the bearer token.
func WithUserContext(s *OAuth1Signer) Option {
	return func(c *HTTPClient) { c.signer = s }
}

func NewHTTPClient(bearerToken string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("X_API_MAX_ATTEMPTS", 1),
		baseBackoff: time.Duration(getEnvInt("X_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.signer != nil {
		c.signer.Sign(req)
	} else if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

// SearchRecent runs one recent-search request. It never paginates.
func (c *HTTPClient) SearchRecent(ctx context.Context, p SearchParams) (*SearchPage, error) {
	q := url.Values{}
	q.Set("query", p.Query)
	if !p.StartTime.IsZero() {
		q.Set("start_time", formatTime(p.StartTime))
	}
	if !p.EndTime.IsZero() {
		q.Set("end_time", formatTime(p.EndTime))
	}
	q.Set("max_results", strconv.Itoa(clamp(p.MaxResults, 10, 100)))
	q.Set("expansions", "author_id")
	q.Set("tweet.fields", "created_at,lang,public_metrics,author_id")
	q.Set("user.fields", "name,username")

	u := c.baseURL + "/tweets/search/recent?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req, "search_recent")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp)
	}
	var raw struct {
		Data []struct {
			ID            string    `json:"id"`
			Text          string    `json:"text"`
			CreatedAt     time.Time `json:"created_at"`
			Lang          string    `json:"lang"`
			AuthorID      string    `json:"author_id"`
			PublicMetrics struct {
				LikeCount    int `json:"like_count"`
				ReplyCount   int `json:"reply_count"`
				RetweetCount int `json:"retweet_count"`
				QuoteCount   int `json:"quote_count"`
			} `json:"public_metrics"`
		} `json:"data"`
		Includes struct {
			Users []struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Username string `json:"username"`
			} `json:"users"`
		} `json:"includes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(raw.Data) == 0 {
		return nil, ErrNoData
	}
	page := &SearchPage{
		Posts:   make([]model.Post, 0, len(raw.Data)),
		Authors: make(map[string]model.Author, len(raw.Includes.Users)),
	}
	for _, d := range raw.Data {
		page.Posts = append(page.Posts, model.Post{
			ID:           d.ID,
			AuthorID:     d.AuthorID,
			Text:         d.Text,
			CreatedAt:    d.CreatedAt,
			Language:     d.Lang,
			LikeCount:    d.PublicMetrics.LikeCount,
			ReplyCount:   d.PublicMetrics.ReplyCount,
			RetweetCount: d.PublicMetrics.RetweetCount,
			QuoteCount:   d.PublicMetrics.QuoteCount,
		})
	}
	for _, u := range raw.Includes.Users {
		page.Authors[u.ID] = model.Author{ID: u.ID, Name: u.Name, Username: u.Username}
	}
	return page, nil
}

// decodeAPIError reads an RFC 7807 style problem body when one is present.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Title = body.Title
		apiErr.Detail = body.Detail
	}
	return apiErr
}

func formatTime(t time.Time) string { return t.UTC().Truncate(time.Second).Format(time.RFC3339) }

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// doWithRetry retries 429 and 5xx responses up to maxAttempts, honoring Retry-After.
// With the default of one attempt it sends the request exactly once. Every
// attempt is authorized afresh so OAuth nonces are never reused.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 && c.onRetry != nil {
			c.onRetry(endpoint)
		}
		r := req.Clone(ctx)
		c.auth(r)
		resp, err := c.httpClient.Do(r)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			ra := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			wait := backoff
			if ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			// jitter +/-20%
			jitter := time.Duration(float64(wait) * 0.2)
			if jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
