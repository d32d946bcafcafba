package xclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// helper to create client with injected http client
func newTestClient(ts *httptest.Server, opts ...Option) *HTTPClient {
	c := NewHTTPClient("test", append([]Option{WithBaseURL(ts.URL), WithHTTPClient(ts.Client())}, opts...)...)
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

const searchBody = `{
  "data": [
    {"id": "1", "author_id": "u1", "text": "first", "lang": "ja", "created_at": "2022-01-24T03:00:00.000Z",
     "public_metrics": {"like_count": 3, "retweet_count": 2, "reply_count": 1, "quote_count": 4}},
    {"id": "2", "author_id": "u2", "text": "second", "lang": "en", "created_at": "2022-01-24T04:00:00.000Z",
     "public_metrics": {"like_count": 0, "retweet_count": 1, "reply_count": 0, "quote_count": 0}}
  ],
  "includes": {"users": [
    {"id": "u2", "name": "User Two", "username": "two"},
    {"id": "u1", "name": "User One", "username": "one"}
  ]},
  "meta": {"result_count": 2}
}`

func TestSearchRecentMapsParamsAndResponse(t *testing.T) {
	var got *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	start := time.Date(2022, 1, 23, 0, 0, 0, 0, time.UTC)
	page, err := c.SearchRecent(context.Background(), SearchParams{
		Query:      "デイトラ",
		StartTime:  start,
		EndTime:    start.Add(48*time.Hour + 500*time.Millisecond),
		MaxResults: 100,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if got.URL.Path != "/tweets/search/recent" {
		t.Fatalf("unexpected path %s", got.URL.Path)
	}
	q := got.URL.Query()
	want := map[string]string{
		"query":        "デイトラ",
		"start_time":   "2022-01-23T00:00:00Z",
		"end_time":     "2022-01-25T00:00:00Z",
		"max_results":  "100",
		"expansions":   "author_id",
		"tweet.fields": "created_at,lang,public_metrics,author_id",
		"user.fields":  "name,username",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("param %s = %q, want %q", k, q.Get(k), v)
		}
	}
	if h := got.Header.Get("Authorization"); h != "Bearer test" {
		t.Errorf("Authorization = %q", h)
	}

	if len(page.Posts) != 2 || page.Posts[0].ID != "1" || page.Posts[1].ID != "2" {
		t.Fatalf("posts out of order: %+v", page.Posts)
	}
	p := page.Posts[0]
	if p.LikeCount != 3 || p.RetweetCount != 2 || p.QuoteCount != 4 || p.ReplyCount != 1 || p.Language != "ja" || p.AuthorID != "u1" {
		t.Errorf("unexpected post mapping: %+v", p)
	}
	if !p.CreatedAt.Equal(time.Date(2022, 1, 24, 3, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", p.CreatedAt)
	}
	if a := page.Authors["u1"]; a.Name != "User One" || a.Username != "one" {
		t.Errorf("author u1 = %+v", a)
	}
}

func TestSearchRecentClampsSmallCap(t *testing.T) {
	var maxResults string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		maxResults = r.URL.Query().Get("max_results")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer ts.Close()

	if _, err := newTestClient(ts).SearchRecent(context.Background(), SearchParams{Query: "q", MaxResults: 3}); err != nil {
		t.Fatal(err)
	}
	if maxResults != "10" {
		t.Fatalf("max_results = %s, want 10", maxResults)
	}
}

func TestSearchRecentNoData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"result_count":0}}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts).SearchRecent(context.Background(), SearchParams{Query: "q", MaxResults: 10})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestSearchRecentAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"Unauthorized","detail":"Unauthorized","status":401}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts).SearchRecent(context.Background(), SearchParams{Query: "q", MaxResults: 10})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Title != "Unauthorized" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestSearchRecentUserContextSigns(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer ts.Close()

	c := newTestClient(ts, WithUserContext(NewOAuth1Signer("ck", "cs", "at", "as")))
	if _, err := c.SearchRecent(context.Background(), SearchParams{Query: "q", MaxResults: 10}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(auth, "OAuth ") || !strings.Contains(auth, `oauth_token="at"`) || !strings.Contains(auth, "oauth_signature=") {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/test", nil)
	resp, err := c.doWithRetry(context.Background(), req, "test")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoWithRetryDefaultSendsOnce(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	t.Setenv("X_API_MAX_ATTEMPTS", "")
	c := NewHTTPClient("test", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/test", nil)
	resp, err := c.doWithRetry(context.Background(), req, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable || attempts != 1 {
		t.Fatalf("expected a single 503 attempt, got status=%d attempts=%d", resp.StatusCode, attempts)
	}
}

func TestSearchRecentRetrySignsEachAttempt(t *testing.T) {
	var auths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		if len(auths) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer ts.Close()

	var retried []string
	c := newTestClient(ts,
		WithUserContext(NewOAuth1Signer("ck", "cs", "at", "as")),
		WithRetryHook(func(endpoint string) { retried = append(retried, endpoint) }),
	)
	if _, err := c.SearchRecent(context.Background(), SearchParams{Query: "q", MaxResults: 10}); err != nil {
		t.Fatal(err)
	}
	if len(auths) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(auths))
	}
	if auths[0] == auths[1] {
		t.Fatalf("retry reused the signed header %q", auths[0])
	}
	if len(retried) != 1 || retried[0] != "search_recent" {
		t.Fatalf("unexpected retry hook calls %v", retried)
	}
}
