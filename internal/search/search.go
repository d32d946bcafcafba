// Package search runs one bounded recent-search query for a set of criteria.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xsearch/internal/model"
	"xsearch/internal/xclient"
)

// ErrSearchUnavailable covers every reason a search yields no usable page:
// transport errors, API errors, timeouts and an empty data payload.
var ErrSearchUnavailable = errors.New("search unavailable")

// Client is the subset of xclient.HTTPClient used here.
type Client interface {
	SearchRecent(ctx context.Context, p xclient.SearchParams) (*xclient.SearchPage, error)
}

// Search validates criteria and issues a single request bounded by timeout.
// Posts keep API order; authors are keyed by id.
func Search(ctx context.Context, c Client, criteria model.SearchCriteria, timeout time.Duration) ([]model.Post, map[string]model.Author, error) {
	if err := criteria.Validate(); err != nil {
		return nil, nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	page, err := c.SearchRecent(ctx, xclient.SearchParams{
		Query:      criteria.SearchQuery(),
		StartTime:  criteria.Start,
		EndTime:    criteria.End,
		MaxResults: criteria.MaxResults,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w: timed out after %s", ErrSearchUnavailable, timeout)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}
	if page == nil || len(page.Posts) == 0 {
		return nil, nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, xclient.ErrNoData)
	}

	posts := page.Posts
	// The API floor is 10 results; honor smaller caps locally.
	if len(posts) > criteria.MaxResults {
		posts = posts[:criteria.MaxResults]
	}
	authors := page.Authors
	if authors == nil {
		authors = map[string]model.Author{}
	}
	return posts, authors, nil
}
