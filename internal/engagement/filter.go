// Package engagement filters search results by engagement and projects them
// into exportable records.
package engagement

import (
	"errors"
	"fmt"
	"time"

	"xsearch/internal/model"
)

// ErrPartialData marks a post dropped because its author was not in the response.
var ErrPartialData = errors.New("partial data")

// PartialDataError identifies a skipped post. It is recoverable.
type PartialDataError struct {
	PostID   string
	AuthorID string
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("post %s: author %q not in response", e.PostID, e.AuthorID)
}

func (e *PartialDataError) Unwrap() error { return ErrPartialData }

// Retained reports whether a post clears the threshold. The bound is strict.
func Retained(p model.Post, threshold int) bool {
	return p.Engagement() > threshold
}

// FilterAndProject walks posts in order, joins each to its author by id and
// keeps those whose like plus repost count exceeds threshold. Posts without an
// author are returned in skipped instead. A nil loc means UTC.
func FilterAndProject(posts []model.Post, authors map[string]model.Author, threshold int, loc *time.Location) (records []model.EngagementRecord, skipped []*PartialDataError) {
	if loc == nil {
		loc = time.UTC
	}
	records = make([]model.EngagementRecord, 0, len(posts))
	for _, p := range posts {
		a, ok := authors[p.AuthorID]
		if !ok {
			skipped = append(skipped, &PartialDataError{PostID: p.ID, AuthorID: p.AuthorID})
			continue
		}
		if !Retained(p, threshold) {
			continue
		}
		records = append(records, Project(a, p, loc))
	}
	return records, skipped
}

// Project builds the record for one author and post pair.
func Project(a model.Author, p model.Post, loc *time.Location) model.EngagementRecord {
	return model.EngagementRecord{
		AuthorName:   a.Name,
		AuthorID:     a.ID,
		RetweetCount: p.RetweetCount,
		LikeCount:    p.LikeCount,
		QuoteCount:   p.QuoteCount,
		CreatedAt:    p.CreatedAt.In(loc),
		Text:         p.Text,
	}
}
