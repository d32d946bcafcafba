package model

import "time"

// Author represents the subset of X user fields returned by the author_id expansion.
type Author struct {
	ID       string
	Name     string
	Username string
}

// Post represents a subset of X post fields used by the tool.
type Post struct {
	ID           string
	AuthorID     string
	Text         string
	CreatedAt    time.Time
	LikeCount    int
	RetweetCount int
	QuoteCount   int
	ReplyCount   int
	Language     string
}

// Engagement is the combined like and repost count used as the retention filter.
func (p Post) Engagement() int { return p.LikeCount + p.RetweetCount }

// EngagementRecord is the flat, exportable projection of a retained post and its author.
type EngagementRecord struct {
	AuthorName   string
	AuthorID     string
	RetweetCount int
	LikeCount    int
	QuoteCount   int
	CreatedAt    time.Time // already converted to the target zone
	Text         string
}
