package engagement

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xsearch/internal/model"
)

var created = time.Date(2022, 1, 24, 3, 0, 0, 0, time.UTC)

func authorsOf(ids ...string) map[string]model.Author {
	m := make(map[string]model.Author, len(ids))
	for _, id := range ids {
		m[id] = model.Author{ID: id, Name: "name-" + id, Username: "h_" + id}
	}
	return m
}

func TestFilterAndProjectWorkedExample(t *testing.T) {
	posts := []model.Post{
		{ID: "1", AuthorID: "u1", LikeCount: 3, RetweetCount: 2, QuoteCount: 7, Text: "hello", CreatedAt: created},
		{ID: "2", AuthorID: "u2", LikeCount: 0, RetweetCount: 1, CreatedAt: created},
	}

	records, skipped := FilterAndProject(posts, authorsOf("u1", "u2"), 3, nil)
	require.Empty(t, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, model.EngagementRecord{
		AuthorName:   "name-u1",
		AuthorID:     "u1",
		RetweetCount: 2,
		LikeCount:    3,
		QuoteCount:   7,
		CreatedAt:    created,
		Text:         "hello",
	}, records[0])
}

func TestFilterAndProjectStrictAtZero(t *testing.T) {
	posts := []model.Post{
		{ID: "1", AuthorID: "u1"},
		{ID: "2", AuthorID: "u1"},
		{ID: "3", AuthorID: "u1", LikeCount: 1},
	}
	records, _ := FilterAndProject(posts, authorsOf("u1"), 0, nil)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].LikeCount)
}

func TestFilterAndProjectEqualToThresholdExcluded(t *testing.T) {
	posts := []model.Post{{ID: "1", AuthorID: "u1", LikeCount: 2, RetweetCount: 1}}
	records, _ := FilterAndProject(posts, authorsOf("u1"), 3, nil)
	assert.Empty(t, records)
}

func TestFilterAndProjectEmpty(t *testing.T) {
	records, skipped := FilterAndProject(nil, authorsOf("u1"), 0, nil)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Empty(t, skipped)
}

func TestFilterAndProjectMissingAuthorSkipped(t *testing.T) {
	posts := []model.Post{
		{ID: "1", AuthorID: "gone", LikeCount: 50},
		{ID: "2", AuthorID: "u1", LikeCount: 50},
	}

	var records []model.EngagementRecord
	var skipped []*PartialDataError
	require.NotPanics(t, func() {
		records, skipped = FilterAndProject(posts, authorsOf("u1"), 3, nil)
	})
	require.Len(t, records, 1)
	assert.Equal(t, "u1", records[0].AuthorID)
	require.Len(t, skipped, 1)
	assert.Equal(t, "1", skipped[0].PostID)
	assert.Equal(t, "gone", skipped[0].AuthorID)
	assert.True(t, errors.Is(skipped[0], ErrPartialData))
}

// The author list arrives in a different order than the posts; pairing must
// follow author_id, not position.
func TestFilterAndProjectJoinsByIDNotPosition(t *testing.T) {
	posts := []model.Post{
		{ID: "1", AuthorID: "u2", LikeCount: 10},
		{ID: "2", AuthorID: "u1", LikeCount: 10},
		{ID: "3", AuthorID: "u2", LikeCount: 10},
	}
	records, _ := FilterAndProject(posts, authorsOf("u1", "u2"), 0, nil)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"u2", "u1", "u2"}, []string{records[0].AuthorID, records[1].AuthorID, records[2].AuthorID})
	assert.Equal(t, "name-u2", records[2].AuthorName)
}

func TestFilterAndProjectLocalizesTimestamp(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	posts := []model.Post{{ID: "1", AuthorID: "u1", LikeCount: 5, CreatedAt: created}}

	records, _ := FilterAndProject(posts, authorsOf("u1"), 0, tokyo)
	require.Len(t, records, 1)
	assert.Equal(t, "2022-01-24 12:00:00", records[0].CreatedAt.Format("2006-01-02 15:04:05"))
	assert.True(t, records[0].CreatedAt.Equal(created))
}

func TestFilterAndProjectProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		threshold := rng.Intn(20)
		authors := authorsOf("a", "b", "c")
		posts := make([]model.Post, rng.Intn(40))
		for i := range posts {
			author := []string{"a", "b", "c", "missing"}[rng.Intn(4)]
			posts[i] = model.Post{
				ID:           fmt.Sprintf("p%d", i),
				AuthorID:     author,
				LikeCount:    rng.Intn(15),
				RetweetCount: rng.Intn(15),
				QuoteCount:   rng.Intn(5),
				Text:         fmt.Sprintf("text %d", i),
			}
		}

		records, skipped := FilterAndProject(posts, authors, threshold, nil)

		var want []model.EngagementRecord
		wantSkipped := 0
		for _, p := range posts {
			a, ok := authors[p.AuthorID]
			if !ok {
				wantSkipped++
				continue
			}
			if p.LikeCount+p.RetweetCount > threshold {
				want = append(want, Project(a, p, time.UTC))
			}
		}

		for _, r := range records {
			require.Greater(t, r.LikeCount+r.RetweetCount, threshold, "soundness, trial %d", trial)
		}
		require.Len(t, records, len(want), "completeness, trial %d", trial)
		for i := range want {
			require.Equal(t, want[i], records[i], "stability, trial %d", trial)
		}
		require.Len(t, skipped, wantSkipped)

		again, againSkipped := FilterAndProject(posts, authors, threshold, nil)
		require.Equal(t, records, again, "idempotence, trial %d", trial)
		require.Equal(t, skipped, againSkipped)
	}
}
