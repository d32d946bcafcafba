// Package pipeline runs one search-filter-export pass as a linear state machine:
// Idle → Authenticated → Searched → Filtered → Exported → Done, or Failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xsearch/internal/config"
	"xsearch/internal/engagement"
	"xsearch/internal/export"
	"xsearch/internal/metrics"
	"xsearch/internal/model"
	"xsearch/internal/search"
)

// Stage is a pipeline state.
type Stage int

const (
	Idle Stage = iota
	Authenticated
	Searched
	Filtered
	Exported
	Done
	Failed
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticated:
		return "authenticated"
	case Searched:
		return "searched"
	case Filtered:
		return "filtered"
	case Exported:
		return "exported"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError carries the stage a run was in when it failed. Stage is the
// transition that did not happen, e.g. Searched when the search call failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage.Describe(), e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Describe names the step that leads into s, for user-facing messages.
func (s Stage) Describe() string {
	switch s {
	case Idle:
		return "pre-flight"
	case Authenticated:
		return "credentials"
	case Searched:
		return "search"
	case Filtered:
		return "filter"
	case Exported:
		return "export"
	default:
		return s.String()
	}
}

// ClientFactory builds a search client from loaded credentials.
type ClientFactory func(config.Credentials) (search.Client, error)

// Pipeline wires the collaborators of a run. Everything is injected.
type Pipeline struct {
	Credentials config.CredentialProvider
	NewClient   ClientFactory
	Exporters   []export.Exporter
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Timeout     time.Duration
	Location    *time.Location
}

// Result summarizes a run.
type Result struct {
	RunID    string
	Final    Stage
	Posts    int
	Retained int
	Skipped  int
	Records  []model.EngagementRecord
}

// Run executes the pipeline once for criteria.
func (p *Pipeline) Run(ctx context.Context, criteria model.SearchCriteria) (Result, error) {
	res := Result{RunID: uuid.NewString(), Final: Idle}
	log := p.logger().With("run_id", res.RunID)
	m := p.Metrics
	if m == nil {
		m = metrics.New()
	}
	m.Runs.Inc()

	fail := func(next Stage, err error) (Result, error) {
		res.Final = Failed
		m.RunErrors.WithLabelValues(next.String()).Inc()
		log.Error("run failed", "stage", next.Describe(), "error", err.Error())
		return res, &StageError{Stage: next, Err: err}
	}
	advance := func(next Stage, args ...any) {
		res.Final = next
		log.Info("stage "+next.String(), args...)
	}

	log.Info("run start",
		"query", criteria.SearchQuery(),
		"start", criteria.Start.Format(time.RFC3339),
		"end", criteria.End.Format(time.RFC3339),
		"max_results", criteria.MaxResults,
		"threshold", criteria.Threshold,
	)

	if err := criteria.Validate(); err != nil {
		return fail(Idle, err)
	}
	if p.Credentials == nil {
		return fail(Authenticated, fmt.Errorf("%w: no credential provider", config.ErrMissingCredential))
	}
	creds, err := p.Credentials.Credentials()
	if err != nil {
		return fail(Authenticated, err)
	}
	log.Debug("credentials loaded", "credentials", creds.String())
	client, err := p.NewClient(creds)
	if err != nil {
		return fail(Authenticated, err)
	}
	advance(Authenticated)

	started := time.Now()
	posts, authors, err := search.Search(ctx, client, criteria, p.Timeout)
	m.ObserveSearch(started)
	if err != nil {
		return fail(Searched, err)
	}
	res.Posts = len(posts)
	m.PostsFetched.Add(float64(len(posts)))
	advance(Searched, "posts", len(posts), "authors", len(authors))

	records, skipped := engagement.FilterAndProject(posts, authors, criteria.Threshold, p.Location)
	for _, s := range skipped {
		log.Warn("post skipped", "post_id", s.PostID, "author_id", s.AuthorID, "error", s.Error())
	}
	res.Records = records
	res.Retained = len(records)
	res.Skipped = len(skipped)
	m.PostsRetained.Add(float64(len(records)))
	m.PostsSkipped.Add(float64(len(skipped)))
	advance(Filtered, "retained", len(records), "skipped", len(skipped))

	for _, e := range p.Exporters {
		if err := e.Export(records); err != nil {
			return fail(Exported, fmt.Errorf("%s: %w", e.Name(), err))
		}
		log.Debug("exported", "destination", e.Name(), "records", len(records))
	}
	advance(Exported, "destinations", len(p.Exporters))

	advance(Done)
	log.Info("run end")
	return res, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// FailedStage returns the stage a run failed at, if err came from Run.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}
