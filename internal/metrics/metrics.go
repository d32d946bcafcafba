package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters for one process. Each instance owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	Runs           prometheus.Counter
	RunErrors      *prometheus.CounterVec
	PostsFetched   prometheus.Counter
	PostsRetained  prometheus.Counter
	PostsSkipped   prometheus.Counter
	SearchDuration prometheus.Histogram
	Commands       *prometheus.CounterVec
	APIRetries     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xsearch_runs_total",
			Help: "Total pipeline runs",
		}),
		RunErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsearch_run_errors_total",
			Help: "Total failed runs by failing stage",
		}, []string{"stage"}),
		PostsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xsearch_posts_fetched_total",
			Help: "Posts returned by the search API",
		}),
		PostsRetained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xsearch_posts_retained_total",
			Help: "Posts above the engagement threshold",
		}),
		PostsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xsearch_posts_skipped_total",
			Help: "Posts dropped because their author was missing",
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xsearch_search_duration_seconds",
			Help:    "Search request duration seconds",
			Buckets: prometheus.DefBuckets,
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsearch_commands_total",
			Help: "CLI command invocations by outcome",
		}, []string{"command", "outcome"}),
		APIRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xsearch_api_retries_total",
			Help: "Retried API requests by endpoint",
		}, []string{"endpoint"}),
	}
	m.Registry.MustRegister(m.Runs, m.RunErrors, m.PostsFetched, m.PostsRetained, m.PostsSkipped, m.SearchDuration, m.Commands, m.APIRetries)
	return m
}

// ObserveSearch records a search duration.
func (m *Metrics) ObserveSearch(start time.Time) {
	m.SearchDuration.Observe(time.Since(start).Seconds())
}

// IncCommand counts a command run with outcome "ok" or "error".
func (m *Metrics) IncCommand(cmd string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Commands.WithLabelValues(cmd, outcome).Inc()
}

// IncAPIRetry counts one retried request to endpoint.
func (m *Metrics) IncAPIRetry(endpoint string) { m.APIRetries.WithLabelValues(endpoint).Inc() }

// WriteTextfile writes the registry in node-exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
