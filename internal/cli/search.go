package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xsearch/internal/cmdlog"
	"xsearch/internal/config"
	"xsearch/internal/export"
	"xsearch/internal/metrics"
	"xsearch/internal/model"
	"xsearch/internal/pipeline"
	"xsearch/internal/runlog"
	"xsearch/internal/search"
	"xsearch/internal/xclient"
)

// searchFlags mirror the config file; only flags set on the command line
// override it.
type searchFlags struct {
	query          string
	start          string
	end            string
	window         time.Duration
	maxResults     int
	threshold      int
	lang           string
	excludeReposts bool
	csv            string
	console        bool
	timezone       string
	auth           string
	timeout        time.Duration
	logDir         string
	logConsole     bool
	metricsFile    string
}

func (a *app) searchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search recent posts and export the engaged ones",
		Long: `Search recent posts matching a query inside a time window, keep the
posts whose likes plus reposts exceed the threshold, and export them.

Examples:
  xsearch search --query "デイトラ" --threshold 3
  xsearch search --query golang --start 2024-05-01T00:00:00Z --end 2024-05-02T00:00:00Z
  xsearch search --query golang --lang en --exclude-reposts --csv golang.csv --console=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.query, "query", "q", "", "search query")
	fl.StringVar(&f.start, "start", "", "window start (RFC 3339)")
	fl.StringVar(&f.end, "end", "", "window end (RFC 3339)")
	fl.DurationVar(&f.window, "window", 24*time.Hour, "window length when --start is not set")
	fl.IntVarP(&f.maxResults, "max-results", "n", model.MaxResultsCap, "max posts to request (1-100)")
	fl.IntVarP(&f.threshold, "threshold", "t", 3, "keep posts with likes+reposts above this")
	fl.StringVar(&f.lang, "lang", "", "restrict to a language code, e.g. ja")
	fl.BoolVar(&f.excludeReposts, "exclude-reposts", false, "drop reposts from results")
	fl.StringVar(&f.csv, "csv", "tweet_data.csv", "CSV output path; empty disables")
	fl.BoolVar(&f.console, "console", true, "print records to stdout")
	fl.StringVar(&f.timezone, "timezone", "Asia/Tokyo", "IANA zone for exported timestamps")
	fl.StringVar(&f.auth, "auth", "bearer", "API auth: bearer or user")
	fl.DurationVar(&f.timeout, "timeout", 15*time.Second, "search timeout")
	fl.StringVar(&f.logDir, "log-dir", "./logs", "log directory")
	fl.BoolVar(&f.logConsole, "log-console", false, "also log to stderr")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write metrics to a node-exporter textfile")
	return cmd
}

// apply overlays flags the user set onto cfg.
func (f searchFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("query") {
		cfg.Search.Query = f.query
	}
	if set("start") {
		cfg.Search.Start = f.start
	}
	if set("end") {
		cfg.Search.End = f.end
	}
	if set("window") {
		cfg.Search.Window = f.window
	}
	if set("max-results") {
		cfg.Search.MaxResults = f.maxResults
	}
	if set("threshold") {
		cfg.Search.Threshold = f.threshold
	}
	if set("lang") {
		cfg.Search.Language = f.lang
	}
	if set("exclude-reposts") {
		cfg.Search.ExcludeReposts = f.excludeReposts
	}
	if set("csv") {
		cfg.Output.CSV = f.csv
	}
	if set("console") {
		cfg.Output.Console = f.console
	}
	if set("timezone") {
		cfg.Output.Timezone = f.timezone
	}
	if set("auth") {
		cfg.Client.Auth = f.auth
	}
	if set("timeout") {
		cfg.Client.Timeout = f.timeout
	}
	if set("log-dir") {
		cfg.Logging.Dir = f.logDir
	}
	if set("log-console") {
		cfg.Logging.Console = f.logConsole
	}
	if set("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
}

func (a *app) runSearch(cmd *cobra.Command, f searchFlags) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return preflight(err)
	}
	f.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return preflight(err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return preflight(err)
	}

	log, closeLog := a.openLog(cfg.Logging)
	defer closeLog()
	m := metrics.New()
	defer func() {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("metrics textfile", "path", cfg.Metrics.Textfile, "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmdlog.Run(log, m, "search", func() error {
		criteria, err := cfg.Criteria(a.now())
		if err != nil {
			return preflight(err)
		}
		factory := defaultClientFactory
		if a.newClient != nil {
			factory = a.newClient
		}
		p := &pipeline.Pipeline{
			Credentials: config.EnvProvider{EnvFile: a.envFile},
			NewClient:   factory(cfg.Client, m),
			Exporters:   a.exporters(cfg.Output),
			Logger:      log,
			Metrics:     m,
			Timeout:     cfg.Client.Timeout,
			Location:    loc,
		}
		res, err := p.Run(ctx, criteria)
		if err != nil {
			return err
		}
		if cfg.Output.CSV != "" {
			fmt.Fprintf(a.errOut, "Saved %d of %d posts to %s\n", res.Retained, res.Posts, cfg.Output.CSV)
		}
		return nil
	})
}

// openLog opens the run and daily log files. When the directory is not
// writable the run still proceeds, logging to stderr only.
func (a *app) openLog(lc config.LoggingConfig) (*slog.Logger, func()) {
	level := runlog.ParseLevel(lc.Level)
	opts := runlog.Options{Dir: lc.Dir, Name: lc.Name, Level: level, Now: a.now}
	if lc.Console {
		opts.Console = a.errOut
	}
	log, cleanup, err := runlog.Open(opts)
	if err != nil {
		log = slog.New(runlog.NewHandler(a.errOut, level))
		log.Warn("log files unavailable", "dir", lc.Dir, "error", err.Error())
		return log, func() {}
	}
	return log, func() {
		if err := cleanup(); err != nil {
			fmt.Fprintf(a.errOut, "Warning: failed to close log files: %v\n", err)
		}
	}
}

// exporters puts the CSV first so nothing reaches stdout unless the file
// was committed.
func (a *app) exporters(oc config.OutputConfig) []export.Exporter {
	var out []export.Exporter
	if oc.CSV != "" {
		out = append(out, export.CSV{Path: oc.CSV})
	}
	if oc.Console {
		out = append(out, export.Console{W: a.out})
	}
	return out
}

func defaultClientFactory(cc config.ClientConfig, m *metrics.Metrics) pipeline.ClientFactory {
	return func(c config.Credentials) (search.Client, error) {
		opts := []xclient.Option{
			xclient.WithBaseURL(cc.BaseURL),
			xclient.WithHTTPClient(&http.Client{Timeout: cc.Timeout}),
			xclient.WithRetryHook(m.IncAPIRetry),
		}
		if cc.Auth == xclient.AuthUser {
			opts = append(opts, xclient.WithUserContext(
				xclient.NewOAuth1Signer(c.ConsumerKey, c.ConsumerSecret, c.AccessToken, c.AccessTokenSecret),
			))
		}
		return xclient.NewHTTPClient(c.BearerToken, opts...), nil
	}
}

func preflight(err error) error {
	return &pipeline.StageError{Stage: pipeline.Idle, Err: err}
}
