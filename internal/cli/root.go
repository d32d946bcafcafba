// Package cli provides the command-line interface for xsearch.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"xsearch/internal/config"
	"xsearch/internal/metrics"
	"xsearch/internal/pipeline"
)

// Version is set at build time.
var Version = "0.1.0"

// app holds the state shared by all subcommands.
type app struct {
	cfgPath string
	envFile string

	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	// newClient overrides the HTTP client factory; nil uses the configured client.
	newClient func(config.ClientConfig, *metrics.Metrics) pipeline.ClientFactory
}

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, now: time.Now}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xsearch",
		Short: "Search recent posts and keep the ones people engaged with",
		Long: `xsearch runs one search over the X recent-search API, keeps the posts
whose likes plus reposts exceed a threshold, and writes them to a CSV file
and the console.

Credentials are read from the environment or an .env file:
  CONSUMER_KEY, CONSUMER_SECRET, ACCESS_TOKEN, ACCESS_TOKEN_SECRET, BEARER_TOKEN`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "./xsearch.yaml", "config file path")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file holding API credentials")

	root.AddCommand(a.searchCmd())
	root.AddCommand(a.initCmd())
	root.AddCommand(a.versionCmd())
	return root
}

// Execute runs the CLI against os.Args and reports failures on stderr.
func Execute() error {
	err := NewRootCmd(os.Stdout, os.Stderr).Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

// printError renders err as "Error: <stage> failed: <cause>" when it came
// from a pipeline run, and as "Error: <err>" otherwise.
func printError(w io.Writer, err error) {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		fmt.Fprintf(w, "Error: %s failed: %v\n", se.Stage.Describe(), se.Err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
