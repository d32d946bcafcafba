package cmdlog

import (
	"log/slog"

	"xsearch/internal/metrics"
)

// Run executes f as the named command, counting the outcome and logging it.
func Run(log *slog.Logger, m *metrics.Metrics, cmd string, f func() error) error {
	err := f()
	if m != nil {
		m.IncCommand(cmd, err)
	}
	if err != nil {
		log.Error(cmd+"_error", "error", err.Error())
	} else {
		log.Info(cmd + "_ok")
	}
	return err
}
