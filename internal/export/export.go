// Package export writes engagement records to the console or a CSV file.
package export

import (
	"errors"

	"xsearch/internal/model"
)

// ErrExportIO is returned when a destination cannot be written.
var ErrExportIO = errors.New("export io")

// TimestampLayout renders localized creation times in every destination.
const TimestampLayout = "2006-01-02 15:04:05"

// Columns is the fixed CSV header.
var Columns = []string{
	"author_name",
	"author_id",
	"repost_count",
	"like_count",
	"quote_count",
	"localized_timestamp",
	"body_text",
}

// Exporter writes an ordered slice of records to one destination.
type Exporter interface {
	Name() string
	Export(records []model.EngagementRecord) error
}
