package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"xsearch/internal/model"
)

// CSV writes records to Path atomically: a failed export leaves no file behind
// and never replaces an existing one with partial output.
type CSV struct {
	Path string
}

func (c CSV) Name() string { return "csv" }

func (c CSV) Export(records []model.EngagementRecord) (err error) {
	if c.Path == "" {
		return fmt.Errorf("%w: empty csv path", ErrExportIO)
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	for _, r := range records {
		row := []string{
			r.AuthorName,
			r.AuthorID,
			strconv.Itoa(r.RetweetCount),
			strconv.Itoa(r.LikeCount),
			strconv.Itoa(r.QuoteCount),
			r.CreatedAt.Format(TimestampLayout),
			r.Text,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: %w", ErrExportIO, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	return nil
}
