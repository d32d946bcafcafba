package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"xsearch/internal/util"
)

// MaxResultsCap is the largest page the recent search endpoint returns.
const MaxResultsCap = 100

// ErrInvalidCriteria is returned when SearchCriteria fails validation.
var ErrInvalidCriteria = errors.New("invalid search criteria")

var goValidator = validator.New()

// SearchCriteria describes one bounded recent-search query. Build it once per run.
type SearchCriteria struct {
	Query          string    `validate:"required"`
	Start          time.Time `validate:"required"`
	End            time.Time `validate:"required,gtfield=Start"`
	MaxResults     int       `validate:"min=1,max=100"`
	Threshold      int       `validate:"min=0"`
	Language       string    `validate:"omitempty,alpha,min=2,max=3"`
	ExcludeReposts bool
}

// Validate checks the criteria and wraps every violation in ErrInvalidCriteria.
func (c SearchCriteria) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return fmt.Errorf("%w: Query required", ErrInvalidCriteria)
	}
	if err := goValidator.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, e := range ve {
				msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), e.ActualTag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidCriteria, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	return nil
}

// SearchQuery returns the query string sent to the API, with runs of
// whitespace collapsed and the optional language and repost operators appended.
func (c SearchCriteria) SearchQuery() string {
	q := util.NormalizeWhitespace(c.Query)
	if c.Language != "" {
		q += " lang:" + strings.ToLower(c.Language)
	}
	if c.ExcludeReposts {
		q += " -is:retweet"
	}
	return q
}
