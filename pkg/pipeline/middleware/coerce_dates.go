package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
)

// slashDate matches M/d/yyyy, MM/dd/yyyy, and two-digit-year forms, with
// an optional trailing time-of-day substring captured unmodified. The
// four-digit alternative must come first: regexp alternation is ordered,
// and \d{2} would otherwise split a four-digit year in two.
var slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})(.*)$`)

// CoerceDateFormats rewrites slash-delimited values at the resource's
// date paths into yyyy-MM-dd, preserving any trailing time-of-day text.
// Already-ISO or unrecognized values pass through unchanged.
type CoerceDateFormats struct {
	logger hclog.Logger
}

// NewCoerceDateFormats creates the date-only coercion step.
func NewCoerceDateFormats(logger hclog.Logger) *CoerceDateFormats {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CoerceDateFormats{logger: logger.Named("coerce-date-formats")}
}

// Name implements pipeline.Step.
func (s *CoerceDateFormats) Name() string { return "coerce-date-formats" }

// Execute implements pipeline.Step.
func (s *CoerceDateFormats) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	for _, path := range requestInfo.ResourceSchema.DatePaths {
		path.VisitLeaves(body, func(parent map[string]any, key string, value any) {
			text, ok := value.(string)
			if !ok {
				return
			}
			if normalized, ok := normalizeSlashDate(text); ok {
				parent[key] = normalized
			}
		})
	}
	return next(ctx)
}

// normalizeSlashDate converts "5/1/2009", "05/01/2009", or "5/1/09" to
// "2009-05-01". Two-digit years pivot about 2000: 00-29 map to 2000-2029,
// 30-99 to 1930-1999.
func normalizeSlashDate(text string) (string, bool) {
	match := slashDate.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	month, _ := strconv.Atoi(match[1])
	day, _ := strconv.Atoi(match[2])
	year, _ := strconv.Atoi(match[3])
	if len(match[3]) == 2 {
		if year <= 29 {
			year += 2000
		} else {
			year += 1900
		}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d%s", year, month, day, match[4]), true
}

// CoerceDateTimes parses a broad set of date/time representations at the
// resource's date-time paths and re-emits each as yyyy-MM-ddTHH:mm:ssZ in
// UTC. Date-only inputs become midnight UTC; unparseable values pass
// through unchanged.
type CoerceDateTimes struct {
	logger hclog.Logger
}

// NewCoerceDateTimes creates the date-time coercion step.
func NewCoerceDateTimes(logger hclog.Logger) *CoerceDateTimes {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CoerceDateTimes{logger: logger.Named("coerce-date-times")}
}

// Name implements pipeline.Step.
func (s *CoerceDateTimes) Name() string { return "coerce-date-times" }

// Execute implements pipeline.Step.
func (s *CoerceDateTimes) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	for _, path := range requestInfo.ResourceSchema.DateTimePaths {
		path.VisitLeaves(body, func(parent map[string]any, key string, value any) {
			text, ok := value.(string)
			if !ok {
				return
			}
			parsed, err := dateparse.ParseIn(text, time.UTC)
			if err != nil {
				return
			}
			parent[key] = parsed.UTC().Format("2006-01-02T15:04:05Z")
		})
	}
	return next(ctx)
}
