package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// DefaultMaxPageSize bounds the limit parameter when no override is
// configured.
const DefaultMaxPageSize = 500

// ValidateQueryParameters checks GET query parameters against the
// resource's query-field type map and validates the pagination
// parameters. Recognized date and date-time values are normalized in
// place so the terminal query sees canonical forms.
type ValidateQueryParameters struct {
	maxPageSize int
	logger      hclog.Logger
}

// NewValidateQueryParameters creates the query validation step.
func NewValidateQueryParameters(maxPageSize int, logger hclog.Logger) *ValidateQueryParameters {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &ValidateQueryParameters{
		maxPageSize: maxPageSize,
		logger:      logger.Named("validate-query-parameters"),
	}
}

// Name implements pipeline.Step.
func (s *ValidateQueryParameters) Name() string { return "validate-query-parameters" }

// Execute implements pipeline.Step.
func (s *ValidateQueryParameters) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	if requestInfo.Method != "GET" {
		return next(ctx)
	}

	validationErrors := map[string][]string{}
	var requestErrors []string

	parameters := requestInfo.FrontendRequest.QueryParameters
	for key, value := range parameters {
		switch strings.ToLower(key) {
		case "offset":
			if n, err := strconv.Atoi(value); err != nil || n < 0 {
				validationErrors["$.offset"] = append(validationErrors["$.offset"],
					"Offset must be a numeric value greater than or equal to 0.")
			}
			continue
		case "limit":
			if n, err := strconv.Atoi(value); err != nil || n < 0 || n > s.maxPageSize {
				validationErrors["$.limit"] = append(validationErrors["$.limit"], fmt.Sprintf(
					"Limit must be omitted or set to a numeric value between 0 and %d.", s.maxPageSize))
			}
			continue
		case "totalcount":
			if !strings.EqualFold(value, "true") && !strings.EqualFold(value, "false") {
				validationErrors["$.totalCount"] = append(validationErrors["$.totalCount"],
					"TotalCount must be a boolean value.")
			}
			continue
		}

		field, known := requestInfo.ResourceSchema.QueryFields[strings.ToLower(key)]
		if !known {
			requestErrors = append(requestErrors, fmt.Sprintf(
				"The query field '%s' is not valid for this resource.", key))
			continue
		}

		normalized, valid := validateQueryValue(field.Type, value)
		if !valid {
			path := "$." + field.Name
			if len(field.Paths) > 0 {
				path = field.Paths[0].String()
			}
			validationErrors[path] = append(validationErrors[path], fmt.Sprintf(
				"The value '%s' is not valid for %s.", value, field.Name))
			continue
		}
		if normalized != value {
			parameters[key] = normalized
		}
	}

	if len(requestErrors) > 0 {
		problem := response.BadRequest(requestInfo.TraceID(),
			"The request could not be processed. See 'errors' for details.")
		problem.Errors = requestErrors
		failWith(requestInfo, problem, response.ContentTypeJSON)
		return nil
	}
	if len(validationErrors) > 0 {
		failValidation(requestInfo, validationErrors)
		return nil
	}
	return next(ctx)
}

// validateQueryValue checks a query value against its declared type and
// returns the normalized form to query with.
func validateQueryValue(fieldType, value string) (string, bool) {
	switch fieldType {
	case "boolean":
		ok := strings.EqualFold(value, "true") || strings.EqualFold(value, "false")
		return strings.ToLower(value), ok
	case "number":
		_, err := strconv.ParseFloat(value, 64)
		return value, err == nil
	case "date":
		t, err := dateparse.ParseIn(value, time.UTC)
		if err != nil {
			return value, false
		}
		return t.Format("2006-01-02"), true
	case "date-time":
		t, err := dateparse.ParseIn(value, time.UTC)
		if err != nil {
			return value, false
		}
		return t.UTC().Format("2006-01-02T15:04:05Z"), true
	case "time":
		_, err := time.Parse("15:04:05", value)
		return value, err == nil
	case "uuid":
		_, err := uuid.Parse(value)
		return strings.ToLower(value), err == nil
	default:
		return value, true
	}
}
