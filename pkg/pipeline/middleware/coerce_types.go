package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
)

// jsonNumber is the JSON number grammar. Anything looser (ParseFloat
// accepts "Inf", "NaN", and hex floats) would inject invalid json.Number
// values into the tree.
var jsonNumber = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// CoerceStringTypes replaces string values at the resource's numeric and
// boolean paths with typed primitives when the string parses cleanly.
// Unparseable or already-typed values are left alone; JSON-Schema
// validation reports them downstream.
type CoerceStringTypes struct {
	logger hclog.Logger
}

// NewCoerceStringTypes creates the string-to-primitive coercion step.
func NewCoerceStringTypes(logger hclog.Logger) *CoerceStringTypes {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CoerceStringTypes{logger: logger.Named("coerce-string-types")}
}

// Name implements pipeline.Step.
func (s *CoerceStringTypes) Name() string { return "coerce-string-types" }

// Execute implements pipeline.Step.
func (s *CoerceStringTypes) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	for _, path := range requestInfo.ResourceSchema.NumericPaths {
		path.VisitLeaves(body, func(parent map[string]any, key string, value any) {
			text, ok := value.(string)
			if !ok {
				return
			}
			if jsonNumber.MatchString(text) {
				parent[key] = json.Number(text)
			}
		})
	}

	for _, path := range requestInfo.ResourceSchema.BooleanPaths {
		path.VisitLeaves(body, func(parent map[string]any, key string, value any) {
			text, ok := value.(string)
			if !ok {
				return
			}
			switch {
			case strings.EqualFold(text, "true"):
				parent[key] = true
			case strings.EqualFold(text, "false"):
				parent[key] = false
			}
		})
	}

	return next(ctx)
}
