package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
)

// ValidateEqualityConstraints requires that every value resolved by a
// constraint's paths, including through array wildcards, be equal. On
// mismatch it emits one error per involved path listing the conflicting
// distinct values in reverse encounter order.
type ValidateEqualityConstraints struct {
	logger hclog.Logger
}

// NewValidateEqualityConstraints creates the equality validation step.
func NewValidateEqualityConstraints(logger hclog.Logger) *ValidateEqualityConstraints {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ValidateEqualityConstraints{logger: logger.Named("validate-equality-constraints")}
}

// Name implements pipeline.Step.
func (s *ValidateEqualityConstraints) Name() string { return "validate-equality-constraints" }

// Execute implements pipeline.Step.
func (s *ValidateEqualityConstraints) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	for _, constraint := range requestInfo.ResourceSchema.EqualityConstraints {
		seen := map[string]struct{}{}
		var distinct []string
		for _, path := range constraint.Paths {
			for _, value := range path.ResolveStrings(body) {
				if _, ok := seen[value]; !ok {
					seen[value] = struct{}{}
					distinct = append(distinct, value)
				}
			}
		}
		if len(distinct) < 2 {
			continue
		}

		// Reverse encounter order, most recently seen first.
		for i, j := 0, len(distinct)-1; i < j; i, j = i+1, j-1 {
			distinct[i], distinct[j] = distinct[j], distinct[i]
		}
		quoted := "'" + strings.Join(distinct, "', '") + "'"

		validationErrors := map[string][]string{}
		for _, path := range constraint.Paths {
			validationErrors[path.String()] = append(validationErrors[path.String()], fmt.Sprintf(
				"All values supplied for '%s' must match. Review all references "+
					"(including those higher up in the resource's data) and align the "+
					"following conflicting values: %s.", path.LeafName(), quoted))
		}
		failValidation(requestInfo, validationErrors)
		return nil
	}

	return next(ctx)
}
