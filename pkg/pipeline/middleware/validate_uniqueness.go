package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
)

// ValidateArrayUniqueness walks each configured array in order and fails
// on the first item whose identifying-path tuple duplicates an earlier
// item. Only the first violation is reported; the message names the
// array's path and the item's 1-based ordinal.
type ValidateArrayUniqueness struct {
	logger hclog.Logger
}

// NewValidateArrayUniqueness creates the array uniqueness validation step.
func NewValidateArrayUniqueness(logger hclog.Logger) *ValidateArrayUniqueness {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ValidateArrayUniqueness{logger: logger.Named("validate-array-uniqueness")}
}

// Name implements pipeline.Step.
func (s *ValidateArrayUniqueness) Name() string { return "validate-array-uniqueness" }

// Execute implements pipeline.Step.
func (s *ValidateArrayUniqueness) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	for _, constraint := range requestInfo.ResourceSchema.ArrayUniquenessConstraints {
		for _, matched := range constraint.BasePath.ResolveLocated(body) {
			items, ok := matched.Value.([]any)
			if !ok {
				continue
			}
			seen := map[string]struct{}{}
			for index, item := range items {
				parts := make([]string, 0, len(constraint.Paths))
				for _, path := range constraint.Paths {
					parts = append(parts, strings.Join(path.ResolveStrings(item), ","))
				}
				tuple := strings.Join(parts, "\x1f")
				if _, duplicate := seen[tuple]; duplicate {
					// The error is keyed by the concrete path of the array
					// holding the duplicate, with wildcard segments indexed.
					failValidation(requestInfo, map[string][]string{
						matched.Path: {fmt.Sprintf(
							"The %s item of the %s has the same identifying values "+
								"as another item earlier in the list.",
							ordinal(index+1), constraint.BasePath.LeafName())},
					})
					return nil
				}
				seen[tuple] = struct{}{}
			}
		}
	}

	return next(ctx)
}
