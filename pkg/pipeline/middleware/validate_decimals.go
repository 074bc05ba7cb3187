package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/pipeline"
)

// ValidateDecimals enforces the resource's decimal precision/scale rules:
// at most precision-scale digits before the decimal point and at most
// scale digits after it. The failure message states the exact bounds the
// rule allows.
type ValidateDecimals struct {
	logger hclog.Logger
}

// NewValidateDecimals creates the decimal validation step.
func NewValidateDecimals(logger hclog.Logger) *ValidateDecimals {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ValidateDecimals{logger: logger.Named("validate-decimals")}
}

// Name implements pipeline.Step.
func (s *ValidateDecimals) Name() string { return "validate-decimals" }

// Execute implements pipeline.Step.
func (s *ValidateDecimals) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	validationErrors := map[string][]string{}
	for _, rule := range requestInfo.ResourceSchema.DecimalRules {
		rule.Path.VisitLeaves(body, func(parent map[string]any, key string, value any) {
			text, ok := numberText(value)
			if !ok {
				return
			}
			integerDigits, fractionDigits := decimalDigits(text)
			if integerDigits > rule.TotalDigits-rule.DecimalPlaces ||
				fractionDigits > rule.DecimalPlaces {
				bound := decimalBound(rule)
				path := rule.Path.String()
				validationErrors[path] = append(validationErrors[path], fmt.Sprintf(
					"%s must be between -%s and %s.", path, bound, bound))
			}
		})
	}

	if len(validationErrors) > 0 {
		failValidation(requestInfo, validationErrors)
		return nil
	}
	return next(ctx)
}

// numberText returns the literal digits of a JSON number value.
func numberText(value any) (string, bool) {
	switch v := value.(type) {
	case json.Number:
		return expandExponent(v.String()), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// expandExponent rewrites scientific notation into plain decimal form so
// digit counting sees the effective magnitude.
func expandExponent(text string) string {
	if !strings.ContainsAny(text, "eE") {
		return text
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// decimalDigits counts significant digits before and after the decimal
// point. Leading integer zeros and trailing fraction zeros do not count.
func decimalDigits(text string) (int, int) {
	text = strings.TrimPrefix(text, "-")
	integerPart, fractionPart, _ := strings.Cut(text, ".")
	integerPart = strings.TrimLeft(integerPart, "0")
	fractionPart = strings.TrimRight(fractionPart, "0")
	return len(integerPart), len(fractionPart)
}

// decimalBound renders the largest value a precision/scale rule admits,
// e.g. precision 5 scale 2 -> "999.99".
func decimalBound(rule apischema.DecimalRule) string {
	integerDigits := rule.TotalDigits - rule.DecimalPlaces
	bound := strings.Repeat("9", integerDigits)
	if bound == "" {
		bound = "0"
	}
	if rule.DecimalPlaces > 0 {
		bound += "." + strings.Repeat("9", rule.DecimalPlaces)
	}
	return bound
}
