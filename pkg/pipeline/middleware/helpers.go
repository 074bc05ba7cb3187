// Package middleware implements the ordered request-processing steps of
// the gateway pipeline: parsing, coercion, validation, extraction,
// authorization, and filtering. Each step follows the pipeline.Step
// contract: mutate the envelope and call next, or set a terminal response
// and return.
package middleware

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// failValidation sets a 400 Data Validation Failed response keyed by
// JSON path.
func failValidation(requestInfo *pipeline.RequestInfo, validationErrors map[string][]string) {
	problem := response.DataValidationFailed(requestInfo.TraceID(), validationErrors)
	requestInfo.SetResponse(&pipeline.Response{
		StatusCode:  problem.Status,
		ContentType: response.ContentTypeJSON,
		Body:        response.Marshal(problem),
	})
}

// failWith sets a terminal failure response with the given content type.
func failWith(requestInfo *pipeline.RequestInfo, problem response.ProblemDetails, contentType string) {
	requestInfo.SetResponse(&pipeline.Response{
		StatusCode:  problem.Status,
		ContentType: contentType,
		Body:        response.Marshal(problem),
	})
}

// ordinal renders a 1-based position as "1st", "2nd", "3rd", "11th", ...
func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// renderScalar renders a JSON scalar the way it appeared in the document.
func renderScalar(v any) string {
	switch vv := v.(type) {
	case nil:
		return "null"
	case string:
		return vv
	case json.Number:
		return vv.String()
	case bool:
		return strconv.FormatBool(vv)
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// writesBody reports whether the method carries a request body.
func writesBody(method string) bool {
	return method == "POST" || method == "PUT"
}
