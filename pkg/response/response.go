// Package response builds the JSON failure bodies emitted by pipeline
// steps. Every non-fatal failure carries the inbound trace id as its
// correlationId so clients can correlate errors without server log access.
package response

import (
	"github.com/goccy/go-json"
)

// Content types used across the pipeline.
const (
	ContentTypeJSON        = "application/json; charset=utf-8"
	ContentTypeProblemJSON = "application/problem+json"
)

// ProblemDetails is the failure body shape. ValidationErrors maps JSON
// paths to message lists for data validation failures; Errors carries flat
// messages for authorization and request-level failures. Both are always
// present, matching the API's published error contract.
type ProblemDetails struct {
	Detail           string              `json:"detail"`
	Type             string              `json:"type"`
	Title            string              `json:"title"`
	Status           int                 `json:"status"`
	CorrelationID    string              `json:"correlationId"`
	ValidationErrors map[string][]string `json:"validationErrors"`
	Errors           []string            `json:"errors"`
}

func newProblem(status int, kind, title, detail, correlationID string) ProblemDetails {
	return ProblemDetails{
		Detail:           detail,
		Type:             kind,
		Title:            title,
		Status:           status,
		CorrelationID:    correlationID,
		ValidationErrors: map[string][]string{},
		Errors:           []string{},
	}
}

// DataValidationFailed reports schema, coercion-range, equality, and
// uniqueness violations keyed by JSON path.
func DataValidationFailed(correlationID string, validationErrors map[string][]string) ProblemDetails {
	p := newProblem(
		400,
		"urn:trellis:api:bad-request:data-validation-failed",
		"Data Validation Failed",
		"Data validation failed. See 'validationErrors' for details.",
		correlationID,
	)
	if validationErrors != nil {
		p.ValidationErrors = validationErrors
	}
	return p
}

// BadRequest reports a malformed request that never reached validation.
func BadRequest(correlationID, detail string) ProblemDetails {
	return newProblem(
		400,
		"urn:trellis:api:bad-request",
		"The request could not be processed.",
		detail,
		correlationID,
	)
}

// NotFound reports an unknown project, resource, or document.
func NotFound(correlationID string) ProblemDetails {
	return newProblem(
		404,
		"urn:trellis:api:not-found",
		"The specified data could not be found.",
		"The specified data could not be found.",
		correlationID,
	)
}

// InvalidResource reports a request path that names no known resource.
func InvalidResource(correlationID, detail string) ProblemDetails {
	p := NotFound(correlationID)
	p.Detail = detail
	return p
}

// MethodNotAllowed reports a method/path combination the API does not
// serve (e.g. POST with a document id).
func MethodNotAllowed(correlationID string, errors ...string) ProblemDetails {
	p := newProblem(
		405,
		"urn:trellis:api:method-not-allowed",
		"The request could not be processed.",
		"The request construction was invalid.",
		correlationID,
	)
	p.Errors = errors
	return p
}

// Unauthenticated reports a missing or invalid bearer token.
func Unauthenticated(correlationID string, errors ...string) ProblemDetails {
	p := newProblem(
		401,
		"urn:trellis:api:unauthorized",
		"Unauthorized",
		"The caller could not be authenticated.",
		correlationID,
	)
	p.Errors = errors
	return p
}

// Forbidden reports an authorization denial with per-check diagnostics.
func Forbidden(correlationID string, errors ...string) ProblemDetails {
	p := newProblem(
		403,
		"urn:trellis:api:security:authorization",
		"Authorization Denied",
		"Access to the resource could not be authorized.",
		correlationID,
	)
	p.Errors = errors
	return p
}

// Internal reports an unexpected pipeline fault. Details stay in the
// server log; the client only gets the correlation id.
func Internal(correlationID string) ProblemDetails {
	return newProblem(
		500,
		"urn:trellis:api:internal-server-error",
		"Internal Server Error",
		"The server encountered an unexpected condition.",
		correlationID,
	)
}

// Marshal renders a problem body. Encoding a ProblemDetails cannot fail;
// a marshal error here is a programming fault and panics.
func Marshal(p ProblemDetails) []byte {
	raw, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	return raw
}
