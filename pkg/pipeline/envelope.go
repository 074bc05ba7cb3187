// Package pipeline defines the per-request envelope and the executor that
// runs an ordered chain of middleware steps against it. Each step either
// mutates the envelope and calls its continuation, or sets a terminal
// response and returns, which halts the chain.
package pipeline

import (
	"strings"

	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/authorization"
	"github.com/edforge/trellis/pkg/models"
	"github.com/edforge/trellis/pkg/profile"
)

// FrontendRequest is the host-supplied view of one HTTP request. Exactly
// one of Body and BodyBytes-producing reader content is populated for
// methods that carry a body.
type FrontendRequest struct {
	Method          string
	Path            string
	Body            string
	Headers         map[string]string
	QueryParameters map[string]string
	TraceID         string
	RouteQualifiers map[string]string
	Tenant          string

	// ClientAuthorizations is resolved by the authentication step.
	ClientAuthorizations *authorization.ClientAuthorizations
}

// Header returns a header value by case-insensitive name.
func (f *FrontendRequest) Header(name string) (string, bool) {
	for k, v := range f.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// PathComponents is the parsed request path.
type PathComponents struct {
	ProjectEndpointName string
	EndpointName        string

	// DocumentUUID is empty when the path has no trailing id segment.
	DocumentUUID string
}

// Response is a terminal pipeline outcome.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Headers     map[string]string
}

// RequestInfo is the mutable envelope threaded through the step chain.
// Exactly one is created per request; it is never shared across requests.
type RequestInfo struct {
	FrontendRequest *FrontendRequest
	Method          string

	// ParsedBody is set by the body parsing step and mutated in place by
	// coercion, stripping, and filtering steps.
	ParsedBody map[string]any

	PathComponents PathComponents

	// SchemaDocument is the snapshot taken for this request; ProjectSchema
	// and ResourceSchema are resolved references into it.
	SchemaDocument *apischema.Document
	ProjectSchema  *apischema.ProjectSchema
	ResourceSchema *apischema.ResourceSchema

	DocumentIdentity   models.DocumentIdentity
	SuperclassIdentity *models.SuperclassIdentity
	SecurityElements   models.DocumentSecurityElements

	// ProfileContext is nil when no profile applies to the request.
	ProfileContext *profile.Context

	// AuthorizationStrategies are the strategy names resolved for the
	// granted resource action.
	AuthorizationStrategies []string

	response *Response
}

// NewRequestInfo creates the envelope for one frontend request.
func NewRequestInfo(frontendRequest *FrontendRequest) *RequestInfo {
	return &RequestInfo{
		FrontendRequest: frontendRequest,
		Method:          frontendRequest.Method,
	}
}

// TraceID returns the inbound trace id for correlation.
func (r *RequestInfo) TraceID() string {
	return r.FrontendRequest.TraceID
}

// SetResponse records the terminal response. Steps must return without
// calling their continuation after setting it; the executor stops invoking
// later steps once a response exists.
func (r *RequestInfo) SetResponse(resp *Response) {
	r.response = resp
}

// Response returns the terminal response, or nil while the chain is still
// running.
func (r *RequestInfo) Response() *Response {
	return r.response
}
