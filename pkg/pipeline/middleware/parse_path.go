package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// Path grammar: /{projectEndpointName}/{endpointName}[/{documentUuid}].
var (
	pathRe = regexp.MustCompile(`^/([^/]+)/([^/]+)(?:/([^/]+))?/?$`)
	uuidRe = regexp.MustCompile(
		`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// ParsePath splits the request path into project, endpoint, and optional
// document id, enforcing the method/id pairing rules.
type ParsePath struct {
	logger hclog.Logger
}

// NewParsePath creates the path parsing step.
func NewParsePath(logger hclog.Logger) *ParsePath {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ParsePath{logger: logger.Named("parse-path")}
}

// Name implements pipeline.Step.
func (s *ParsePath) Name() string { return "parse-path" }

// Execute implements pipeline.Step.
func (s *ParsePath) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	match := pathRe.FindStringSubmatch(requestInfo.FrontendRequest.Path)
	if match == nil {
		failWith(requestInfo, response.NotFound(requestInfo.TraceID()), response.ContentTypeProblemJSON)
		return nil
	}

	documentUUID := match[3]
	if documentUUID != "" && !uuidRe.MatchString(documentUUID) {
		failValidation(requestInfo, map[string][]string{
			"$.id": {fmt.Sprintf("The value '%s' is not valid.", documentUUID)},
		})
		return nil
	}

	method := requestInfo.Method
	if method == "POST" && documentUUID != "" {
		failWith(requestInfo, response.MethodNotAllowed(requestInfo.TraceID(),
			"The request construction was invalid. "+
				"Resource identifiers are assigned by the server; "+
				"POST requests can not include a resource identifier in the path."),
			response.ContentTypeJSON)
		return nil
	}
	if (method == "PUT" || method == "DELETE") && documentUUID == "" {
		failWith(requestInfo, response.MethodNotAllowed(requestInfo.TraceID(),
			fmt.Sprintf("The request construction was invalid. "+
				"%s requests must include a resource identifier in the path.", method)),
			response.ContentTypeJSON)
		return nil
	}

	requestInfo.PathComponents = pipeline.PathComponents{
		ProjectEndpointName: match[1],
		EndpointName:        match[2],
		DocumentUUID:        documentUUID,
	}
	return next(ctx)
}
