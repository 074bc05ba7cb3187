package middleware

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/profile"
	"github.com/edforge/trellis/pkg/response"
)

// ResolveProfile resolves the request's content-negotiation profile, if
// any. Reads negotiate via Accept, writes via Content-Type. A request
// whose profile content type cannot be honored fails here; requests with
// plain content types pass through with no profile context.
type ResolveProfile struct {
	resolver profile.Resolver
	logger   hclog.Logger
}

// NewResolveProfile creates the profile resolution step.
func NewResolveProfile(resolver profile.Resolver, logger hclog.Logger) *ResolveProfile {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ResolveProfile{
		resolver: resolver,
		logger:   logger.Named("resolve-profile"),
	}
}

// Name implements pipeline.Step.
func (s *ResolveProfile) Name() string { return "resolve-profile" }

// Execute implements pipeline.Step.
func (s *ResolveProfile) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	headerName := "Content-Type"
	if requestInfo.Method == "GET" || requestInfo.Method == "DELETE" {
		headerName = "Accept"
	}
	header, _ := requestInfo.FrontendRequest.Header(headerName)

	var applicationID string
	if client := requestInfo.FrontendRequest.ClientAuthorizations; client != nil {
		applicationID = client.ApplicationID
	}

	outcome, err := s.resolver.Resolve(ctx, profile.ResolveRequest{
		ContentTypeHeader: header,
		Method:            requestInfo.Method,
		ResourceName:      requestInfo.ResourceSchema.ResourceName,
		ApplicationID:     applicationID,
	})
	if err != nil {
		return fmt.Errorf("profile resolution faulted: %w", err)
	}

	switch outcome.Kind {
	case profile.NoProfileApplies:
		return next(ctx)
	case profile.ResolutionFailure:
		failWith(requestInfo,
			response.BadRequest(requestInfo.TraceID(), outcome.FailureMessage),
			response.ContentTypeJSON)
		return nil
	}

	usage := outcome.Context.Usage
	if writesBody(requestInfo.Method) && usage != profile.Writable {
		failWith(requestInfo, response.BadRequest(requestInfo.TraceID(), fmt.Sprintf(
			"A readable profile content type can not be used with a %s request.", requestInfo.Method)),
			response.ContentTypeJSON)
		return nil
	}
	if !writesBody(requestInfo.Method) && usage != profile.Readable {
		failWith(requestInfo, response.BadRequest(requestInfo.TraceID(),
			"A writable profile content type can not be used with a read request."),
			response.ContentTypeJSON)
		return nil
	}

	requestInfo.ProfileContext = outcome.Context
	s.logger.Debug("profile applies",
		"trace_id", requestInfo.TraceID(),
		"profile", outcome.Context.ProfileName,
		"usage", string(usage),
	)
	return next(ctx)
}
