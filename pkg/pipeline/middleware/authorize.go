package middleware

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/authorization"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// ResourceActionAuthorization runs the claim-set / action / strategy
// decision chain against the extracted security elements. Denials are
// 403s carrying the decider's diagnostics; decider faults propagate.
type ResourceActionAuthorization struct {
	decider *authorization.Decider
	logger  hclog.Logger
}

// NewResourceActionAuthorization creates the authorization step.
func NewResourceActionAuthorization(
	decider *authorization.Decider, logger hclog.Logger,
) *ResourceActionAuthorization {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ResourceActionAuthorization{
		decider: decider,
		logger:  logger.Named("resource-action-authorization"),
	}
}

// Name implements pipeline.Step.
func (s *ResourceActionAuthorization) Name() string { return "resource-action-authorization" }

// Execute implements pipeline.Step.
func (s *ResourceActionAuthorization) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	client := requestInfo.FrontendRequest.ClientAuthorizations
	if client == nil {
		failWith(requestInfo,
			response.Unauthenticated(requestInfo.TraceID(), "No client authorizations are present."),
			response.ContentTypeProblemJSON)
		return nil
	}

	verdict, err := s.decider.Authorize(ctx, *client,
		requestInfo.ResourceSchema.ResourceName, requestInfo.Method, requestInfo.SecurityElements)
	if err != nil {
		return err
	}
	if !verdict.Authorized {
		failWith(requestInfo,
			response.Forbidden(requestInfo.TraceID(), verdict.Errors...),
			response.ContentTypeProblemJSON)
		return nil
	}

	requestInfo.AuthorizationStrategies = verdict.Strategies
	return next(ctx)
}
