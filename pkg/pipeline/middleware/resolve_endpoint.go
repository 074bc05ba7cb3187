package middleware

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// ReloadSignalFunc supplies the current schema reload signal. The provider
// re-fetches the schema when the signal no longer matches the loaded
// document's reload id.
type ReloadSignalFunc func() string

// ResolveEndpoint takes the per-request schema snapshot and resolves the
// parsed path components to a project and resource schema.
type ResolveEndpoint struct {
	provider     *apischema.Provider
	reloadSignal ReloadSignalFunc
	logger       hclog.Logger
}

// NewResolveEndpoint creates the endpoint resolution step. A nil signal
// function pins the initially loaded schema.
func NewResolveEndpoint(
	provider *apischema.Provider, reloadSignal ReloadSignalFunc, logger hclog.Logger,
) *ResolveEndpoint {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if reloadSignal == nil {
		reloadSignal = func() string { return "" }
	}
	return &ResolveEndpoint{
		provider:     provider,
		reloadSignal: reloadSignal,
		logger:       logger.Named("resolve-endpoint"),
	}
}

// Name implements pipeline.Step.
func (s *ResolveEndpoint) Name() string { return "resolve-endpoint" }

// Execute implements pipeline.Step.
func (s *ResolveEndpoint) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	snapshot, err := s.provider.Snapshot(ctx, s.reloadSignal())
	if err != nil {
		return fmt.Errorf("failed to snapshot api schema: %w", err)
	}
	requestInfo.SchemaDocument = snapshot

	components := requestInfo.PathComponents
	project, ok := snapshot.ProjectByEndpointName(components.ProjectEndpointName)
	if !ok {
		failWith(requestInfo, response.InvalidResource(requestInfo.TraceID(), fmt.Sprintf(
			"Invalid resource '%s/%s'.", components.ProjectEndpointName, components.EndpointName)),
			response.ContentTypeProblemJSON)
		return nil
	}

	resource, ok := project.ResourceByEndpointName(components.EndpointName)
	if !ok {
		failWith(requestInfo, response.NotFound(requestInfo.TraceID()), response.ContentTypeProblemJSON)
		return nil
	}

	requestInfo.ProjectSchema = project
	requestInfo.ResourceSchema = resource
	s.logger.Debug("endpoint resolved",
		"trace_id", requestInfo.TraceID(),
		"project", project.ProjectName,
		"resource", resource.ResourceName,
		"reload_id", snapshot.ReloadID(),
	)
	return next(ctx)
}
