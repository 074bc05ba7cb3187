package middleware

import (
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/authentication"
	"github.com/edforge/trellis/pkg/authorization"
	"github.com/edforge/trellis/pkg/backend"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/profile"
)

// ChainOptions carries the collaborators the default step chain wires
// together.
type ChainOptions struct {
	SchemaProvider  *apischema.Provider
	ReloadSignal    ReloadSignalFunc
	TokenValidator  authentication.TokenValidator
	ProfileResolver profile.Resolver
	Decider         *authorization.Decider
	Store           backend.DocumentStore
	MaxPageSize     int
	Logger          hclog.Logger
}

// NewDefaultChain builds the canonical step order: logging, then
// authentication, parsing, resolution, coercion, validation, extraction,
// authorization, filtering, metadata, and finally the storage handler.
// The read-side profile filter wraps the handler so it sees the produced
// response.
func NewDefaultChain(opts ChainOptions) []pipeline.Step {
	logger := opts.Logger
	return []pipeline.Step{
		NewRequestLogging(logger),
		NewAuthenticate(opts.TokenValidator, logger),
		NewParsePath(logger),
		NewParseBody(logger),
		NewResolveEndpoint(opts.SchemaProvider, opts.ReloadSignal, logger),
		NewValidateQueryParameters(opts.MaxPageSize, logger),
		NewResolveProfile(opts.ProfileResolver, logger),
		NewCoerceStringTypes(logger),
		NewCoerceDateFormats(logger),
		NewCoerceDateTimes(logger),
		NewValidateDocument(logger),
		NewValidateDecimals(logger),
		NewValidateEqualityConstraints(logger),
		NewValidateArrayUniqueness(logger),
		NewValidateMatchingDocumentUUIDs(logger),
		NewExtractDocumentIdentity(logger),
		NewExtractSecurityElements(logger),
		NewResourceActionAuthorization(opts.Decider, logger),
		NewProfileWriteFilter(logger),
		NewInjectRequestMetadata(logger),
		NewProfileReadFilter(logger),
		NewDocumentHandler(opts.Store, logger),
	}
}
