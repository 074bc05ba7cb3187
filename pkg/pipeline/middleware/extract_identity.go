package middleware

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/models"
	"github.com/edforge/trellis/pkg/pipeline"
)

// ExtractDocumentIdentity derives the document's ordered identity from
// the resource's configured identity paths, and when the resource
// subclasses another, the identity it carries in superclass terms.
// Missing paths yield empty values; required-field enforcement happened
// during document validation.
type ExtractDocumentIdentity struct {
	logger hclog.Logger
}

// NewExtractDocumentIdentity creates the identity extraction step.
func NewExtractDocumentIdentity(logger hclog.Logger) *ExtractDocumentIdentity {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ExtractDocumentIdentity{logger: logger.Named("extract-document-identity")}
}

// Name implements pipeline.Step.
func (s *ExtractDocumentIdentity) Name() string { return "extract-document-identity" }

// Execute implements pipeline.Step.
func (s *ExtractDocumentIdentity) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	resource := requestInfo.ResourceSchema
	identity := make(models.DocumentIdentity, 0, len(resource.IdentityPaths))
	for _, path := range resource.IdentityPaths {
		value := ""
		if values := path.ResolveStrings(body); len(values) > 0 {
			value = values[0]
		}
		identity = append(identity, models.IdentityElement{Path: path, Value: value})
	}
	requestInfo.DocumentIdentity = identity

	if superclass := resource.Superclass; superclass != nil {
		superIdentity := make(models.DocumentIdentity, 0, len(identity))
		for _, element := range identity {
			path := element.Path
			if path.String() == superclass.SubclassIdentity.String() {
				path = superclass.IdentityPath
			}
			superIdentity = append(superIdentity, models.IdentityElement{
				Path:  path,
				Value: element.Value,
			})
		}
		requestInfo.SuperclassIdentity = &models.SuperclassIdentity{
			ResourceName: superclass.ResourceName,
			Identity:     superIdentity,
		}
	}

	s.logger.Debug("identity extracted",
		"trace_id", requestInfo.TraceID(),
		"resource", resource.ResourceName,
		"identity", identity.String(),
	)
	return next(ctx)
}
