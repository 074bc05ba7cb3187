package middleware

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
)

// ValidateMatchingDocumentUUIDs requires a PUT body's id to match the id
// in the URL.
type ValidateMatchingDocumentUUIDs struct {
	logger hclog.Logger
}

// NewValidateMatchingDocumentUUIDs creates the id matching step.
func NewValidateMatchingDocumentUUIDs(logger hclog.Logger) *ValidateMatchingDocumentUUIDs {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ValidateMatchingDocumentUUIDs{logger: logger.Named("validate-matching-document-uuids")}
}

// Name implements pipeline.Step.
func (s *ValidateMatchingDocumentUUIDs) Name() string { return "validate-matching-document-uuids" }

// Execute implements pipeline.Step.
func (s *ValidateMatchingDocumentUUIDs) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	if requestInfo.Method != "PUT" || requestInfo.ParsedBody == nil {
		return next(ctx)
	}

	bodyID, _ := requestInfo.ParsedBody["id"].(string)
	if !strings.EqualFold(bodyID, requestInfo.PathComponents.DocumentUUID) {
		failValidation(requestInfo, map[string][]string{
			"$.id": {"Request body id must match the id in the url."},
		})
		return nil
	}
	return next(ctx)
}
