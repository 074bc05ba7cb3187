package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
)

// InjectRequestMetadata stamps server-assigned fields onto the validated
// body: a fresh document id on POST (identifiers are never client
// supplied) and the last-modified timestamp on every write.
type InjectRequestMetadata struct {
	newID  func() string
	now    func() time.Time
	logger hclog.Logger
}

// NewInjectRequestMetadata creates the metadata injection step.
func NewInjectRequestMetadata(logger hclog.Logger) *InjectRequestMetadata {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &InjectRequestMetadata{
		newID:  uuid.NewString,
		now:    time.Now,
		logger: logger.Named("inject-request-metadata"),
	}
}

// Name implements pipeline.Step.
func (s *InjectRequestMetadata) Name() string { return "inject-request-metadata" }

// Execute implements pipeline.Step.
func (s *InjectRequestMetadata) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	if requestInfo.Method == "POST" {
		body["id"] = s.newID()
	}
	body["_lastModifiedDate"] = s.now().UTC().Format("2006-01-02T15:04:05Z")
	return next(ctx)
}
