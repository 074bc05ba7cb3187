package middleware

import (
	"bytes"
	"context"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/profile"
)

// ProfileWriteFilter applies the resolved profile's write definition to
// the parsed body before persistence. Identity fields always survive.
type ProfileWriteFilter struct {
	logger hclog.Logger
}

// NewProfileWriteFilter creates the write-side profile filtering step.
func NewProfileWriteFilter(logger hclog.Logger) *ProfileWriteFilter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ProfileWriteFilter{logger: logger.Named("profile-write-filter")}
}

// Name implements pipeline.Step.
func (s *ProfileWriteFilter) Name() string { return "profile-write-filter" }

// Execute implements pipeline.Step.
func (s *ProfileWriteFilter) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	if !writesBody(requestInfo.Method) || requestInfo.ParsedBody == nil {
		return next(ctx)
	}
	definition := requestInfo.ProfileContext.DefinitionFor(profile.Writable)
	if definition == nil {
		return next(ctx)
	}

	requestInfo.ParsedBody = profile.FilterDocument(
		requestInfo.ParsedBody, definition, requestInfo.ResourceSchema.IdentityPropertyNames())
	return next(ctx)
}

// ProfileReadFilter applies the resolved profile's read definition to a
// successful response body after the rest of the chain has produced it.
// Array bodies are filtered per document, preserving order; non-200
// responses and null bodies pass through untouched.
type ProfileReadFilter struct {
	logger hclog.Logger
}

// NewProfileReadFilter creates the read-side profile filtering step.
func NewProfileReadFilter(logger hclog.Logger) *ProfileReadFilter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ProfileReadFilter{logger: logger.Named("profile-read-filter")}
}

// Name implements pipeline.Step.
func (s *ProfileReadFilter) Name() string { return "profile-read-filter" }

// Execute implements pipeline.Step.
func (s *ProfileReadFilter) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	if err := next(ctx); err != nil {
		return err
	}

	resp := requestInfo.Response()
	if resp == nil || resp.StatusCode != 200 || len(resp.Body) == 0 {
		return nil
	}
	definition := requestInfo.ProfileContext.DefinitionFor(profile.Readable)
	if definition == nil {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(resp.Body))
	decoder.UseNumber()
	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		return err
	}

	identityNames := requestInfo.ResourceSchema.IdentityPropertyNames()
	var filtered any
	switch doc := parsed.(type) {
	case map[string]any:
		filtered = profile.FilterDocument(doc, definition, identityNames)
	case []any:
		out := make([]any, 0, len(doc))
		for _, item := range doc {
			if document, ok := item.(map[string]any); ok {
				out = append(out, profile.FilterDocument(document, definition, identityNames))
			} else {
				out = append(out, item)
			}
		}
		filtered = out
	default:
		// A null or scalar body is left as-is.
		return nil
	}

	body, err := json.Marshal(filtered)
	if err != nil {
		return err
	}
	resp.Body = body
	return nil
}
