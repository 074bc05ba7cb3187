package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/backend"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// DocumentHandler is the terminal step: it hands the normalized envelope
// to the document store and sets the success response. It never calls its
// continuation.
type DocumentHandler struct {
	store  backend.DocumentStore
	logger hclog.Logger
}

// NewDocumentHandler creates the terminal storage step.
func NewDocumentHandler(store backend.DocumentStore, logger hclog.Logger) *DocumentHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DocumentHandler{
		store:  store,
		logger: logger.Named("document-handler"),
	}
}

// Name implements pipeline.Step.
func (s *DocumentHandler) Name() string { return "document-handler" }

// Execute implements pipeline.Step.
func (s *DocumentHandler) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, _ func(context.Context) error,
) error {
	switch requestInfo.Method {
	case "GET":
		if requestInfo.PathComponents.DocumentUUID != "" {
			return s.getByUUID(ctx, requestInfo)
		}
		return s.query(ctx, requestInfo)
	case "POST":
		return s.upsert(ctx, requestInfo)
	case "PUT":
		return s.update(ctx, requestInfo)
	case "DELETE":
		return s.delete(ctx, requestInfo)
	default:
		failWith(requestInfo, response.MethodNotAllowed(requestInfo.TraceID(), fmt.Sprintf(
			"The %s method is not supported.", requestInfo.Method)), response.ContentTypeJSON)
		return nil
	}
}

func (s *DocumentHandler) getByUUID(ctx context.Context, requestInfo *pipeline.RequestInfo) error {
	body, found, err := s.store.Get(ctx,
		requestInfo.ResourceSchema.ResourceName, requestInfo.PathComponents.DocumentUUID)
	if err != nil {
		return fmt.Errorf("document get failed: %w", err)
	}
	if !found {
		failWith(requestInfo, response.NotFound(requestInfo.TraceID()), response.ContentTypeProblemJSON)
		return nil
	}
	return s.respondJSON(requestInfo, 200, body, nil)
}

func (s *DocumentHandler) query(ctx context.Context, requestInfo *pipeline.RequestInfo) error {
	var filters []backend.QueryFilter
	offset, limit, totalCount := 0, DefaultMaxPageSize, false

	for key, value := range requestInfo.FrontendRequest.QueryParameters {
		switch strings.ToLower(key) {
		case "offset":
			offset, _ = strconv.Atoi(value)
		case "limit":
			limit, _ = strconv.Atoi(value)
		case "totalcount":
			totalCount = strings.EqualFold(value, "true")
		default:
			field, ok := requestInfo.ResourceSchema.QueryFields[strings.ToLower(key)]
			if !ok || len(field.Paths) == 0 {
				continue
			}
			filters = append(filters, backend.QueryFilter{Path: field.Paths[0], Value: value})
		}
	}

	documents, err := s.store.Query(ctx, requestInfo.ResourceSchema.ResourceName, filters)
	if err != nil {
		return fmt.Errorf("document query failed: %w", err)
	}

	var headers map[string]string
	if totalCount {
		headers = map[string]string{"Total-Count": strconv.Itoa(len(documents))}
	}

	if offset > len(documents) {
		offset = len(documents)
	}
	documents = documents[offset:]
	if limit < len(documents) {
		documents = documents[:limit]
	}
	return s.respondJSON(requestInfo, 200, documents, headers)
}

func (s *DocumentHandler) upsert(ctx context.Context, requestInfo *pipeline.RequestInfo) error {
	documentUUID, _ := requestInfo.ParsedBody["id"].(string)
	uuid, created, err := s.store.Upsert(ctx, backend.Document{
		UUID:         documentUUID,
		ResourceName: requestInfo.ResourceSchema.ResourceName,
		Identity:     requestInfo.DocumentIdentity,
		Body:         requestInfo.ParsedBody,
	})
	if err != nil {
		return fmt.Errorf("document upsert failed: %w", err)
	}

	status := 200
	if created {
		status = 201
	}
	requestInfo.SetResponse(&pipeline.Response{
		StatusCode:  status,
		ContentType: response.ContentTypeJSON,
		Headers: map[string]string{
			"Location": strings.TrimSuffix(requestInfo.FrontendRequest.Path, "/") + "/" + uuid,
		},
	})
	s.logger.Debug("document upserted",
		"trace_id", requestInfo.TraceID(),
		"resource", requestInfo.ResourceSchema.ResourceName,
		"uuid", uuid,
		"created", created,
	)
	return nil
}

func (s *DocumentHandler) update(ctx context.Context, requestInfo *pipeline.RequestInfo) error {
	found, err := s.store.Update(ctx, backend.Document{
		UUID:         requestInfo.PathComponents.DocumentUUID,
		ResourceName: requestInfo.ResourceSchema.ResourceName,
		Identity:     requestInfo.DocumentIdentity,
		Body:         requestInfo.ParsedBody,
	})
	if err != nil {
		return fmt.Errorf("document update failed: %w", err)
	}
	if !found {
		failWith(requestInfo, response.NotFound(requestInfo.TraceID()), response.ContentTypeProblemJSON)
		return nil
	}
	requestInfo.SetResponse(&pipeline.Response{StatusCode: 204})
	return nil
}

func (s *DocumentHandler) delete(ctx context.Context, requestInfo *pipeline.RequestInfo) error {
	found, err := s.store.Delete(ctx,
		requestInfo.ResourceSchema.ResourceName, requestInfo.PathComponents.DocumentUUID)
	if err != nil {
		return fmt.Errorf("document delete failed: %w", err)
	}
	if !found {
		failWith(requestInfo, response.NotFound(requestInfo.TraceID()), response.ContentTypeProblemJSON)
		return nil
	}
	requestInfo.SetResponse(&pipeline.Response{StatusCode: 204})
	return nil
}

func (s *DocumentHandler) respondJSON(
	requestInfo *pipeline.RequestInfo, status int, payload any, headers map[string]string,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode response body: %w", err)
	}
	requestInfo.SetResponse(&pipeline.Response{
		StatusCode:  status,
		ContentType: response.ContentTypeJSON,
		Body:        body,
		Headers:     headers,
	})
	return nil
}
