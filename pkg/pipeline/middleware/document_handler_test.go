package middleware

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/trellis/pkg/backend"
	"github.com/edforge/trellis/pkg/models"
	"github.com/edforge/trellis/pkg/pipeline"
)

func postAssessment(t *testing.T, step *DocumentHandler, identifier, uuid string) *pipeline.RequestInfo {
	t.Helper()
	requestInfo := newResolvedRequest(t, "POST", `{
		"assessmentIdentifier": "`+identifier+`",
		"namespace": "uri://ed-fi.org/Assessment"
	}`)
	requestInfo.ParsedBody["id"] = uuid
	requestInfo.DocumentIdentity = models.DocumentIdentity{
		{Path: requestInfo.ResourceSchema.IdentityPaths[0], Value: identifier},
		{Path: requestInfo.ResourceSchema.IdentityPaths[1], Value: "uri://ed-fi.org/Assessment"},
	}
	require.False(t, executeStep(t, step, requestInfo))
	return requestInfo
}

func TestDocumentHandler_PostCreates201WithLocation(t *testing.T) {
	step := NewDocumentHandler(backend.NewMemoryStore(), nil)

	requestInfo := postAssessment(t, step, "AI-1", "11111111-2222-3333-4444-555555555555")

	resp := requestInfo.Response()
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "/ed-fi/assessments/11111111-2222-3333-4444-555555555555",
		resp.Headers["Location"])
}

func TestDocumentHandler_PostSameIdentityUpdates(t *testing.T) {
	step := NewDocumentHandler(backend.NewMemoryStore(), nil)

	postAssessment(t, step, "AI-1", "11111111-2222-3333-4444-555555555555")
	requestInfo := postAssessment(t, step, "AI-1", "99999999-2222-3333-4444-555555555555")

	resp := requestInfo.Response()
	assert.Equal(t, 200, resp.StatusCode)
	// The original uuid is preserved on upsert.
	assert.Equal(t, "/ed-fi/assessments/11111111-2222-3333-4444-555555555555",
		resp.Headers["Location"])
}

func TestDocumentHandler_GetByUUID(t *testing.T) {
	store := backend.NewMemoryStore()
	step := NewDocumentHandler(store, nil)
	postAssessment(t, step, "AI-1", "11111111-2222-3333-4444-555555555555")

	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.PathComponents.DocumentUUID = "11111111-2222-3333-4444-555555555555"
	require.False(t, executeStep(t, step, requestInfo))

	resp := requestInfo.Response()
	require.Equal(t, 200, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	assert.Equal(t, "AI-1", body["assessmentIdentifier"])
}

func TestDocumentHandler_GetUnknownUUIDIs404(t *testing.T) {
	step := NewDocumentHandler(backend.NewMemoryStore(), nil)

	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.PathComponents.DocumentUUID = "11111111-2222-3333-4444-555555555555"
	require.False(t, executeStep(t, step, requestInfo))

	assert.Equal(t, 404, requestInfo.Response().StatusCode)
}

func TestDocumentHandler_QueryFiltersAndPaginates(t *testing.T) {
	store := backend.NewMemoryStore()
	step := NewDocumentHandler(store, nil)
	postAssessment(t, step, "AI-1", "11111111-2222-3333-4444-555555555555")
	postAssessment(t, step, "AI-2", "22222222-2222-3333-4444-555555555555")
	postAssessment(t, step, "AI-3", "33333333-2222-3333-4444-555555555555")

	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.FrontendRequest.QueryParameters["totalCount"] = "true"
	requestInfo.FrontendRequest.QueryParameters["offset"] = "1"
	requestInfo.FrontendRequest.QueryParameters["limit"] = "1"
	require.False(t, executeStep(t, step, requestInfo))

	resp := requestInfo.Response()
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "3", resp.Headers["Total-Count"])

	var results []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "AI-2", results[0]["assessmentIdentifier"])
}

func TestDocumentHandler_QueryByField(t *testing.T) {
	store := backend.NewMemoryStore()
	step := NewDocumentHandler(store, nil)
	postAssessment(t, step, "AI-1", "11111111-2222-3333-4444-555555555555")

	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.FrontendRequest.QueryParameters["namespace"] = "uri://other.org"
	require.False(t, executeStep(t, step, requestInfo))

	var results []map[string]any
	require.NoError(t, json.Unmarshal(requestInfo.Response().Body, &results))
	assert.Empty(t, results)
}

func TestDocumentHandler_PutAndDelete(t *testing.T) {
	store := backend.NewMemoryStore()
	step := NewDocumentHandler(store, nil)
	postAssessment(t, step, "AI-1", "11111111-2222-3333-4444-555555555555")

	requestInfo := newResolvedRequest(t, "PUT", `{
		"id": "11111111-2222-3333-4444-555555555555",
		"assessmentIdentifier": "AI-1",
		"namespace": "uri://ed-fi.org/Assessment",
		"assessmentTitle": "Updated"
	}`)
	require.False(t, executeStep(t, step, requestInfo))
	assert.Equal(t, 204, requestInfo.Response().StatusCode)

	requestInfo = newResolvedRequest(t, "DELETE", "")
	require.False(t, executeStep(t, step, requestInfo))
	assert.Equal(t, 204, requestInfo.Response().StatusCode)

	requestInfo = newResolvedRequest(t, "DELETE", "")
	require.False(t, executeStep(t, step, requestInfo))
	assert.Equal(t, 404, requestInfo.Response().StatusCode)
}
