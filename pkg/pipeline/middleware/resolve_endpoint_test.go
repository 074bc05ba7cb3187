package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

func newEndpointStep(t *testing.T) *ResolveEndpoint {
	t.Helper()
	provider := apischema.NewProvider(func(context.Context) (*apischema.Document, error) {
		return testSchemaDocument(), nil
	}, nil)
	_, err := provider.Reload(context.Background())
	require.NoError(t, err)
	return NewResolveEndpoint(provider, nil, nil)
}

func newRoutedRequest(project, endpoint string) *pipeline.RequestInfo {
	requestInfo := pipeline.NewRequestInfo(&pipeline.FrontendRequest{
		Method:  "GET",
		Path:    "/" + project + "/" + endpoint,
		TraceID: "trace-1",
	})
	requestInfo.PathComponents = pipeline.PathComponents{
		ProjectEndpointName: project,
		EndpointName:        endpoint,
	}
	return requestInfo
}

func TestResolveEndpoint_ResolvesSchemaReferences(t *testing.T) {
	step := newEndpointStep(t)
	requestInfo := newRoutedRequest("ed-fi", "assessments")

	require.True(t, executeStep(t, step, requestInfo))

	require.NotNil(t, requestInfo.SchemaDocument)
	assert.Equal(t, "Ed-Fi", requestInfo.ProjectSchema.ProjectName)
	assert.Equal(t, "Assessment", requestInfo.ResourceSchema.ResourceName)
}

func TestResolveEndpoint_UnknownProject(t *testing.T) {
	step := newEndpointStep(t)
	requestInfo := newRoutedRequest("tx", "assessments")

	require.False(t, executeStep(t, step, requestInfo))

	resp := requestInfo.Response()
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, response.ContentTypeProblemJSON, resp.ContentType)
	problem := decodeProblem(t, requestInfo)
	assert.Equal(t, "Invalid resource 'tx/assessments'.", problem.Detail)
}

func TestResolveEndpoint_UnknownResource(t *testing.T) {
	step := newEndpointStep(t)
	requestInfo := newRoutedRequest("ed-fi", "nonexistent")

	require.False(t, executeStep(t, step, requestInfo))

	resp := requestInfo.Response()
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, response.ContentTypeProblemJSON, resp.ContentType)
}
