package middleware

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

func assessmentProperties() map[string]any {
	return map[string]any{
		"id":                   map[string]any{"type": "string"},
		"assessmentIdentifier": map[string]any{"type": "string", "pattern": `^\S(.*\S)?$`},
		"namespace":            map[string]any{"type": "string"},
		"assessmentTitle":      map[string]any{"type": "string"},
		"maxRawScore":          map[string]any{"type": "number"},
		"adaptiveAssessment":   map[string]any{"type": "boolean"},
		"revisionDate":         map[string]any{"type": "string"},
		"firstAdministrationDate": map[string]any{
			"type": "string",
		},
		"educationOrganizationReference": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"educationOrganizationId": map[string]any{"type": "number"},
			},
		},
		"performanceLevels": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"performanceLevelDescriptor":          map[string]any{"type": "string"},
					"assessmentReportingMethodDescriptor": map[string]any{"type": "string"},
					"minimumScore":                        map[string]any{"type": "number"},
				},
			},
		},
	}
}

func assessmentInsertSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"assessmentIdentifier", "namespace"},
		"properties":           assessmentProperties(),
	}
}

func assessmentUpdateSchema() map[string]any {
	schema := assessmentInsertSchema()
	schema["required"] = []any{"id", "assessmentIdentifier", "namespace"}
	return schema
}

func testSchemaDocument() *apischema.Document {
	return apischema.NewBuilder().
		WithReloadID("reload-1").
		StartProject("Ed-Fi", "ed-fi", "5.2.0").
		StartResource("Assessment", "assessments").
		WithInsertSchema(assessmentInsertSchema()).
		WithUpdateSchema(assessmentUpdateSchema()).
		WithIdentityPaths("$.assessmentIdentifier", "$.namespace").
		WithNumericPaths("$.maxRawScore", "$.performanceLevels[*].minimumScore").
		WithBooleanPaths("$.adaptiveAssessment").
		WithDatePaths("$.revisionDate").
		WithDateTimePaths("$.firstAdministrationDate").
		WithDecimalRule("$.maxRawScore", 5, 2).
		WithArrayUniquenessConstraint("$.performanceLevels",
			"$.performanceLevelDescriptor", "$.assessmentReportingMethodDescriptor").
		WithQueryField("namespace", "string", "$.namespace").
		WithQueryField("revisionDate", "date", "$.revisionDate").
		WithQueryField("adaptiveAssessment", "boolean", "$.adaptiveAssessment").
		WithNamespaceSecurityPaths("$.namespace").
		WithEducationOrganizationSecurityPath("School",
			"$.educationOrganizationReference.educationOrganizationId").
		EndResource().
		EndProject().
		Build()
}

// newResolvedRequest builds an envelope with path components and schema
// references already resolved, as the steps under test see them.
func newResolvedRequest(t *testing.T, method, body string) *pipeline.RequestInfo {
	t.Helper()

	document := testSchemaDocument()
	project, ok := document.ProjectByEndpointName("ed-fi")
	require.True(t, ok)
	resource, ok := project.ResourceByEndpointName("assessments")
	require.True(t, ok)

	path := "/ed-fi/assessments"
	components := pipeline.PathComponents{ProjectEndpointName: "ed-fi", EndpointName: "assessments"}
	if method == "PUT" || method == "DELETE" {
		components.DocumentUUID = "11111111-2222-3333-4444-555555555555"
		path += "/" + components.DocumentUUID
	}

	requestInfo := pipeline.NewRequestInfo(&pipeline.FrontendRequest{
		Method:          method,
		Path:            path,
		TraceID:         "trace-1",
		Headers:         map[string]string{},
		QueryParameters: map[string]string{},
	})
	requestInfo.PathComponents = components
	requestInfo.SchemaDocument = document
	requestInfo.ProjectSchema = project
	requestInfo.ResourceSchema = resource

	if body != "" {
		requestInfo.ParsedBody = mustParseJSON(t, body)
	}
	return requestInfo
}

func mustParseJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var parsed map[string]any
	require.NoError(t, decoder.Decode(&parsed))
	return parsed
}

// executeStep runs one step with a recording continuation and reports
// whether the continuation was reached.
func executeStep(t *testing.T, step pipeline.Step, requestInfo *pipeline.RequestInfo) bool {
	t.Helper()
	called := false
	err := step.Execute(context.Background(), requestInfo, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	return called
}

// executeStepWithResponse runs a step whose continuation produces the
// given response, mimicking a downstream terminal handler.
func executeStepWithResponse(
	t *testing.T, step pipeline.Step, requestInfo *pipeline.RequestInfo, resp *pipeline.Response,
) bool {
	t.Helper()
	called := false
	err := step.Execute(context.Background(), requestInfo, func(context.Context) error {
		called = true
		requestInfo.SetResponse(resp)
		return nil
	})
	require.NoError(t, err)
	return called
}

func decodeProblem(t *testing.T, requestInfo *pipeline.RequestInfo) response.ProblemDetails {
	t.Helper()
	resp := requestInfo.Response()
	require.NotNil(t, resp, "expected a terminal response")
	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(resp.Body, &problem))
	return problem
}
