package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/trellis/pkg/apischema"
	"github.com/edforge/trellis/pkg/pipeline"
)

func TestValidateDecimals_WithinRange(t *testing.T) {
	step := NewValidateDecimals(nil)
	requestInfo := newResolvedRequest(t, "POST", `{"maxRawScore": 999.99}`)
	require.True(t, executeStep(t, step, requestInfo))
}

func TestValidateDecimals_MagnitudeExceeded(t *testing.T) {
	step := NewValidateDecimals(nil)
	requestInfo := newResolvedRequest(t, "POST", `{"maxRawScore": 100000}`)

	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	assert.Equal(t,
		[]string{"$.maxRawScore must be between -999.99 and 999.99."},
		problem.ValidationErrors["$.maxRawScore"])
}

func TestValidateDecimals_TooManyFractionDigits(t *testing.T) {
	step := NewValidateDecimals(nil)
	requestInfo := newResolvedRequest(t, "POST", `{"maxRawScore": 1.234}`)

	require.False(t, executeStep(t, step, requestInfo))
	problem := decodeProblem(t, requestInfo)
	assert.Contains(t, problem.ValidationErrors["$.maxRawScore"][0], "must be between")
}

func TestValidateDecimals_TrailingZerosDoNotCount(t *testing.T) {
	step := NewValidateDecimals(nil)
	requestInfo := newResolvedRequest(t, "POST", `{"maxRawScore": 1.500}`)
	require.True(t, executeStep(t, step, requestInfo))
}

func equalityTestRequest(t *testing.T, body string) *pipeline.RequestInfo {
	t.Helper()
	document := apischema.NewBuilder().
		StartProject("Ed-Fi", "ed-fi", "5.2.0").
		StartResource("StudentSectionAssociation", "studentSectionAssociations").
		WithEqualityConstraint("$.sectionReference.schoolId", "$.schoolReference.schoolId").
		EndResource().
		EndProject().
		Build()
	project, _ := document.ProjectByEndpointName("ed-fi")
	resource, _ := project.ResourceByEndpointName("studentSectionAssociations")

	requestInfo := pipeline.NewRequestInfo(&pipeline.FrontendRequest{
		Method: "POST", Path: "/ed-fi/studentSectionAssociations", TraceID: "trace-1",
	})
	requestInfo.SchemaDocument = document
	requestInfo.ProjectSchema = project
	requestInfo.ResourceSchema = resource
	requestInfo.ParsedBody = mustParseJSON(t, body)
	return requestInfo
}

func TestValidateEquality_MatchingValuesPass(t *testing.T) {
	step := NewValidateEqualityConstraints(nil)
	requestInfo := equalityTestRequest(t, `{
		"sectionReference": {"schoolId": 255901},
		"schoolReference": {"schoolId": 255901}
	}`)
	require.True(t, executeStep(t, step, requestInfo))
}

func TestValidateEquality_ConflictReportsEveryPath(t *testing.T) {
	step := NewValidateEqualityConstraints(nil)
	requestInfo := equalityTestRequest(t, `{
		"sectionReference": {"schoolId": 255901},
		"schoolReference": {"schoolId": 255902}
	}`)

	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	require.Len(t, problem.ValidationErrors, 2)
	message := problem.ValidationErrors["$.sectionReference.schoolId"][0]
	assert.Contains(t, message, "All values supplied for 'schoolId' must match.")
	assert.Contains(t, message, "'255902', '255901'")
	assert.Contains(t, problem.ValidationErrors, "$.schoolReference.schoolId")
}

func TestValidateArrayUniqueness_UniqueItemsPass(t *testing.T) {
	step := NewValidateArrayUniqueness(nil)
	requestInfo := newResolvedRequest(t, "POST", `{
		"performanceLevels": [
			{"performanceLevelDescriptor": "pass", "assessmentReportingMethodDescriptor": "raw"},
			{"performanceLevelDescriptor": "fail", "assessmentReportingMethodDescriptor": "raw"}
		]
	}`)
	require.True(t, executeStep(t, step, requestInfo))
}

func TestValidateArrayUniqueness_DuplicateTuple(t *testing.T) {
	step := NewValidateArrayUniqueness(nil)
	requestInfo := newResolvedRequest(t, "POST", `{
		"performanceLevels": [
			{"performanceLevelDescriptor": "pass", "assessmentReportingMethodDescriptor": "raw"},
			{"performanceLevelDescriptor": "pass", "assessmentReportingMethodDescriptor": "raw"}
		]
	}`)

	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	assert.Equal(t, []string{
		"The 2nd item of the performanceLevels has the same identifying values " +
			"as another item earlier in the list.",
	}, problem.ValidationErrors["$.performanceLevels"])
}

func TestValidateArrayUniqueness_ReportsFirstViolationOnly(t *testing.T) {
	step := NewValidateArrayUniqueness(nil)
	requestInfo := newResolvedRequest(t, "POST", `{
		"performanceLevels": [
			{"performanceLevelDescriptor": "a", "assessmentReportingMethodDescriptor": "x"},
			{"performanceLevelDescriptor": "a", "assessmentReportingMethodDescriptor": "x"},
			{"performanceLevelDescriptor": "b", "assessmentReportingMethodDescriptor": "y"},
			{"performanceLevelDescriptor": "b", "assessmentReportingMethodDescriptor": "y"}
		]
	}`)

	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	messages := problem.ValidationErrors["$.performanceLevels"]
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "The 2nd item")
}

func TestValidateArrayUniqueness_NestedConstraintKeyedByIndexedPath(t *testing.T) {
	document := apischema.NewBuilder().
		StartProject("Ed-Fi", "ed-fi", "5.2.0").
		StartResource("StudentHealthRecord", "studentHealthRecords").
		WithArrayUniquenessConstraint("$.requiredImmunizations[*].dates",
			"$.immunizationDate").
		EndResource().
		EndProject().
		Build()
	project, _ := document.ProjectByEndpointName("ed-fi")
	resource, _ := project.ResourceByEndpointName("studentHealthRecords")

	requestInfo := pipeline.NewRequestInfo(&pipeline.FrontendRequest{
		Method: "POST", Path: "/ed-fi/studentHealthRecords", TraceID: "trace-1",
	})
	requestInfo.SchemaDocument = document
	requestInfo.ProjectSchema = project
	requestInfo.ResourceSchema = resource
	requestInfo.ParsedBody = mustParseJSON(t, `{
		"requiredImmunizations": [
			{"dates": [
				{"immunizationDate": "2024-01-01"},
				{"immunizationDate": "2024-01-01"}
			]}
		]
	}`)

	step := NewValidateArrayUniqueness(nil)
	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	// The key names the concrete array instance, not the wildcard form.
	messages := problem.ValidationErrors["$.requiredImmunizations[0].dates"]
	require.Len(t, messages, 1)
	assert.Equal(t,
		"The 2nd item of the dates has the same identifying values "+
			"as another item earlier in the list.", messages[0])
}

func TestValidateMatchingUUIDs(t *testing.T) {
	step := NewValidateMatchingDocumentUUIDs(nil)

	requestInfo := newResolvedRequest(t, "PUT",
		`{"id": "11111111-2222-3333-4444-555555555555"}`)
	require.True(t, executeStep(t, step, requestInfo))

	requestInfo = newResolvedRequest(t, "PUT",
		`{"id": "99999999-2222-3333-4444-555555555555"}`)
	require.False(t, executeStep(t, step, requestInfo))
	problem := decodeProblem(t, requestInfo)
	assert.Equal(t, []string{"Request body id must match the id in the url."},
		problem.ValidationErrors["$.id"])

	requestInfo = newResolvedRequest(t, "PUT", `{}`)
	require.False(t, executeStep(t, step, requestInfo))
}

func TestValidateMatchingUUIDs_SkipsPost(t *testing.T) {
	step := NewValidateMatchingDocumentUUIDs(nil)
	requestInfo := newResolvedRequest(t, "POST", `{}`)
	require.True(t, executeStep(t, step, requestInfo))
}
