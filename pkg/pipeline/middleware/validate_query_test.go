package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuery_SkipsWrites(t *testing.T) {
	step := NewValidateQueryParameters(0, nil)
	requestInfo := newResolvedRequest(t, "POST", "")
	require.True(t, executeStep(t, step, requestInfo))
}

func TestValidateQuery_Pagination(t *testing.T) {
	step := NewValidateQueryParameters(500, nil)

	tests := []struct {
		name    string
		key     string
		value   string
		path    string
		message string
	}{
		{"negative offset", "offset", "-1", "$.offset",
			"Offset must be a numeric value greater than or equal to 0."},
		{"non-numeric offset", "offset", "abc", "$.offset",
			"Offset must be a numeric value greater than or equal to 0."},
		{"limit above max", "limit", "501", "$.limit",
			"Limit must be omitted or set to a numeric value between 0 and 500."},
		{"non-boolean totalCount", "totalCount", "yes", "$.totalCount",
			"TotalCount must be a boolean value."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestInfo := newResolvedRequest(t, "GET", "")
			requestInfo.FrontendRequest.QueryParameters[tt.key] = tt.value

			require.False(t, executeStep(t, step, requestInfo))
			problem := decodeProblem(t, requestInfo)
			assert.Equal(t, []string{tt.message}, problem.ValidationErrors[tt.path])
		})
	}
}

func TestValidateQuery_ValidPaginationPasses(t *testing.T) {
	step := NewValidateQueryParameters(500, nil)
	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.FrontendRequest.QueryParameters["offset"] = "0"
	requestInfo.FrontendRequest.QueryParameters["limit"] = "25"
	requestInfo.FrontendRequest.QueryParameters["totalCount"] = "true"

	require.True(t, executeStep(t, step, requestInfo))
}

func TestValidateQuery_UnknownFieldIs400(t *testing.T) {
	step := NewValidateQueryParameters(0, nil)
	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.FrontendRequest.QueryParameters["favoriteColor"] = "blue"

	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	assert.Equal(t, 400, problem.Status)
	assert.Contains(t, problem.Errors,
		"The query field 'favoriteColor' is not valid for this resource.")
}

func TestValidateQuery_TypedValues(t *testing.T) {
	step := NewValidateQueryParameters(0, nil)

	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.FrontendRequest.QueryParameters["adaptiveAssessment"] = "maybe"
	require.False(t, executeStep(t, step, requestInfo))
	problem := decodeProblem(t, requestInfo)
	assert.Equal(t, []string{"The value 'maybe' is not valid for adaptiveAssessment."},
		problem.ValidationErrors["$.adaptiveAssessment"])

	requestInfo = newResolvedRequest(t, "GET", "")
	requestInfo.FrontendRequest.QueryParameters["adaptiveAssessment"] = "true"
	requestInfo.FrontendRequest.QueryParameters["namespace"] = "uri://ed-fi.org"
	require.True(t, executeStep(t, step, requestInfo))
}

func TestValidateQuery_DateNormalized(t *testing.T) {
	step := NewValidateQueryParameters(0, nil)
	requestInfo := newResolvedRequest(t, "GET", "")
	requestInfo.FrontendRequest.QueryParameters["revisionDate"] = "5/1/2009"

	require.True(t, executeStep(t, step, requestInfo))
	assert.Equal(t, "2009-05-01", requestInfo.FrontendRequest.QueryParameters["revisionDate"])
}
