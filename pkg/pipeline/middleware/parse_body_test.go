package middleware

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/trellis/pkg/pipeline"
)

func newBodyRequest(method, body string) *pipeline.RequestInfo {
	return pipeline.NewRequestInfo(&pipeline.FrontendRequest{
		Method:  method,
		Path:    "/ed-fi/assessments",
		Body:    body,
		TraceID: "trace-1",
	})
}

func TestParseBody_ValidObject(t *testing.T) {
	step := NewParseBody(nil)
	requestInfo := newBodyRequest("POST", `{"assessmentIdentifier":"AI-1","maxRawScore":10}`)

	require.True(t, executeStep(t, step, requestInfo))

	require.NotNil(t, requestInfo.ParsedBody)
	assert.Equal(t, "AI-1", requestInfo.ParsedBody["assessmentIdentifier"])
	assert.Equal(t, json.Number("10"), requestInfo.ParsedBody["maxRawScore"])
	assert.Empty(t, requestInfo.FrontendRequest.Body, "raw body is consumed")
}

func TestParseBody_SkipsBodylessMethods(t *testing.T) {
	step := NewParseBody(nil)
	for _, method := range []string{"GET", "DELETE"} {
		requestInfo := newBodyRequest(method, "")
		require.True(t, executeStep(t, step, requestInfo), method)
		assert.Nil(t, requestInfo.ParsedBody)
	}
}

func TestParseBody_EmptyBody(t *testing.T) {
	step := NewParseBody(nil)
	for _, body := range []string{"", "   ", "\n"} {
		requestInfo := newBodyRequest("POST", body)
		require.False(t, executeStep(t, step, requestInfo))
		problem := decodeProblem(t, requestInfo)
		assert.Equal(t, 400, problem.Status)
		assert.Equal(t, "A non-empty request body is required", problem.Detail)
	}
}

func TestParseBody_SyntaxErrorIs400(t *testing.T) {
	step := NewParseBody(nil)
	requestInfo := newBodyRequest("POST", `{"assessmentIdentifier":`)

	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	assert.Equal(t, 400, problem.Status)
	assert.Equal(t, "Data Validation Failed", problem.Title)
}

func TestParseBody_NonObjectIs400(t *testing.T) {
	step := NewParseBody(nil)
	requestInfo := newBodyRequest("POST", `[1,2,3]`)

	require.False(t, executeStep(t, step, requestInfo))
	assert.Equal(t, 400, requestInfo.Response().StatusCode)
}

func TestParseBody_DuplicateKey(t *testing.T) {
	step := NewParseBody(nil)
	requestInfo := newBodyRequest("PUT", `{"firstName":"a","lastName":"b","firstName":"c"}`)

	require.False(t, executeStep(t, step, requestInfo))

	problem := decodeProblem(t, requestInfo)
	assert.Equal(t, []string{"An item with the same key has already been added."},
		problem.ValidationErrors["$.firstName"])
}

func TestFindDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
	}{
		{"top level", `{"a":1,"a":2}`, "$.a"},
		{"nested object", `{"outer":{"inner":1,"inner":2}}`, "$.outer.inner"},
		{"inside array item", `{"items":[{"code":"x"},{"code":"y","code":"z"}]}`, "$.items[1].code"},
		{"nested reference in first item",
			`{"classPeriods":[{"classPeriodReference":{"classPeriodName":"1","classPeriodName":"2"}}]}`,
			"$.classPeriods[0].classPeriodReference.classPeriodName"},
		{"index counts scalar elements", `{"codes":["a","b",{"x":1,"x":2}]}`, "$.codes[2].x"},
		{"no duplicates", `{"a":1,"b":{"a":2},"c":[{"a":3}]}`, ""},
		{"same key different objects", `{"items":[{"code":"x"},{"code":"y"}]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, found := findDuplicateKey(tt.body)
			assert.Equal(t, tt.path != "", found)
			assert.Equal(t, tt.path, path)
		})
	}
}
