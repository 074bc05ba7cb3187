package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

type captureStep struct {
	seen *pipeline.RequestInfo
	fail error
}

func (s *captureStep) Name() string { return "capture" }

func (s *captureStep) Execute(
	_ context.Context, requestInfo *pipeline.RequestInfo, _ func(context.Context) error,
) error {
	if s.fail != nil {
		return s.fail
	}
	s.seen = requestInfo
	requestInfo.SetResponse(&pipeline.Response{
		StatusCode:  200,
		ContentType: response.ContentTypeJSON,
		Body:        []byte(`{"ok":true}`),
		Headers:     map[string]string{"Total-Count": "1"},
	})
	return nil
}

func TestServer_TranslatesRequestAndResponse(t *testing.T) {
	step := &captureStep{}
	srv := New(":0", pipeline.NewExecutor([]pipeline.Step{step}, nil), nil)

	req := httptest.NewRequest("POST", "/ed-fi/assessments?totalCount=true",
		strings.NewReader(`{"assessmentIdentifier":"AI-1"}`))
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("correlation-id", "trace-42")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, response.ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("Total-Count"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	require.NotNil(t, step.seen)
	frontend := step.seen.FrontendRequest
	assert.Equal(t, "POST", frontend.Method)
	assert.Equal(t, "/ed-fi/assessments", frontend.Path)
	assert.Equal(t, `{"assessmentIdentifier":"AI-1"}`, frontend.Body)
	assert.Equal(t, "trace-42", frontend.TraceID)
	assert.Equal(t, "true", frontend.QueryParameters["totalCount"])

	auth, ok := frontend.Header("authorization")
	require.True(t, ok)
	assert.Equal(t, "Bearer token", auth)
}

func TestServer_GeneratesTraceIDWhenMissing(t *testing.T) {
	step := &captureStep{}
	srv := New(":0", pipeline.NewExecutor([]pipeline.Step{step}, nil), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ed-fi/assessments", nil))

	require.NotNil(t, step.seen)
	assert.NotEmpty(t, step.seen.TraceID())
}

func TestServer_PipelineFaultIs500(t *testing.T) {
	step := &captureStep{fail: errors.New("schema store unreachable")}
	srv := New(":0", pipeline.NewExecutor([]pipeline.Step{step}, nil), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ed-fi/assessments", nil)
	req.Header.Set("correlation-id", "trace-42")
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, 500, rec.Code)
	assert.Equal(t, response.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))

	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, 500, problem.Status)
	assert.Equal(t, "trace-42", problem.CorrelationID)
}

func TestServer_NoResponseIs500(t *testing.T) {
	// A chain where every step passes through without answering is a bug;
	// the frontend converts it to a 500 rather than hanging the client.
	passthrough := pipeline.NewExecutor(nil, nil)
	srv := New(":0", passthrough, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ed-fi/assessments", nil))

	assert.Equal(t, 500, rec.Code)
}
