package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Step is a single pipeline middleware. A step either mutates the envelope
// and calls next exactly once, or sets a terminal response on the envelope
// and returns without calling next. Returning an error is reserved for
// faults; validation failures are terminal responses, not errors.
type Step interface {
	// Name returns the step name for logging (e.g. "parse-body").
	Name() string

	// Execute runs the step against the envelope.
	Execute(ctx context.Context, requestInfo *RequestInfo, next func(context.Context) error) error
}

// Executor runs an ordered step chain against request envelopes. It is
// stateless across requests; independent envelopes may run in parallel.
type Executor struct {
	steps  []Step
	logger hclog.Logger
}

// NewExecutor creates an executor over the given ordered steps.
func NewExecutor(steps []Step, logger hclog.Logger) *Executor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Executor{
		steps:  steps,
		logger: logger.Named("pipeline-executor"),
	}
}

// StepNames returns the configured step order.
func (e *Executor) StepNames() []string {
	names := make([]string, 0, len(e.steps))
	for _, s := range e.steps {
		names = append(names, s.Name())
	}
	return names
}

// Run executes the chain. It returns a fault from any step unchanged; the
// host maps faults to an HTTP 500. A nil error with no terminal response
// means the chain ran to completion without any step claiming the request.
func (e *Executor) Run(ctx context.Context, requestInfo *RequestInfo) error {
	start := time.Now()
	err := e.invoke(ctx, requestInfo, 0)

	if err != nil {
		e.logger.Error("pipeline faulted",
			"trace_id", requestInfo.TraceID(),
			"method", requestInfo.Method,
			"path", requestInfo.FrontendRequest.Path,
			"error", err,
		)
		return err
	}

	status := 0
	if resp := requestInfo.Response(); resp != nil {
		status = resp.StatusCode
	}
	e.logger.Debug("pipeline completed",
		"trace_id", requestInfo.TraceID(),
		"method", requestInfo.Method,
		"path", requestInfo.FrontendRequest.Path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (e *Executor) invoke(ctx context.Context, requestInfo *RequestInfo, index int) error {
	if index >= len(e.steps) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	step := e.steps[index]
	called := false
	next := func(nextCtx context.Context) error {
		if called {
			return fmt.Errorf("step %s called next more than once", step.Name())
		}
		called = true
		// A step that sets a response must not continue the chain; stopping
		// here keeps later steps from observing the envelope regardless.
		if requestInfo.Response() != nil {
			return nil
		}
		return e.invoke(nextCtx, requestInfo, index+1)
	}

	return step.Execute(ctx, requestInfo, next)
}
