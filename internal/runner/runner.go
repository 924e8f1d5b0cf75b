// Package runner checks declared endpoint expectations against a live
// API and aggregates the outcomes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/restspec/internal/decl"
	"github.com/yourorg/restspec/internal/endpoint"
	"github.com/yourorg/restspec/internal/logging"
	"github.com/yourorg/restspec/internal/schema"
	"github.com/yourorg/restspec/internal/store"
	"github.com/yourorg/restspec/pkg/types"
)

// ProgressFunc reports each endpoint as it is checked.
type ProgressFunc func(stage string)

type Runner struct {
	registry   *endpoint.Registry
	logger     *slog.Logger
	journal    store.Store
	runID      string
	onProgress ProgressFunc
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithJournal saves every result under runID and sets the run's final
// status.
func WithJournal(st store.Store, runID string) Option {
	return func(r *Runner) {
		r.journal = st
		r.runID = runID
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.onProgress = fn }
}

func New(reg *endpoint.Registry, opts ...Option) *Runner {
	r := &Runner{registry: reg, logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report aggregates the results of one run, in expectation order.
type Report struct {
	RunID   string
	Results []types.CheckResult
	Passed  int
	Failed  int
	Errored int
}

func (r *Report) OK() bool {
	return r.Failed == 0 && r.Errored == 0
}

func (r *Report) add(res types.CheckResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case types.CheckPassed:
		r.Passed++
	case types.CheckFailed:
		r.Failed++
	default:
		r.Errored++
	}
}

// Run checks every expectation in order. Failing checks do not stop the
// run; only a cancelled context or a journal write error does.
func (r *Runner) Run(ctx context.Context, exps []decl.Expectation) (*Report, error) {
	if r.registry == nil {
		return nil, errors.New("registry is nil")
	}
	rep := &Report{RunID: r.runID}
	for i, exp := range exps {
		if err := ctx.Err(); err != nil {
			_ = r.finish(types.RunStatusFailed)
			return rep, err
		}
		report(r.onProgress, fmt.Sprintf("%d/%d %s", i+1, len(exps), exp.Endpoint))

		res := r.Check(ctx, exp)
		rep.add(res)
		if r.journal != nil {
			if err := r.journal.SaveResult(&res); err != nil {
				return rep, fmt.Errorf("save result: %w", err)
			}
		}
	}

	status := types.RunStatusPassed
	if !rep.OK() {
		status = types.RunStatusFailed
	}
	if err := r.finish(status); err != nil {
		return rep, err
	}
	r.logger.Info("check run finished", "run", r.runID, "passed", rep.Passed, "failed", rep.Failed, "errors", rep.Errored)
	return rep, nil
}

func (r *Runner) finish(status string) error {
	if r.journal == nil {
		return nil
	}
	return r.journal.UpdateRunStatus(r.runID, status)
}

// Check executes one endpoint, sending a generated payload when its
// method carries one, then compares the status and checks the body
// against the expected schema.
func (r *Runner) Check(ctx context.Context, exp decl.Expectation) types.CheckResult {
	res := types.CheckResult{RunID: r.runID, Endpoint: exp.Endpoint, Expected: exp.Status}
	fail := func(err error) types.CheckResult {
		res.Status = types.CheckError
		res.ErrorMsg = err.Error()
		r.logger.Warn("check errored", "endpoint", exp.Endpoint, "error", err)
		return res
	}

	e, err := r.registry.LookupEndpoint(exp.Endpoint)
	if err != nil {
		return fail(err)
	}
	params := endpoint.Params{QueryParams: exp.Query}
	if e.SendsPayload() && e.SchemaName() != "" {
		body, err := e.Payload(ctx)
		if err != nil {
			return fail(err)
		}
		params.Body = body
	}
	resp, err := e.Execute(ctx, params)
	if err != nil {
		return fail(err)
	}
	res.Actual = resp.Status

	if exp.Status != 0 && resp.Status != exp.Status {
		res.Failures = append(res.Failures, fmt.Sprintf("status: expected %d, got %d", exp.Status, resp.Status))
	}

	s, err := r.expectedSchema(e, exp)
	if err != nil {
		return fail(err)
	}
	if s != nil && resp.Status < 300 && resp.Body != nil {
		checked, err := s.Check(ctx, resp.Body)
		if err != nil {
			return fail(err)
		}
		res.Failures = append(res.Failures, checked.Messages()...)
	}

	res.Status = types.CheckPassed
	if len(res.Failures) > 0 {
		res.Status = types.CheckFailed
		r.logger.Info("check failed", "endpoint", exp.Endpoint, "failures", len(res.Failures))
	} else {
		r.logger.Debug("check passed", "endpoint", exp.Endpoint, "status", resp.Status)
	}
	return res
}

// expectedSchema is the expectation's schema, else the endpoint's own,
// else none.
func (r *Runner) expectedSchema(e *endpoint.Endpoint, exp decl.Expectation) (*schema.Schema, error) {
	if exp.Schema != "" {
		return r.registry.Schemas().Lookup(exp.Schema)
	}
	if e.SchemaName() == "" {
		return nil, nil
	}
	return e.Schema()
}

func report(fn ProgressFunc, msg string) {
	if fn != nil {
		fn(msg)
	}
}
