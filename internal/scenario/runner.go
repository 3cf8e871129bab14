package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/harness"
)

// Lifecycle is the part of the environment the runner manages between scenarios
type Lifecycle interface {
	Reset() error
	CaptureFailure(name string) (string, error)
}

// Runner executes scenarios sequentially against one environment
type Runner struct {
	Env         *harness.Env
	Lifecycle   Lifecycle
	StepTimeout time.Duration
	// ScenarioTimeout applies to scenarios that set no Timeout of their own
	ScenarioTimeout time.Duration
}

// NewRunner creates a runner using the environment's configured timeouts
func NewRunner(env *harness.Env) *Runner {
	return &Runner{
		Env:             env,
		Lifecycle:       env,
		StepTimeout:     env.Config.Runner.StepTimeout,
		ScenarioTimeout: env.Config.Runner.ScenarioTimeout,
	}
}

// skipReason reports missing credentials for the roles sc logs in as
func (r *Runner) skipReason(sc Scenario) string {
	for _, role := range sc.Requires {
		creds, err := r.Env.Users.Credentials(role)
		if err != nil {
			return err.Error()
		}
		if creds.Name == "" || creds.Password == "" {
			return fmt.Sprintf("%s credentials not configured", role)
		}
	}
	return ""
}

// Run executes one scenario. Steps run in order; the first failure ends the
// scenario and the remaining steps are reported as skipped. Side effects of
// completed steps are not rolled back.
func (r *Runner) Run(ctx context.Context, sc Scenario) ScenarioResult {
	res := ScenarioResult{
		Name:        sc.Name,
		Description: sc.Description,
		StartTime:   time.Now(),
	}
	defer func() {
		res.EndTime = time.Now()
		res.Duration = res.EndTime.Sub(res.StartTime)
	}()

	if reason := r.skipReason(sc); reason != "" {
		res.Result = ResultSkipped
		res.Error = reason
		log.Printf("[runner] SKIPPED %s: %s", sc.Name, reason)
		return res
	}

	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = r.ScenarioTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log.Printf("[runner] Running %s (%d steps)", sc.Name, len(sc.Steps))
	res.Result = ResultPassed
	for i, step := range sc.Steps {
		sr := r.runStep(ctx, step, timeout)
		res.Steps = append(res.Steps, sr)
		if sr.Result == ResultPassed {
			continue
		}

		res.Result = ResultFailed
		res.Error = fmt.Sprintf("step %d %q: %s", i+1, step.Name(), sr.Error)
		res.Kind = sr.Kind
		for _, rest := range sc.Steps[i+1:] {
			res.Steps = append(res.Steps, StepResult{Name: rest.Name(), Result: ResultSkipped})
		}
		// after a timeout the abandoned step may still move the page while the shot is taken
		if r.Lifecycle != nil {
			if shot, err := r.Lifecycle.CaptureFailure(sc.Name); err == nil {
				res.Screenshot = shot
			}
		}
		log.Printf("[runner] FAILED %s at step %d %q", sc.Name, i+1, step.Name())
		return res
	}
	log.Printf("[runner] PASSED %s", sc.Name)
	return res
}

type stepOutcome struct {
	err error
}

// runStep bounds step by the step timeout. A step that does not return in
// time is reported as a TimeoutError; its goroutine is abandoned. When ctx
// itself ends first, the scenario bound or the cancellation is reported.
func (r *Runner) runStep(ctx context.Context, step Step, scenarioTimeout time.Duration) StepResult {
	start := time.Now()
	sr := StepResult{Name: step.Name()}

	timeout := r.StepTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan stepOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- stepOutcome{err: fmt.Errorf("step panicked: %v", p)}
			}
		}()
		done <- stepOutcome{err: step.Run(stepCtx, r.Env)}
	}()

	var err error
	select {
	case out := <-done:
		err = out.err
	case <-stepCtx.Done():
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = &herrors.TimeoutError{Op: "scenario", Timeout: scenarioTimeout, Err: ctx.Err()}
		case ctx.Err() != nil:
			err = fmt.Errorf("step %q interrupted: %w", step.Name(), ctx.Err())
		default:
			err = &herrors.TimeoutError{Op: "step " + step.Name(), Timeout: timeout, Err: stepCtx.Err()}
		}
	}

	sr.Duration = time.Since(start)
	if err != nil {
		sr.Result = ResultFailed
		sr.Error = err.Error()
		sr.Kind = herrors.KindOf(err)
		sr.err = err
		return sr
	}
	sr.Result = ResultPassed
	return sr
}

// RunAll runs scenarios in order, giving each after the first a fresh browser
// context. Every scenario runs even when an earlier one failed.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) *SuiteResult {
	suite := &SuiteResult{
		RunID:     r.Env.RunID,
		StartTime: time.Now(),
	}
	for i, sc := range scenarios {
		if ctx.Err() != nil {
			suite.add(ScenarioResult{Name: sc.Name, Description: sc.Description, Result: ResultSkipped, Error: "run cancelled"})
			continue
		}
		// A step abandoned on timeout may still be driving the old page.
		// Reset closes that page under it, so the goroutine ends on its own
		// next playwright call instead of touching the new context.
		if i > 0 && r.Lifecycle != nil {
			if err := r.Lifecycle.Reset(); err != nil {
				suite.add(ScenarioResult{
					Name:   sc.Name,
					Result: ResultFailed,
					Error:  fmt.Sprintf("failed to reset browser: %v", err),
					Kind:   herrors.KindOf(err),
				})
				continue
			}
		}
		suite.add(r.Run(ctx, sc))
	}
	suite.EndTime = time.Now()
	suite.Duration = suite.EndTime.Sub(suite.StartTime)
	return suite
}
