package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/webform-civicrm/acceptance/internal/config"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/harness"
)

type fakeLifecycle struct {
	resets   int
	captured []string
	resetErr error
}

func (f *fakeLifecycle) Reset() error {
	f.resets++
	return f.resetErr
}

func (f *fakeLifecycle) CaptureFailure(name string) (string, error) {
	f.captured = append(f.captured, name)
	return "artifacts/screenshots/" + name + ".png", nil
}

func newTestRunner(t *testing.T) (*Runner, *fakeLifecycle) {
	t.Helper()
	env, err := harness.New(&config.Config{
		BaseURL: "http://site.test",
		Users: config.UsersConfig{
			Root: config.UserCredentials{Name: "admin", Password: "root-pass"},
		},
		Webform: config.WebformConfig{ID: "civicrm_webform_test", Title: "CiviCRM Webform Test"},
	})
	require.NoError(t, err)
	lc := &fakeLifecycle{}
	r := NewRunner(env)
	r.Lifecycle = lc
	r.StepTimeout = time.Second
	return r, lc
}

func record(trace *[]string, name string, err error) Step {
	return Do(name, func(ctx context.Context, env *harness.Env) error {
		*trace = append(*trace, name)
		return err
	})
}

func TestRunPassesAllSteps(t *testing.T) {
	r, lc := newTestRunner(t)
	var trace []string

	res := r.Run(context.Background(), Scenario{
		Name:  "ordered",
		Steps: []Step{record(&trace, "one", nil), record(&trace, "two", nil), record(&trace, "three", nil)},
	})

	assert.Equal(t, ResultPassed, res.Result)
	assert.Equal(t, []string{"one", "two", "three"}, trace)
	require.Len(t, res.Steps, 3)
	for _, s := range res.Steps {
		assert.Equal(t, ResultPassed, s.Result)
	}
	assert.Empty(t, lc.captured)
	assert.False(t, res.EndTime.Before(res.StartTime))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	r, lc := newTestRunner(t)
	var trace []string
	mismatch := herrors.NewMismatch("contact 1", "first_name", "Jann", "Fred1", nil)

	res := r.Run(context.Background(), Scenario{
		Name: "stops",
		Steps: []Step{
			record(&trace, "create fixtures", nil),
			record(&trace, "check values", mismatch),
			record(&trace, "never runs", nil),
		},
	})

	assert.Equal(t, ResultFailed, res.Result)
	assert.Equal(t, []string{"create fixtures", "check values"}, trace)
	assert.Equal(t, herrors.KindMismatch, res.Kind)
	assert.Contains(t, res.Error, `step 2 "check values"`)
	assert.Equal(t, "artifacts/screenshots/stops.png", res.Screenshot)
	assert.Equal(t, []string{"stops"}, lc.captured)

	require.Len(t, res.Steps, 3)
	assert.Equal(t, ResultSkipped, res.Steps[2].Result)
	failed, ok := res.FailedStep()
	require.True(t, ok)
	assert.Equal(t, "check values", failed.Name)
	assert.True(t, herrors.IsMismatch(failed.Err()))
}

func TestRunStepTimeout(t *testing.T) {
	r, _ := newTestRunner(t)
	r.StepTimeout = 50 * time.Millisecond
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	res := r.Run(context.Background(), Scenario{
		Name: "hangs",
		Steps: []Step{Do("wait for ajax", func(ctx context.Context, env *harness.Env) error {
			<-release
			return nil
		})},
	})

	assert.Equal(t, ResultFailed, res.Result)
	assert.Equal(t, herrors.KindTimeout, res.Kind)
	failed, ok := res.FailedStep()
	require.True(t, ok)
	var te *herrors.TimeoutError
	require.True(t, errors.As(failed.Err(), &te))
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestRunScenarioTimeout(t *testing.T) {
	r, _ := newTestRunner(t)
	r.StepTimeout = 5 * time.Second
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	res := r.Run(context.Background(), Scenario{
		Name:    "slow",
		Timeout: 50 * time.Millisecond,
		Steps: []Step{Do("wait for ajax", func(ctx context.Context, env *harness.Env) error {
			<-release
			return nil
		})},
	})

	assert.Equal(t, ResultFailed, res.Result)
	failed, ok := res.FailedStep()
	require.True(t, ok)
	var te *herrors.TimeoutError
	require.True(t, errors.As(failed.Err(), &te))
	assert.Equal(t, "scenario", te.Op)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
}

func TestRunParentCancelled(t *testing.T) {
	r, _ := newTestRunner(t)
	r.StepTimeout = 5 * time.Second
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	res := r.Run(ctx, Scenario{
		Name: "interrupted",
		Steps: []Step{Do("wait for ajax", func(context.Context, *harness.Env) error {
			cancel()
			<-release
			return nil
		})},
	})

	assert.Equal(t, ResultFailed, res.Result)
	failed, ok := res.FailedStep()
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err(), context.Canceled)
	assert.False(t, herrors.IsTimeout(failed.Err()))
	assert.Contains(t, res.Error, "interrupted")
}

func TestRunRecoversPanic(t *testing.T) {
	r, _ := newTestRunner(t)
	res := r.Run(context.Background(), Scenario{
		Name:  "panics",
		Steps: []Step{Do("explode", func(ctx context.Context, env *harness.Env) error { panic("boom") })},
	})
	assert.Equal(t, ResultFailed, res.Result)
	assert.Contains(t, res.Error, "boom")
}

func TestRunSkipsWithoutCredentials(t *testing.T) {
	r, _ := newTestRunner(t)
	var trace []string

	res := r.Run(context.Background(), Scenario{
		Name:     "needs-admin",
		Requires: []harness.Role{harness.RoleRoot, harness.RoleAdmin},
		Steps:    []Step{record(&trace, "login", nil)},
	})

	assert.Equal(t, ResultSkipped, res.Result)
	assert.Equal(t, "admin credentials not configured", res.Error)
	assert.Empty(t, trace)
}

func TestRunAllResetsBetweenScenarios(t *testing.T) {
	r, lc := newTestRunner(t)
	var trace []string

	suite := r.RunAll(context.Background(), []Scenario{
		{Name: "a", Steps: []Step{record(&trace, "a", nil)}},
		{Name: "b", Steps: []Step{record(&trace, "b", errors.New("broken"))}},
		{Name: "c", Requires: []harness.Role{harness.RoleAdmin}},
		{Name: "d", Steps: []Step{record(&trace, "d", nil)}},
	})

	assert.Equal(t, 3, lc.resets)
	assert.Equal(t, []string{"a", "b", "d"}, trace)
	assert.Equal(t, 4, suite.TotalScenarios)
	assert.Equal(t, 2, suite.PassedScenarios)
	assert.Equal(t, 1, suite.FailedScenarios)
	assert.Equal(t, 1, suite.SkippedScenarios)
	assert.False(t, suite.OK())
	assert.Equal(t, r.Env.RunID, suite.RunID)
	assert.Equal(t, herrors.KindUnknown, suite.ScenarioResults[1].Kind)
}

func TestRunAllResetFailure(t *testing.T) {
	r, lc := newTestRunner(t)
	lc.resetErr = errors.New("browser gone")
	var trace []string

	suite := r.RunAll(context.Background(), []Scenario{
		{Name: "a", Steps: []Step{record(&trace, "a", nil)}},
		{Name: "b", Steps: []Step{record(&trace, "b", nil)}},
	})

	assert.Equal(t, []string{"a"}, trace)
	assert.Equal(t, 1, suite.FailedScenarios)
	assert.Contains(t, suite.ScenarioResults[1].Error, "browser gone")
}

func TestRunAllCancelled(t *testing.T) {
	r, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var trace []string

	suite := r.RunAll(ctx, []Scenario{{Name: "a", Steps: []Step{record(&trace, "a", nil)}}})
	assert.Empty(t, trace)
	assert.Equal(t, 1, suite.SkippedScenarios)
}

func TestWriteYAML(t *testing.T) {
	r, _ := newTestRunner(t)
	var trace []string
	suite := r.RunAll(context.Background(), []Scenario{
		{Name: "a", Description: "first", Steps: []Step{record(&trace, "step a", nil)}},
	})

	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	require.NoError(t, suite.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, 1, back["passed_scenarios"])
	assert.True(t, strings.Contains(string(data), "name: step a"))
}
