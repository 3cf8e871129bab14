package scenario

import (
	"time"

	herrors "github.com/webform-civicrm/acceptance/internal/errors"
)

// Result represents the outcome of a scenario or step
type Result string

const (
	// ResultPassed indicates every step completed
	ResultPassed Result = "PASSED"
	// ResultFailed indicates a step returned an error or timed out
	ResultFailed Result = "FAILED"
	// ResultSkipped indicates the scenario or step did not run
	ResultSkipped Result = "SKIPPED"
)

// StepResult represents the outcome of one step
type StepResult struct {
	// Name of the step
	Name string `yaml:"name" json:"name"`

	// Result of the step
	Result Result `yaml:"result" json:"result"`

	// Duration is how long the step ran
	Duration time.Duration `yaml:"duration" json:"duration"`

	// Error is the failure message, if any
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Kind classifies the failure
	Kind herrors.Kind `yaml:"kind,omitempty" json:"kind,omitempty"`

	err error
}

// Err returns the error the step failed with
func (r StepResult) Err() error {
	return r.err
}

// ScenarioResult represents the outcome of one scenario
type ScenarioResult struct {
	// Name of the scenario
	Name string `yaml:"name" json:"name"`

	// Description of the scenario
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Result of the scenario
	Result Result `yaml:"result" json:"result"`

	// StartTime when the scenario started
	StartTime time.Time `yaml:"start_time" json:"start_time"`

	// EndTime when the scenario completed
	EndTime time.Time `yaml:"end_time" json:"end_time"`

	// Duration of the scenario
	Duration time.Duration `yaml:"duration" json:"duration"`

	// Steps holds one result per step, in order
	Steps []StepResult `yaml:"steps,omitempty" json:"steps,omitempty"`

	// Error names the failing step and its error, or the skip reason
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Kind classifies the failure
	Kind herrors.Kind `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Screenshot is the path of the failure screenshot, if one was taken
	Screenshot string `yaml:"screenshot,omitempty" json:"screenshot,omitempty"`
}

// FailedStep returns the step that ended the scenario
func (r ScenarioResult) FailedStep() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Result == ResultFailed {
			return s, true
		}
	}
	return StepResult{}, false
}

// SuiteResult represents the outcome of a run
type SuiteResult struct {
	// RunID identifies the run in logs and fixture titles
	RunID string `yaml:"run_id" json:"run_id"`

	// StartTime when the run started
	StartTime time.Time `yaml:"start_time" json:"start_time"`

	// EndTime when the run completed
	EndTime time.Time `yaml:"end_time" json:"end_time"`

	// Duration of the run
	Duration time.Duration `yaml:"duration" json:"duration"`

	// TotalScenarios is the number of scenarios run
	TotalScenarios int `yaml:"total_scenarios" json:"total_scenarios"`

	// PassedScenarios is the number that passed
	PassedScenarios int `yaml:"passed_scenarios" json:"passed_scenarios"`

	// FailedScenarios is the number that failed
	FailedScenarios int `yaml:"failed_scenarios" json:"failed_scenarios"`

	// SkippedScenarios is the number that were skipped
	SkippedScenarios int `yaml:"skipped_scenarios" json:"skipped_scenarios"`

	// ScenarioResults holds the individual results
	ScenarioResults []ScenarioResult `yaml:"scenario_results" json:"scenario_results"`
}

func (s *SuiteResult) add(r ScenarioResult) {
	s.ScenarioResults = append(s.ScenarioResults, r)
	s.TotalScenarios++
	switch r.Result {
	case ResultPassed:
		s.PassedScenarios++
	case ResultFailed:
		s.FailedScenarios++
	case ResultSkipped:
		s.SkippedScenarios++
	}
}

// OK reports whether no scenario failed
func (s *SuiteResult) OK() bool {
	return s.FailedScenarios == 0
}
