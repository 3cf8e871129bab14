package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const detailIndent = "         "

// WriteYAML writes the full suite result, step timings included, to path
func (s *SuiteResult) WriteYAML(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// RenderSummary writes a one-line-per-scenario summary. Failures add their
// error and screenshot underneath; skips add their reason.
func (s *SuiteResult) RenderSummary(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d scenarios, %d passed, %d failed, %d skipped (%s)\n\n",
		s.RunID, s.TotalScenarios, s.PassedScenarios, s.FailedScenarios, s.SkippedScenarios, s.Duration)

	for _, r := range s.ScenarioResults {
		fmt.Fprintf(&b, "%-8s %s", r.Result, r.Name)
		if r.Duration > 0 {
			fmt.Fprintf(&b, " (%s)", r.Duration)
		}
		b.WriteString("\n")

		if r.Error != "" {
			msg := r.Error
			if r.Kind != "" {
				msg = fmt.Sprintf("[%s] %s", r.Kind, msg)
			}
			for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
				b.WriteString(detailIndent + line + "\n")
			}
		}
		if r.Screenshot != "" {
			b.WriteString(detailIndent + "screenshot: " + r.Screenshot + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
