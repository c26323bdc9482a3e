package pipeline

import (
	"fmt"
)

// ProcessOutput is the result of running a plugin's command
type ProcessOutput struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int // -1 when the process did not exit normally
	Success  bool
}

// state is the table handed to Eval
func (o ProcessOutput) state() map[string]interface{} {
	s := map[string]interface{}{
		"stdout":  string(o.Stdout),
		"stderr":  string(o.Stderr),
		"success": o.Success,
	}
	if o.ExitCode >= 0 {
		s["status"] = o.ExitCode
		s["exit_code"] = o.ExitCode
	}
	return s
}

// TestCaseOutcome is one finding of a lint run or one case of a test run
type TestCaseOutcome struct {
	FileName     string                 `mapstructure:"file_name" json:"file_name" yaml:"file_name"`
	Line         *uint32                `mapstructure:"line_no" json:"line_no,omitempty" yaml:"line_no,omitempty"`
	Column       *uint32                `mapstructure:"column_no" json:"column_no,omitempty" yaml:"column_no,omitempty"`
	Success      bool                   `mapstructure:"success" json:"success" yaml:"success"`
	ErrorMessage *string                `mapstructure:"error_message" json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Data         map[string]interface{} `mapstructure:"data" json:"data,omitempty" yaml:"data,omitempty"`
}

// LintOutput is the evaluated result of a lint plugin
type LintOutput struct {
	TotalErrors uint32            `json:"total_errors"`
	Results     []TestCaseOutcome `json:"lint_results"`
}

// TestOutput is the evaluated result of a test plugin
type TestOutput struct {
	TestsPassed       uint32            `json:"tests_passed"`
	TotalTests        uint32            `json:"total_tests"`
	PassingPercentage float64           `json:"passing_percentage"`
	Results           []TestCaseOutcome `json:"test_results"`
}

// EvalOutput holds exactly one of Lint or Test
type EvalOutput struct {
	Lint *LintOutput
	Test *TestOutput
}

const (
	EvalKindLint = "lint"
	EvalKindTest = "test"
)

// Kind returns "lint" or "test"
func (o EvalOutput) Kind() string {
	if o.Lint != nil {
		return EvalKindLint
	}
	return EvalKindTest
}

// Passed reports whether the run found no errors and no failing tests
func (o EvalOutput) Passed() bool {
	if o.Lint != nil {
		return o.Lint.TotalErrors == 0
	}
	if o.Test != nil {
		return o.Test.TestsPassed == o.Test.TotalTests
	}
	return false
}

// Summary is a one-line description for the log
func (o EvalOutput) Summary() string {
	switch {
	case o.Lint != nil:
		return fmt.Sprintf("%d lint errors", o.Lint.TotalErrors)
	case o.Test != nil:
		return fmt.Sprintf("%d/%d tests passed (%.1f%%)",
			o.Test.TestsPassed, o.Test.TotalTests, o.Test.PassingPercentage)
	default:
		return "no results"
	}
}

// Map renders the output as the table handed to report plugins. The "kind"
// key tells the two shapes apart.
func (o EvalOutput) Map() map[string]interface{} {
	switch {
	case o.Lint != nil:
		return map[string]interface{}{
			"kind":         EvalKindLint,
			"total_errors": int64(o.Lint.TotalErrors),
			"lint_results": outcomesToList(o.Lint.Results),
		}
	case o.Test != nil:
		return map[string]interface{}{
			"kind":               EvalKindTest,
			"tests_passed":       int64(o.Test.TestsPassed),
			"total_tests":        int64(o.Test.TotalTests),
			"passing_percentage": o.Test.PassingPercentage,
			"test_results":       outcomesToList(o.Test.Results),
		}
	default:
		return map[string]interface{}{}
	}
}

func outcomesToList(outcomes []TestCaseOutcome) []interface{} {
	list := make([]interface{}, len(outcomes))
	for i, c := range outcomes {
		m := map[string]interface{}{
			"file_name": c.FileName,
			"success":   c.Success,
		}
		if c.Line != nil {
			m["line_no"] = int64(*c.Line)
		}
		if c.Column != nil {
			m["column_no"] = int64(*c.Column)
		}
		if c.ErrorMessage != nil {
			m["error_message"] = *c.ErrorMessage
		}
		if c.Data != nil {
			m["data"] = deepCopyMap(c.Data)
		}
		list[i] = m
	}
	return list
}
