package pipeline

import (
	"fmt"

	"github.com/platinummonkey/flint/pkg/script"
)

// Expected shapes of script return values. Every decoder fails on a
// mismatch rather than guessing.

// decodeValid expects the boolean returned by Validate
func decodeValid(raw interface{}) (bool, error) {
	ok, isBool := raw.(bool)
	if !isBool {
		return false, fmt.Errorf("Validate must return a boolean, got %s", typeName(raw))
	}
	return ok, nil
}

// decodeFiles expects a table of file name to contents, as returned by
// Generate and by report plugins
func decodeFiles(raw interface{}) (map[string]string, error) {
	var files map[string]string
	if err := script.Decode(raw, &files); err != nil {
		return nil, fmt.Errorf("expected a table of file name to contents: %w", err)
	}
	for name := range files {
		if name == "" {
			return nil, fmt.Errorf("file name must not be empty")
		}
	}
	return files, nil
}

// decodeArgv expects a non-empty list of strings, as returned by Run
func decodeArgv(raw interface{}) ([]string, error) {
	var argv []string
	if err := script.Decode(raw, &argv); err != nil {
		return nil, fmt.Errorf("expected a list of command arguments: %w", err)
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("command must not be empty")
	}
	return argv, nil
}

type lintShape struct {
	TotalErrors uint32        `mapstructure:"total_errors"`
	Results     []interface{} `mapstructure:"lint_results"`
}

type testShape struct {
	TestsPassed       uint32        `mapstructure:"tests_passed"`
	TotalTests        uint32        `mapstructure:"total_tests"`
	PassingPercentage float64       `mapstructure:"passing_percentage"`
	Results           []interface{} `mapstructure:"test_results"`
}

// decodeEval expects a lint result (has lint_results) or a test result (has
// test_results)
func decodeEval(raw interface{}) (EvalOutput, error) {
	table, ok := raw.(map[string]interface{})
	if !ok {
		return EvalOutput{}, fmt.Errorf("Eval must return a table, got %s", typeName(raw))
	}

	_, isTest := table["test_results"]
	_, isLint := table["lint_results"]

	switch {
	case isTest && isLint:
		return EvalOutput{}, fmt.Errorf("Eval result has both lint_results and test_results")

	case isTest:
		var s testShape
		if err := script.Decode(table, &s, "tests_passed", "total_tests", "passing_percentage", "test_results"); err != nil {
			return EvalOutput{}, fmt.Errorf("invalid test result: %w", err)
		}
		results, err := decodeOutcomes(s.Results)
		if err != nil {
			return EvalOutput{}, fmt.Errorf("invalid test_results: %w", err)
		}
		return EvalOutput{Test: &TestOutput{
			TestsPassed:       s.TestsPassed,
			TotalTests:        s.TotalTests,
			PassingPercentage: s.PassingPercentage,
			Results:           results,
		}}, nil

	case isLint:
		var s lintShape
		if err := script.Decode(table, &s, "total_errors", "lint_results"); err != nil {
			return EvalOutput{}, fmt.Errorf("invalid lint result: %w", err)
		}
		results, err := decodeOutcomes(s.Results)
		if err != nil {
			return EvalOutput{}, fmt.Errorf("invalid lint_results: %w", err)
		}
		return EvalOutput{Lint: &LintOutput{
			TotalErrors: s.TotalErrors,
			Results:     results,
		}}, nil

	default:
		return EvalOutput{}, fmt.Errorf("unknown plugin output format: expected lint_results or test_results")
	}
}

func decodeOutcomes(items []interface{}) ([]TestCaseOutcome, error) {
	outcomes := make([]TestCaseOutcome, len(items))
	for i, item := range items {
		if err := script.Decode(item, &outcomes[i], "file_name", "success"); err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return outcomes, nil
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "nil"
	case map[string]interface{}:
		return "table"
	case []interface{}:
		return "list"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
