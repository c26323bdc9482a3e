package plugins

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError represents a manifest or structure problem
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (v ValidationError) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidateManifest checks a manifest for correctness. Entries with
// SeverityError make the plugin unusable; warnings are informational.
func ValidateManifest(manifest *Manifest) []ValidationError {
	var errors []ValidationError

	if manifest.ID == "" {
		errors = append(errors, ValidationError{
			Field:    "id",
			Message:  "Plugin ID is required",
			Severity: SeverityError,
		})
	} else if !pluginIDRegex.MatchString(manifest.ID) {
		errors = append(errors, ValidationError{
			Field:    "id",
			Message:  fmt.Sprintf("Plugin ID %q must be alphanumeric with '.', '_' or '-'", manifest.ID),
			Severity: SeverityError,
		})
	}

	if manifest.Version != "" && !IsValidVersion(manifest.Version) {
		errors = append(errors, ValidationError{
			Field:    "version",
			Message:  fmt.Sprintf("Version %q is not a semantic version (e.g., 1.0.0)", manifest.Version),
			Severity: SeverityWarning,
		})
	}

	for _, ext := range manifest.Extensions {
		if strings.TrimSpace(ext) == "" {
			errors = append(errors, ValidationError{
				Field:    "extensions",
				Message:  "Extensions must not be empty strings",
				Severity: SeverityError,
			})
			break
		}
	}

	return errors
}

// HasBlockingErrors reports whether any entry has SeverityError
func HasBlockingErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateStructure checks that every script required by the plugin's kind
// exists as a regular file
func ValidateStructure(p *Plugin) error {
	for _, name := range p.Kind.RequiredScripts() {
		info, err := os.Stat(p.Script(name))
		if err != nil {
			return fmt.Errorf("missing required file: %s%s", name, ScriptExt)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("required file %s%s is not a regular file", name, ScriptExt)
		}
	}
	return nil
}
