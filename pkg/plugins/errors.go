package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrDiscovery is returned when a plugin directory cannot be loaded
	ErrDiscovery = errors.New("plugin discovery failed")

	// ErrConfigMissing is returned when the config has no section for a plugin
	ErrConfigMissing = errors.New("plugin config missing")

	// ErrValidationFailed is returned when Validate explicitly returns false
	ErrValidationFailed = errors.New("plugin validation failed")

	// ErrScript is returned when loading or calling a plugin script fails
	ErrScript = errors.New("plugin script error")

	// ErrOutputMalformed is returned when a script returns an unexpected shape
	ErrOutputMalformed = errors.New("plugin output malformed")

	// ErrProcessSpawn is returned when the command of a plugin cannot be run
	ErrProcessSpawn = errors.New("process spawn failed")

	// ErrDependencyParse is returned when a dependency version cannot be compared
	ErrDependencyParse = errors.New("dependency parse error")
)

// Stage names a step of the plugin lifecycle
type Stage string

const (
	StageDiscover     Stage = "discover"
	StageCompose      Stage = "compose"
	StageValidate     Stage = "validate"
	StageGenerate     Stage = "generate"
	StageRun          Stage = "run"
	StageSpawn        Stage = "spawn"
	StageEval         Stage = "eval"
	StageReport       Stage = "report"
	StageDependencies Stage = "dependencies"
	StageWrite        Stage = "write"
)

// Error is a plugin failure tagged with the plugin and lifecycle stage.
// errors.Is matches both the sentinel in Err and anything in Cause.
type Error struct {
	PluginID string
	Kind     Kind
	Stage    Stage
	Err      error
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s: %v", e.PluginID, e.Stage, e.Err)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewError creates an error for plugin p. p may be nil when the failure
// happened before a plugin could be identified.
func NewError(p *Plugin, stage Stage, sentinel, cause error) *Error {
	e := &Error{Stage: stage, Err: sentinel, Cause: cause}
	if p != nil {
		e.PluginID = p.ID()
		e.Kind = p.Kind
	}
	return e
}

// Errorf creates an error for plugin p with a formatted cause
func Errorf(p *Plugin, stage Stage, sentinel error, format string, args ...interface{}) *Error {
	return NewError(p, stage, sentinel, fmt.Errorf(format, args...))
}

// AsError extracts the tagged plugin error from err
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsDiscovery checks if an error is a discovery error
func IsDiscovery(err error) bool {
	return errors.Is(err, ErrDiscovery)
}

// IsConfigMissing checks if an error is a missing config error
func IsConfigMissing(err error) bool {
	return errors.Is(err, ErrConfigMissing)
}

// IsValidationFailed checks if an error is an explicit validation rejection
func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsScript checks if an error is a script error
func IsScript(err error) bool {
	return errors.Is(err, ErrScript)
}

// IsOutputMalformed checks if an error is a malformed output error
func IsOutputMalformed(err error) bool {
	return errors.Is(err, ErrOutputMalformed)
}

// IsProcessSpawn checks if an error is a process spawn error
func IsProcessSpawn(err error) bool {
	return errors.Is(err, ErrProcessSpawn)
}

// IsDependencyParse checks if an error is a dependency parse error
func IsDependencyParse(err error) bool {
	return errors.Is(err, ErrDependencyParse)
}

// ErrorKind returns a short label for the sentinel carried by err, for
// metrics and log fields
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsDiscovery(err):
		return "discovery"
	case IsConfigMissing(err):
		return "config_missing"
	case IsValidationFailed(err):
		return "validation_failed"
	case IsScript(err):
		return "script"
	case IsOutputMalformed(err):
		return "output_malformed"
	case IsProcessSpawn(err):
		return "process_spawn"
	case IsDependencyParse(err):
		return "dependency_parse"
	default:
		return "other"
	}
}
