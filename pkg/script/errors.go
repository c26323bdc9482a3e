package script

import "errors"

var (
	// ErrHandleClosed is returned when calling into a closed handle
	ErrHandleClosed = errors.New("script handle is closed")

	// ErrLoadFailed is returned when a script file cannot be read or compiled
	ErrLoadFailed = errors.New("script load failed")
)
