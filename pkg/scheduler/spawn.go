package scheduler

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/platinummonkey/flint/pkg/pipeline"
)

// spawn runs argv in dir and waits for it to exit. A command that starts and
// exits non-zero is not an error; its status is part of the output.
func spawn(ctx context.Context, dir string, argv []string) (pipeline.ProcessOutput, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	out := pipeline.ProcessOutput{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		out.Success = true
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		return out, err
	}
	return out, nil
}
