package firmware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path"
	"path/filepath"
	"time"

	"iifvs/internal/docker"
)

// ToolResult holds the captured output of one extraction run.
type ToolResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Extractor runs the extraction tool against a firmware image on disk.
// A non-zero exit code is reported in ToolResult, not as an error.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) (ToolResult, error)
}

// LocalExtractor runs the tool as a subprocess in the image's directory.
type LocalExtractor struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

// NewLocalExtractor returns an extractor for binary with the given arguments.
func NewLocalExtractor(binary string, args []string, timeout time.Duration) *LocalExtractor {
	return &LocalExtractor{Binary: binary, Args: args, Timeout: timeout}
}

func (e *LocalExtractor) Extract(ctx context.Context, imagePath string) (ToolResult, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.Args...), imagePath)
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.Dir = filepath.Dir(imagePath)
	cmd.WaitDelay = 5 * time.Second
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := ToolResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, ErrToolTimeout
	case ctx.Err() != nil:
		return res, ctx.Err()
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return res, fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("failed to run %s: %w", e.Binary, err)
}

// ContainerRunner is the part of the Docker client the extractor needs.
type ContainerRunner interface {
	RunOnce(ctx context.Context, opts docker.RunOptions) (docker.RunResult, error)
}

// containerMount is where the upload directory appears inside the container.
const containerMount = "/data"

// DockerExtractor runs the tool inside a container with the upload
// directory bind-mounted, so output lands next to the image as it would locally.
type DockerExtractor struct {
	Runner    ContainerRunner
	Image     string
	Binary    string
	Args      []string
	Timeout   time.Duration
	UploadDir string
}

func (e *DockerExtractor) Extract(ctx context.Context, imagePath string) (ToolResult, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	hostDir, err := filepath.Abs(e.UploadDir)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	rel, err := filepath.Rel(hostDir, imagePath)
	if err != nil {
		return ToolResult{}, fmt.Errorf("image %s is outside the upload dir: %w", imagePath, err)
	}

	cmd := append([]string{e.Binary}, e.Args...)
	cmd = append(cmd, path.Join(containerMount, filepath.ToSlash(rel)))

	start := time.Now()
	out, err := e.Runner.RunOnce(ctx, docker.RunOptions{
		Image:      e.Image,
		Cmd:        cmd,
		WorkingDir: containerMount,
		Binds:      []string{hostDir + ":" + containerMount},
	})
	res := ToolResult{
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		ExitCode: int(out.ExitCode),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return res, ErrToolTimeout
	case errors.Is(err, docker.ErrDaemonUnavailable), errors.Is(err, docker.ErrImageUnavailable):
		return res, fmt.Errorf("%w: %v", ErrToolNotFound, err)
	default:
		return res, err
	}

	// The shell convention for "command not found" inside the image.
	if res.ExitCode == 127 {
		return res, fmt.Errorf("%w: %s not found in image %s", ErrToolNotFound, e.Binary, e.Image)
	}
	return res, nil
}
