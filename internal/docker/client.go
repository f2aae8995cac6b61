package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

var (
	// ErrDaemonUnavailable is returned when the Docker daemon cannot be reached.
	ErrDaemonUnavailable = errors.New("docker daemon is not reachable")
	// ErrImageUnavailable is returned when the image is neither local nor pullable.
	ErrImageUnavailable = errors.New("docker image is not available")
)

// APIClient defines the subset of Docker API methods we use.
// This allows for mocking in tests.
type APIClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// Client wraps the official Docker client for one-shot tool containers.
type Client struct {
	api APIClient
}

// NewClient creates a new Docker client instance from the environment.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api APIClient) *Client {
	return &Client{api: api}
}

// Close closes the underlying docker client connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// CheckDaemon verifies that the Docker daemon is running and reachable.
func (c *Client) CheckDaemon(ctx context.Context) error {
	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	return nil
}

// CheckImage reports whether imageRef exists locally, by tag or ID prefix.
func (c *Client) CheckImage(ctx context.Context, imageRef string) (bool, error) {
	images, err := c.api.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to list images: %w", err)
	}

	normalizedRef := imageRef
	if !strings.Contains(imageRef, ":") {
		normalizedRef = imageRef + ":latest"
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageRef || tag == normalizedRef {
				return true, nil
			}
		}
		if imageRef == img.ID || (len(img.ID) >= 12 && len(imageRef) >= 12 && imageRef == img.ID[:12]) {
			return true, nil
		}
	}

	return false, nil
}

// PullImage pulls a Docker image from the registry.
func (c *Client) PullImage(ctx context.Context, imageRef string) error {
	reader, err := c.api.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	for {
		var msg jsonmessage.JSONMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("failed to read pull progress: %w", err)
		}
		if msg.Error != nil {
			return fmt.Errorf("pull failed: %s", msg.Error.Message)
		}
	}

	return nil
}

// EnsureImage pulls imageRef unless it is already present.
func (c *Client) EnsureImage(ctx context.Context, imageRef string) error {
	ok, err := c.CheckImage(ctx, imageRef)
	if err == nil && ok {
		return nil
	}
	if err := c.PullImage(ctx, imageRef); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	return nil
}

// RunOptions describes a one-shot container run.
type RunOptions struct {
	Image      string
	Cmd        []string
	WorkingDir string
	// Binds uses the "host:container[:mode]" syntax.
	Binds []string
	User  string
}

// RunResult carries the demultiplexed output of a finished container.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int64
}

// RunOnce creates a container, waits for it to exit, collects its logs and
// removes it. Cancelling ctx aborts the wait and still removes the container.
func (c *Client) RunOnce(ctx context.Context, opts RunOptions) (RunResult, error) {
	if err := c.CheckDaemon(ctx); err != nil {
		return RunResult{}, err
	}
	if err := c.EnsureImage(ctx, opts.Image); err != nil {
		return RunResult{}, err
	}

	resp, err := c.api.ContainerCreate(ctx,
		&container.Config{
			Image:      opts.Image,
			Cmd:        opts.Cmd,
			WorkingDir: opts.WorkingDir,
			User:       opts.User,
		},
		&container.HostConfig{
			Binds: opts.Binds,
		}, nil, nil, "")
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		// ctx may already be done here
		_ = c.api.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}()

	if err := c.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return RunResult{}, fmt.Errorf("failed to start container: %w", err)
	}

	var exitCode int64
	statusCh, errCh := c.api.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case <-ctx.Done():
		return RunResult{}, ctx.Err()
	case err := <-errCh:
		if ctx.Err() != nil {
			return RunResult{}, ctx.Err()
		}
		return RunResult{}, fmt.Errorf("failed waiting for container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return RunResult{}, fmt.Errorf("container wait error: %s", status.Error.Message)
		}
		exitCode = status.StatusCode
	}

	logs, err := c.api.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()

	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, logs); err != nil {
		return RunResult{}, fmt.Errorf("failed to copy container output: %w", err)
	}

	return RunResult{Stdout: outBuf.String(), Stderr: errBuf.String(), ExitCode: exitCode}, nil
}
