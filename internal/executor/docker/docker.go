// Package docker runs console JavaScript with Node.js inside pre-warmed,
// network-less containers.
//
// The script is handed to a small prelude through the environment. The
// prelude installs the same capturing console the embedded runner offers,
// runs the script and prints one JSON line of the form
//
//	{"__out":{"entries":[{"level":"log","args":["..."]}],"error":null}}
//
// which Run replays into the capture.
package docker

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/webconsole/internal/executor"
)

//go:embed prelude.js
var prelude string

// SourceEnv is the environment variable carrying the script into the container.
const SourceEnv = "PLAYGROUND_SOURCE"

// TimeoutMessage is the fault reported when a run exceeds Config.Timeout.
const TimeoutMessage = "execution timed out"

const resultKey = `{"__out":`

// Runner implements executor.ScriptRunner on top of a Pool.
type Runner struct {
	api    containerAPI
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ executor.ScriptRunner = (*Runner)(nil)

// New connects to the Docker daemon from the environment, pulls the image
// and starts the container pool.
func New(cfg Config, logger *slog.Logger) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	if err := pullImage(ctx, cli, cfg.Image); err != nil {
		_ = cli.Close()
		return nil, err
	}
	logger.Info("docker image is ready", slog.String("image", cfg.Image))

	return newRunner(cli, cfg, logger), nil
}

func newRunner(api containerAPI, cfg Config, logger *slog.Logger) *Runner {
	r := &Runner{
		api:    api,
		config: cfg,
		logger: logger,
		pool:   NewPool(api, cfg, logger),
	}
	r.pool.Start()
	return r
}

func pullImage(ctx context.Context, api containerAPI, ref string) error {
	reader, err := api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker: pulling %s: %w", ref, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("docker: pulling %s: %w", ref, err)
	}
	return nil
}

// Close stops the pool and the Docker client.
func (r *Runner) Close() error {
	r.pool.Stop()
	return r.api.Close()
}

// Run executes source with node in a fresh container from the pool.
func (r *Runner) Run(ctx context.Context, source string, capture *executor.Capture) error {
	id, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("docker: acquiring container: %w", err)
	}
	defer r.pool.Release(id)

	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	execResp, err := r.api.ContainerExecCreate(runCtx, id, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Env:          []string{SourceEnv + "=" + source},
		Cmd:          []string{"node", "-e", prelude},
	})
	if err != nil {
		return fmt.Errorf("docker: creating exec: %w", err)
	}

	attach, err := r.api.ContainerExecAttach(runCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return fmt.Errorf("docker: attaching to exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		close(done)
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		r.logger.Warn("script run timed out", slog.String("container", id))
		return &executor.ScriptError{Message: TimeoutMessage}
	}

	if inspect, err := r.api.ContainerExecInspect(ctx, execResp.ID); err == nil && inspect.ExitCode != 0 {
		r.logger.Debug("node exited with non-zero status", slog.Int("exitCode", inspect.ExitCode))
	}

	return replay(stdout.Bytes(), stderr.String(), capture)
}

type report struct {
	Out *struct {
		Entries []struct {
			Level string   `json:"level"`
			Args  []string `json:"args"`
		} `json:"entries"`
		Error *string `json:"error"`
	} `json:"__out"`
}

// replay finds the prelude's result line in stdout and copies its entries
// into capture. Without a result line the first stderr line (node's own
// error, e.g. out of memory) becomes the fault.
func replay(stdout []byte, stderr string, capture *executor.Capture) error {
	var rep report
	found := false

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte(resultKey)) {
			continue
		}
		var candidate report
		if err := json.Unmarshal(line, &candidate); err == nil && candidate.Out != nil {
			rep, found = candidate, true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("docker: reading output: %w", err)
	}

	if !found {
		if msg := firstLine(stderr); msg != "" {
			return &executor.ScriptError{Message: msg}
		}
		return fmt.Errorf("docker: runner produced no result")
	}

	for _, e := range rep.Out.Entries {
		capture.Write(executor.ParseSeverity(e.Level), e.Args...)
	}
	if rep.Out.Error != nil {
		return &executor.ScriptError{Message: *rep.Out.Error}
	}
	return nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
