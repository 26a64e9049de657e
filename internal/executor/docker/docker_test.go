package docker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sakif/webconsole/internal/executor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAPI stands in for the Docker daemon. Each exec "prints" stdout and
// stderr through the multiplexed stream the real daemon uses.
type fakeAPI struct {
	mu        sync.Mutex
	next      int
	created   []string
	removed   []string
	execs     []container.ExecOptions
	stdout    string
	stderr    string
	hang      bool
	createErr error
	pullBody  string
	closed    bool
}

func (f *fakeAPI) ImagePull(_ context.Context, _ string, _ image.PullOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.pullBody)), nil
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, _ *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	f.next++
	id := fmt.Sprintf("c%d", f.next)
	f.created = append(f.created, id)
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeAPI) ContainerStart(context.Context, string, container.StartOptions) error {
	return nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeAPI) ContainerExecCreate(_ context.Context, id string, opts container.ExecOptions) (container.ExecCreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, opts)
	return container.ExecCreateResponse{ID: "exec-" + id}, nil
}

func (f *fakeAPI) ContainerExecAttach(context.Context, string, container.ExecStartOptions) (types.HijackedResponse, error) {
	daemon, conn := net.Pipe()

	f.mu.Lock()
	hang, stdout, stderr := f.hang, f.stdout, f.stderr
	f.mu.Unlock()

	if !hang {
		go func() {
			defer daemon.Close()
			if stdout != "" {
				_, _ = stdcopy.NewStdWriter(daemon, stdcopy.Stdout).Write([]byte(stdout))
			}
			if stderr != "" {
				_, _ = stdcopy.NewStdWriter(daemon, stdcopy.Stderr).Write([]byte(stderr))
			}
		}()
	}

	return types.HijackedResponse{Conn: conn, Reader: bufio.NewReader(conn)}, nil
}

func (f *fakeAPI) ContainerExecInspect(context.Context, string) (container.ExecInspect, error) {
	return container.ExecInspect{ExitCode: 0}, nil
}

func (f *fakeAPI) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAPI) removedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PoolSize = 1
	cfg.Timeout = time.Second
	return cfg
}

func startRunner(t *testing.T, api *fakeAPI, cfg Config) *Runner {
	t.Helper()
	r := newRunner(api, cfg, testLogger())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func resultLine(entries, errField string) string {
	return `{"__out":{"entries":[` + entries + `],"error":` + errField + "}}\n"
}

func TestRunner_ReplaysEntries(t *testing.T) {
	api := &fakeAPI{
		stdout: "stray text\n" + resultLine(`{"level":"log","args":["a","1"]},{"level":"error","args":["x"]},{"level":"info","args":[]}`, "null"),
	}
	r := startRunner(t, api, testConfig())

	c := executor.NewCapture()
	err := r.Run(context.Background(), `console.log("a", 1)`, c)

	require.NoError(t, err)
	assert.Equal(t, []string{"a 1", "ERROR: x", "INFO: "}, c.Lines())

	api.mu.Lock()
	require.Len(t, api.execs, 1)
	exec := api.execs[0]
	api.mu.Unlock()

	assert.Equal(t, []string{SourceEnv + `=console.log("a", 1)`}, exec.Env)
	assert.Equal(t, []string{"node", "-e", prelude}, exec.Cmd)
	assert.Contains(t, api.removedIDs(), "c1")
}

func TestRunner_ScriptFault(t *testing.T) {
	api := &fakeAPI{stdout: resultLine(`{"level":"log","args":["before"]}`, `"x is not defined"`)}
	r := startRunner(t, api, testConfig())

	c := executor.NewCapture()
	err := r.Run(context.Background(), "x", c)

	var se *executor.ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "x is not defined", se.Message)
	assert.Equal(t, []string{"before"}, c.Lines())
}

func TestRunner_NodeCrashUsesStderr(t *testing.T) {
	api := &fakeAPI{stderr: "\n<--- Last few GCs --->\nFATAL ERROR: heap limit\n"}
	r := startRunner(t, api, testConfig())

	err := r.Run(context.Background(), "for(;;) a.push(1)", executor.NewCapture())

	var se *executor.ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "<--- Last few GCs --->", se.Message)
}

func TestRunner_NoResult(t *testing.T) {
	api := &fakeAPI{}
	r := startRunner(t, api, testConfig())

	err := r.Run(context.Background(), "process.exit(3)", executor.NewCapture())

	require.Error(t, err)
	var se *executor.ScriptError
	assert.False(t, errors.As(err, &se))
}

func TestRunner_Timeout(t *testing.T) {
	api := &fakeAPI{hang: true}
	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	r := startRunner(t, api, cfg)

	err := r.Run(context.Background(), "while (true) {}", executor.NewCapture())

	var se *executor.ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, TimeoutMessage, se.Message)
	assert.Contains(t, api.removedIDs(), "c1")
}

func TestRunner_ThroughEngine(t *testing.T) {
	api := &fakeAPI{stdout: resultLine(`{"level":"warn","args":["careful"]}`, "null")}
	r := startRunner(t, api, testConfig())

	res := executor.NewEngine(r, testLogger()).Execute(context.Background(), executor.ExecutionRequest{
		Language: "javascript",
		Code:     `console.warn("careful")`,
	})

	assert.Equal(t, executor.StatusSuccess, res.Status)
	assert.Equal(t, "WARNING: careful", res.Output)
}

func TestRunner_CloseStopsPoolAndClient(t *testing.T) {
	api := &fakeAPI{}
	r := newRunner(api, testConfig(), testLogger())

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.created) >= 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, r.Close())
	assert.True(t, api.closed)
	assert.Contains(t, api.removedIDs(), "c1")

	_, err := r.pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_KeepsWarmContainers(t *testing.T) {
	api := &fakeAPI{}
	cfg := testConfig()
	cfg.PoolSize = 3
	p := NewPool(api, cfg, testLogger())
	p.Start()
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool { return len(p.containers) == 3 }, time.Second, 10*time.Millisecond)

	id, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c1", id)

	require.Eventually(t, func() bool { return len(p.containers) == 3 }, time.Second, 10*time.Millisecond)
}

func TestPool_AcquireHonoursContext(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("daemon unavailable")}
	p := NewPool(api, testConfig(), testLogger())
	p.Start()
	defer p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_StopIsIdempotent(t *testing.T) {
	p := NewPool(&fakeAPI{}, testConfig(), testLogger())
	p.Start()
	p.Stop()
	p.Stop()
}

func TestPullImage_DrainsProgress(t *testing.T) {
	api := &fakeAPI{pullBody: `{"status":"Pulling"}` + "\n" + `{"status":"Done"}`}
	assert.NoError(t, pullImage(context.Background(), api, "node:22-alpine"))
}

func TestPrelude_ReadsSourceFromEnvironment(t *testing.T) {
	assert.Contains(t, prelude, "process.env."+SourceEnv)
	assert.Contains(t, prelude, `JSON.stringify({ __out: { entries, error } })`)
}
