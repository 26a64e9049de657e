package console

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sakif/webconsole/internal/apperror"
	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/executor/jsvm"
	"github.com/sakif/webconsole/internal/language"
	"github.com/sakif/webconsole/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, engine executor.Executor, cfg Config) *Manager {
	t.Helper()
	if engine == nil {
		engine = executor.NewEngine(jsvm.New(), testLogger())
	}
	m := NewManager(engine, cfg, testLogger())
	t.Cleanup(m.Stop)
	return m
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.SimulateLatency = false
	return cfg
}

// gateExecutor blocks every Execute until release is closed.
type gateExecutor struct {
	started chan struct{}
	release chan struct{}
}

func newGateExecutor() *gateExecutor {
	return &gateExecutor{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gateExecutor) Execute(ctx context.Context, req executor.ExecutionRequest) executor.ExecutionResult {
	g.started <- struct{}{}
	<-g.release
	return executor.ExecutionResult{Output: "done", Status: executor.StatusSuccess, Language: req.Language}
}

func TestCreate_SeedsDefaults(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())

	s, err := m.Create(context.Background())
	require.NoError(t, err)

	js, _ := language.Lookup(language.JavaScript)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, language.JavaScript, s.Language)
	assert.Equal(t, js.DefaultCode, s.Source)
	require.Len(t, s.History, 1)
	assert.Equal(t, model.EntryInfo, s.History[0].Kind)
	assert.Equal(t, WelcomeMessage, s.History[0].Content)
	assert.False(t, s.Running)
}

func TestCreate_SessionLimit(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxSessions = 2
	m := newTestManager(t, nil, cfg)

	for i := 0; i < 2; i++ {
		_, err := m.Create(context.Background())
		require.NoError(t, err)
	}

	_, err := m.Create(context.Background())
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, 2, m.Len())
}

func TestUnknownSession(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())

	_, err := m.Get("missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = m.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, m.Delete("missing"), apperror.ErrNotFound)
}

func TestRun_AppendsCommandAndResult(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())
	s, _ := m.Create(context.Background())

	_, err := m.SetSource(s.ID, `console.log("a"); console.log("b"); console.log("c");`)
	require.NoError(t, err)

	entries, err := m.Run(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, model.EntryCommand, entries[0].Kind)
	assert.Equal(t, "▶ Running JavaScript code...", entries[0].Content)
	assert.Equal(t, model.EntryOutput, entries[1].Kind)
	assert.Equal(t, "a\nb\nc", entries[1].Content)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	got, _ := m.Get(s.ID)
	require.Len(t, got.History, 3)
	assert.Equal(t, entries, got.History[1:])
	assert.False(t, got.Running)
}

func TestRun_EntryKinds(t *testing.T) {
	tests := []struct {
		name     string
		language string
		code     string
		kind     model.EntryKind
		command  string
	}{
		{"runtime error", language.JavaScript, "x", model.EntryError, "▶ Running JavaScript code..."},
		{"c program", language.C, `printf("hi\n");`, model.EntryOutput, "▶ Running C code..."},
		{"coming soon", language.Java, "class A {}", model.EntryInfo, "▶ Running Java code..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, nil, fastConfig())
			s, _ := m.Create(context.Background())
			_, err := m.SelectLanguage(s.ID, tt.language)
			require.NoError(t, err)
			_, err = m.SetSource(s.ID, tt.code)
			require.NoError(t, err)

			entries, err := m.Run(context.Background(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.command, entries[0].Content)
			assert.Equal(t, tt.kind, entries[1].Kind)
		})
	}
}

func TestRun_BlankSourceIsRefused(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())
	s, _ := m.Create(context.Background())
	_, _ = m.SetSource(s.ID, "  \n\t")

	_, err := m.Run(context.Background(), s.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	got, _ := m.Get(s.ID)
	assert.Len(t, got.History, 1)
}

func TestRun_OverlappingRunIsConflict(t *testing.T) {
	gate := newGateExecutor()
	m := newTestManager(t, gate, fastConfig())
	s, _ := m.Create(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := m.Run(context.Background(), s.ID)
		assert.NoError(t, err)
	}()
	<-gate.started

	running, _ := m.Get(s.ID)
	assert.True(t, running.Running)

	_, err := m.Run(context.Background(), s.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	close(gate.release)
	wg.Wait()

	got, _ := m.Get(s.ID)
	assert.False(t, got.Running)
	// welcome + one command + one result: the refused run left no trace
	assert.Len(t, got.History, 3)
}

func TestRun_SimulatedLatencyPerLanguage(t *testing.T) {
	cfg := DefaultConfig()
	m := newTestManager(t, nil, cfg)

	var waited []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}

	s, _ := m.Create(context.Background())
	_, err := m.Run(context.Background(), s.ID)
	require.NoError(t, err)

	_, _ = m.SelectLanguage(s.ID, "c")
	_, err = m.Run(context.Background(), s.ID)
	require.NoError(t, err)

	_, _ = m.SelectLanguage(s.ID, "python")
	_, err = m.Run(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{800 * time.Millisecond, 1500 * time.Millisecond, 800 * time.Millisecond}, waited)
}

func TestRun_CancelledDuringLatencyStillRecordsResult(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DynamicLatency = time.Hour
	m := newTestManager(t, nil, cfg)
	s, _ := m.Create(context.Background())
	_, _ = m.SetSource(s.ID, "while (true) {}")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	entries, err := m.Run(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EntryError, entries[1].Kind)
	assert.Contains(t, entries[1].Content, "execution interrupted")
}

func TestSelectLanguage(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())
	s, _ := m.Create(context.Background())
	_, _ = m.SetSource(s.ID, "edited")

	got, err := m.SelectLanguage(s.ID, "C")
	require.NoError(t, err)

	c, _ := language.Lookup(language.C)
	assert.Equal(t, language.C, got.Language)
	assert.Equal(t, c.DefaultCode, got.Source)
	assert.Len(t, got.History, 1)

	_, err = m.SelectLanguage(s.ID, "cobol")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestClearEditorAndSource(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())
	s, _ := m.Create(context.Background())

	code, err := m.Source(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Source, code)

	got, err := m.ClearEditor(s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Source)

	_, err = m.Source(s.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestClearHistory_RemovesEverything(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())
	s, _ := m.Create(context.Background())
	_, _ = m.Run(context.Background(), s.ID)

	got, err := m.ClearHistory(s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.History)
}

func TestSnapshotsAreCopies(t *testing.T) {
	m := newTestManager(t, nil, fastConfig())
	s, _ := m.Create(context.Background())

	s.History[0].Content = "tampered"

	got, _ := m.Get(s.ID)
	assert.Equal(t, WelcomeMessage, got.History[0].Content)
}

func TestEvictIdle(t *testing.T) {
	cfg := fastConfig()
	cfg.SessionTTL = time.Minute
	m := newTestManager(t, nil, cfg)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	stale, _ := m.Create(context.Background())
	busy, _ := m.Create(context.Background())
	clock = clock.Add(50 * time.Second)
	fresh, _ := m.Create(context.Background())

	m.mu.Lock()
	m.sessions[busy.ID].busy = true
	m.mu.Unlock()

	clock = clock.Add(20 * time.Second)
	assert.Equal(t, 1, m.evictIdle())

	_, err := m.Get(stale.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestJanitor_EvictsAndStops(t *testing.T) {
	cfg := fastConfig()
	cfg.SessionTTL = 10 * time.Millisecond
	cfg.JanitorInterval = 5 * time.Millisecond
	m := newTestManager(t, nil, cfg)

	_, err := m.Create(context.Background())
	require.NoError(t, err)

	m.Start()
	m.Start()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
}
