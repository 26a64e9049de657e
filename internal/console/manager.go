// Package console keeps the server-side state of interactive console
// sessions: the selected language, the editor buffer and the history of
// command and result entries.
//
// Sessions live in memory only. A session runs at most one program at a
// time; an overlapping run is refused with a conflict error instead of
// queueing.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/xid"

	"github.com/sakif/webconsole/internal/apperror"
	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/language"
	"github.com/sakif/webconsole/internal/model"
)

// WelcomeMessage seeds the history of every new session.
const WelcomeMessage = "MyWebConsole - Professional Code Editor\n" +
	"JavaScript & C ready for execution\n" +
	"Select a language and start coding!"

type session struct {
	id         string
	language   string
	source     string
	history    []model.ConsoleEntry
	busy       bool
	createdAt  time.Time
	lastActive time.Time
}

func (s *session) snapshot() model.Session {
	history := make([]model.ConsoleEntry, len(s.history))
	copy(history, s.history)
	return model.Session{
		ID:         s.id,
		Language:   s.language,
		Source:     s.source,
		History:    history,
		Running:    s.busy,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
	}
}

// Manager owns all console sessions. It is safe for concurrent use.
type Manager struct {
	engine executor.Executor
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewManager creates a Manager that runs programs on engine. Call Start to
// enable idle-session eviction.
func NewManager(engine executor.Executor, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		engine:   engine,
		config:   cfg,
		logger:   logger,
		sessions: make(map[string]*session),
		now:      time.Now,
		sleep:    sleepContext,
		done:     make(chan struct{}),
	}
}

// Create opens a session on the default language with its sample program
// in the editor and the welcome message in the history.
func (m *Manager) Create(ctx context.Context) (model.Session, error) {
	lang, _ := language.Lookup(language.Default)
	now := m.now()

	s := &session{
		id:         xid.New().String(),
		language:   lang.ID,
		source:     lang.DefaultCode,
		history:    []model.ConsoleEntry{m.entry(model.EntryInfo, WelcomeMessage)},
		createdAt:  now,
		lastActive: now,
	}

	m.mu.Lock()
	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		m.mu.Unlock()
		return model.Session{}, &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: fmt.Sprintf("session limit of %d reached, try again later", m.config.MaxSessions),
		}
	}
	m.sessions[s.id] = s
	snap := s.snapshot()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "console session created", slog.String("session", s.id))
	return snap, nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return model.Session{}, err
	}
	return s.snapshot(), nil
}

// Delete ends a session. A run in flight finishes but its result is
// discarded.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(id); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SelectLanguage switches the session to a catalog language and replaces
// the editor buffer with that language's sample program. History is kept.
func (m *Manager) SelectLanguage(id, tag string) (model.Session, error) {
	lang, ok := language.Lookup(tag)
	if !ok {
		return model.Session{}, apperror.ValidationFailed("language", fmt.Sprintf("unknown language %q", tag))
	}

	return m.update(id, func(s *session) error {
		s.language = lang.ID
		s.source = lang.DefaultCode
		return nil
	})
}

// SetSource replaces the editor buffer.
func (m *Manager) SetSource(id, code string) (model.Session, error) {
	return m.update(id, func(s *session) error {
		s.source = code
		return nil
	})
}

// ClearEditor empties the editor buffer.
func (m *Manager) ClearEditor(id string) (model.Session, error) {
	return m.SetSource(id, "")
}

// ClearHistory drops every history entry, the welcome message included.
func (m *Manager) ClearHistory(id string) (model.Session, error) {
	return m.update(id, func(s *session) error {
		s.history = nil
		return nil
	})
}

// Source returns the editor buffer for copying. A blank buffer is a
// validation error: there is nothing to copy.
func (m *Manager) Source(id string) (string, error) {
	snap, err := m.Get(id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(snap.Source) == "" {
		return "", apperror.ValidationFailed("source", "editor is empty")
	}
	return snap.Source, nil
}

// Run executes the editor buffer. It appends a command entry, waits the
// simulated latency, runs the engine and appends exactly one result entry.
// Both entries are returned.
//
// A blank buffer is refused with a validation error and a session that is
// already running with a conflict error; neither touches the history.
func (m *Manager) Run(ctx context.Context, id string) ([]model.ConsoleEntry, error) {
	m.mu.Lock()
	s, err := m.lookup(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if s.busy {
		m.mu.Unlock()
		return nil, apperror.Busy("session", id)
	}
	if strings.TrimSpace(s.source) == "" {
		m.mu.Unlock()
		return nil, apperror.ValidationFailed("source", "nothing to run: the editor is empty")
	}

	lang, _ := language.Lookup(s.language)
	req := executor.ExecutionRequest{Language: lang.ID, Code: s.source}
	command := m.entry(model.EntryCommand, fmt.Sprintf("▶ Running %s code...", lang.Name))

	s.busy = true
	s.history = append(s.history, command)
	s.lastActive = m.now()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		s.busy = false
		s.lastActive = m.now()
		m.mu.Unlock()
	}()

	if m.config.SimulateLatency {
		// An interrupted pause still runs the engine with the cancelled
		// context, so the history always gets its result entry.
		_ = m.sleep(ctx, m.latency(lang))
	}

	res := m.engine.Execute(ctx, req)
	result := m.entry(entryKind(res.Status), res.Output)

	m.mu.Lock()
	if _, live := m.sessions[id]; live {
		s.history = append(s.history, result)
	}
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "console run finished",
		slog.String("session", id),
		slog.String("language", lang.ID),
		slog.String("status", res.Status.String()),
		slog.Duration("duration", res.Duration),
	)
	return []model.ConsoleEntry{command, result}, nil
}

func (m *Manager) latency(lang language.Language) time.Duration {
	if lang.Strategy == language.StrategyPattern {
		return m.config.PatternLatency
	}
	return m.config.DynamicLatency
}

func (m *Manager) update(id string, fn func(*session) error) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return model.Session{}, err
	}
	if err := fn(s); err != nil {
		return model.Session{}, err
	}
	s.lastActive = m.now()
	return s.snapshot(), nil
}

// lookup must be called with m.mu held.
func (m *Manager) lookup(id string) (*session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	return s, nil
}

func (m *Manager) entry(kind model.EntryKind, content string) model.ConsoleEntry {
	return model.ConsoleEntry{
		ID:        ulid.Make().String(),
		Kind:      kind,
		Content:   content,
		Timestamp: m.now(),
	}
}

// entryKind maps an execution status onto how the console renders it.
func entryKind(status executor.Status) model.EntryKind {
	switch status {
	case executor.StatusRuntimeError:
		return model.EntryError
	case executor.StatusUnsupported:
		return model.EntryInfo
	default:
		return model.EntryOutput
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
