package console

import (
	"log/slog"
	"time"
)

// Start launches the idle-session janitor. Calling it again is a no-op.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		if m.config.SessionTTL <= 0 {
			return
		}
		interval := m.config.JanitorInterval
		if interval <= 0 {
			interval = time.Minute
		}

		m.logger.Info("starting console session janitor",
			slog.Duration("ttl", m.config.SessionTTL),
			slog.Duration("interval", interval),
		)
		m.wg.Add(1)
		go m.janitor(interval)
	})
}

// Stop halts the janitor and waits for it to exit. Sessions are kept.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

func (m *Manager) janitor(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if n := m.evictIdle(); n > 0 {
				m.logger.Info("evicted idle console sessions", slog.Int("count", n))
			}
		}
	}
}

// evictIdle removes sessions idle for longer than SessionTTL. A running
// session is never evicted.
func (m *Manager) evictIdle() int {
	cutoff := m.now().Add(-m.config.SessionTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if !s.busy && s.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
