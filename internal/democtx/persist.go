package democtx

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Persist binds the slot to a JSON file so separate command invocations
// share one context: the injecting process writes it, the monitoring
// process picks it up on the next read. Without a bound path the manager
// is purely in-memory.
func (m *Manager) Persist(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.persistPath = path
	m.reload()
	return nil
}

// reload replaces the in-memory slot with the file contents. A missing or
// unreadable file clears the slot; a context consumed or replaced by
// another process must not survive in memory here. Callers hold the lock.
func (m *Manager) reload() {
	if m.persistPath == "" {
		return
	}

	raw, err := os.ReadFile(m.persistPath)
	if err != nil {
		m.ctx = nil
		return
	}

	var ctx Context
	if err := json.Unmarshal(raw, &ctx); err != nil {
		m.logger.Warn().Err(err).Str("path", m.persistPath).Msg("corrupt demo context file; ignoring")
		m.ctx = nil
		return
	}
	if ctx.Token == "" {
		m.ctx = nil
		return
	}
	m.ctx = &ctx
}

// flush mirrors the slot to the bound file; a nil slot removes it. Callers
// hold the lock. Persistence failures are logged, never fatal.
func (m *Manager) flush() {
	if m.persistPath == "" {
		return
	}

	if m.ctx == nil {
		if err := os.Remove(m.persistPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn().Err(err).Msg("failed to remove demo context file")
		}
		return
	}

	raw, err := json.MarshalIndent(m.ctx, "", "  ")
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to encode demo context")
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.persistPath), 0o755); err != nil {
		m.logger.Warn().Err(err).Msg("failed to create demo context directory")
		return
	}
	if err := os.WriteFile(m.persistPath, raw, 0o644); err != nil {
		m.logger.Warn().Err(err).Msg("failed to write demo context file")
	}
}
