package risk

import "time"

// SetNow overrides the manager clock; exposed for the external risk_test package.
func SetNow(m *Manager, now func() time.Time) { m.now = now }

// ConfigOf returns the manager configuration; exposed for the external risk_test package.
func ConfigOf(m *Manager) Config { return m.config }
