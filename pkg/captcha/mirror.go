package captcha

import "sync"

// Snapshot is the mirrored widget state at one point in time.
type Snapshot struct {
	State    WidgetState
	Response string
	ID       string
}

// mirror is the host-side copy of the widget's state. It does not validate
// transitions: the script owns its lifecycle, so whatever a state change
// reports replaces the stored values. The only local rule is that
// StateDestroyed is absorbing.
type mirror struct {
	mu   sync.RWMutex
	snap Snapshot
}

func newMirror() *mirror {
	return &mirror{snap: Snapshot{State: StateInit}}
}

func (m *mirror) snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// apply replaces the stored triple with the event's values. It reports
// false, leaving the mirror untouched, once the widget is destroyed.
func (m *mirror) apply(e StateChangeEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.State == StateDestroyed {
		return false
	}
	m.snap = Snapshot{State: e.State, Response: e.Response, ID: e.ID}
	return true
}

// destroy forces the terminal state and returns the resulting snapshot.
func (m *mirror) destroy() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.State = StateDestroyed
	m.snap.Response = ResponseDestroyed
	return m.snap
}
