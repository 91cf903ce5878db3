package captcha

// WidgetState is the lifecycle state reported by the widget script.
type WidgetState string

const (
	StateInit        WidgetState = "init"
	StateReset       WidgetState = "reset"
	StateUnactivated WidgetState = "unactivated"
	StateActivating  WidgetState = "activating"
	StateActivated   WidgetState = "activated"
	StateRequesting  WidgetState = "requesting"
	StateSolving     WidgetState = "solving"
	StateVerifying   WidgetState = "verifying"
	StateCompleted   WidgetState = "completed"
	StateExpired     WidgetState = "expired"
	StateError       WidgetState = "error"
	// StateDestroyed is absorbing: once mirrored, nothing changes it.
	StateDestroyed WidgetState = "destroyed"
)

// ResponseDestroyed is the response value mirrored after [Widget.Destroy].
const ResponseDestroyed = ".DESTROYED"

var knownStates = map[WidgetState]bool{
	StateInit:        true,
	StateReset:       true,
	StateUnactivated: true,
	StateActivating:  true,
	StateActivated:   true,
	StateRequesting:  true,
	StateSolving:     true,
	StateVerifying:   true,
	StateCompleted:   true,
	StateExpired:     true,
	StateError:       true,
	StateDestroyed:   true,
}

// Known reports whether s is one of the states this package names. The
// mirror stores unknown states as reported.
func (s WidgetState) Known() bool {
	return knownStates[s]
}

// Recoverable reports whether the widget may leave s on a user retry.
func (s WidgetState) Recoverable() bool {
	return s == StateError || s == StateExpired
}

// InProgress reports whether the widget is working towards a result.
func (s WidgetState) InProgress() bool {
	switch s {
	case StateActivating, StateActivated, StateRequesting, StateSolving, StateVerifying:
		return true
	}
	return false
}

func (s WidgetState) String() string {
	return string(s)
}
