package captcha

import "fmt"

// Event is one decoded message from the widget script. The concrete types
// are [CompleteEvent], [ErrorEvent], [ExpireEvent] and [StateChangeEvent].
type Event interface {
	// Tag returns the message type tag the event was decoded from.
	Tag() string
	// WidgetID returns the identifier of the challenge instance.
	WidgetID() string
	isEvent()
}

// Message type tags.
const (
	TagComplete    = "complete"
	TagError       = "error"
	TagExpire      = "expire"
	TagStateChange = "statechange"
)

// WidgetError is the error object reported by the widget script.
type WidgetError struct {
	Code   string `mapstructure:"code" json:"code"`
	Detail string `mapstructure:"detail" json:"detail,omitempty"`
}

func (e WidgetError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("captcha widget error %s: %s", e.Code, e.Detail)
	}
	return "captcha widget error " + e.Code
}

// CompleteEvent reports a solved challenge.
type CompleteEvent struct {
	Response string `mapstructure:"response"`
	ID       string `mapstructure:"id"`
}

// ErrorEvent reports a widget failure.
type ErrorEvent struct {
	Error WidgetError `mapstructure:"error"`
	ID    string      `mapstructure:"id"`
}

// ExpireEvent reports that a solved challenge's response expired.
type ExpireEvent struct {
	ID string `mapstructure:"id"`
}

// StateChangeEvent reports the widget's full state after a transition.
// Error is set only when the widget attached one.
type StateChangeEvent struct {
	State    WidgetState  `mapstructure:"state"`
	Response string       `mapstructure:"response"`
	ID       string       `mapstructure:"id"`
	Error    *WidgetError `mapstructure:"error"`
}

func (CompleteEvent) Tag() string    { return TagComplete }
func (ErrorEvent) Tag() string       { return TagError }
func (ExpireEvent) Tag() string      { return TagExpire }
func (StateChangeEvent) Tag() string { return TagStateChange }

func (e CompleteEvent) WidgetID() string    { return e.ID }
func (e ErrorEvent) WidgetID() string       { return e.ID }
func (e ExpireEvent) WidgetID() string      { return e.ID }
func (e StateChangeEvent) WidgetID() string { return e.ID }

func (CompleteEvent) isEvent()    {}
func (ErrorEvent) isEvent()       {}
func (ExpireEvent) isEvent()      {}
func (StateChangeEvent) isEvent() {}
