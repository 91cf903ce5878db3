package platform

import "github.com/mitchellh/mapstructure"

// viewEvent is one event native delivers for a platform view on the
// platform views channel. Only the fields the method uses are set.
type viewEvent struct {
	ViewID int64  `mapstructure:"viewId"`
	Method string `mapstructure:"method"`

	// onPageStarted, onPageFinished
	URL string `mapstructure:"url"`

	// onWebViewError
	Code    string `mapstructure:"code"`
	Message string `mapstructure:"message"`

	// onScriptMessage. Android posts Body as a JSON string, iOS as an object.
	Name string `mapstructure:"name"`
	Body any    `mapstructure:"body"`
}

// decodeViewEvent reads a view event from channel data. It fails when the
// data is not an object or lacks a view ID or method.
func decodeViewEvent(data any) (viewEvent, bool) {
	var ev viewEvent
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ev,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return viewEvent{}, false
	}
	if err := dec.Decode(data); err != nil {
		return viewEvent{}, false
	}
	hasID := false
	for _, k := range md.Keys {
		if k == "viewId" {
			hasID = true
			break
		}
	}
	return ev, hasID && ev.Method != ""
}
