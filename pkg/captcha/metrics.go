package captcha

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts bridge traffic. A nil *Metrics records nothing.
type Metrics struct {
	messages      *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	states        *prometheus.CounterVec
}

// NewMetrics creates the bridge collectors and registers them with reg.
// Collectors already registered by another widget are reused, so every
// widget in a process can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captcha_bridge_messages_total",
			Help: "Inbound widget messages by type tag.",
		}, []string{"type"}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captcha_bridge_parse_failures_total",
			Help: "Inbound widget messages that could not be decoded, by reason.",
		}, []string{"reason"}),
		states: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captcha_widget_states_total",
			Help: "Mirrored widget state changes by resulting state.",
		}, []string{"state"}),
	}
	var err error
	if m.messages, err = register(reg, m.messages); err != nil {
		return nil, err
	}
	if m.parseFailures, err = register(reg, m.parseFailures); err != nil {
		return nil, err
	}
	if m.states, err = register(reg, m.states); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) message(tag string) {
	if m == nil {
		return
	}
	// Labels come from the page, so only known values get their own series.
	switch {
	case tag == "":
		tag = "none"
	case payloadSchemas[tag] == nil:
		tag = "unknown"
	}
	m.messages.WithLabelValues(tag).Inc()
}

func (m *Metrics) parseFailure(reason ParseReason) {
	if m == nil {
		return
	}
	m.parseFailures.WithLabelValues(reason.String()).Inc()
}

func (m *Metrics) state(s WidgetState) {
	if m == nil {
		return
	}
	label := string(s)
	if !s.Known() {
		label = "unknown"
	}
	m.states.WithLabelValues(label).Inc()
}
