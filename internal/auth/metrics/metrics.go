// Package metrics exposes Prometheus instrumentation for the auth subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the auth counters. A nil *Metrics is a valid no-op receiver
// so wiring stays optional in tests.
type Metrics struct {
	signIns            *prometheus.CounterVec
	oauthFlows         *prometheus.CounterVec
	callbackDispatches *prometheus.CounterVec
	sessionEvents      *prometheus.CounterVec
}

// New creates and registers all auth metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		signIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aituki_auth_sign_ins_total",
			Help: "Sign-in attempts by method and outcome",
		}, []string{"method", "outcome"}),
		oauthFlows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aituki_auth_oauth_flows_total",
			Help: "OAuth browser flows by provider and terminal outcome",
		}, []string{"provider", "outcome"}),
		callbackDispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aituki_auth_callback_dispatches_total",
			Help: "Deep-link callback dispatches by classified intent and resulting route",
		}, []string{"intent", "route"}),
		sessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aituki_auth_session_events_total",
			Help: "Session manager events by type",
		}, []string{"event"}),
	}
}

func (m *Metrics) RecordSignIn(method, outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) RecordOAuthFlow(provider, outcome string) {
	if m == nil {
		return
	}
	m.oauthFlows.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordCallbackDispatch(intent, route string) {
	if m == nil {
		return
	}
	m.callbackDispatches.WithLabelValues(intent, route).Inc()
}

func (m *Metrics) RecordSessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}
