package monitoring

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// Observer reacts to graph lifecycle events for the fixed set of
// specialist agents.
type Observer interface {
	OnRequestStarted(requestID, question string)
	OnRequestCompleted(requestID string, duration time.Duration, success bool)
	OnAgentStarted(requestID string, agent domain.AgentID)
	OnAgentCompleted(requestID string, agent domain.AgentID, duration time.Duration)
	OnAgentFailed(requestID string, agent domain.AgentID, err error, duration time.Duration)
}

// Manager fans out lifecycle events to every registered Observer:
// append-only registration, synchronous fan-out in registration order
// (a slow observer delays the ones after it).
type Manager struct {
	observers []Observer
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add registers an observer.
func (m *Manager) Add(o Observer) {
	m.observers = append(m.observers, o)
}

// NotifyRequestStarted fans out OnRequestStarted.
func (m *Manager) NotifyRequestStarted(requestID, question string) {
	for _, o := range m.observers {
		o.OnRequestStarted(requestID, question)
	}
}

// NotifyRequestCompleted fans out OnRequestCompleted.
func (m *Manager) NotifyRequestCompleted(requestID string, duration time.Duration, success bool) {
	for _, o := range m.observers {
		o.OnRequestCompleted(requestID, duration, success)
	}
}

// NotifyAgentStarted fans out OnAgentStarted.
func (m *Manager) NotifyAgentStarted(requestID string, agent domain.AgentID) {
	for _, o := range m.observers {
		o.OnAgentStarted(requestID, agent)
	}
}

// NotifyAgentCompleted fans out OnAgentCompleted.
func (m *Manager) NotifyAgentCompleted(requestID string, agent domain.AgentID, duration time.Duration) {
	for _, o := range m.observers {
		o.OnAgentCompleted(requestID, agent, duration)
	}
}

// NotifyAgentFailed fans out OnAgentFailed.
func (m *Manager) NotifyAgentFailed(requestID string, agent domain.AgentID, err error, duration time.Duration) {
	for _, o := range m.observers {
		o.OnAgentFailed(requestID, agent, err, duration)
	}
}

// MetricsObserver is an Observer that feeds a Collector, bridging graph
// events into the metrics it aggregates.
type MetricsObserver struct {
	Collector *Collector
}

func (o *MetricsObserver) OnRequestStarted(string, string) {}

func (o *MetricsObserver) OnRequestCompleted(string, time.Duration, bool) {}

func (o *MetricsObserver) OnAgentStarted(string, domain.AgentID) {}

func (o *MetricsObserver) OnAgentCompleted(requestID string, agent domain.AgentID, duration time.Duration) {
	o.Collector.RecordAgentExecution(agent, duration, true)
}

func (o *MetricsObserver) OnAgentFailed(requestID string, agent domain.AgentID, err error, duration time.Duration) {
	o.Collector.RecordAgentExecution(agent, duration, false)
}

// ZerologObserver logs every lifecycle event via a zerolog.Logger.
type ZerologObserver struct {
	Log zerolog.Logger
}

func (o *ZerologObserver) OnRequestStarted(requestID, question string) {
	o.Log.Info().Str("request_id", requestID).Str("question", question).Msg("request started")
}

func (o *ZerologObserver) OnRequestCompleted(requestID string, duration time.Duration, success bool) {
	o.Log.Info().Str("request_id", requestID).Dur("duration", duration).Bool("success", success).Msg("request completed")
}

func (o *ZerologObserver) OnAgentStarted(requestID string, agent domain.AgentID) {
	o.Log.Debug().Str("request_id", requestID).Str("agent", string(agent)).Msg("agent started")
}

func (o *ZerologObserver) OnAgentCompleted(requestID string, agent domain.AgentID, duration time.Duration) {
	o.Log.Debug().Str("request_id", requestID).Str("agent", string(agent)).Dur("duration", duration).Msg("agent completed")
}

func (o *ZerologObserver) OnAgentFailed(requestID string, agent domain.AgentID, err error, duration time.Duration) {
	o.Log.Error().Str("request_id", requestID).Str("agent", string(agent)).Dur("duration", duration).Err(err).Msg("agent failed")
}
