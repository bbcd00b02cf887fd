// Package monitoring collects per-agent execution metrics and notifies
// observers of graph lifecycle events, including an LLM usage counter
// (RecordLLMCall). The shared LLM client does not call RecordLLMCall, so
// that counter only reflects calls some other caller records.
package monitoring

import (
	"sync"
	"time"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// AgentMetrics aggregates execution stats for a single specialist agent
// across every request this process has served.
type AgentMetrics struct {
	Agent           domain.AgentID
	ExecutionCount  int
	SuccessCount    int
	FailureCount    int
	TotalDuration   time.Duration
	AverageDuration time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
}

// LLMMetrics aggregates Shared LLM Client usage.
type LLMMetrics struct {
	TotalCalls     int
	TotalLatency   time.Duration
	AverageLatency time.Duration
	RetriedCalls   int
	MalformedJSON  int
}

// CacheMetrics tracks hit/miss counts for one of the bounded caches.
type CacheMetrics struct {
	Hits   int
	Misses int
}

// Summary is a point-in-time snapshot of everything Collector has
// recorded, suitable for the diagnostics a caller may want to expose.
type Summary struct {
	Agents map[domain.AgentID]AgentMetrics
	LLM    LLMMetrics
	Caches map[string]CacheMetrics
}

// Collector collects execution metrics across requests. A single
// process-wide Collector is shared by every request's graph run.
type Collector struct {
	mu     sync.Mutex
	agents map[domain.AgentID]*AgentMetrics
	llm    LLMMetrics
	caches map[string]*CacheMetrics
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		agents: make(map[domain.AgentID]*AgentMetrics),
		caches: make(map[string]*CacheMetrics),
	}
}

// RecordAgentExecution records one agent invocation's outcome and duration.
func (c *Collector) RecordAgentExecution(agent domain.AgentID, duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.agents[agent]
	if !ok {
		m = &AgentMetrics{Agent: agent, MinDuration: duration, MaxDuration: duration}
		c.agents[agent] = m
	}

	m.ExecutionCount++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	m.TotalDuration += duration
	m.AverageDuration = m.TotalDuration / time.Duration(m.ExecutionCount)
	if duration < m.MinDuration {
		m.MinDuration = duration
	}
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
}

// RecordLLMCall records one Shared LLM Client invocation.
func (c *Collector) RecordLLMCall(latency time.Duration, retried, malformedJSON bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.llm.TotalCalls++
	c.llm.TotalLatency += latency
	c.llm.AverageLatency = c.llm.TotalLatency / time.Duration(c.llm.TotalCalls)
	if retried {
		c.llm.RetriedCalls++
	}
	if malformedJSON {
		c.llm.MalformedJSON++
	}
}

// RecordCacheAccess records a cache hit or miss for the named cache (e.g.
// "cards", "rules_query", "meta").
func (c *Collector) RecordCacheAccess(name string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.caches[name]
	if !ok {
		m = &CacheMetrics{}
		c.caches[name] = m
	}
	if hit {
		m.Hits++
	} else {
		m.Misses++
	}
}

// Snapshot returns a copy of everything collected so far.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	agents := make(map[domain.AgentID]AgentMetrics, len(c.agents))
	for k, v := range c.agents {
		agents[k] = *v
	}
	caches := make(map[string]CacheMetrics, len(c.caches))
	for k, v := range c.caches {
		caches[k] = *v
	}
	return Summary{Agents: agents, LLM: c.llm, Caches: caches}
}
