// Package memory defines the event-log contract agent runs are persisted
// through: an append-only sequence of typed Events per (agentID, runID),
// and the Reader/Store interfaces the planner and transcript builder consume
// to replay them.
package memory

import (
	"context"
	"time"
)

// EventType classifies one entry in an agent run's event log.
type EventType string

const (
	EventUserMessage      EventType = "user_message"
	EventAssistantMessage EventType = "assistant_message"
	EventToolCall         EventType = "tool_call"
	EventToolResult       EventType = "tool_result"
	EventPlannerNote      EventType = "planner_note"
	EventThinking         EventType = "thinking"
)

// Event is one entry in an agent run's event log. Data carries the
// type-specific payload (message text, tool_call_id/tool_name/payload,
// result/error, signature, ...), keyed the way the event's Type expects.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]any
	Labels    map[string]string
}

// Reader replays a run's event log for the planner and transcript builder.
// Implementations are read-only views over a Store's AppendEvents history.
type Reader interface {
	Events() []Event
	FilterByType(t EventType) []Event
	Latest(t EventType) (Event, bool)
}

// Snapshot is a run's full event log plus whatever run-level metadata the
// backing Store attaches to it.
type Snapshot struct {
	AgentID string
	RunID   string
	Events  []Event
	Meta    map[string]any
}

// Store persists and replays an agent run's event log. Implementations back
// onto whatever durable storage the deployment chooses.
type Store interface {
	LoadRun(ctx context.Context, agentID, runID string) (Snapshot, error)
	AppendEvents(ctx context.Context, agentID, runID string, events ...Event) error
}
