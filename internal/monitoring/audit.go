package monitoring

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditLogger keeps a bounded, newest-first trail of trust-affecting events
// and mirrors each one to the structured log.
type AuditLogger struct {
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.RWMutex
	events    []*AuditEvent
	maxEvents int
}

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	EventSenderFeedback  AuditEventType = "sender_feedback"
	EventCallFeedback    AuditEventType = "call_feedback"
	EventFeedbackDenied  AuditEventType = "feedback_rate_limited"
	EventCallRecorded    AuditEventType = "call_recorded"
	EventMessageBlocked  AuditEventType = "message_blocked"
	EventStorageFailure  AuditEventType = "storage_failure"
	EventTrustRecordSeed AuditEventType = "trust_record_created"
)

// AuditEvent represents a single audit event
type AuditEvent struct {
	ID          string                 `json:"id"`
	Type        AuditEventType         `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	Severity    string                 `json:"severity"` // "low", "medium", "high"
	ActorID     string                 `json:"actor_id,omitempty"`
	ResourceID  string                 `json:"resource_id,omitempty"`
	Status      string                 `json:"status"` // "success", "failure"
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// AuditQuery filters events returned by QueryEvents
type AuditQuery struct {
	EventTypes []AuditEventType `json:"event_types,omitempty"`
	ResourceID string           `json:"resource_id,omitempty"`
	Since      *time.Time       `json:"since,omitempty"`
	Limit      int              `json:"limit,omitempty"`
}

const defaultMaxAuditEvents = 1000

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	al := &AuditLogger{
		logger:    logger,
		now:       time.Now,
		maxEvents: defaultMaxAuditEvents,
		events:    make([]*AuditEvent, 0, 64),
	}

	logger.Info("audit logger initialized", zap.Int("max_events", al.maxEvents))
	return al
}

// LogEvent starts building an audit event; call Commit to record it.
// It is safe to call on a nil logger.
func (al *AuditLogger) LogEvent(eventType AuditEventType, description string) *AuditEventBuilder {
	now := time.Now
	if al != nil {
		now = al.now
	}
	return &AuditEventBuilder{
		auditLogger: al,
		event: &AuditEvent{
			ID:          uuid.NewString(),
			Type:        eventType,
			Timestamp:   now(),
			Severity:    "low",
			Status:      "success",
			Description: description,
			Details:     make(map[string]interface{}),
		},
	}
}

// QueryEvents returns matching events, newest first
func (al *AuditLogger) QueryEvents(query AuditQuery) []*AuditEvent {
	if al == nil {
		return []*AuditEvent{}
	}
	al.mu.RLock()
	defer al.mu.RUnlock()

	out := make([]*AuditEvent, 0)
	for _, ev := range al.events {
		if !matches(ev, query) {
			continue
		}
		out = append(out, ev)
		if query.Limit > 0 && len(out) >= query.Limit {
			break
		}
	}
	return out
}

func matches(ev *AuditEvent, q AuditQuery) bool {
	if q.ResourceID != "" && ev.ResourceID != q.ResourceID {
		return false
	}
	if q.Since != nil && ev.Timestamp.Before(*q.Since) {
		return false
	}
	if len(q.EventTypes) == 0 {
		return true
	}
	for _, t := range q.EventTypes {
		if ev.Type == t {
			return true
		}
	}
	return false
}

func (al *AuditLogger) record(ev *AuditEvent) {
	al.mu.Lock()
	al.events = append([]*AuditEvent{ev}, al.events...)
	if len(al.events) > al.maxEvents {
		al.events = al.events[:al.maxEvents]
	}
	al.mu.Unlock()

	fields := []zap.Field{
		zap.String("audit_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.String("status", ev.Status),
		zap.String("severity", ev.Severity),
	}
	if ev.ActorID != "" {
		fields = append(fields, zap.String("actor_id", ev.ActorID))
	}
	if ev.ResourceID != "" {
		fields = append(fields, zap.String("resource_id", ev.ResourceID))
	}
	if len(ev.Details) > 0 {
		fields = append(fields, zap.Any("details", ev.Details))
	}

	if ev.Severity == "high" {
		al.logger.Warn(ev.Description, fields...)
		return
	}
	al.logger.Info(ev.Description, fields...)
}

// Close gracefully shuts down the audit logger
func (al *AuditLogger) Close() error {
	al.logger.Info("audit logger closed")
	return nil
}

// AuditEventBuilder provides a fluent interface for building audit events
type AuditEventBuilder struct {
	auditLogger *AuditLogger
	event       *AuditEvent
}

// Actor sets who performed the action
func (b *AuditEventBuilder) Actor(actorID string) *AuditEventBuilder {
	b.event.ActorID = actorID
	return b
}

// Resource sets the sender or number acted upon
func (b *AuditEventBuilder) Resource(resourceID string) *AuditEventBuilder {
	b.event.ResourceID = resourceID
	return b
}

// Severity sets the event severity
func (b *AuditEventBuilder) Severity(severity string) *AuditEventBuilder {
	b.event.Severity = severity
	return b
}

// Status sets the event status
func (b *AuditEventBuilder) Status(status string) *AuditEventBuilder {
	b.event.Status = status
	return b
}

// Detail adds a detail field
func (b *AuditEventBuilder) Detail(key string, value interface{}) *AuditEventBuilder {
	b.event.Details[key] = value
	return b
}

// Commit records the event. A nil logger drops it.
func (b *AuditEventBuilder) Commit() *AuditEvent {
	if b.auditLogger == nil {
		return b.event
	}
	b.auditLogger.record(b.event)
	return b.event
}
