package monitoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditLoggerRecordsNewestFirst(t *testing.T) {
	al := NewAuditLogger(zap.NewNop())

	al.LogEvent(EventCallRecorded, "call recorded").Resource("15550100").Commit()
	al.LogEvent(EventCallFeedback, "call feedback accepted").
		Actor("user-1").
		Resource("15550100").
		Detail("feedback_type", "scam").
		Commit()

	events := al.QueryEvents(AuditQuery{})
	require.Len(t, events, 2)
	assert.Equal(t, EventCallFeedback, events[0].Type)
	assert.Equal(t, "user-1", events[0].ActorID)
	assert.Equal(t, "scam", events[0].Details["feedback_type"])
	assert.NotEmpty(t, events[0].ID)
}

func TestAuditLoggerQueryFilters(t *testing.T) {
	al := NewAuditLogger(zap.NewNop())
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := base
	al.now = func() time.Time { tick = tick.Add(time.Minute); return tick }

	al.LogEvent(EventSenderFeedback, "sender feedback").Resource("HDFCBK").Commit()
	al.LogEvent(EventFeedbackDenied, "denied").Resource("15550100").Severity("high").Status("failure").Commit()
	al.LogEvent(EventCallFeedback, "call feedback").Resource("15550100").Commit()

	byResource := al.QueryEvents(AuditQuery{ResourceID: "15550100"})
	assert.Len(t, byResource, 2)

	byType := al.QueryEvents(AuditQuery{EventTypes: []AuditEventType{EventFeedbackDenied}})
	require.Len(t, byType, 1)
	assert.Equal(t, "failure", byType[0].Status)

	since := base.Add(2 * time.Minute)
	recent := al.QueryEvents(AuditQuery{Since: &since})
	assert.Len(t, recent, 2)

	limited := al.QueryEvents(AuditQuery{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, EventCallFeedback, limited[0].Type)
}

func TestAuditLoggerIsBounded(t *testing.T) {
	al := NewAuditLogger(zap.NewNop())
	al.maxEvents = 5

	for i := 0; i < 12; i++ {
		al.LogEvent(EventCallRecorded, "call recorded").Resource(fmt.Sprint(i)).Commit()
	}

	events := al.QueryEvents(AuditQuery{})
	require.Len(t, events, 5)
	assert.Equal(t, "11", events[0].ResourceID)
	assert.Equal(t, "7", events[4].ResourceID)
}

func TestNilAuditLoggerDropsEvents(t *testing.T) {
	var al *AuditLogger
	ev := al.LogEvent(EventMessageBlocked, "blocked").Resource("SCAMBANK").Commit()
	assert.Equal(t, "SCAMBANK", ev.ResourceID)
}
