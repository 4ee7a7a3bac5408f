package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/services"
)

// MessageScreener analyzes messages and keeps the recent analysis history
type MessageScreener interface {
	Screen(ctx context.Context, text string, opts services.AnalyzeOptions) (*models.AnalysisResult, *models.SenderTrust, error)
	History() []*models.AnalysisResult
}

// SenderTrustStore is the sender reputation store
type SenderTrustStore interface {
	GetOrCreate(ctx context.Context, senderID string) (*models.SenderTrust, error)
	ApplyFeedback(ctx context.Context, senderID string, feedbackType models.FeedbackType) (*models.SenderTrust, error)
	Feedback(ctx context.Context, senderID string) ([]models.FeedbackEvent, error)
}

// CallTrustStore is the phone number reputation store
type CallTrustStore interface {
	GetOrCreate(ctx context.Context, phoneNumber string) (*models.CallTrust, error)
	RecordCall(ctx context.Context, details models.CallDetails) (*models.CallRecord, *models.CallTrust, error)
	RecordUserFeedback(ctx context.Context, phoneNumber string, feedbackType models.FeedbackType, userID string) (*models.CallTrust, error)
	CallHistory(ctx context.Context, phoneNumber string) ([]models.CallRecord, error)
	Feedback(ctx context.Context, phoneNumber string) ([]models.FeedbackEvent, error)
	CanRate(ctx context.Context, userID, phoneNumber string) services.RateDecision
}

// AnalyzeRequest is the body of POST /messages/analyze
type AnalyzeRequest struct {
	Message  string `json:"message" binding:"required"`
	DeviceID string `json:"deviceId"`
	SenderID string `json:"senderId"`
}

// FeedbackRequest is the body of the sender and call feedback endpoints
type FeedbackRequest struct {
	FeedbackType models.FeedbackType `json:"feedbackType" binding:"required,oneof=safe suspicious scam"`
	UserID       string              `json:"userId"`
}

const defaultAuditLimit = 100

// TrustHandler handles HTTP requests for message screening and trust scores
type TrustHandler struct {
	messages MessageScreener
	senders  SenderTrustStore
	calls    CallTrustStore
	audit    *monitoring.AuditLogger
	logger   *zap.Logger
}

// NewTrustHandler creates a new trust handler
func NewTrustHandler(
	messages MessageScreener,
	senders SenderTrustStore,
	calls CallTrustStore,
	audit *monitoring.AuditLogger,
	logger *zap.Logger,
) *TrustHandler {
	return &TrustHandler{
		messages: messages,
		senders:  senders,
		calls:    calls,
		audit:    audit,
		logger:   logger,
	}
}

// Register mounts the trust routes on group
func (h *TrustHandler) Register(group *gin.RouterGroup) {
	group.POST("/messages/analyze", h.AnalyzeMessage)
	group.GET("/messages/history", h.MessageHistory)

	group.GET("/senders/:senderId/trust", h.GetSenderTrust)
	group.POST("/senders/:senderId/feedback", h.SenderFeedback)
	group.GET("/senders/:senderId/feedback", h.ListSenderFeedback)

	group.POST("/calls", h.RecordCall)
	group.GET("/calls", h.CallHistory)
	group.GET("/calls/:phone/trust", h.GetCallTrust)
	group.POST("/calls/:phone/feedback", h.CallFeedback)
	group.GET("/calls/:phone/feedback", h.ListCallFeedback)

	group.GET("/trust-status", h.TrustStatus)
	group.GET("/audit", h.AuditEvents)
}

// AnalyzeMessage screens one message and updates the sender's trust
// POST /api/v1/messages/analyze
func (h *TrustHandler) AnalyzeMessage(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid analyze request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	start := time.Now()
	result, trust, err := h.messages.Screen(c.Request.Context(), req.Message, services.AnalyzeOptions{
		DeviceID: req.DeviceID,
		SenderID: req.SenderID,
	})
	if err != nil {
		h.respondError(c, "failed to update sender trust", err)
		return
	}

	response := gin.H{
		"result": result,
		"meta": gin.H{
			"processing_time_ms": time.Since(start).Milliseconds(),
		},
	}
	if trust != nil {
		response["senderTrust"] = trust
		response["senderStatus"] = trust.Status()
	}
	c.JSON(http.StatusOK, response)
}

// MessageHistory returns the recent OTP analyses
// GET /api/v1/messages/history
func (h *TrustHandler) MessageHistory(c *gin.Context) {
	history := h.messages.History()
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

// GetSenderTrust returns a sender's trust record and tier
// GET /api/v1/senders/:senderId/trust
func (h *TrustHandler) GetSenderTrust(c *gin.Context) {
	senderID := c.Param("senderId")
	rec, err := h.senders.GetOrCreate(c.Request.Context(), senderID)
	if err != nil {
		h.respondError(c, "failed to get sender trust", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"senderId": models.NormalizeSenderID(senderID),
		"trust":    rec,
		"status":   rec.Status(),
	})
}

// SenderFeedback records a user verdict on a sender
// POST /api/v1/senders/:senderId/feedback
func (h *TrustHandler) SenderFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	senderID := c.Param("senderId")
	rec, err := h.senders.ApplyFeedback(c.Request.Context(), senderID, req.FeedbackType)
	if err != nil {
		h.respondError(c, "failed to record sender feedback", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"senderId": models.NormalizeSenderID(senderID),
		"trust":    rec,
		"status":   rec.Status(),
	})
}

// ListSenderFeedback returns the feedback stored for a sender
// GET /api/v1/senders/:senderId/feedback
func (h *TrustHandler) ListSenderFeedback(c *gin.Context) {
	events, err := h.senders.Feedback(c.Request.Context(), c.Param("senderId"))
	if err != nil {
		h.respondError(c, "failed to list sender feedback", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": events, "count": len(events)})
}

// RecordCall appends a call to the history
// POST /api/v1/calls
func (h *TrustHandler) RecordCall(c *gin.Context) {
	var details models.CallDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	if details.Direction != "" && details.Direction != models.CallIncoming && details.Direction != models.CallOutgoing {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be incoming or outgoing"})
		return
	}

	record, trust, err := h.calls.RecordCall(c.Request.Context(), details)
	if err != nil {
		h.respondError(c, "failed to record call", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"call":   record,
		"trust":  trust,
		"status": trust.Status(),
	})
}

// CallHistory returns the call history, optionally for one number
// GET /api/v1/calls?phone=
func (h *TrustHandler) CallHistory(c *gin.Context) {
	calls, err := h.calls.CallHistory(c.Request.Context(), c.Query("phone"))
	if err != nil {
		h.respondError(c, "failed to get call history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls, "count": len(calls)})
}

// GetCallTrust returns a number's trust record, tier and whether the user may rate it
// GET /api/v1/calls/:phone/trust?userId=
func (h *TrustHandler) GetCallTrust(c *gin.Context) {
	phone := c.Param("phone")
	ctx := c.Request.Context()

	rec, err := h.calls.GetOrCreate(ctx, phone)
	if err != nil {
		h.respondError(c, "failed to get call trust", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"phoneNumber": models.NormalizePhoneNumber(phone),
		"trust":       rec,
		"status":      rec.Status(),
		"canRate":     h.calls.CanRate(ctx, c.Query("userId"), phone),
	})
}

// CallFeedback records a user verdict on a number, subject to the rating cooldown
// POST /api/v1/calls/:phone/feedback
func (h *TrustHandler) CallFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	phone := c.Param("phone")
	rec, err := h.calls.RecordUserFeedback(c.Request.Context(), phone, req.FeedbackType, req.UserID)
	if err != nil {
		h.respondError(c, "failed to record call feedback", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"phoneNumber": models.NormalizePhoneNumber(phone),
		"trust":       rec,
		"status":      rec.Status(),
	})
}

// ListCallFeedback returns the feedback stored for a number
// GET /api/v1/calls/:phone/feedback
func (h *TrustHandler) ListCallFeedback(c *gin.Context) {
	events, err := h.calls.Feedback(c.Request.Context(), c.Param("phone"))
	if err != nil {
		h.respondError(c, "failed to list call feedback", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": events, "count": len(events)})
}

// TrustStatus maps a score onto its display tier
// GET /api/v1/trust-status?score=
func (h *TrustHandler) TrustStatus(c *gin.Context) {
	score, err := strconv.ParseFloat(c.Query("score"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be a number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"score":  score,
		"status": models.TrustStatusFor(score),
	})
}

// AuditEvents returns recent audit events
// GET /api/v1/audit?type=&resource=&limit=
func (h *TrustHandler) AuditEvents(c *gin.Context) {
	query := monitoring.AuditQuery{
		ResourceID: c.Query("resource"),
		Limit:      defaultAuditLimit,
	}
	for _, t := range c.QueryArray("type") {
		query.EventTypes = append(query.EventTypes, monitoring.AuditEventType(t))
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			query.Limit = parsed
		}
	}

	events := h.audit.QueryEvents(query)
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (h *TrustHandler) respondError(c *gin.Context, msg string, err error) {
	var limited *services.RateLimitError
	switch {
	case errors.As(err, &limited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             true,
			"message":           limited.Message,
			"cooldownRemaining": limited.CooldownRemaining,
		})
	case errors.Is(err, services.ErrStoreClosed):
		h.logger.Warn(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Trust store unavailable"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
