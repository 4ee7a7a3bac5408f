package models

import "time"

// FeedbackType is a user's verdict on a sender or phone number
type FeedbackType string

const (
	FeedbackSafe       FeedbackType = "safe"
	FeedbackSuspicious FeedbackType = "suspicious"
	FeedbackScam       FeedbackType = "scam"
)

// Score maps the verdict onto [0,1]. Unrecognized verdicts are neutral.
func (f FeedbackType) Score() float64 {
	switch f {
	case FeedbackSafe:
		return 1.0
	case FeedbackSuspicious:
		return 0.3
	case FeedbackScam:
		return 0.0
	default:
		return 0.5
	}
}

// FeedbackEvent is one append-only feedback submission
type FeedbackEvent struct {
	Key           string       `json:"key"`
	UserID        string       `json:"userId,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	FeedbackType  FeedbackType `json:"feedbackType"`
	FeedbackScore float64      `json:"feedbackScore"`
}

// SenderTrust is the running trust record for a message sender ID
type SenderTrust struct {
	Score                  float64   `json:"score"`
	LastUpdated            time.Time `json:"lastUpdated"`
	MessageCount           int       `json:"messageCount"`
	MessageRiskScores      []float64 `json:"messageRiskScores"`
	AvgMessageRisk         float64   `json:"avgMessageRisk"`
	UserFeedbackScore      float64   `json:"userFeedbackScore"`
	InteractionVolumeScore float64   `json:"interactionVolumeScore"`
	ResponseRateScore      float64   `json:"responseRateScore"`
	MessageDiversityScore  float64   `json:"messageDiversityScore"`
}

// NewSenderTrust returns the record a never-seen sender starts from.
func NewSenderTrust(now time.Time) *SenderTrust {
	return &SenderTrust{
		Score:                  70,
		LastUpdated:            now,
		MessageCount:           0,
		MessageRiskScores:      []float64{},
		AvgMessageRisk:         0.5,
		UserFeedbackScore:      0.5,
		InteractionVolumeScore: 0.1,
		ResponseRateScore:      0.5,
		MessageDiversityScore:  0.5,
	}
}

// Clone returns a deep copy safe to hand out of a store.
func (t *SenderTrust) Clone() *SenderTrust {
	c := *t
	c.MessageRiskScores = append(make([]float64, 0, len(t.MessageRiskScores)), t.MessageRiskScores...)
	return &c
}

// Status returns the trust tier for the record's score.
func (t *SenderTrust) Status() TrustStatus {
	return TrustStatusFor(t.Score)
}

// CallTrust is the running trust record for a phone number
type CallTrust struct {
	Score              float64   `json:"score"`
	LastUpdated        time.Time `json:"lastUpdated"`
	CallCount          int       `json:"callCount"`
	CallDurations      []float64 `json:"callDurations"`
	AvgCallDuration    float64   `json:"avgCallDuration"`
	UserFeedbackScore  float64   `json:"userFeedbackScore"`
	CallFrequencyScore float64   `json:"callFrequencyScore"`
	CallResponseScore  float64   `json:"callResponseScore"`
}

// NewCallTrust returns a call record seeded with the given score and
// feedback; the call-specific components start neutral.
func NewCallTrust(now time.Time, score, feedback float64) *CallTrust {
	return &CallTrust{
		Score:              score,
		LastUpdated:        now,
		CallCount:          0,
		CallDurations:      []float64{},
		AvgCallDuration:    0,
		UserFeedbackScore:  feedback,
		CallFrequencyScore: 0.5,
		CallResponseScore:  0.5,
	}
}

// Clone returns a deep copy safe to hand out of a store.
func (t *CallTrust) Clone() *CallTrust {
	c := *t
	c.CallDurations = append(make([]float64, 0, len(t.CallDurations)), t.CallDurations...)
	return &c
}

// Status returns the trust tier for the record's score.
func (t *CallTrust) Status() TrustStatus {
	return TrustStatusFor(t.Score)
}

// TrustStatus is a display tier derived from a trust score
type TrustStatus struct {
	Label    string  `json:"label"`
	Color    string  `json:"color"`
	MinScore float64 `json:"minScore"`
}

var (
	StatusPlatinum    = TrustStatus{Label: "Trusted (Platinum)", Color: "#06C167", MinScore: 85}
	StatusSilver      = TrustStatus{Label: "Caution (Silver)", Color: "#F6B000", MinScore: 65}
	StatusSuspicious  = TrustStatus{Label: "Suspicious", Color: "#D6006C", MinScore: 40}
	StatusBlacklisted = TrustStatus{Label: "Blacklisted", Color: "#b21f1f", MinScore: 0}
)

// TrustStatusFor maps a score onto its tier.
func TrustStatusFor(score float64) TrustStatus {
	switch {
	case score >= StatusPlatinum.MinScore:
		return StatusPlatinum
	case score >= StatusSilver.MinScore:
		return StatusSilver
	case score >= StatusSuspicious.MinScore:
		return StatusSuspicious
	default:
		return StatusBlacklisted
	}
}
