package models

import "time"

// CallDirection represents whether a call was placed or received
type CallDirection string

const (
	CallIncoming CallDirection = "incoming"
	CallOutgoing CallDirection = "outgoing"
)

// CallRecord is one entry of the global call history
type CallRecord struct {
	ID              string        `json:"id"`
	PhoneNumber     string        `json:"phoneNumber"`
	Region          string        `json:"region,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
	Duration        float64       `json:"duration"`
	Direction       CallDirection `json:"direction"`
	WasAnswered     bool          `json:"wasAnswered"`
	HasUserFeedback bool          `json:"hasUserFeedback"`
}

// CallDetails describes a call to record. Zero values take defaults:
// the current time, zero duration and an incoming direction.
type CallDetails struct {
	PhoneNumber string        `json:"phoneNumber" binding:"required"`
	Timestamp   *time.Time    `json:"timestamp,omitempty"`
	Duration    float64       `json:"duration"`
	Direction   CallDirection `json:"direction,omitempty"`
	WasAnswered bool          `json:"wasAnswered"`
}
