package models

import "time"

// Location is a (simulated) origin for an OTP request
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsUnusual bool    `json:"isUnusual"`
}

// Classification is the keyword-based phishing verdict for a message
type Classification struct {
	IsPhishing      bool     `json:"isPhishing"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`
	MatchedKeywords []string `json:"matchedKeywords"`
}

// RiskComponents records the additive terms of a message risk score
type RiskComponents struct {
	SenderRisk   float64 `json:"senderRisk"`
	MessageRisk  float64 `json:"messageRisk"`
	LocationRisk float64 `json:"locationRisk"`
}

// AnalysisResult is the outcome of analyzing one message
type AnalysisResult struct {
	Message          string          `json:"message"`
	Timestamp        time.Time       `json:"timestamp"`
	OTP              *string         `json:"otp"`
	IsOTPMessage     bool            `json:"isOtpMessage"`
	DeviceID         string          `json:"deviceId"`
	SenderID         string          `json:"senderId"`
	IsTrustedSender  bool            `json:"isTrustedSender"`
	Location         *Location       `json:"location,omitempty"`
	LocationRiskFlag bool            `json:"locationRiskFlag"`
	RiskScore        float64         `json:"riskScore"`
	RiskComponents   RiskComponents  `json:"riskComponents"`
	Classification   *Classification `json:"classification,omitempty"`
	IsBlocked        bool            `json:"isBlocked"`
	Analysis         string          `json:"analysis"`
}
