package ml

import (
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
)

const (
	urlMatchWeight = 2
	askMatchWeight = 3

	// matchesForFullConfidence is the weighted match count at which confidence reaches 1.
	matchesForFullConfidence = 5

	// phishingConfidenceThreshold flags even trusted senders as phishing above it.
	phishingConfidenceThreshold = 0.4
)

// PhishingKeywords are matched as case-insensitive substrings, one point each.
var PhishingKeywords = []string{
	"urgent", "click", "link", "win", "click here", "verify account",
	"account locked", "suspended", "unusual activity", "claim",
	"send your", "share your", "send otp", "share otp",
}

// MessageClassifier flags phishing messages from keyword and pattern evidence
type MessageClassifier struct {
	logger *zap.Logger

	// Compiled regex patterns for performance
	urlPattern *regexp.Regexp
	askPattern *regexp.Regexp
}

// NewMessageClassifier creates a new message classifier
func NewMessageClassifier(logger *zap.Logger) *MessageClassifier {
	return &MessageClassifier{
		logger:     logger,
		urlPattern: regexp.MustCompile(`https?://|www\.|bit\.ly|tinyurl|goo\.gl`),
		askPattern: regexp.MustCompile(`(?i)(?:send|share|provide|give).{1,10}(?:otp|password|code|pin)`),
	}
}

// Classify scores text against the keyword list, the URL pattern and the
// share-your-code pattern. trustedSenders must be upper-case tokens; a text
// that mentions none of them is always treated as phishing.
func (c *MessageClassifier) Classify(text string, trustedSenders []string) models.Classification {
	if text == "" {
		return models.Classification{
			IsPhishing:      false,
			Confidence:      0,
			Reason:          "Empty message",
			MatchedKeywords: []string{},
		}
	}

	upperText := strings.ToUpper(text)
	hasTrustedSender := false
	for _, sender := range trustedSenders {
		if sender != "" && strings.Contains(upperText, sender) {
			hasTrustedSender = true
			break
		}
	}

	lowerText := strings.ToLower(text)
	matchCount := 0
	matched := make([]string, 0, 4)
	for _, keyword := range PhishingKeywords {
		if strings.Contains(lowerText, keyword) {
			matchCount++
			matched = append(matched, keyword)
		}
	}

	if c.urlPattern.MatchString(text) {
		matchCount += urlMatchWeight
		matched = append(matched, "suspicious URL")
	}

	if c.askPattern.MatchString(text) {
		matchCount += askMatchWeight
		matched = append(matched, "asking to share OTP")
	}

	confidence := math.Min(float64(matchCount)/matchesForFullConfidence, 1)
	isPhishing := !hasTrustedSender || confidence > phishingConfidenceThreshold

	c.logger.Debug("message classified",
		zap.Bool("phishing", isPhishing),
		zap.Float64("confidence", confidence),
		zap.Int("matches", matchCount))

	return models.Classification{
		IsPhishing:      isPhishing,
		Confidence:      confidence,
		Reason:          buildReason(isPhishing, hasTrustedSender, matched),
		MatchedKeywords: matched,
	}
}

func buildReason(isPhishing, hasTrustedSender bool, matched []string) string {
	if !isPhishing {
		return "Message appears legitimate and comes from a trusted sender"
	}

	var reason string
	if !hasTrustedSender {
		reason = "Unknown sender"
	}
	if len(matched) > 0 {
		if reason != "" {
			reason += " and contains "
		} else {
			reason = "Contains "
		}
		reason += strings.Join(matched, ", ")
	}
	return reason
}
