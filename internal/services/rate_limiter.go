package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
)

// DefaultRatingCooldown is how long a user waits before rating the same number again.
const DefaultRatingCooldown = 30 * 24 * time.Hour

// RateDecision is the outcome of a rating permission check
type RateDecision struct {
	Allowed           bool   `json:"allowed"`
	Message           string `json:"message,omitempty"`
	CooldownRemaining int    `json:"cooldownRemaining,omitempty"`
}

// FeedbackRateLimiter enforces one rating per (user, number) per cooldown.
// Each pair moves from unrated to rated(ts) and is re-rated in place.
type FeedbackRateLimiter struct {
	cooldown time.Duration

	mu      sync.RWMutex
	ratings map[string]time.Time
}

// NewFeedbackRateLimiter creates a limiter; a non-positive cooldown uses the default.
func NewFeedbackRateLimiter(cooldown time.Duration) *FeedbackRateLimiter {
	if cooldown <= 0 {
		cooldown = DefaultRatingCooldown
	}
	return &FeedbackRateLimiter{
		cooldown: cooldown,
		ratings:  make(map[string]time.Time),
	}
}

// Check reports whether userID may rate normalizedNumber at now.
func (l *FeedbackRateLimiter) Check(userID, normalizedNumber string, now time.Time) RateDecision {
	if userID == "" || normalizedNumber == "" || normalizedNumber == models.UnknownKey {
		return RateDecision{Allowed: false, Message: "Invalid user ID or phone number"}
	}

	l.mu.RLock()
	last, rated := l.ratings[models.RatingKey(userID, normalizedNumber)]
	l.mu.RUnlock()

	if !rated {
		return RateDecision{Allowed: true}
	}

	elapsed := now.Sub(last)
	if elapsed >= l.cooldown {
		return RateDecision{Allowed: true}
	}

	day := float64(24 * time.Hour)
	remaining := int(math.Ceil(float64(l.cooldown)/day - float64(elapsed)/day))
	return RateDecision{
		Allowed:           false,
		CooldownRemaining: remaining,
		Message:           fmt.Sprintf("You can rate this number again in %d days", remaining),
	}
}

// Record stores now as the latest rating time for the pair.
func (l *FeedbackRateLimiter) Record(userID, normalizedNumber string, now time.Time) {
	l.mu.Lock()
	l.ratings[models.RatingKey(userID, normalizedNumber)] = now
	l.mu.Unlock()
}

func (l *FeedbackRateLimiter) replace(ratings map[string]time.Time) {
	if ratings == nil {
		ratings = make(map[string]time.Time)
	}
	l.mu.Lock()
	l.ratings = ratings
	l.mu.Unlock()
}

func (l *FeedbackRateLimiter) marshal() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return json.Marshal(l.ratings)
}
