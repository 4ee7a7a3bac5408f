package ml

import (
	"math/rand"
	"sync"
	"time"
)

// SenderSource synthesizes a sender ID for messages that carry none.
type SenderSource interface {
	NextSenderID() string
}

// LookalikeSenders imitate institutional sender IDs.
var LookalikeSenders = []string{
	"FAKEBANK", "BANKOFIN", "HDFCBK1", "ICICI-BNK",
	"SBIBNK2", "SCAMBANK", "ALERTS", "VERIFY",
	"BANKING", "SECURE", "AMZN", "NFLX",
	"UBERR", "DELIVERY",
}

const trustedSenderRate = 0.7

// RandomSenderSource draws a trusted sender 70% of the time and a
// look-alike otherwise.
type RandomSenderSource struct {
	trusted []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSenderSource seeds the simulation; seed 0 uses the clock.
func NewRandomSenderSource(trusted []string, seed int64) *RandomSenderSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSenderSource{
		trusted: append([]string(nil), trusted...),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// NextSenderID implements SenderSource.
func (s *RandomSenderSource) NextSenderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.trusted) > 0 && s.rng.Float64() < trustedSenderRate {
		return s.trusted[s.rng.Intn(len(s.trusted))]
	}
	return LookalikeSenders[s.rng.Intn(len(LookalikeSenders))]
}
