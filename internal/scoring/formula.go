package scoring

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Sender trust weights
const (
	SenderRiskWeight      = 0.40
	SenderFeedbackWeight  = 0.25
	SenderVolumeWeight    = 0.15
	SenderResponseWeight  = 0.10
	SenderDiversityWeight = 0.10
)

// Call trust weights
const (
	CallFeedbackWeight  = 0.50
	CallFrequencyWeight = 0.20
	CallResponseWeight  = 0.20
	CallDurationWeight  = 0.10
)

const (
	// WindowSize bounds both the risk-sample and call-duration windows.
	WindowSize = 10

	// VolumeSaturation is the message count at which interaction volume maxes out.
	VolumeSaturation = 50

	// DurationSaturation is the average call length, in seconds, that earns the full duration component.
	DurationSaturation = 300

	// NeutralScore is used for every component with no evidence yet.
	NeutralScore = 0.5
)

// SenderComponents are the inputs to the sender trust formula
type SenderComponents struct {
	AvgMessageRisk   float64
	UserFeedback     float64
	InteractionVol   float64
	ResponseRate     float64
	MessageDiversity float64
}

// CallComponents are the inputs to the call trust formula
type CallComponents struct {
	UserFeedback    float64
	CallFrequency   float64
	CallResponse    float64
	AvgCallDuration float64 // seconds
}

// SenderScore combines the sender components into a 0-100 score with one decimal.
func SenderScore(c SenderComponents) float64 {
	weighted := SenderRiskWeight*Clamp01(c.AvgMessageRisk) +
		SenderFeedbackWeight*Clamp01(c.UserFeedback) +
		SenderVolumeWeight*Clamp01(c.InteractionVol) +
		SenderResponseWeight*Clamp01(c.ResponseRate) +
		SenderDiversityWeight*Clamp01(c.MessageDiversity)
	return ToScore(weighted)
}

// CallScore combines the call components into a 0-100 score with one decimal.
func CallScore(c CallComponents) float64 {
	weighted := CallFeedbackWeight*Clamp01(c.UserFeedback) +
		CallFrequencyWeight*Clamp01(c.CallFrequency) +
		CallResponseWeight*Clamp01(c.CallResponse) +
		CallDurationWeight*Clamp01(c.AvgCallDuration/DurationSaturation)
	return ToScore(weighted)
}

// ToScore scales a [0,1] weighted sum onto [0,100] rounded to one decimal.
func ToScore(weighted float64) float64 {
	score := math.Round(weighted*100*10) / 10
	return math.Max(0, math.Min(100, score))
}

// Clamp01 clamps v into [0,1]. NaN is treated as neutral.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return math.Max(0, math.Min(1, v))
}

// Mean returns the arithmetic mean, or fallback for an empty slice.
func Mean(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return stat.Mean(values, nil)
}

// PushWindow appends v and drops the oldest samples beyond WindowSize.
func PushWindow(window []float64, v float64) []float64 {
	window = append(window, v)
	if len(window) > WindowSize {
		window = append([]float64(nil), window[len(window)-WindowSize:]...)
	}
	return window
}

// VolumeScore saturates linearly at VolumeSaturation messages.
func VolumeScore(count int) float64 {
	return math.Min(float64(count)/VolumeSaturation, 1)
}

// FrequencyScore rates how often a number calls from its call timestamps.
// Very frequent callers score low, a few calls a week score highest.
func FrequencyScore(timestamps []time.Time) float64 {
	if len(timestamps) <= 1 {
		return NeutralScore
	}

	sorted := append([]time.Time(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Sub(sorted[i-1]).Hours())
	}
	avgHours := stat.Mean(gaps, nil)

	switch {
	case avgHours < 1:
		return 0.2
	case avgHours < 12:
		return 0.4
	case avgHours < 72:
		return 0.8
	default:
		return 0.6
	}
}

// ResponseScore is the fraction of calls that were answered.
func ResponseScore(answered, total int) float64 {
	if total == 0 {
		return NeutralScore
	}
	return float64(answered) / float64(total)
}
