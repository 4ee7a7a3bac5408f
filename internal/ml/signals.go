package ml

import "math"

// BehaviorSignals supplies the sender components we cannot observe directly.
// Implementations must be deterministic for a given normalized key.
type BehaviorSignals interface {
	ResponseRate(senderKey string) float64
	MessageDiversity(senderKey string) float64
}

// HashSignals derives stable pseudo-signals from the sender key itself.
// ResponseRate lands in [0.3, 0.9) and MessageDiversity in [0.2, 0.95).
type HashSignals struct{}

// ResponseRate implements BehaviorSignals.
func (HashSignals) ResponseRate(senderKey string) float64 {
	var h int64
	for i := 0; i < len(senderKey); i++ {
		// 32-bit shift with wraparound, then widen before the subtraction
		shifted := int64(int32(uint32(h)) << 5)
		h = shifted - h + int64(senderKey[i])
	}
	return 0.3 + float64(absInt64(h)%1000)/1000*0.6
}

// MessageDiversity implements BehaviorSignals.
func (HashSignals) MessageDiversity(senderKey string) float64 {
	var h int64
	for i := 0; i < len(senderKey); i++ {
		h += int64(senderKey[i]) * int64(i+1)
	}
	return 0.2 + float64(absInt64(h)%1000)/1000*0.75
}

func absInt64(v int64) int64 {
	if v < 0 {
		if v == math.MinInt64 {
			return math.MaxInt64
		}
		return -v
	}
	return v
}
