package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSenderScore(t *testing.T) {
	tests := []struct {
		name string
		in   SenderComponents
		want float64
	}{
		{"all zero", SenderComponents{}, 0},
		{"all one", SenderComponents{1, 1, 1, 1, 1}, 100},
		{"defaults", SenderComponents{0.5, 0.5, 0.1, 0.5, 0.5}, 44.0},
		{"out of range inputs are clamped", SenderComponents{2, -1, 5, 1, 1}, 75.0},
		{"NaN is neutral", SenderComponents{math.NaN(), 0, 0, 0, 0}, 20.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SenderScore(tt.in), 1e-9)
		})
	}
}

func TestCallScore(t *testing.T) {
	assert.InDelta(t, 0.0, CallScore(CallComponents{}), 1e-9)
	assert.InDelta(t, 100.0, CallScore(CallComponents{1, 1, 1, 600}), 1e-9)
	// 0.5*1 + 0.2*0.5 + 0.2*0.5 + 0.1*(150/300)
	assert.InDelta(t, 75.0, CallScore(CallComponents{1, 0.5, 0.5, 150}), 1e-9)
}

func TestScoresStayInBounds(t *testing.T) {
	samples := []float64{-10, -1, 0, 0.25, 0.5, 0.99, 1, 3, 1e6}
	for _, a := range samples {
		for _, b := range samples {
			s := SenderScore(SenderComponents{a, b, a, b, a})
			c := CallScore(CallComponents{a, b, a, b * 300})
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 100.0)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 100.0)
			assert.InDelta(t, math.Round(s*10)/10, s, 1e-9)
		}
	}
}

func TestPushWindow(t *testing.T) {
	var window []float64
	for i := 0; i < 25; i++ {
		window = PushWindow(window, float64(i))
		assert.LessOrEqual(t, len(window), WindowSize)
	}
	assert.Equal(t, []float64{15, 16, 17, 18, 19, 20, 21, 22, 23, 24}, window)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.7, Mean(nil, 0.7))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}, 0), 1e-9)
}

func TestVolumeScore(t *testing.T) {
	assert.Equal(t, 0.0, VolumeScore(0))
	assert.InDelta(t, 0.5, VolumeScore(25), 1e-9)
	assert.Equal(t, 1.0, VolumeScore(500))
}

func TestFrequencyScore(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(hours ...float64) []time.Time {
		out := make([]time.Time, 0, len(hours))
		for _, h := range hours {
			out = append(out, base.Add(time.Duration(h*float64(time.Hour))))
		}
		return out
	}

	tests := []struct {
		name string
		ts   []time.Time
		want float64
	}{
		{"no calls", nil, 0.5},
		{"single call", at(0), 0.5},
		{"minutes apart", at(0, 0.2, 0.4), 0.2},
		{"hours apart", at(0, 5), 0.4},
		{"days apart", at(48, 0), 0.8},
		{"weeks apart", at(0, 24*14), 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FrequencyScore(tt.ts))
		})
	}
}

func TestResponseScore(t *testing.T) {
	assert.Equal(t, 0.5, ResponseScore(0, 0))
	assert.Equal(t, 0.25, ResponseScore(1, 4))
	assert.Equal(t, 1.0, ResponseScore(3, 3))
}
