// Package shared holds the small pieces of logic more than one rule
// engine reuses verbatim: the dead-time-adjusted bitrate-to-quality
// mapping used by both L2A-LL and Stallion, and the fixed-size
// sliding windows and window statistics used by Stallion.
package shared

import (
	"math"

	"llhlsabr/internal/abr/domain"
)

// GetQualityForBitrate returns the highest ladder index whose bitrate
// is <= tpKbps*1000, after applying the live-latency dead-time
// adjustment common to L2A and Stallion: when latency feedback is
// available and the latency/target drift is within one fragment
// duration, the effective throughput is shrunk by the drift ratio;
// once the drift reaches a full fragment duration, the call returns
// the lowest rung outright.
func GetQualityForBitrate(ladder domain.Ladder, tpKbps, latency, targetLatency, fragDuration float64, haveLatencyFeedback bool) int {
	if len(ladder) == 0 {
		return 0
	}

	effectiveTp := tpKbps
	if haveLatencyFeedback && fragDuration > 0 {
		delta := latency - targetLatency
		if delta < 0 {
			delta = -delta
		}
		if delta >= fragDuration {
			return 0
		}
		effectiveTp = tpKbps * (1 - delta/fragDuration)
	}

	best := 0
	for i, lvl := range ladder {
		if lvl.Bitrate <= effectiveTp*1000 {
			best = i
		} else {
			break
		}
	}
	return best
}

// PushWindow appends v to window, keeping only the most recent max
// entries (oldest dropped from the front).
func PushWindow(window []float64, v float64, max int) []float64 {
	window = append(window, v)
	if len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}

// PopLast removes the most recently pushed entry, used by Stallion's
// VoD path to keep its windows from growing across calls.
func PopLast(window []float64) []float64 {
	if len(window) == 0 {
		return window
	}
	return window[:len(window)-1]
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Stdev returns the population standard deviation of xs (0 for 0 or 1
// samples).
func Stdev(xs []float64) float64 {
	n := len(xs)
	if n <= 1 {
		return 0
	}
	m := Mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}
