// Package catchup implements the live catch-up playback-rate
// controller: when the player has drifted from its
// target live latency, nudge the playback rate toward the live edge
// by a bounded, hysteresis-suppressed amount.
package catchup

import "math"

// Rate computes the catch-up playback rate for the current latency
// state, given the previously applied rate. playing must be true and
// cfg.UseLoLpPlayback must be set for catch-up to engage at all; ok is
// false whenever the controller has nothing to say (inactive, or the
// computed change is too small to bother applying).
func Rate(
	useLoLpPlayback, playing bool,
	latency, target, buffer float64,
	liveCatchupLatencyThreshold, minDrift, playbackBufferMin, cpr float64,
	currentRate float64,
	isSafari bool,
) (rate float64, ok bool) {
	if !useLoLpPlayback || !playing {
		return currentRate, false
	}
	if latency > liveCatchupLatencyThreshold {
		return currentRate, false
	}

	drift := latency - target
	starved := buffer < playbackBufferMin
	if math.Abs(drift) <= minDrift && !starved {
		return currentRate, false
	}

	var next float64
	switch {
	case starved:
		d := 5 * (buffer - playbackBufferMin)
		next = 1 - cpr + 2*cpr/(1+math.Exp(-d))
	case math.Abs(drift) <= 0.02*target:
		next = 1.0
	default:
		d := 5 * drift
		next = 1 - cpr + 2*cpr/(1+math.Exp(-d))
	}
	next = clamp(next, 1-cpr, 1+cpr)

	threshold := 0.02
	if isSafari {
		threshold = 0.25
	}
	if math.Abs(next-currentRate) < threshold {
		return currentRate, false
	}
	return next, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
