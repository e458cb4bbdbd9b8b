// Package bwe implements the dual-EWMA bandwidth estimator: a fast
// and a slow exponentially weighted moving average of measured
// throughput, advanced by cumulative sample duration rather than
// wall-clock time.
package bwe

import "math"

// ewma is a single exponentially weighted moving average whose decay
// is driven by an externally supplied "weight" (here, sample duration
// in milliseconds) instead of wall-clock elapsed time. This is the
// same formulation hls.js/shaka-player use for bandwidth smoothing:
// alpha = 2^(-1/halfLife), and each sample's contribution is
// alpha^weight, so halfLife and weight share units (ms).
type ewma struct {
	halfLifeMs  float64
	alpha       float64
	estimate    float64
	totalWeight float64
}

func newEWMA(halfLifeMs float64) *ewma {
	return &ewma{
		halfLifeMs: halfLifeMs,
		alpha:      math.Exp(math.Log(0.5) / halfLifeMs),
	}
}

func (e *ewma) setHalfLife(halfLifeMs float64) {
	e.halfLifeMs = halfLifeMs
	e.alpha = math.Exp(math.Log(0.5) / halfLifeMs)
}

func (e *ewma) sample(weight, value float64) {
	adjAlpha := math.Pow(e.alpha, weight)
	newEstimate := value*(1-adjAlpha) + adjAlpha*e.estimate
	if math.IsNaN(newEstimate) || math.IsInf(newEstimate, 0) {
		return
	}
	e.estimate = newEstimate
	e.totalWeight += weight
}

// getEstimate returns the bias-corrected estimate: a freshly-seeded
// EWMA would otherwise be dragged toward zero by its own zero
// initial value.
func (e *ewma) getEstimate() float64 {
	if e.totalWeight <= 0 {
		return 0
	}
	zeroFactor := 1 - math.Pow(e.alpha, e.totalWeight)
	if zeroFactor <= 0 {
		return e.estimate
	}
	return e.estimate / zeroFactor
}

// Estimator is the dual fast/slow EWMA bandwidth estimator. Bandwidth
// is tracked in bits/s.
type Estimator struct {
	fast *ewma
	slow *ewma

	defaultEstimate float64
	// minWeight is the cumulative fast-EWMA weight (ms) required
	// before getEstimate trusts the slow average over the default.
	// Typically one sample — left at 0 so the very first
	// sample already qualifies, matching "canEstimate is true iff at
	// least one sample has been applied".
	minWeight float64
}

// New builds an estimator with the given half-lives (seconds, per
// the estimator is constructed with) and default bits/s fallback.
func New(slowHalfLifeS, fastHalfLifeS, defaultEstimate float64) *Estimator {
	return &Estimator{
		fast:            newEWMA(fastHalfLifeS * 1000),
		slow:            newEWMA(slowHalfLifeS * 1000),
		defaultEstimate: defaultEstimate,
	}
}

// Sample folds one (durationMs, bytes) observation into both EWMAs.
// Non-positive durations are rejected silently.
func (e *Estimator) Sample(durationMs, bytes float64) {
	if durationMs <= 0 {
		return
	}
	bandwidth := bytes * 8 * 1000 / durationMs // bits/s
	e.fast.sample(durationMs, bandwidth)
	e.slow.sample(durationMs, bandwidth)
}

// CanEstimate is true iff at least one sample has been applied.
func (e *Estimator) CanEstimate() bool {
	return e.fast.totalWeight > 0
}

// GetEstimate returns the slow EWMA's bits/s estimate once the fast
// EWMA has accumulated enough weight, else the configured default.
func (e *Estimator) GetEstimate() float64 {
	if e.fast.totalWeight >= e.minWeight && e.CanEstimate() {
		return e.slow.getEstimate()
	}
	return e.defaultEstimate
}

// Update adjusts the half-lives (seconds) on a live/VoD profile
// transition without discarding accumulated history.
func (e *Estimator) Update(slowHalfLifeS, fastHalfLifeS float64) {
	e.slow.setHalfLife(slowHalfLifeS * 1000)
	e.fast.setHalfLife(fastHalfLifeS * 1000)
}

// SetDefaultEstimate replaces the fallback used before any sample
// has been applied.
func (e *Estimator) SetDefaultEstimate(v float64) {
	e.defaultEstimate = v
}
