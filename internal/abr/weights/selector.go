// Package weights implements the LoL+ weight selector: an exhaustive
// search over a fixed grid of weight vectors that picks the one
// maximizing single-use QoE for the current throughput, buffer and
// latency state, subject to feasibility constraints.
package weights

import (
	"math"

	"llhlsabr/internal/abr/qoe"
)

// axisValues is the per-axis candidate set {0.2, 0.4, 0.6, 0.8, 1.0}.
var axisValues = [5]float64{0.2, 0.4, 0.6, 0.8, 1.0}

// Vector is a (throughput, latency, buffer, switch) weight tuple.
type Vector [4]float64

const (
	axisThroughput = 0
	axisLatency    = 1
	axisBuffer     = 2
	axisSwitch     = 3
)

// Vectors625 is the Cartesian product of axisValues over the 4 axes,
// enumerated exactly once at package init.
var Vectors625 = enumerate()

func enumerate() []Vector {
	out := make([]Vector, 0, 5*5*5*5)
	for _, t := range axisValues {
		for _, l := range axisValues {
			for _, b := range axisValues {
				for _, s := range axisValues {
					out = append(out, Vector{t, l, b, s})
				}
			}
		}
	}
	return out
}

// Candidate is the minimal per-neuron shape the selector needs: a
// rung's bitrate (bits/s) and the SOM neuron's current latency state
// (seconds). Kept independent of the lolp package's Neuron type to
// avoid a selector<->rule import cycle; lolp converts its neurons to
// Candidate before calling FindWeightVector.
type Candidate struct {
	Bitrate float64
	Latency float64
}

// Sentinel is returned by FindWeightVector when no (vector, neuron)
// pair is feasible.
var Sentinel = Vector{-1, -1, -1, -1}

func invert(w float64) float64 {
	if w > 0 {
		return 1 / w
	}
	return 10
}

// FindWeightVector searches all 625 candidate vectors against every
// feasible neuron and returns the vector of the (vector, neuron) pair
// maximizing single-use QoE. d is the segment duration (s),
// throughput the current bandwidth estimate (bits/s), currentBuffer
// the forward buffer (s), targetLatency/deltaLatency/playbackRate the
// live-latency and playback state, bufferMin the minimum tolerable
// buffer. Returns (Sentinel, false) if nothing is feasible.
func FindWeightVector(
	candidates []Candidate,
	d, throughput, currentBuffer, targetLatency, deltaLatency, playbackRate, bufferMin float64,
	qoeInfo *qoe.Info,
) (Vector, bool) {
	if throughput <= 0 || len(candidates) == 0 {
		return Sentinel, false
	}

	best := Sentinel
	bestQoE := math.Inf(-1)
	found := false

	for _, w := range Vectors625 {
		for _, n := range candidates {
			downloadTime := n.Bitrate * d / throughput

			var nextBuffer float64
			if downloadTime <= d {
				nextBuffer = currentBuffer + d - downloadTime
			} else {
				nextBuffer = currentBuffer - d
			}
			rebuffer := math.Max(1e-5, downloadTime-nextBuffer)

			if n.Latency > targetLatency+math.Abs(deltaLatency) || nextBuffer < bufferMin {
				continue
			}

			q := qoeInfo.CalculateSingleUseQoe(
				n.Bitrate,
				invert(w[axisBuffer])*rebuffer,
				invert(w[axisLatency])*n.Latency,
				playbackRate,
			)
			if q > bestQoE {
				bestQoE = q
				best = w
				found = true
			}
		}
	}

	return best, found
}
