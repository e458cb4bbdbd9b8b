// Package qoe implements the per-segment Quality-of-Experience scalar
// that every rule engine scores candidate renditions against.
package qoe

// LatencyBucket is one tier of the piecewise-linear latency penalty
// schedule: the first bucket whose Threshold is >= the current
// latency applies.
type LatencyBucket struct {
	Threshold float64
	Penalty   float64
}

// Weights are the per-segment reward/penalty coefficients derived
// from a segment's duration and the ladder's bitrate bounds.
type Weights struct {
	BitrateReward        float64
	BitrateSwitchPenalty float64
	RebufferPenalty      float64
	PlaybackSpeedPenalty float64
	LatencyPenalty       []LatencyBucket
}

// Info is the QoE context for one segment: its weights plus the
// ladder bounds (kbps) needed to synthesize single-use evaluations.
type Info struct {
	Weights Weights
	MinKbps float64
	MaxKbps float64
}

// New builds the QoeInfo for a segment of duration d (seconds) given
// the ladder's [minKbps, maxKbps] bounds.
func New(d, minKbps, maxKbps float64) *Info {
	return &Info{
		Weights: Weights{
			BitrateReward:        d,
			BitrateSwitchPenalty: 1,
			RebufferPenalty:      maxKbps,
			PlaybackSpeedPenalty: minKbps,
			LatencyPenalty: []LatencyBucket{
				{Threshold: 1.1, Penalty: minKbps * 0.05},
				{Threshold: posInf, Penalty: maxKbps * 0.1},
			},
		},
		MinKbps: minKbps,
		MaxKbps: maxKbps,
	}
}

const posInf = 1e308 // avoids importing math solely for a sentinel threshold

// latencyPenalty returns the penalty coefficient for the first bucket
// whose threshold is >= latency.
func (i *Info) latencyPenalty(latency float64) float64 {
	for _, b := range i.Weights.LatencyPenalty {
		if b.Threshold >= latency {
			return b.Penalty
		}
	}
	if len(i.Weights.LatencyPenalty) == 0 {
		return 0
	}
	return i.Weights.LatencyPenalty[len(i.Weights.LatencyPenalty)-1].Penalty
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// TotalQoE computes the full segment reward: bitrate and deltaBitrate
// (the signed change in bitrate since the previous segment) are used
// as given, with no unit conversion against the kbps-derived weights
// (the LoL+ weight selector passes bits/s), rebuffer
// the rebuffer time contributed (seconds), latency the current
// latency (seconds), speed the playback rate.
func (i *Info) TotalQoE(bitrate, deltaBitrate, rebufferTime, latency, speed float64) float64 {
	w := i.Weights
	return w.BitrateReward*bitrate -
		w.BitrateSwitchPenalty*abs(deltaBitrate) -
		w.RebufferPenalty*rebufferTime -
		i.latencyPenalty(latency)*latency -
		w.PlaybackSpeedPenalty*abs(1-speed)
}

// CalculateSingleUseQoe builds a fresh, throwaway evaluation using
// this Info's stored ladder bounds and its segment-duration reward
// weight, but with no bitrate-switch penalty applied (there is no
// "previous" bitrate for a hypothetical candidate). Used by the LoL+
// weight selector and SOM rule to score candidate neurons without
// mutating any rule state.
func (i *Info) CalculateSingleUseQoe(bitrate, rebufferTime, latency, speed float64) float64 {
	return i.TotalQoE(bitrate, 0, rebufferTime, latency, speed)
}
