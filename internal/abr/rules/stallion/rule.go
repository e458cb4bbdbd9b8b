// Package stallion implements the mean-minus-k-sigma throughput rule
// with a mean-plus-k-sigma latency safety band.
package stallion

import (
	"math"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/rules"
	"llhlsabr/internal/abr/rules/shared"
)

const (
	throughputSampleAmount = 3
	latencySampleAmount    = 4

	throughputKSigma = 1.0
	latencyKSigma     = 1.25
)

// Rule is the stateful Stallion decision rule.
type Rule struct {
	tpWindow  []float64 // bits/s
	latWindow []float64 // seconds
}

func New() *Rule { return &Rule{} }

func (r *Rule) Tag() domain.RuleTag { return domain.RuleStallion }

func (r *Rule) OnLevelLoaded(domain.LevelLoadedEvent) {}
func (r *Rule) OnFragLoading(domain.FragLoadingEvent)  {}
func (r *Rule) OnFragLoaded(domain.FragLoadedEvent)    {}
func (r *Rule) OnFragParsed(domain.FragParsedEvent)    {}
func (r *Rule) OnError(domain.ErrorEvent)              {}

// NextQuality picks the highest rung whose bitrate clears the band. The current sample is always
// pushed into both windows before the safe statistics are computed;
// for VoD streams the just-pushed values are popped back off
// afterward so the rule stays pure per-call (the windows never grow
// past size 0 on a pure VoD path).
func (r *Rule) NextQuality(in rules.Input) int {
	r.tpWindow = shared.PushWindow(r.tpWindow, in.Throughput, throughputSampleAmount)
	r.latWindow = shared.PushWindow(r.latWindow, in.Latency, latencySampleAmount)

	bitrateSafe := shared.Mean(r.tpWindow) - throughputKSigma*shared.Stdev(r.tpWindow)
	latencySafe := shared.Mean(r.latWindow) + latencyKSigma*shared.Stdev(r.latWindow)

	if !in.Live {
		r.tpWindow = shared.PopLast(r.tpWindow)
		r.latWindow = shared.PopLast(r.latWindow)
	}

	if math.Abs(latencySafe-in.TargetLatency) < in.FragDuration && in.Buffer.Len > 0 {
		return shared.GetQualityForBitrate(in.Ladder, bitrateSafe/1000, latencySafe, in.TargetLatency, in.FragDuration, true)
	}
	return clamp(in.CurrentQuality, len(in.Ladder))
}

func (r *Rule) Teardown() {}

func clamp(q, n int) int {
	if n == 0 {
		return 0
	}
	if q < 0 {
		return 0
	}
	if q >= n {
		return n - 1
	}
	return q
}
