// Package llama implements the harmonic-mean throughput heuristic
// with hysteresis.
package llama

import (
	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/rules"
)

const (
	ringSize       = 10
	safetyFactor   = 1.0
	warmupFragments = 5 // |frag.sn - sn0| < 5 are ignored
)

// Rule is the stateful Llama decision rule.
type Rule struct {
	reciprocals [ringSize]float64
	count       int
	pos         int

	loadedCount    int
	lastThroughput float64 // bits/s
}

// New constructs an idle Llama rule. It has no ladder-shaped state,
// so unlike LoL+ it takes nothing at creation time.
func New() *Rule {
	return &Rule{}
}

func (r *Rule) Tag() domain.RuleTag { return domain.RuleLlama }

func (r *Rule) OnLevelLoaded(domain.LevelLoadedEvent) {}
func (r *Rule) OnFragLoading(domain.FragLoadingEvent)  {}
func (r *Rule) OnFragParsed(domain.FragParsedEvent)    {}
func (r *Rule) OnError(domain.ErrorEvent)              {}

// OnFragLoaded feeds the fragment's measured throughput into the
// reciprocal ring, ignoring init segments and segments with no usable
// timing.
func (r *Rule) OnFragLoaded(ev domain.FragLoadedEvent) {
	f := ev.Frag
	if f == nil || f.IsInitSegment() || f.Stats == nil {
		return
	}
	stats := f.Stats
	durationS := stats.Parsing.End.Sub(stats.Loading.Start).Seconds()
	if durationS <= 0 || stats.Loaded <= 0 {
		return
	}

	r.loadedCount++

	throughput := float64(stats.Loaded) * 8 / durationS
	r.lastThroughput = throughput
	r.pushReciprocal(1 / throughput)
}

func (r *Rule) pushReciprocal(v float64) {
	r.reciprocals[r.pos] = v
	r.pos = (r.pos + 1) % ringSize
	if r.count < ringSize {
		r.count++
	}
}

func (r *Rule) harmonicMean() float64 {
	if r.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r.count; i++ {
		sum += r.reciprocals[i]
	}
	if sum <= 0 {
		return 0
	}
	return (float64(r.count) / sum) * safetyFactor
}

// NextQuality holds during warmup, switches
// down one rung whenever the last measured throughput can't sustain
// the current rung, switch up one rung when the harmonic mean and the
// last sample both clear the next rung up and the buffer isn't
// starved (the "buffer >= -1" gate is degenerate; see an open
// question (a): it is always true and kept as-is).
func (r *Rule) NextQuality(in rules.Input) int {
	if in.MediaType == domain.FragAudio {
		return in.CurrentQuality
	}
	if len(in.Ladder) == 0 {
		return in.CurrentQuality
	}
	if r.loadedCount == 0 || r.loadedCount-1 < warmupFragments {
		return clamp(in.CurrentQuality, len(in.Ladder))
	}

	current := clamp(in.CurrentQuality, len(in.Ladder))

	if r.lastThroughput < in.Ladder[current].Bitrate {
		if current > 0 {
			current--
		}
		return current
	}

	if current+1 < len(in.Ladder) {
		hm := r.harmonicMean()
		next := in.Ladder[current+1].Bitrate
		if hm > next && r.lastThroughput > next && in.Buffer.Len >= -1 {
			current++
		}
	}

	return current
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
