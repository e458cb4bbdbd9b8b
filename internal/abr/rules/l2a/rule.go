// Package l2a implements the L2A-LL online-learning/regret-minimization
// rule: a Lagrangian-multiplier-driven simplex search
// over rung probabilities, one independent state machine per media
// type.
package l2a

import (
	"math"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/rules"
	"llhlsabr/internal/abr/rules/shared"
)

type phase int

const (
	phaseOneBitrate phase = iota
	phaseStartup
	phaseSteady
)

const (
	bTarget = 1.5 // seconds
	horizon = 4.0
)

var (
	vl    = math.Pow(horizon, 0.99)
	alpha = math.Max(horizon, vl*math.Sqrt(horizon))
)

const reactFactor = 2.0

// mediaState is the per-FragType state machine this rule drives.
type mediaState struct {
	phase phase

	q     float64
	w     []float64
	prevW []float64

	lastQuality int

	lastSegmentDurationS    float64
	haveLastSegmentDuration bool
	lastThroughputKbps      float64
}

// Rule is the stateful L2A-LL decision rule, keyed per media type.
type Rule struct {
	states map[domain.FragType]*mediaState
}

func New() *Rule {
	return &Rule{states: make(map[domain.FragType]*mediaState)}
}

func (r *Rule) Tag() domain.RuleTag { return domain.RuleL2A }

func (r *Rule) state(t domain.FragType) *mediaState {
	st, ok := r.states[t]
	if !ok {
		st = &mediaState{phase: phaseStartup}
		r.states[t] = st
	}
	return st
}

func (r *Rule) OnLevelLoaded(domain.LevelLoadedEvent) {}
func (r *Rule) OnFragLoading(domain.FragLoadingEvent)  {}

// OnFragLoaded updates the media type's last-measured throughput,
// feeding the STEADY-state regret update.
func (r *Rule) OnFragLoaded(ev domain.FragLoadedEvent) {
	f := ev.Frag
	if f == nil || f.IsInitSegment() || f.Stats == nil {
		return
	}
	durationS := f.Stats.Parsing.End.Sub(f.Stats.Loading.Start).Seconds()
	if durationS <= 0 || f.Stats.Loaded <= 0 {
		return
	}
	st := r.state(f.Type)
	st.lastThroughputKbps = float64(f.Stats.Loaded) * 8 / durationS / 1000
}

// OnFragParsed completes the per-segment accounting L2A needs to
// decide whether to leave STARTUP: a valid lastSegmentDurationS.
func (r *Rule) OnFragParsed(ev domain.FragParsedEvent) {
	f := ev.Frag
	if f == nil || f.Duration <= 0 {
		return
	}
	st := r.state(f.Type)
	st.lastSegmentDurationS = f.Duration
	st.haveLastSegmentDuration = true
}

// OnError resets every tracked media type back to STARTUP on a
// BUFFER_STALLED_ERROR; other error kinds are ignored.
func (r *Rule) OnError(ev domain.ErrorEvent) {
	if ev.Kind != domain.ErrKindBufferStalled {
		return
	}
	for _, st := range r.states {
		st.phase = phaseStartup
		st.haveLastSegmentDuration = false
		st.lastSegmentDurationS = 0
	}
}

// NextQuality runs the Lagrangian simplex search.
func (r *Rule) NextQuality(in rules.Input) int {
	n := len(in.Ladder)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 0
	}

	st := r.state(in.MediaType)

	if st.phase == phaseStartup {
		q := r.runStartup(st, in)
		if st.haveLastSegmentDuration && in.Buffer.Len >= bTarget {
			st.phase = phaseSteady
			st.q = vl
			st.prevW = indicator(st.lastQuality, n)
			st.w = append([]float64(nil), st.prevW...)
		}
		return q
	}

	return r.runSteady(st, in)
}

func (r *Rule) runStartup(st *mediaState, in rules.Input) int {
	if in.Live && math.Abs(in.Latency-in.TargetLatency) >= in.FragDuration {
		return in.CurrentQuality // abstain
	}
	q := shared.GetQualityForBitrate(in.Ladder, in.Throughput/1000, in.Latency, in.TargetLatency, in.FragDuration, in.Live)
	st.lastQuality = q
	return q
}

func (r *Rule) runSteady(st *mediaState, in rules.Input) int {
	n := len(in.Ladder)
	v := st.lastSegmentDurationS
	if v <= 0 {
		v = in.FragDuration
	}
	t := math.Max(1, st.lastThroughputKbps)
	rate := in.PlaybackRate
	if rate <= 0 {
		rate = 1
	}

	bitratesKbps := make([]float64, n)
	for i, lvl := range in.Ladder {
		bitratesKbps[i] = lvl.Bitrate / 1000
	}

	if len(st.prevW) != n {
		st.prevW = indicator(clampIndex(st.lastQuality, n), n)
	}

	newW := make([]float64, n)
	for i, b := range bitratesKbps {
		sign := -1.0
		if rate*b <= t {
			sign = 1.0
		}
		newW[i] = st.prevW[i] + sign*(v/(2*alpha))*(st.q+vl)*(rate*b/t)
	}
	w := ProjectSimplex(newW)

	diff := make([]float64, n)
	for i := range w {
		diff[i] = w[i] - st.prevW[i]
	}
	st.prevW = w
	st.w = w

	bDotW := dot(bitratesKbps, w)
	bDotDiff := dot(bitratesKbps, diff)
	st.q = math.Max(0, st.q-v+v*rate*((bDotW+bDotDiff)/t))

	bw := dot(bitratesKbps, w)
	quality := argminAbsDiff(bitratesKbps, bw)

	if quality > st.lastQuality && st.lastQuality+1 < n && bitratesKbps[st.lastQuality+1] <= t {
		quality = st.lastQuality + 1
	}

	if bitratesKbps[quality] >= t {
		st.q = reactFactor * math.Max(vl, st.q)
	}

	st.lastQuality = quality
	return quality
}

func (r *Rule) Teardown() {}

func indicator(idx, n int) []float64 {
	v := make([]float64, n)
	if idx >= 0 && idx < n {
		v[idx] = 1
	}
	return v
}

func clampIndex(q, n int) int {
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

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func argminAbsDiff(xs []float64, target float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, x := range xs {
		d := math.Abs(x - target)
		if d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	return best
}
