// Package orchestrator implements the engine's top-level decision state machine:
// it owns the active decision rule, the bandwidth estimator and the
// emergency-abandonment controller, and exposes the single
// nextAutoLevel decision point the rest of the system calls.
package orchestrator

import (
	"time"

	"llhlsabr/internal/abr/abandon"
	"llhlsabr/internal/abr/bwe"
	"llhlsabr/internal/abr/catchup"
	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/rules"
	"llhlsabr/internal/abr/rules/l2a"
	"llhlsabr/internal/abr/rules/llama"
	"llhlsabr/internal/abr/rules/lolp"
	"llhlsabr/internal/abr/rules/stallion"
)

type fragState int

const (
	stateIdle fragState = iota
	stateLoading
	stateAborted
	stateError
)

// Decision is one recorded nextAutoLevel call, kept in Orchestrator's
// bounded History ring.
type Decision struct {
	Quality   int
	Rate      float64
	Rule      domain.RuleTag
	Timestamp time.Time
}

// DecisionInput bundles a rules.Input with the extra context the
// fallback findBestLevel search and the catch-up controller need.
type DecisionInput struct {
	rules.Input

	AvgDuration           float64
	BufferStarvationDelay float64
	Playing               bool
	BitrateTest           bool
}

const defaultHistoryCap = 64

// Orchestrator mediates the BWE, the active rule and the
// emergency-abandonment controller.
type Orchestrator struct {
	cfg    domain.Config
	ladder domain.Ladder

	useBoxSampling bool

	Estimator *bwe.Estimator
	Abandon   *abandon.Controller

	activeTag    domain.RuleTag
	activeRule   rules.Rule
	ruleSwitches int

	nextAutoLevel int // -1 means "not forced"
	currentRate   float64

	lastLoadedFragLevel int
	bitrateTestDelay    float64

	state        fragState
	currentFrag  *domain.Fragment
	currentPart  *domain.Part
	requestStart time.Time

	live bool

	history    []Decision
	historyCap int
}

// New builds an Orchestrator for a validated ladder/config pair.
func New(cfg domain.Config, ladder domain.Ladder) (*Orchestrator, error) {
	if err := cfg.Validate(ladder); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:           cfg,
		ladder:        ladder,
		Estimator:     bwe.New(cfg.AbrEwmaSlowVoD, cfg.AbrEwmaFastVoD, cfg.AbrEwmaDefaultEstimate),
		Abandon:       abandon.New(cfg, ladder),
		nextAutoLevel: -1,
		currentRate:   1.0,
		historyCap:    defaultHistoryCap,
	}, nil
}

// SetBoxSampling toggles box-level BWE sampling mode.
func (o *Orchestrator) SetBoxSampling(v bool) { o.useBoxSampling = v }

// RuleSwitches reports how many times the active rule tag has changed
// since construction, reflecting this codebase's rule teardown
// accounting.
func (o *Orchestrator) RuleSwitches() int { return o.ruleSwitches }

// History returns the bounded ring of past decisions, oldest first.
func (o *Orchestrator) History() []Decision {
	out := make([]Decision, len(o.history))
	copy(out, o.history)
	return out
}

// SetNextAutoLevel forces the next decision's cap; -1 clears it.
func (o *Orchestrator) SetNextAutoLevel(level int) { o.nextAutoLevel = level }

func (o *Orchestrator) ensureRule() {
	tag := o.cfg.ABRRule
	if o.activeRule != nil && o.activeTag == tag {
		return
	}
	if o.activeRule != nil {
		o.activeRule.Teardown()
		o.ruleSwitches++
	}
	o.activeTag = tag
	o.activeRule = newRule(tag, o.cfg)
}

func newRule(tag domain.RuleTag, cfg domain.Config) rules.Rule {
	switch tag {
	case domain.RuleLoLp:
		return lolp.New(cfg)
	case domain.RuleL2A:
		return l2a.New()
	case domain.RuleStallion:
		return stallion.New()
	case domain.RuleLlama:
		return llama.New()
	default:
		return nil
	}
}

// OnLevelLoaded switches the EWMA's live/VoD half-life profile.
func (o *Orchestrator) OnLevelLoaded(ev domain.LevelLoadedEvent) {
	if ev.Live == o.live {
		return
	}
	o.live = ev.Live
	if ev.Live {
		o.Estimator.Update(o.cfg.AbrEwmaSlowLive, o.cfg.AbrEwmaFastLive)
	} else {
		o.Estimator.Update(o.cfg.AbrEwmaSlowVoD, o.cfg.AbrEwmaFastVoD)
	}
	if o.activeRule != nil {
		o.activeRule.OnLevelLoaded(ev)
	}
}

// OnFragLoading arms the abandonment timer and records the in-flight
// fragment, moving from IDLE to LOADING.
func (o *Orchestrator) OnFragLoading(ev domain.FragLoadingEvent, now time.Time) {
	o.state = stateLoading
	o.currentFrag = ev.Frag
	o.currentPart = ev.Part
	o.requestStart = now
	o.Abandon.OnFragLoading(ev, now)
	if o.activeRule != nil {
		o.activeRule.OnFragLoading(ev)
	}
}

// OnFragLoaded clears the abandonment timer, updates
// lastLoadedFragLevel and realBitrate bookkeeping, and synthesizes a
// FRAG_BUFFERED for bitrate-test fragments.
func (o *Orchestrator) OnFragLoaded(ev domain.FragLoadedEvent) {
	o.Abandon.OnFragLoaded(ev)
	if o.activeRule != nil {
		o.activeRule.OnFragLoaded(ev)
	}
	if ev.Frag == nil {
		return
	}
	o.lastLoadedFragLevel = ev.Frag.Level
	if o.cfg.AbrMaxWithRealBitrate && ev.Frag.Stats != nil && ev.Frag.Level >= 0 && ev.Frag.Level < len(o.ladder) {
		o.ladder[ev.Frag.Level].Accumulate(ev.Frag.Stats.Loaded, ev.Frag.Duration)
	}
	if ev.Frag.BitrateTest {
		o.OnFragBuffered(domain.FragBufferedEvent{Frag: ev.Frag, Part: ev.Part})
	}
}

// OnFragBuffered samples the BWE and records bitrateTestDelay.
func (o *Orchestrator) OnFragBuffered(ev domain.FragBufferedEvent) {
	o.Abandon.OnFragBuffered(ev)
	stats := ev.Frag.Stats
	if ev.Part != nil && ev.Part.Stats != nil {
		stats = ev.Part.Stats
	}
	if stats != nil && !stats.Aborted && (ev.Frag == nil || !ev.Frag.IsInitSegment()) {
		durationMs, bytes := bwe.SampleFromStats(stats, o.useBoxSampling)
		o.Estimator.Sample(durationMs, bytes)
		if ev.Frag != nil && ev.Frag.BitrateTest {
			o.bitrateTestDelay = durationMs / 1000
		}
	}
	o.state = stateIdle
	o.currentFrag = nil
	o.currentPart = nil
}

// OnFragParsed forwards to the active rule (L2A's per-segment
// accounting).
func (o *Orchestrator) OnFragParsed(ev domain.FragParsedEvent) {
	if o.activeRule != nil {
		o.activeRule.OnFragParsed(ev)
	}
}

// OnError forwards an error to the abandonment controller and the
// active rule (L2A resets to STARTUP on BUFFER_STALLED_ERROR).
func (o *Orchestrator) OnError(ev domain.ErrorEvent) {
	o.Abandon.OnError(ev)
	if o.activeRule != nil {
		o.activeRule.OnError(ev)
	}
	o.state = stateError
	o.currentFrag = nil
	o.currentPart = nil
}

// CheckAbandonment drives the emergency-abandonment controller's
// periodic check. On an abort it forces nextLoadLevel to the chosen
// rendition and re-samples the BWE from the partial load observed so
// far.
func (o *Orchestrator) CheckAbandonment(now time.Time, buffer domain.BufferInfo, playbackRate float64) (domain.EmergencyAbortEvent, bool) {
	ev, fired := o.Abandon.Check(now, buffer, playbackRate)
	if !fired {
		return ev, false
	}
	o.state = stateAborted
	o.SetNextAutoLevel(ev.NextLevel)
	o.Estimator.Sample(1000, ev.BWEstimate/8)
	o.currentFrag = nil
	o.currentPart = nil
	return ev, true
}

// NextAutoLevel picks the next rendition, applies any forced cap and
// the live catch-up rate, and records the resulting Decision.
func (o *Orchestrator) NextAutoLevel(in DecisionInput, now time.Time) int {
	o.ensureRule()

	var quality int
	if o.activeRule != nil {
		quality = o.activeRule.NextQuality(in.Input)
	} else {
		quality = o.findBestLevel(in)
	}

	if o.nextAutoLevel != -1 && o.Estimator.CanEstimate() {
		if quality > o.nextAutoLevel {
			quality = o.nextAutoLevel
		}
	}

	rate := o.currentRate
	if r, ok := catchup.Rate(
		o.cfg.UseLoLpPlayback, in.Playing,
		in.Latency, in.TargetLatency, in.Buffer.Len,
		o.cfg.LiveCatchupLatencyThreshold, o.cfg.MinDrift, o.cfg.PlaybackBufferMin, o.cfg.LiveCatchupPlaybackRate,
		o.currentRate, o.cfg.IsSafari,
	); ok {
		rate = r
	}
	o.currentRate = rate

	o.record(Decision{Quality: quality, Rate: rate, Rule: o.activeTag, Timestamp: now})
	return quality
}

func (o *Orchestrator) record(d Decision) {
	o.history = append(o.history, d)
	if len(o.history) > o.historyCap {
		o.history = o.history[len(o.history)-o.historyCap:]
	}
}

// findBestLevel is the conservative fallback search used when the
// configured rule tag is unrecognized. A bitrate-test fragment's
// measured delay (if one was observed since the last call) widens the
// starvation tolerance and drops both bandwidth factors to 1 for this
// one decision, then is consumed.
func (o *Orchestrator) findBestLevel(in DecisionInput) int {
	current := in.CurrentQuality
	avgBw := in.Throughput
	ladder := in.Ladder
	if len(ladder) == 0 {
		return 0
	}
	if current < 0 || current >= len(ladder) {
		current = 0
	}
	codecSet := ladder[current].CodecSet

	bwFactor := o.cfg.AbrBandWidthFactor
	bwUpFactor := o.cfg.AbrBandWidthUpFactor
	maxStarvationDelay := o.cfg.MaxStarvationDelay
	if o.bitrateTestDelay > 0 {
		bwFactor = 1
		bwUpFactor = 1
		maxStarvationDelay += o.bitrateTestDelay
		o.bitrateTestDelay = 0
	}

	for i := len(ladder) - 1; i >= 0; i-- {
		if ladder[i].CodecSet != codecSet {
			continue
		}
		factor := bwUpFactor
		if i <= current {
			factor = bwFactor
		}
		adjustedBw := factor * avgBw
		if adjustedBw <= ladder[i].EffectiveMaxBitrate() {
			continue
		}
		if in.Live || in.BitrateTest {
			return i
		}
		budget := ladder[i].EffectiveMaxBitrate() * in.AvgDuration / adjustedBw
		if budget <= in.BufferStarvationDelay+maxStarvationDelay {
			return i
		}
	}
	return 0
}
