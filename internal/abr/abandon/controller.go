// Package abandon implements the emergency download-abandonment
// controller: a load in progress that is projected to finish after
// the buffer starves gets aborted in favor of a lower rung, using
// only the bytes already observed.
//
// The core has no timers of its own (a single-threaded, cooperative
// concurrency model with no goroutines): Check runs only when the
// host calls the orchestrator's CheckAbandonment on its own poll
// cadence while a fragment is in flight; neither package arms a
// time.Timer.
package abandon

import (
	"math"
	"time"

	"llhlsabr/internal/abr/domain"
)

// starvationMargin is the ratio of projected-starvation time to
// fragment duration at or above which the controller considers itself
// "not yet at risk" and never aborts.
const starvationMargin = 2.0

type inFlight struct {
	frag         *domain.Fragment
	part         *domain.Part
	requestStart time.Time
}

// Controller tracks the single fragment (or part) request in flight
// and decides whether to abandon it.
type Controller struct {
	cfg    domain.Config
	ladder domain.Ladder

	current *inFlight
}

func New(cfg domain.Config, ladder domain.Ladder) *Controller {
	return &Controller{cfg: cfg, ladder: ladder}
}

// OnFragLoading arms the controller against a newly started request.
func (c *Controller) OnFragLoading(ev domain.FragLoadingEvent, now time.Time) {
	c.current = &inFlight{frag: ev.Frag, part: ev.Part, requestStart: now}
}

// OnFragLoaded, OnFragBuffered and OnError all retire whatever request
// was in flight: there's nothing left to abandon.
func (c *Controller) OnFragLoaded(domain.FragLoadedEvent)     { c.current = nil }
func (c *Controller) OnFragBuffered(domain.FragBufferedEvent) { c.current = nil }
func (c *Controller) OnError(domain.ErrorEvent)               { c.current = nil }

// Check evaluates the in-flight request against the current buffer
// and playback state. It returns (event, true) when the load should
// be aborted and the orchestrator should force a switch to
// event.NextLevel; otherwise (zero, false).
func (c *Controller) Check(now time.Time, buffer domain.BufferInfo, playbackRate float64) (domain.EmergencyAbortEvent, bool) {
	if c.current == nil || c.current.frag == nil {
		return domain.EmergencyAbortEvent{}, false
	}
	frag := c.current.frag
	if frag.IsInitSegment() || frag.BitrateTest {
		return domain.EmergencyAbortEvent{}, false
	}

	stats := partStatsOr(c.current.part, frag)
	if stats == nil {
		return domain.EmergencyAbortEvent{}, false
	}

	rate := playbackRate
	if rate <= 0 {
		rate = 1
	}

	requestDelay := now.Sub(c.current.requestStart).Seconds()
	if requestDelay <= 0.5*frag.Duration/rate || stats.Loaded <= 0 {
		return domain.EmergencyAbortEvent{}, false
	}

	loadRate := float64(stats.Loaded) * 8 / requestDelay // bits/s
	if stats.BWEstimate != nil && *stats.BWEstimate > 0 {
		loadRate = *stats.BWEstimate
	}
	if loadRate <= 0 {
		return domain.EmergencyAbortEvent{}, false
	}

	expectedLen := expectedBytes(stats, frag, c.ladder)
	remaining := expectedLen - float64(stats.Loaded)
	if remaining <= 0 {
		return domain.EmergencyAbortEvent{}, false
	}

	fragLoadedDelay := remaining * 8 / loadRate
	bufferStarvationDelay := buffer.Len / rate

	if bufferStarvationDelay >= starvationMargin*frag.Duration/rate {
		return domain.EmergencyAbortEvent{}, false
	}
	if fragLoadedDelay <= bufferStarvationDelay {
		return domain.EmergencyAbortEvent{}, false
	}

	nextLevel, ok := c.walkDown(frag.Level, frag.Duration, loadRate, bufferStarvationDelay)
	if !ok {
		return domain.EmergencyAbortEvent{}, false
	}

	c.current = nil
	return domain.EmergencyAbortEvent{Frag: frag, NextLevel: nextLevel, BWEstimate: loadRate}, true
}

// walkDown searches strictly-lower rungs, from the current level down
// to 0, for the highest one whose full fragment would finish
// downloading (at the observed loadRate, discounted by the same
// bandwidth safety factor an ordinary findBestLevel decision would
// apply) before the buffer starves. If none would, it settles for
// level 0 as the last resort.
func (c *Controller) walkDown(currentLevel int, fragDuration, loadRate, bufferStarvationDelay float64) (int, bool) {
	if currentLevel <= 0 || currentLevel >= len(c.ladder) {
		return 0, false
	}
	factor := c.cfg.AbrBandWidthFactor
	if factor <= 0 {
		factor = 1
	}
	for l := currentLevel - 1; l >= 0; l-- {
		nextDelay := c.ladder[l].EffectiveMaxBitrate() * fragDuration / (factor * loadRate)
		if nextDelay <= bufferStarvationDelay {
			return l, true
		}
	}
	return 0, true
}

func expectedBytes(stats *domain.LoaderStats, frag *domain.Fragment, ladder domain.Ladder) float64 {
	if stats.Total != nil {
		return float64(*stats.Total)
	}
	floor := float64(stats.Loaded)
	if frag.Level >= 0 && frag.Level < len(ladder) {
		fromBitrate := math.Ceil(ladder[frag.Level].EffectiveMaxBitrate() * frag.Duration / 8)
		if fromBitrate > floor {
			floor = fromBitrate
		}
	}
	return floor
}

func partStatsOr(p *domain.Part, frag *domain.Fragment) *domain.LoaderStats {
	if p != nil && p.Stats != nil {
		return p.Stats
	}
	return frag.Stats
}
