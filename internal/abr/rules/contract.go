// Package rules defines the shared decision contract every ABR rule
// engine implements, plus the four concrete rules in its
// lolp/l2a/stallion/llama subpackages.
package rules

import "llhlsabr/internal/abr/domain"

// Input is the immutable per-decision context the orchestrator hands
// a rule. It is passed by value on every call rather than via a
// back-pointer to the orchestrator, to avoid a cyclic reference.
type Input struct {
	Ladder         domain.Ladder
	Throughput     float64 // bits/s, current BWE estimate
	Latency        float64 // seconds, current live latency (0 for VoD)
	TargetLatency  float64 // seconds
	Buffer         domain.BufferInfo
	PlaybackRate   float64
	CurrentQuality int
	FragDuration   float64 // seconds, of the fragment about to be requested
	Live           bool
	MediaType      domain.FragType
}

// Rule is the capability record every decision rule implements. Each
// rule package's New constructor creates it lazily on first use, and
// Teardown is called when the active tag changes. The On* hooks
// forward lifecycle events; NextQuality is the hot-path decision call.
type Rule interface {
	Tag() domain.RuleTag

	OnLevelLoaded(ev domain.LevelLoadedEvent)
	OnFragLoading(ev domain.FragLoadingEvent)
	OnFragLoaded(ev domain.FragLoadedEvent)
	OnFragParsed(ev domain.FragParsedEvent)
	OnError(ev domain.ErrorEvent)

	// NextQuality returns the chosen rung index, always in
	// [0, len(in.Ladder)).
	NextQuality(in Input) int

	// Teardown releases any rule-internal resources. Called before a
	// rule is discarded on a tag change.
	Teardown()
}
