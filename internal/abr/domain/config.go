package domain

import (
	"errors"
	"fmt"
)

// RuleTag selects which decision rule the orchestrator instantiates.
// An unrecognized tag falls back to the orchestrator's conservative
// findBestLevel search.
type RuleTag string

const (
	RuleLoLp     RuleTag = "LoLp"
	RuleL2A      RuleTag = "L2ARule"
	RuleLlama    RuleTag = "Llama"
	RuleStallion RuleTag = "StallionRule"
)

// Known reports whether the tag names one of the four implemented
// rules.
func (t RuleTag) Known() bool {
	switch t {
	case RuleLoLp, RuleL2A, RuleLlama, RuleStallion:
		return true
	}
	return false
}

// Config is the read-only surface every rule and the orchestrator are
// built from.
type Config struct {
	ABRRule RuleTag

	AbrEwmaSlowVoD         float64 // seconds
	AbrEwmaFastVoD         float64
	AbrEwmaSlowLive        float64
	AbrEwmaFastLive        float64
	AbrEwmaDefaultEstimate float64 // bits/s

	AbrBandWidthFactor      float64 // ~0.8
	AbrBandWidthUpFactor    float64 // ~0.7
	AbrMaxWithRealBitrate   bool

	MaxBufferHole     float64 // seconds
	MaxStarvationDelay float64 // seconds
	MaxLoadingDelay    float64 // seconds

	// Seed makes the k-means++ seeding (LoL+) and Xavier weight draw
	// (LoL+ RANDOM mode) reproducible. Zero means "use a fixed
	// deterministic default", never a nondeterministic source.
	Seed int64

	// Catch-up controller.
	UseLoLpPlayback            bool
	LiveCatchupLatencyThreshold float64 // seconds, 60
	MinDrift                    float64 // seconds, 0.05
	PlaybackBufferMin           float64 // seconds, 0.5
	LiveCatchupPlaybackRate     float64 // cpr, 0.3
	IsSafari                    bool    // selects the 0.25 suppression threshold over 0.02
}

// DefaultConfig returns the conservative defaults this engine implies
// (factors and half-lives match the hls.js-lineage values this engine
// is modeled on).
func DefaultConfig() Config {
	return Config{
		ABRRule:                RuleLoLp,
		AbrEwmaSlowVoD:         15,
		AbrEwmaFastVoD:         4,
		AbrEwmaSlowLive:        9,
		AbrEwmaFastLive:        3,
		AbrEwmaDefaultEstimate: 500_000,
		AbrBandWidthFactor:     0.8,
		AbrBandWidthUpFactor:   0.7,
		AbrMaxWithRealBitrate:  false,
		MaxBufferHole:          0.5,
		MaxStarvationDelay:     4,
		MaxLoadingDelay:        4,
		Seed:                   1,

		UseLoLpPlayback:             true,
		LiveCatchupLatencyThreshold: 60,
		MinDrift:                    0.05,
		PlaybackBufferMin:           0.5,
		LiveCatchupPlaybackRate:     0.3,
	}
}

// Validate rejects configuration that would make the EWMA or rule
// math degenerate, the same way a settings document is checked before
// it reaches a running engine.
func (c Config) Validate(ladder Ladder) error {
	if len(ladder) == 0 {
		return errors.New("domain: ladder must not be empty")
	}
	first := ladder[0].CodecSet
	for i, lvl := range ladder {
		if lvl.CodecSet != first {
			return fmt.Errorf("domain: ladder is not codec-set partitioned: level %d has codecSet %q, want %q", i, lvl.CodecSet, first)
		}
		if lvl.Bitrate <= 0 {
			return fmt.Errorf("domain: level %d has non-positive bitrate", i)
		}
	}
	if c.AbrEwmaSlowVoD <= 0 || c.AbrEwmaFastVoD <= 0 || c.AbrEwmaSlowLive <= 0 || c.AbrEwmaFastLive <= 0 {
		return errors.New("domain: EWMA half-lives must be positive")
	}
	if c.AbrEwmaDefaultEstimate <= 0 {
		return errors.New("domain: default bandwidth estimate must be positive")
	}
	if c.MaxBufferHole < 0 || c.MaxStarvationDelay < 0 || c.MaxLoadingDelay < 0 {
		return errors.New("domain: delay/hole tolerances must be non-negative")
	}
	return nil
}
