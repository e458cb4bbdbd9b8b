package stallion

import (
	"testing"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/rules"
	"llhlsabr/internal/abr/rules/shared"
)

func testLadder() domain.Ladder {
	return domain.Ladder{
		{Bitrate: 300_000}, {Bitrate: 750_000}, {Bitrate: 1_500_000}, {Bitrate: 3_000_000},
	}
}

func TestStallionZeroVarianceDegeneratesToGetQualityForBitrate(t *testing.T) {
	r := New()
	ladder := testLadder()

	in := rules.Input{
		Ladder:        ladder,
		Throughput:    2_000_000,
		Latency:       1.0,
		TargetLatency: 1.0,
		FragDuration:  2,
		Live:          true,
		Buffer:        domain.BufferInfo{Len: 4},
	}

	// Feed identical samples so every window has zero variance.
	var got int
	for i := 0; i < throughputSampleAmount; i++ {
		got = r.NextQuality(in)
	}

	want := shared.GetQualityForBitrate(ladder, 2000, 1.0, 1.0, 2, true)
	if got != want {
		t.Fatalf("NextQuality (zero variance) = %d, want %d", got, want)
	}
}

func TestStallionVoDWindowsDoNotGrow(t *testing.T) {
	r := New()
	ladder := testLadder()
	in := rules.Input{
		Ladder:        ladder,
		Throughput:    1_000_000,
		Latency:       0,
		TargetLatency: 0,
		FragDuration:  2,
		Live:          false,
		Buffer:        domain.BufferInfo{Len: 4},
	}
	for i := 0; i < 5; i++ {
		r.NextQuality(in)
	}
	if len(r.tpWindow) != 0 || len(r.latWindow) != 0 {
		t.Fatalf("VoD windows grew: tp=%d lat=%d, want 0/0", len(r.tpWindow), len(r.latWindow))
	}
}

func TestStallionHoldsWhenLatencyUnsafeOrBufferEmpty(t *testing.T) {
	r := New()
	ladder := testLadder()
	in := rules.Input{
		Ladder:         ladder,
		Throughput:     3_000_000,
		Latency:        10,
		TargetLatency:  1.0,
		FragDuration:   2,
		Live:           true,
		Buffer:         domain.BufferInfo{Len: 4},
		CurrentQuality: 1,
	}
	got := r.NextQuality(in)
	if got != 1 {
		t.Fatalf("NextQuality with unsafe latency = %d, want hold at 1", got)
	}

	r = New()
	in.Latency = 1.0
	in.Buffer = domain.BufferInfo{Len: 0}
	got = r.NextQuality(in)
	if got != 1 {
		t.Fatalf("NextQuality with empty buffer = %d, want hold at 1", got)
	}
}
