package abandon

import (
	"testing"
	"time"

	"llhlsabr/internal/abr/domain"
)

func testLadder() domain.Ladder {
	return domain.Ladder{
		{Bitrate: 300_000}, {Bitrate: 750_000}, {Bitrate: 1_500_000}, {Bitrate: 3_000_000},
	}
}

var fixedStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCheckNeverAbortsWithAmpleStarvationMargin(t *testing.T) {
	c := New(domain.DefaultConfig(), testLadder())
	c.OnFragLoading(domain.FragLoadingEvent{Frag: &domain.Fragment{
		Level: 3, Duration: 2,
		Stats: &domain.LoaderStats{Loaded: 100_000},
	}}, fixedStart)

	// Buffer has 10s ahead at 1x: bufferStarvationDelay=10s >=
	// 2*duration/rate=4s, so the controller must stay quiet regardless
	// of how slow the partial load looks.
	_, fired := c.Check(fixedStart.Add(3*time.Second), domain.BufferInfo{Len: 10}, 1.0)
	if fired {
		t.Fatalf("Check fired an emergency abort despite a 10s starvation margin")
	}
}

func TestCheckAbortsAndWalksDownWhenStarving(t *testing.T) {
	c := New(domain.DefaultConfig(), testLadder())
	c.OnFragLoading(domain.FragLoadingEvent{Frag: &domain.Fragment{
		Level: 3, Duration: 2,
		Stats: &domain.LoaderStats{Loaded: 100_000},
	}}, fixedStart)

	// 100_000 bytes in 2s => loadRate=400kbps. buffer.Len=0.5s,
	// rate=1 => bufferStarvationDelay=0.5s, well under 2*2/1=4s: at
	// risk. Expected full-fragment bytes at level 3 (3Mbps*2s/8) are
	// far more than loaded so far, and 400kbps can't finish in 0.5s.
	ev, fired := c.Check(fixedStart.Add(2*time.Second), domain.BufferInfo{Len: 0.5}, 1.0)
	if !fired {
		t.Fatalf("Check did not fire an emergency abort under starvation pressure")
	}
	if ev.NextLevel >= 3 {
		t.Fatalf("NextLevel = %d, want a downshift below 3", ev.NextLevel)
	}
	if ev.BWEstimate <= 0 {
		t.Fatalf("BWEstimate = %v, want a positive re-sample", ev.BWEstimate)
	}
}

func TestCheckSkipsBeforeMinimumMonitoringWindow(t *testing.T) {
	c := New(domain.DefaultConfig(), testLadder())
	c.OnFragLoading(domain.FragLoadingEvent{Frag: &domain.Fragment{
		Level: 3, Duration: 2,
		Stats: &domain.LoaderStats{Loaded: 100_000},
	}}, fixedStart)

	// requestDelay=0.9s <= 0.5*duration/rate=1s: too early to trust
	// loadRate, even though the partial load looks slow.
	if _, fired := c.Check(fixedStart.Add(900*time.Millisecond), domain.BufferInfo{Len: 0.5}, 1.0); fired {
		t.Fatalf("Check fired before the minimum monitoring window elapsed")
	}
}

func TestWalkDownAppliesBandwidthSafetyFactor(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.AbrBandWidthFactor = 0.8
	c := New(cfg, domain.Ladder{
		{Bitrate: 500_000}, {Bitrate: 1_000_000}, {Bitrate: 2_000_000},
	})

	// loadRate=1_000_000 bits/s, bufferStarvationDelay=2.4s. Level 1's
	// undiscounted full-fragment load time (1_000_000*2/1_000_000=2s)
	// would clear 2.4s and wrongly look safe; with the 0.8 safety
	// factor applied it becomes 2.5s and no longer clears, so the walk
	// must continue past level 1 down to level 0.
	level, ok := c.walkDown(2, 2, 1_000_000, 2.4)
	if !ok {
		t.Fatalf("walkDown reported no landing rung")
	}
	if level != 0 {
		t.Fatalf("walkDown level = %d, want 0 (level 1 should fail the discounted check)", level)
	}
}

func TestCheckIgnoresInitSegmentsAndBitrateTests(t *testing.T) {
	c := New(domain.DefaultConfig(), testLadder())
	c.OnFragLoading(domain.FragLoadingEvent{Frag: &domain.Fragment{
		SN: domain.InitSegmentSN, Level: 3, Duration: 2,
		Stats: &domain.LoaderStats{Loaded: 1},
	}}, fixedStart)
	if _, fired := c.Check(fixedStart.Add(5*time.Second), domain.BufferInfo{Len: 0}, 1.0); fired {
		t.Fatalf("Check fired an emergency abort on an init segment")
	}

	c.OnFragLoading(domain.FragLoadingEvent{Frag: &domain.Fragment{
		SN: "1", Level: 3, Duration: 2, BitrateTest: true,
		Stats: &domain.LoaderStats{Loaded: 1},
	}}, fixedStart)
	if _, fired := c.Check(fixedStart.Add(5*time.Second), domain.BufferInfo{Len: 0}, 1.0); fired {
		t.Fatalf("Check fired an emergency abort on a bitrate-test fragment")
	}
}

func TestOnFragLoadedDisarms(t *testing.T) {
	c := New(domain.DefaultConfig(), testLadder())
	c.OnFragLoading(domain.FragLoadingEvent{Frag: &domain.Fragment{
		Level: 3, Duration: 2,
		Stats: &domain.LoaderStats{Loaded: 100_000},
	}}, fixedStart)
	c.OnFragLoaded(domain.FragLoadedEvent{})

	if _, fired := c.Check(fixedStart.Add(2*time.Second), domain.BufferInfo{Len: 0.5}, 1.0); fired {
		t.Fatalf("Check fired after the in-flight request already completed")
	}
}
