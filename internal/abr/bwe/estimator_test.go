package bwe

import (
	"math"
	"testing"
	"time"

	"llhlsabr/internal/abr/domain"
)

func TestEstimatorRejectsNonPositiveDuration(t *testing.T) {
	e := New(15, 4, 500_000)
	e.Sample(0, 1000)
	e.Sample(-5, 1000)
	if e.CanEstimate() {
		t.Fatalf("CanEstimate() = true after only non-positive-duration samples")
	}
	if got := e.GetEstimate(); got != 500_000 {
		t.Fatalf("GetEstimate() = %v, want default 500000", got)
	}
}

func TestEstimatorCanEstimateAfterOneSample(t *testing.T) {
	e := New(15, 4, 500_000)
	e.Sample(1000, 125_000) // 125,000 bytes over 1s => 1,000,000 bit/s
	if !e.CanEstimate() {
		t.Fatalf("CanEstimate() = false after one sample")
	}
}

func TestEstimatorConvergesForStationaryStream(t *testing.T) {
	e := New(5, 2, 500_000)
	const targetBitrate = 2_000_000.0
	bytesPerSample := targetBitrate / 8 // 1 second samples
	for i := 0; i < 200; i++ {
		e.Sample(1000, bytesPerSample)
	}
	got := e.GetEstimate()
	if math.Abs(got-targetBitrate)/targetBitrate > 0.01 {
		t.Fatalf("GetEstimate() = %v, want within 1%% of %v", got, targetBitrate)
	}
}

func TestEstimatorIdempotentOnZeroDurationSamples(t *testing.T) {
	e := New(15, 4, 500_000)
	e.Sample(1000, 125_000)
	before := e.GetEstimate()
	for i := 0; i < 5; i++ {
		e.Sample(0, 999_999)
	}
	after := e.GetEstimate()
	if before != after {
		t.Fatalf("zero-duration samples changed estimate: %v -> %v", before, after)
	}
}

func TestEstimatorUpdatePreservesHistory(t *testing.T) {
	e := New(15, 4, 500_000)
	e.Sample(1000, 125_000)
	before := e.GetEstimate()
	e.Update(9, 3) // live profile half-lives
	after := e.GetEstimate()
	// Switching half-lives re-weights but must not reset to the default.
	if after == 500_000 {
		t.Fatalf("Update() discarded accumulated history")
	}
	_ = before
}

func TestSampleFromStatsFallsBackWithoutBoxData(t *testing.T) {
	start := time.Now()
	stats := &domain.LoaderStats{
		Loading: domain.TimeRange{Start: start, End: start.Add(2 * time.Second)},
		Parsing: domain.EndOnly{End: start.Add(2100 * time.Millisecond)},
		Loaded:  300_000,
	}
	ms, bytes := SampleFromStats(stats, true)
	if ms <= 0 || bytes != 300_000 {
		t.Fatalf("SampleFromStats fallback = (%v, %v), want (>0, 300000)", ms, bytes)
	}
}

func TestSampleFromStatsBoxLevel(t *testing.T) {
	start := time.Now()
	stats := &domain.LoaderStats{
		Loading: domain.TimeRange{Start: start, End: start.Add(2 * time.Second)},
		Parsing: domain.EndOnly{End: start.Add(2100 * time.Millisecond)},
		Loaded:  300_000,
		BoxLoaded: 290_000,
		StartTimeData: []domain.TimestampLen{
			{Timestamp: start, Len: 1000},
			{Timestamp: start.Add(500 * time.Millisecond), Len: 90_000},
			{Timestamp: start.Add(1500 * time.Millisecond), Len: 90_000},
			{Timestamp: start.Add(1900 * time.Millisecond), Len: 1000},
		},
		EndTimeData: []domain.TimestampLen{
			{Timestamp: start.Add(100 * time.Millisecond), Len: 1000},
			{Timestamp: start.Add(700 * time.Millisecond), Len: 90_000},
			{Timestamp: start.Add(1700 * time.Millisecond), Len: 90_000},
			{Timestamp: start.Add(2000 * time.Millisecond), Len: 1000},
		},
	}
	ms, bytes := SampleFromStats(stats, true)
	wantMs := stats.EndTimeData[2].Timestamp.Sub(stats.StartTimeData[1].Timestamp).Seconds() * 1000
	wantBytes := float64(stats.BoxLoaded - stats.EndTimeData[2].Len)
	if ms != wantMs || bytes != wantBytes {
		t.Fatalf("SampleFromStats box = (%v, %v), want (%v, %v)", ms, bytes, wantMs, wantBytes)
	}
}

func TestSampleFromStatsBoxLevelFallsBackWhenTrimmedEmpty(t *testing.T) {
	start := time.Now()
	stats := &domain.LoaderStats{
		Loading:       domain.TimeRange{Start: start, End: start.Add(time.Second)},
		Parsing:       domain.EndOnly{End: start.Add(1100 * time.Millisecond)},
		Loaded:        50_000,
		StartTimeData: []domain.TimestampLen{{Timestamp: start, Len: 50_000}},
		EndTimeData:   []domain.TimestampLen{{Timestamp: start.Add(time.Second), Len: 50_000}},
	}
	ms, bytes := SampleFromStats(stats, true)
	if bytes != 50_000 || ms <= 0 {
		t.Fatalf("SampleFromStats = (%v, %v), want fallback to (>0, 50000)", ms, bytes)
	}
}
