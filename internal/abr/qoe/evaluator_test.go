package qoe

import "testing"

func TestNewWeights(t *testing.T) {
	info := New(2, 300, 3000)
	w := info.Weights
	if w.BitrateReward != 2 {
		t.Errorf("BitrateReward = %v, want 2", w.BitrateReward)
	}
	if w.BitrateSwitchPenalty != 1 {
		t.Errorf("BitrateSwitchPenalty = %v, want 1", w.BitrateSwitchPenalty)
	}
	if w.RebufferPenalty != 3000 {
		t.Errorf("RebufferPenalty = %v, want 3000", w.RebufferPenalty)
	}
	if w.PlaybackSpeedPenalty != 300 {
		t.Errorf("PlaybackSpeedPenalty = %v, want 300", w.PlaybackSpeedPenalty)
	}
	if len(w.LatencyPenalty) != 2 {
		t.Fatalf("len(LatencyPenalty) = %d, want 2", len(w.LatencyPenalty))
	}
	if w.LatencyPenalty[0].Threshold != 1.1 || w.LatencyPenalty[0].Penalty != 300*0.05 {
		t.Errorf("LatencyPenalty[0] = %+v", w.LatencyPenalty[0])
	}
	if w.LatencyPenalty[1].Penalty != 3000*0.1 {
		t.Errorf("LatencyPenalty[1] = %+v", w.LatencyPenalty[1])
	}
}

func TestLatencyPenaltyBucketSelection(t *testing.T) {
	info := New(2, 300, 3000)
	if got := info.latencyPenalty(0.5); got != 300*0.05 {
		t.Errorf("latencyPenalty(0.5) = %v, want low bucket", got)
	}
	if got := info.latencyPenalty(1.1); got != 300*0.05 {
		t.Errorf("latencyPenalty(1.1) = %v, want low bucket (threshold inclusive)", got)
	}
	if got := info.latencyPenalty(5); got != 3000*0.1 {
		t.Errorf("latencyPenalty(5) = %v, want high bucket", got)
	}
}

func TestTotalQoEMatchesFormula(t *testing.T) {
	info := New(2, 300, 3000)
	got := info.TotalQoE(1500, 500, 0.2, 2.0, 0.9)
	want := 2*1500 - 1*500 - 3000*0.2 - (3000*0.1)*2.0 - 300*0.1
	if got != want {
		t.Errorf("TotalQoE = %v, want %v", got, want)
	}
}

func TestCalculateSingleUseQoeHasNoSwitchPenalty(t *testing.T) {
	info := New(2, 300, 3000)
	got := info.CalculateSingleUseQoe(1500, 0.2, 0.5, 1.0)
	want := info.TotalQoE(1500, 0, 0.2, 0.5, 1.0)
	if got != want {
		t.Errorf("CalculateSingleUseQoe = %v, want %v (matching TotalQoE with zero delta)", got, want)
	}
}
