package lolp

import (
	"testing"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/rules"
)

func testLadder() domain.Ladder {
	return domain.Ladder{
		{Bitrate: 300_000}, {Bitrate: 750_000}, {Bitrate: 1_500_000}, {Bitrate: 3_000_000},
	}
}

func TestNewBuildsOneNeuronPerRung(t *testing.T) {
	r := New(domain.DefaultConfig())
	ladder := testLadder()
	st := r.state(domain.FragMain, ladder)
	if len(st.neurons) != len(ladder) {
		t.Fatalf("neuron count = %d, want %d", len(st.neurons), len(ladder))
	}
	for i, n := range st.neurons {
		if n.QualityIndex != i {
			t.Fatalf("neuron %d has QualityIndex %d", i, n.QualityIndex)
		}
		if n.Bitrate != ladder[i].Bitrate {
			t.Fatalf("neuron %d bitrate = %v, want %v", i, n.Bitrate, ladder[i].Bitrate)
		}
	}
}

func TestNextQualityStaysInRange(t *testing.T) {
	r := New(domain.DefaultConfig())
	ladder := testLadder()
	in := rules.Input{
		Ladder:         ladder,
		Throughput:     2_000_000,
		Buffer:         domain.BufferInfo{Len: 6},
		FragDuration:   2,
		CurrentQuality: 1,
		MediaType:      domain.FragMain,
	}
	for i := 0; i < 20; i++ {
		q := r.NextQuality(in)
		if q < 0 || q >= len(ladder) {
			t.Fatalf("NextQuality out of range: %d", q)
		}
		in.CurrentQuality = q
	}
}

func TestNextQualityDownshiftsWhenBufferWouldUnderflow(t *testing.T) {
	r := New(domain.DefaultConfig())
	ladder := testLadder()
	in := rules.Input{
		Ladder:         ladder,
		Throughput:     500_000,
		Buffer:         domain.BufferInfo{Len: 0.1},
		FragDuration:   6,
		CurrentQuality: 3,
		MediaType:      domain.FragMain,
	}
	q := r.NextQuality(in)
	if q >= 3 {
		t.Fatalf("NextQuality under starvation pressure = %d, want a downshift below 3", q)
	}
}

func TestOneRungLadderAlwaysZero(t *testing.T) {
	r := New(domain.DefaultConfig())
	ladder := domain.Ladder{{Bitrate: 1_000_000}}
	got := r.NextQuality(rules.Input{Ladder: ladder, CurrentQuality: 0, MediaType: domain.FragMain})
	if got != 0 {
		t.Fatalf("NextQuality on 1-rung ladder = %d, want 0", got)
	}
}

func TestManualWeightModeIsFlat(t *testing.T) {
	r := New(domain.DefaultConfig())
	r.mode = weightManual
	ladder := testLadder()
	st := r.state(domain.FragMain, ladder)
	got := r.chooseWeights(st, rules.Input{Ladder: ladder, FragDuration: 2}, 1_000_000, 0.5, len(ladder))
	want := [4]float64{0.4, 0.4, 0.4, 0.4}
	if got != want {
		t.Fatalf("MANUAL weights = %v, want %v", got, want)
	}
}

func TestRandomWeightModeIsReproducibleWithSeed(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Seed = 42
	r1 := New(cfg)
	r1.mode = weightRandom
	r2 := New(cfg)
	r2.mode = weightRandom

	ladder := testLadder()
	st1 := r1.state(domain.FragMain, ladder)
	st2 := r2.state(domain.FragMain, ladder)

	w1 := r1.chooseWeights(st1, rules.Input{Ladder: ladder}, 1, 0.5, len(ladder))
	w2 := r2.chooseWeights(st2, rules.Input{Ladder: ladder}, 1, 0.5, len(ladder))
	if w1 != w2 {
		t.Fatalf("same-seed RANDOM weight draws diverged: %v vs %v", w1, w2)
	}
}
