// Package lolp implements the LoL+ self-organizing-map rule: one
// neuron per ladder rung, trained online against observed
// (throughput, latency, rebuffer, switch) feedback, with a
// per-decision weight vector chosen by the shared weights package.
package lolp

import (
	"math"
	"math/rand"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/qoe"
	"llhlsabr/internal/abr/rules"
	"llhlsabr/internal/abr/weights"
)

const (
	latencyNormalizationFactor = 100.0
	neighborhoodSigma          = 0.1
	learningRate               = 0.01
	switchPenaltyBitrateGap    = 10_000 // bits/s, the "near current throughput" margin for the switch penalty
)

// weightMode selects how a decision's 4-axis weight vector is chosen.
// DYNAMIC is the production path (an exhaustive weight search);
// MANUAL and RANDOM are the bootstrap/fallback strategies named
// alongside it.
type weightMode int

const (
	weightDynamic weightMode = iota
	weightManual
	weightRandom
)

type mediaState struct {
	neurons     []Neuron
	curWeights  weights.Vector
	haveWeights bool
}

// Rule is the stateful LoL+ SOM decision rule, one independent
// neuron set per media type.
type Rule struct {
	cfg  domain.Config
	mode weightMode
	rng  *rand.Rand

	states map[domain.FragType]*mediaState
}

// New builds a LoL+ rule in its production DYNAMIC weight mode.
func New(cfg domain.Config) *Rule {
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &Rule{
		cfg:    cfg,
		mode:   weightDynamic,
		rng:    rand.New(rand.NewSource(seed)),
		states: make(map[domain.FragType]*mediaState),
	}
}

func (r *Rule) Tag() domain.RuleTag { return domain.RuleLoLp }

func (r *Rule) OnLevelLoaded(domain.LevelLoadedEvent)  {}
func (r *Rule) OnFragLoading(domain.FragLoadingEvent)  {}
func (r *Rule) OnFragLoaded(domain.FragLoadedEvent)    {}
func (r *Rule) OnFragParsed(domain.FragParsedEvent)    {}
func (r *Rule) OnError(domain.ErrorEvent)              {}
func (r *Rule) Teardown()                              {}

func (r *Rule) state(t domain.FragType, ladder domain.Ladder) *mediaState {
	st, ok := r.states[t]
	if ok && len(st.neurons) == len(ladder) {
		return st
	}
	st = &mediaState{neurons: r.buildNeurons(ladder)}
	r.states[t] = st
	return st
}

func (r *Rule) buildNeurons(ladder domain.Ladder) []Neuron {
	n := len(ladder)
	neurons := make([]Neuron, n)
	norm := bitrateNorm(ladder)
	maxThroughput := 0.0
	for _, lvl := range ladder {
		if lvl.Bitrate > maxThroughput {
			maxThroughput = lvl.Bitrate
		}
	}

	seeded := seedStates(n, maxThroughput, r.rng)
	for i, lvl := range ladder {
		st := NeuronState{}
		if i < len(seeded) {
			st = seeded[i]
		}
		if norm > 0 {
			st.Throughput = lvl.Bitrate / norm
		}
		neurons[i] = Neuron{QualityIndex: i, Bitrate: lvl.Bitrate, State: st}
	}
	return neurons
}

func bitrateNorm(ladder domain.Ladder) float64 {
	var sumSq float64
	for _, lvl := range ladder {
		sumSq += lvl.Bitrate * lvl.Bitrate
	}
	return math.Sqrt(sumSq)
}

// NextQuality picks the winning neuron and trains the SOM online.
func (r *Rule) NextQuality(in rules.Input) int {
	n := len(in.Ladder)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 0
	}

	st := r.state(in.MediaType, in.Ladder)
	norm := bitrateNorm(in.Ladder)
	if norm == 0 {
		return clampQuality(in.CurrentQuality, n)
	}

	throughput := in.Throughput
	throughputNorm := throughput / norm
	if throughputNorm > 1 {
		maxBitrate := 0.0
		for _, lvl := range in.Ladder {
			if lvl.Bitrate > maxBitrate {
				maxBitrate = lvl.Bitrate
			}
		}
		throughput = maxBitrate
		throughputNorm = throughput / norm
	}

	cur := clampQuality(in.CurrentQuality, n)
	curNeuron := &st.neurons[cur]
	curDownloadTime := curNeuron.Bitrate * in.FragDuration / throughput
	curNextBuffer := nextBuffer(in.Buffer.Len, in.FragDuration, curDownloadTime)
	if curNextBuffer < r.cfg.MaxBufferHole {
		if down := highestBelowThroughput(st.neurons, cur, throughput); down >= 0 {
			r.trainCurrent(st, down, in, throughputNorm)
			return down
		}
	}

	minBitrate := math.Inf(1)
	for _, nb := range st.neurons {
		if nb.Bitrate < minBitrate {
			minBitrate = nb.Bitrate
		}
	}

	w := r.chooseWeights(st, in, throughput, throughputNorm, n)

	target := NeuronState{Throughput: throughputNorm}
	winner := 0
	bestDist := math.Inf(1)
	for i, nb := range st.neurons {
		downloadTime := nb.Bitrate * in.FragDuration / throughput
		nbNextBuffer := nextBuffer(in.Buffer.Len, in.FragDuration, downloadTime)

		axisWeights := w
		if nb.Bitrate > minBitrate && (nb.Bitrate > throughput-switchPenaltyBitrateGap || nbNextBuffer < r.cfg.MaxBufferHole) {
			axisWeights[0] = 100
		}

		var sum float64
		sum += axisWeights[0] * sq(nb.State.Throughput-target.Throughput)
		sum += axisWeights[1] * sq(nb.State.Latency-target.Latency)
		sum += axisWeights[2] * sq(nb.State.Rebuffer-target.Rebuffer)
		sum += axisWeights[3] * sq(nb.State.Switch-target.Switch)

		sign := 1.0
		if sum < 0 {
			sign = -1.0
		}
		dist := sign * math.Sqrt(math.Abs(sum))
		if dist < bestDist {
			bestDist = dist
			winner = i
		}
	}

	r.train(st, winner, in, throughputNorm)
	return st.neurons[winner].QualityIndex
}

// chooseWeights runs the selected weight strategy, falling back to the
// last known-good weight vector (or flat MANUAL weights on the very
// first decision) whenever DYNAMIC search finds nothing feasible.
func (r *Rule) chooseWeights(st *mediaState, in rules.Input, throughput, throughputNorm float64, n int) weights.Vector {
	switch r.mode {
	case weightManual:
		return weights.Vector{0.4, 0.4, 0.4, 0.4}
	case weightRandom:
		return r.xavier(n)
	default:
		candidates := make([]weights.Candidate, n)
		for i, nb := range st.neurons {
			candidates[i] = weights.Candidate{Bitrate: nb.Bitrate, Latency: nb.State.Latency * latencyNormalizationFactor}
		}
		minKbps, maxKbps := in.Ladder.Bounds()
		info := qoe.New(in.FragDuration, minKbps, maxKbps)
		deltaLatency := in.Latency - in.TargetLatency
		v, ok := weights.FindWeightVector(candidates, in.FragDuration, throughput, in.Buffer.Len, in.TargetLatency, deltaLatency, in.PlaybackRate, r.cfg.MaxBufferHole, info)
		if ok {
			st.curWeights = v
			st.haveWeights = true
			return v
		}
		if st.haveWeights {
			return st.curWeights
		}
		return weights.Vector{0.4, 0.4, 0.4, 0.4}
	}
}

// xavier draws a weight vector uniformly from [0, sqrt(2/n)] per axis,
// the bootstrap strategy this rule calls RANDOM mode.
func (r *Rule) xavier(n int) weights.Vector {
	bound := math.Sqrt(2 / float64(n))
	var v weights.Vector
	for i := range v {
		v[i] = r.rng.Float64() * bound
	}
	return v
}

// train updates the winner's topological neighborhood toward the
// synthetic (throughputNorm, 0, 0, 0) target, and separately lets the
// currently-playing rung's neuron learn the fully observed feedback.
func (r *Rule) train(st *mediaState, winner int, in rules.Input, throughputNorm float64) {
	r.trainCurrent(st, clampQuality(in.CurrentQuality, len(st.neurons)), in, throughputNorm)

	target := NeuronState{Throughput: throughputNorm}
	for i := range st.neurons {
		d := float64(i - winner)
		h := math.Exp(-(d * d) / (2 * neighborhoodSigma * neighborhoodSigma))
		for axis := 0; axis < 4; axis++ {
			cur := st.neurons[i].State.axis(axis)
			st.neurons[i].State.setAxis(axis, cur+learningRate*h*(target.axis(axis)-cur))
		}
	}
}

// trainCurrent updates the currently-playing rung's neuron toward the
// fully observed feedback: the switch indicator of having picked
// `chosen` and the latency this decision's context carries; the
// rebuffer axis is always trained toward 0.
func (r *Rule) trainCurrent(st *mediaState, chosen int, in rules.Input, throughputNorm float64) {
	cur := clampQuality(in.CurrentQuality, len(st.neurons))
	sw := 0.0
	if chosen != cur {
		sw = 1.0
	}
	observed := NeuronState{
		Throughput: throughputNorm,
		Latency:    in.Latency / latencyNormalizationFactor,
		Rebuffer:   0,
		Switch:     sw,
	}
	n := &st.neurons[cur]
	for axis := 0; axis < 4; axis++ {
		c := n.State.axis(axis)
		n.State.setAxis(axis, c+learningRate*(observed.axis(axis)-c))
	}
}

func highestBelowThroughput(neurons []Neuron, below int, throughput float64) int {
	best := -1
	for i := 0; i < below; i++ {
		if neurons[i].Bitrate < throughput {
			if best == -1 || neurons[i].Bitrate > neurons[best].Bitrate {
				best = i
			}
		}
	}
	return best
}

func nextBuffer(currentBuffer, d, downloadTime float64) float64 {
	if downloadTime <= d {
		return currentBuffer + d - downloadTime
	}
	return currentBuffer - d
}

func sq(v float64) float64 { return v * v }

func clampQuality(q, n int) int {
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
