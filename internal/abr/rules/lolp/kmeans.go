package lolp

import (
	"math"
	"math/rand"
)

// seedStates produces k initial 4-axis states by running k-means++
// seeding over synthetic random points spanning [0, maxThroughput] on
// the throughput axis and [0, 1] on the other three, then reorders the
// chosen centers starting from the least-similar one (the center with
// the largest summed distance to every other center) and greedily
// chaining to each remaining center's nearest unvisited neighbor. This
// spreads the ladder's neurons across the state space instead of
// leaving them clustered near their k-means++ draw order.
func seedStates(k int, maxThroughput float64, rng *rand.Rand) []NeuronState {
	if k <= 0 {
		return nil
	}
	const syntheticPoints = 200
	points := make([]NeuronState, syntheticPoints)
	for i := range points {
		points[i] = NeuronState{
			Throughput: rng.Float64() * maxThroughput,
			Latency:    rng.Float64(),
			Rebuffer:   rng.Float64(),
			Switch:     rng.Float64(),
		}
	}

	centers := kmeansPlusPlus(points, k, rng)
	return reorderFromLeastSimilar(centers)
}

func kmeansPlusPlus(points []NeuronState, k int, rng *rand.Rand) []NeuronState {
	centers := make([]NeuronState, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	for len(centers) < k {
		dist2 := make([]float64, len(points))
		var sum float64
		for i, p := range points {
			d := nearestDist2(p, centers)
			dist2[i] = d
			sum += d
		}
		if sum == 0 {
			centers = append(centers, points[rng.Intn(len(points))])
			continue
		}
		target := rng.Float64() * sum
		var running float64
		chosen := len(points) - 1
		for i, d := range dist2 {
			running += d
			if running >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, points[chosen])
	}
	return centers
}

func nearestDist2(p NeuronState, centers []NeuronState) float64 {
	best := math.Inf(1)
	for _, c := range centers {
		d := dist2(p, c)
		if d < best {
			best = d
		}
	}
	return best
}

func dist2(a, b NeuronState) float64 {
	dt := a.Throughput - b.Throughput
	dl := a.Latency - b.Latency
	dr := a.Rebuffer - b.Rebuffer
	ds := a.Switch - b.Switch
	return dt*dt + dl*dl + dr*dr + ds*ds
}

func reorderFromLeastSimilar(centers []NeuronState) []NeuronState {
	n := len(centers)
	if n == 0 {
		return centers
	}

	startIdx := 0
	bestSum := -1.0
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			if i != j {
				sum += math.Sqrt(dist2(centers[i], centers[j]))
			}
		}
		if sum > bestSum {
			bestSum = sum
			startIdx = i
		}
	}

	used := make([]bool, n)
	order := make([]NeuronState, 0, n)
	cur := startIdx
	used[cur] = true
	order = append(order, centers[cur])

	for len(order) < n {
		best := -1
		bestD := math.Inf(1)
		for j := 0; j < n; j++ {
			if used[j] {
				continue
			}
			d := dist2(centers[cur], centers[j])
			if d < bestD {
				bestD = d
				best = j
			}
		}
		used[best] = true
		order = append(order, centers[best])
		cur = best
	}
	return order
}
