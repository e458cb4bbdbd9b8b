// Package domain holds the read-only level ladder, fragment/part
// statistics, buffer state and config surface that the ABR core
// consumes. Nothing in this package performs I/O.
package domain

// LevelDetails carries the live-specific fields a rendition's HLS
// playlist reports. Nil for VoD renditions.
type LevelDetails struct {
	Live                  bool
	AverageTargetDuration float64 // seconds
	PartTarget            float64 // seconds, 0 if parts are not in use
}

// Level is one rung of the rendition ladder. Index 0 is the lowest
// bitrate. Levels are partitioned by CodecSet: a rule may only switch
// between levels sharing the same CodecSet.
type Level struct {
	Bitrate    float64 // advertised bits/s
	MaxBitrate float64 // bits/s, defaults to Bitrate when the playlist doesn't advertise one
	CodecSet   string
	Details    *LevelDetails

	LoadedBytes    int64
	LoadedDuration float64 // seconds
}

// RealBitrate returns the measured bits/s from bytes actually loaded
// for this level, or Bitrate if nothing has been loaded yet.
func (l *Level) RealBitrate() float64 {
	if l.LoadedDuration <= 0 {
		return l.Bitrate
	}
	return float64(l.LoadedBytes) * 8 / l.LoadedDuration
}

// Accumulate folds a fragment's load into the level's running
// (loadedBytes, loadedDuration) accumulator.
func (l *Level) Accumulate(bytes int64, durationS float64) {
	l.LoadedBytes += bytes
	l.LoadedDuration += durationS
}

// IsLive reports whether the level's playlist details mark it live.
func (l *Level) IsLive() bool {
	return l.Details != nil && l.Details.Live
}

// EffectiveMaxBitrate returns MaxBitrate, falling back to Bitrate when
// unset (mirrors playlists that omit BANDWIDTH vs. AVERAGE-BANDWIDTH).
func (l *Level) EffectiveMaxBitrate() float64 {
	if l.MaxBitrate > 0 {
		return l.MaxBitrate
	}
	return l.Bitrate
}

// Ladder is a non-empty, index-0-lowest sequence of renditions.
type Ladder []Level

// BitrateVector returns the bitrates of every rung, in ladder order.
func (l Ladder) BitrateVector() []float64 {
	out := make([]float64, len(l))
	for i := range l {
		out[i] = l[i].Bitrate
	}
	return out
}

// Bounds returns the min and max bitrate in kbps across the ladder.
func (l Ladder) Bounds() (minKbps, maxKbps float64) {
	if len(l) == 0 {
		return 0, 0
	}
	minKbps = l[0].Bitrate / 1000
	maxKbps = l[0].Bitrate / 1000
	for _, lvl := range l {
		kbps := lvl.Bitrate / 1000
		if kbps < minKbps {
			minKbps = kbps
		}
		if kbps > maxKbps {
			maxKbps = kbps
		}
	}
	return minKbps, maxKbps
}

// SameCodecSet reports whether levels i and j may be switched between.
func (l Ladder) SameCodecSet(i, j int) bool {
	if i < 0 || j < 0 || i >= len(l) || j >= len(l) {
		return false
	}
	return l[i].CodecSet == l[j].CodecSet
}
