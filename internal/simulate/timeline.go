// Package simulate replays a fixture timeline of fragment loads
// through the orchestrator, producing the same decision history a
// live player session would, without a real media pipeline. It backs
// the abrsim command's /simulate endpoint.
package simulate

import (
	"encoding/json"
	"fmt"
	"os"

	"llhlsabr/internal/abr/domain"
)

// LevelSpec is a JSON-friendly ladder rung.
type LevelSpec struct {
	Bitrate  float64 `json:"bitrate"`
	CodecSet string  `json:"codecSet"`
}

// FragmentSpec is one step of a replayed session: a fragment request
// and the playback context at the moment it completes.
type FragmentSpec struct {
	SN       string  `json:"sn"`
	Duration float64 `json:"duration"` // seconds
	Bytes    int64   `json:"bytes"`
	LoadMs   float64 `json:"loadMs"`

	BufferLen     float64 `json:"bufferLen"`
	BufferEnd     float64 `json:"bufferEnd"`
	Latency       float64 `json:"latency"`
	TargetLatency float64 `json:"targetLatency"`
	PlaybackRate  float64 `json:"playbackRate"`
	Playing       bool    `json:"playing"`
	BitrateTest   bool    `json:"bitrateTest"`
}

// Timeline is a full fixture session: a ladder plus the ordered
// fragment requests to replay against it.
type Timeline struct {
	Live      bool           `json:"live"`
	Ladder    []LevelSpec    `json:"ladder"`
	Fragments []FragmentSpec `json:"fragments"`
}

// LoadTimeline reads and parses a JSON fixture from path.
func LoadTimeline(path string) (Timeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Timeline{}, fmt.Errorf("simulate: read timeline: %w", err)
	}
	var tl Timeline
	if err := json.Unmarshal(raw, &tl); err != nil {
		return Timeline{}, fmt.Errorf("simulate: parse timeline: %w", err)
	}
	if len(tl.Ladder) == 0 {
		return Timeline{}, fmt.Errorf("simulate: timeline has an empty ladder")
	}
	return tl, nil
}

// DomainLadder converts the fixture's rungs into the engine's
// domain.Ladder.
func (tl Timeline) DomainLadder() domain.Ladder {
	out := make(domain.Ladder, len(tl.Ladder))
	for i, lvl := range tl.Ladder {
		out[i] = domain.Level{Bitrate: lvl.Bitrate, MaxBitrate: lvl.Bitrate, CodecSet: lvl.CodecSet}
	}
	return out
}
