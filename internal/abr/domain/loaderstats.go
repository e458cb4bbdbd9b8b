package domain

import "time"

// TimestampLen records a moof/mdat box boundary observed while
// demuxing a chunked-transfer response: when it arrived and how many
// bytes it carried.
type TimestampLen struct {
	Timestamp time.Time
	Len       int64
}

// LoaderStats is the per-fragment (or per-part) loader telemetry the
// core consumes. It is produced by the out-of-scope HTTP/chunked
// transfer decoder and handed to the core read-only.
type LoaderStats struct {
	Loading TimeRange
	Parsing EndOnly

	Loaded  int64  // bytes loaded so far
	Total   *int64 // bytes, nil until Content-Length (or manifest) is known
	Aborted bool

	// BWEstimate, when set, is an out-of-band bits/s estimate supplied
	// by the transport layer (e.g. from TCP_INFO) that pre-empts the
	// loaded/elapsed derivation in the emergency-abandonment controller.
	BWEstimate *float64

	// StartTimeData/EndTimeData record moof/mdat boundaries for
	// box-level BWE sampling. Index 0 is the first chunk seen.
	StartTimeData []TimestampLen
	EndTimeData   []TimestampLen

	// BoxLoaded is the running sum of mdat payload lengths only,
	// excluding moof box overhead.
	BoxLoaded int64
}

// TimeRange is a loading phase's start/end instants.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// EndOnly is a phase whose start isn't tracked by the core (parsing
// begins implicitly when loading ends).
type EndOnly struct {
	End time.Time
}

// DurationMs returns the elapsed time of the range in milliseconds,
// or 0 if End precedes or equals Start.
func (r TimeRange) DurationMs() float64 {
	d := r.End.Sub(r.Start)
	if d <= 0 {
		return 0
	}
	return float64(d.Microseconds()) / 1000
}
