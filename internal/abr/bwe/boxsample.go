package bwe

import "llhlsabr/internal/abr/domain"

// SampleFromStats derives the (durationMs, bytes) pair a successfully
// buffered fragment/part contributes to the estimator.
//
// When useBoxSampling is true it implements the "box-level" mode:
// trim the first and last entries of startTimeData and
// endTimeData (they bracket partial, not-yet-stable chunks) and
// derive duration from the remaining span and bytes from
// boxLoaded minus the last (trimmed) entry's length. If trimming
// leaves either array empty, it falls back to the
// parsing.end-loading.start / loaded measurement, same as the
// non-box-sampling path.
func SampleFromStats(stats *domain.LoaderStats, useBoxSampling bool) (durationMs, bytes float64) {
	if stats == nil {
		return 0, 0
	}

	if useBoxSampling {
		if ms, b, ok := boxSample(stats); ok {
			return ms, b
		}
	}

	durationMs = stats.Parsing.End.Sub(stats.Loading.Start).Seconds() * 1000
	bytes = float64(stats.Loaded)
	return durationMs, bytes
}

func boxSample(stats *domain.LoaderStats) (durationMs, bytes float64, ok bool) {
	starts := trimFirstLast(stats.StartTimeData)
	ends := trimFirstLast(stats.EndTimeData)
	if len(starts) == 0 || len(ends) == 0 {
		return 0, 0, false
	}

	first := starts[0]
	last := ends[len(ends)-1]

	durationMs = last.Timestamp.Sub(first.Timestamp).Seconds() * 1000
	bytes = float64(stats.BoxLoaded - last.Len)
	return durationMs, bytes, true
}

func trimFirstLast(entries []domain.TimestampLen) []domain.TimestampLen {
	if len(entries) <= 2 {
		return nil
	}
	return entries[1 : len(entries)-1]
}
