package simulate

import (
	"time"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/abr/orchestrator"
	"llhlsabr/internal/abr/rules"
)

// Feed drives an Orchestrator through a Timeline's fragment sequence,
// one decision per fragment, the way a player's fragment-loading loop
// would in production. Each fragment is "loaded" synchronously: its
// simulated LoadMs elapses on a virtual clock rather than a real
// timer, since the core itself has no timers of its own.
type Feed struct {
	orch   *orchestrator.Orchestrator
	ladder domain.Ladder
	clock  time.Time
	live   bool
}

// NewFeed builds an Orchestrator from cfg and the timeline's ladder,
// ready to Run.
func NewFeed(cfg domain.Config, tl Timeline, start time.Time) (*Feed, error) {
	ladder := tl.DomainLadder()
	orch, err := orchestrator.New(cfg, ladder)
	if err != nil {
		return nil, err
	}
	f := &Feed{orch: orch, ladder: ladder, clock: start, live: tl.Live}
	f.orch.OnLevelLoaded(domain.LevelLoadedEvent{Level: 0, Live: tl.Live})
	return f, nil
}

// Orchestrator exposes the underlying engine, e.g. so a caller can
// wire its History/Estimator into a metrics or websocket sink between
// fragments.
func (f *Feed) Orchestrator() *orchestrator.Orchestrator { return f.orch }

// Run replays every fragment in order and returns the resulting
// decision for each, in fixture order.
func (f *Feed) Run(tl Timeline) []orchestrator.Decision {
	decisions := make([]orchestrator.Decision, 0, len(tl.Fragments))
	quality := 0

	for _, step := range tl.Fragments {
		frag := &domain.Fragment{
			SN:          step.SN,
			Level:       quality,
			Type:        domain.FragMain,
			Duration:    step.Duration,
			BitrateTest: step.BitrateTest,
		}

		f.orch.OnFragLoading(domain.FragLoadingEvent{Frag: frag}, f.clock)

		loadDur := time.Duration(step.LoadMs * float64(time.Millisecond))
		loadStart := f.clock
		f.clock = f.clock.Add(loadDur)

		total := step.Bytes
		frag.Stats = &domain.LoaderStats{
			Loading: domain.TimeRange{Start: loadStart, End: f.clock},
			Parsing: domain.EndOnly{End: f.clock},
			Loaded:  step.Bytes,
			Total:   &total,
		}

		f.orch.OnFragLoaded(domain.FragLoadedEvent{Frag: frag})
		if !frag.BitrateTest {
			f.orch.OnFragBuffered(domain.FragBufferedEvent{Frag: frag})
		}
		f.orch.OnFragParsed(domain.FragParsedEvent{Frag: frag})

		in := orchestrator.DecisionInput{
			Input: rules.Input{
				Ladder:         f.ladder,
				Throughput:     f.orch.Estimator.GetEstimate(),
				Latency:        step.Latency,
				TargetLatency:  step.TargetLatency,
				Buffer:         domain.BufferInfo{Len: step.BufferLen, End: step.BufferEnd},
				PlaybackRate:   step.PlaybackRate,
				CurrentQuality: quality,
				FragDuration:   step.Duration,
				Live:           f.live,
				MediaType:      domain.FragMain,
			},
			AvgDuration:           step.Duration,
			BufferStarvationDelay: step.BufferLen,
			Playing:               step.Playing,
			BitrateTest:           step.BitrateTest,
		}

		quality = f.orch.NextAutoLevel(in, f.clock)
		decisions = append(decisions, f.orch.History()[len(f.orch.History())-1])
	}

	return decisions
}
