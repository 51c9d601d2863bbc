package segment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neurovault/neurovault-server/internal/errors"
)

// Engine state-machine errors. Both are precondition violations: fatal to
// the call, never retried automatically.
var (
	ErrNoRecording      = errors.InvalidState("no recording loaded")
	ErrAlreadyProcessed = errors.InvalidState("recording already segmented; reload before processing again")
)

type state int

const (
	stateIdle state = iota
	stateLoaded
	stateSegmented
)

// Engine partitions a recording's timeline into named, non-overlapping
// segments. One engine handles one recording at a time: Load moves it to
// the loaded state, Process to segmented, Load again resets it.
//
// An Engine is not safe for concurrent use; Process itself fans crop work
// across a bounded worker pool internally.
type Engine struct {
	cfg  Config
	norm *Normalizer
	log  *slog.Logger

	state    state
	src      Source
	timeline Timeline
}

// New creates an engine. A nil normalizer selects the canonical tables; a
// nil logger discards diagnostics.
func New(cfg Config, norm *Normalizer, log *slog.Logger) *Engine {
	if norm == nil {
		norm = NewNormalizer(nil, nil)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePairs
	}
	return &Engine{cfg: cfg, norm: norm, log: log}
}

// Load extracts the normalized event timeline from the source and moves
// the engine to the loaded state, discarding any previous recording.
func (e *Engine) Load(src Source) error {
	if src.SampleRate() <= 0 {
		return errors.Validationf("invalid sample rate %g", src.SampleRate())
	}
	if src.DurationSeconds() <= 0 {
		return errors.Validationf("invalid recording duration %g", src.DurationSeconds())
	}

	e.src = src
	e.timeline = ExtractTimeline(src.Events(), src.CodeTable(), src.SampleRate(), e.norm)
	e.state = stateLoaded

	e.log.Debug("recording loaded",
		"events_total", e.timeline.Total,
		"events_excluded", e.timeline.Excluded,
		"duration", src.DurationSeconds(),
	)
	return nil
}

// Timeline returns the extracted event timeline of the loaded recording.
func (e *Engine) Timeline() Timeline {
	return e.timeline
}

// Discard drops the loaded recording and returns the engine to idle.
func (e *Engine) Discard() {
	e.src = nil
	e.timeline = Timeline{}
	e.state = stateIdle
}

// window is a candidate segment before cropping and naming.
type window struct {
	base  string // name candidate
	pred  string
	succ  string
	start float64
	end   float64
}

// Process runs segmentation over the loaded recording and returns the
// segment map. Per-window crop failures skip that segment only; the
// returned error is non-nil solely for precondition violations and
// context cancellation.
func (e *Engine) Process(ctx context.Context) (*Result, error) {
	switch e.state {
	case stateIdle:
		return nil, ErrNoRecording
	case stateSegmented:
		return nil, ErrAlreadyProcessed
	}

	result := newResult()
	result.Stats.EventsTotal = e.timeline.Total
	result.Stats.EventsExcluded = e.timeline.Excluded

	valid := e.timeline.Events
	if e.cfg.Mode == ModeGrouped {
		valid = groupStimulation(valid)
	}
	result.Stats.EventsValid = len(valid)

	if len(valid) == 0 {
		if e.timeline.Total == 0 {
			result.Stats.Reason = "no events in recording"
		} else {
			result.Stats.Reason = "no valid events after filtering"
		}
		e.state = stateSegmented
		e.log.Info("segmentation produced no segments", "reason", result.Stats.Reason)
		return result, nil
	}
	if min := e.cfg.Mode.minEvents(); len(valid) < min {
		result.Stats.Reason = fmt.Sprintf("mode %q needs at least %d valid events, have %d", e.cfg.Mode, min, len(valid))
		e.state = stateSegmented
		e.log.Info("segmentation produced no segments", "reason", result.Stats.Reason)
		return result, nil
	}

	windows, dropped := e.buildWindows(valid)
	result.Stats.DroppedShort = dropped

	payloads, cropErrs, err := e.cropWindows(ctx, windows)
	if err != nil {
		return nil, err
	}

	// Merge in chronological window order so naming and map order are
	// deterministic regardless of worker scheduling.
	used := make(map[string]struct{}, len(windows))
	for i, w := range windows {
		if cropErrs[i] != nil {
			e.log.Warn("crop rejected, skipping segment",
				"start", w.start, "end", w.end, "error", cropErrs[i])
			result.Failures = append(result.Failures, Failure{Start: w.start, End: w.end, Err: cropErrs[i]})
			continue
		}
		var name string
		if e.cfg.ShortNames {
			name = AllocateShort(w.base, used)
		} else {
			name = Allocate(w.base, used)
		}
		used[name] = struct{}{}
		result.add(&Segment{
			Name:        name,
			Start:       w.start,
			End:         w.end,
			Predecessor: w.pred,
			Successor:   w.succ,
			Payload:     payloads[i],
		})
	}

	result.Stats.Retained = result.Len()
	e.state = stateSegmented

	e.log.Info("segmentation complete",
		"events_considered", result.Stats.EventsValid,
		"segments", result.Stats.Retained,
		"dropped_short", result.Stats.DroppedShort,
		"crop_failures", len(result.Failures),
	)
	return result, nil
}

// buildWindows derives candidate windows from the valid event list:
// an optional leading window from the recording start, one window per
// event to its successor, and a trailing window to the recording end.
// Windows shorter than the configured minimum are dropped outright.
func (e *Engine) buildWindows(valid []Event) (windows []window, dropped int) {
	duration := e.src.DurationSeconds()
	minDur := e.cfg.MinSegmentDuration

	if first := valid[0]; first.Time > minDur {
		windows = append(windows, window{
			start: 0,
			end:   first.Time,
			base:  LabelStart,
			pred:  LabelStart,
			succ:  first.Label,
		})
	}

	for i, ev := range valid {
		w := window{start: ev.Time, end: duration, base: ev.Label, pred: ev.Label, succ: LabelEnd}
		if i+1 < len(valid) {
			w.end = valid[i+1].Time
			w.succ = valid[i+1].Label
		}
		if w.end <= w.start || w.end-w.start < minDur {
			dropped++
			continue
		}
		windows = append(windows, w)
	}
	return windows, dropped
}

// cropWindows requests payloads for every window, fanning out across a
// bounded worker pool when configured. Results land in index-addressed
// slots, so workers never contend on shared structures.
func (e *Engine) cropWindows(ctx context.Context, windows []window) ([]Payload, []error, error) {
	payloads := make([]Payload, len(windows))
	cropErrs := make([]error, len(windows))

	if e.cfg.Workers < 2 || len(windows) < 2 {
		for i, w := range windows {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			payloads[i], cropErrs[i] = e.src.Crop(w.start, w.end)
		}
		return payloads, cropErrs, nil
	}

	workers := e.cfg.Workers
	if workers > len(windows) {
		workers = len(windows)
	}

	jobs := make(chan int, len(windows))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					cropErrs[i] = ctx.Err()
					continue
				default:
				}
				payloads[i], cropErrs[i] = e.src.Crop(windows[i].start, windows[i].end)
			}
		}()
	}
	for i := range windows {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return payloads, cropErrs, nil
}

// groupStimulation collapses a stimulation-onset event immediately followed
// by a stimulation-parameter event into one event at the onset time carrying
// the parameter identity.
func groupStimulation(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for i := 0; i < len(events); i++ {
		ev := events[i]
		if isStimOnset(ev.Label) && i+1 < len(events) && isStimParam(events[i+1].Label) {
			next := events[i+1]
			out = append(out, Event{Time: ev.Time, Code: next.Code, Label: next.Label})
			i++
			continue
		}
		out = append(out, ev)
	}
	return out
}
