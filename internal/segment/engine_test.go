package segment

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurovault/neurovault-server/internal/errors"
)

// memSource is an in-memory recording for engine tests.
type memSource struct {
	rate     float64
	duration float64
	channels []string
	events   []RawEvent
	table    CodeTable
	// cropErr, when set, can reject individual windows.
	cropErr func(start, end float64) error
}

type memClip struct {
	start, end float64
}

func (c memClip) Window() (start, end float64) { return c.start, c.end }

func (s *memSource) SampleRate() float64      { return s.rate }
func (s *memSource) DurationSeconds() float64 { return s.duration }
func (s *memSource) ChannelNames() []string   { return s.channels }
func (s *memSource) Events() []RawEvent       { return s.events }
func (s *memSource) CodeTable() CodeTable     { return s.table }

func (s *memSource) Crop(start, end float64) (Payload, error) {
	if s.cropErr != nil {
		if err := s.cropErr(start, end); err != nil {
			return nil, err
		}
	}
	if start < 0 || end > s.duration || end <= start {
		return nil, errors.Validationf("crop window [%g, %g) out of bounds", start, end)
	}
	return memClip{start: start, end: end}, nil
}

func newTestEngine(cfg Config) *Engine {
	return New(cfg, nil, nil)
}

// checkInvariants verifies the duration floor, non-overlap in
// chronological order, and name uniqueness over a result.
func checkInvariants(t *testing.T, res *Result, minDur float64) {
	t.Helper()

	segs := res.Segments()
	sorted := make([]*Segment, len(segs))
	copy(sorted, segs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	seen := make(map[string]struct{}, len(segs))
	for i, s := range sorted {
		if s.Duration() < minDur {
			t.Errorf("segment %q duration %g below floor %g", s.Name, s.Duration(), minDur)
		}
		if i > 0 && sorted[i-1].End > s.Start {
			t.Errorf("segments %q and %q overlap", sorted[i-1].Name, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			t.Errorf("duplicate segment name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	// Discovery order is chronological.
	for i, s := range segs {
		if s != sorted[i] {
			t.Errorf("discovery order is not chronological at index %d", i)
			break
		}
	}
}

func TestProcessAdjacentPairs(t *testing.T) {
	src := &memSource{
		rate:     100,
		duration: 30,
		table:    CodeTable{"Фоновая запись": 1, "Открывание глаз": 2, "Закрывание глаз": 3},
		events: []RawEvent{
			{Sample: 0, Code: 1},
			{Sample: 500, Code: 2},
			{Sample: 2500, Code: 3},
		},
	}

	eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)
	checkInvariants(t, res, 5)

	// First event at t=0, so no leading segment. Windows with duration
	// exactly at the floor are kept.
	require.Equal(t, []string{"Baseline", "EyesOpen", "EyesClosed"}, res.Names())

	first, _ := res.Get("Baseline")
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, 5.0, first.End)
	assert.Equal(t, "Baseline", first.Predecessor)
	assert.Equal(t, "EyesOpen", first.Successor)

	mid, _ := res.Get("EyesOpen")
	assert.Equal(t, 5.0, mid.Start)
	assert.Equal(t, 25.0, mid.End)

	last, _ := res.Get("EyesClosed")
	assert.Equal(t, 25.0, last.Start)
	assert.Equal(t, 30.0, last.End)
	assert.Equal(t, LabelEnd, last.Successor)

	assert.Equal(t, 3, res.Stats.EventsTotal)
	assert.Equal(t, 3, res.Stats.EventsValid)
	assert.Zero(t, res.Stats.DroppedShort)

	// Each retained segment carries the cropped payload for its window.
	for _, s := range res.Segments() {
		start, end := s.Payload.Window()
		assert.Equal(t, s.Start, start)
		assert.Equal(t, s.End, end)
	}
}

func TestProcessLeadingAndShortTrailing(t *testing.T) {
	// Single event at t=10 in a 12s recording: the leading window is
	// retained, the 2s trailing window is dropped.
	src := &memSource{
		rate:     100,
		duration: 12,
		table:    CodeTable{"Фоновая запись": 1},
		events:   []RawEvent{{Sample: 1000, Code: 1}},
	}

	eng := newTestEngine(Config{Mode: ModeBoundary, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)
	checkInvariants(t, res, 5)

	require.Equal(t, []string{LabelStart}, res.Names())
	lead, _ := res.Get(LabelStart)
	assert.Equal(t, 0.0, lead.Start)
	assert.Equal(t, 10.0, lead.End)
	assert.Equal(t, LabelStart, lead.Predecessor)
	assert.Equal(t, "Baseline", lead.Successor)
	assert.Equal(t, 1, res.Stats.DroppedShort)
}

func TestProcessAllEventsExcluded(t *testing.T) {
	src := &memSource{
		rate:     100,
		duration: 60,
		table:    CodeTable{"stimFlash": 1},
		events:   []RawEvent{{Sample: 100, Code: 1}, {Sample: 900, Code: 1}},
	}

	eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Len())
	assert.NotEmpty(t, res.Stats.Reason)
	assert.Equal(t, 2, res.Stats.EventsTotal)
	assert.Equal(t, 2, res.Stats.EventsExcluded)
	assert.Zero(t, res.Stats.EventsValid)
}

func TestProcessNoEvents(t *testing.T) {
	src := &memSource{rate: 100, duration: 60, table: CodeTable{}}

	eng := newTestEngine(Config{Mode: ModeBoundary, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Len())
	assert.Equal(t, "no events in recording", res.Stats.Reason)
}

func TestProcessBelowModeMinimum(t *testing.T) {
	// One valid event is not enough for adjacent-pairs mode.
	src := &memSource{
		rate:     100,
		duration: 60,
		table:    CodeTable{"Фоновая запись": 1},
		events:   []RawEvent{{Sample: 1000, Code: 1}},
	}

	eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Len())
	assert.Contains(t, res.Stats.Reason, "at least 2")
}

func TestProcessDuplicateLabels(t *testing.T) {
	// Two events with the same normalized label disambiguate via the
	// allocator counter.
	src := &memSource{
		rate:     100,
		duration: 40,
		table:    CodeTable{"Фоновая запись": 1},
		events:   []RawEvent{{Sample: 0, Code: 1}, {Sample: 2000, Code: 1}},
	}

	eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)
	checkInvariants(t, res, 5)

	require.Equal(t, []string{"Baseline", "Baseline_1"}, res.Names())
	second, _ := res.Get("Baseline_1")
	assert.Equal(t, 20.0, second.Start)
	assert.Equal(t, 40.0, second.End)
}

func TestProcessGroupedStimulation(t *testing.T) {
	src := &memSource{
		rate:     100,
		duration: 40,
		table: CodeTable{
			"Фотостимуляция":                1,
			"Встроенный фотостимулятор 4 Гц": 2,
			"Остановка стимуляции":          3,
		},
		events: []RawEvent{
			{Sample: 0, Code: 1},
			{Sample: 100, Code: 2},
			{Sample: 2000, Code: 3},
		},
	}

	// Grouped mode collapses the onset/parameter pair into one event at
	// the onset time carrying the parameter identity.
	eng := newTestEngine(Config{Mode: ModeGrouped, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)
	checkInvariants(t, res, 5)

	require.Equal(t, []string{"Photic4Hz", "StimOff"}, res.Names())
	stim, _ := res.Get("Photic4Hz")
	assert.Equal(t, 0.0, stim.Start)
	assert.Equal(t, 20.0, stim.End)

	// Pairs mode keeps the onset and parameter as separate events; the
	// 1s onset window falls below the floor.
	eng2 := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5})
	require.NoError(t, eng2.Load(src))

	res2, err := eng2.Process(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Photic4Hz", "StimOff"}, res2.Names())
	stim2, _ := res2.Get("Photic4Hz")
	assert.Equal(t, 1.0, stim2.Start)
	assert.Equal(t, 1, res2.Stats.DroppedShort)
}

func TestProcessShortNames(t *testing.T) {
	src := &memSource{
		rate:     100,
		duration: 40,
		table:    CodeTable{"После гипервентиляции": 1},
		events:   []RawEvent{{Sample: 0, Code: 1}, {Sample: 2000, Code: 1}},
	}

	eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5, ShortNames: true})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)

	// "PostHypervent" truncates to eight characters; the collision
	// counter hangs off the five-character stem.
	assert.Equal(t, []string{"PostHype", "PostH_1"}, res.Names())
}

func TestProcessCropFailureSkipsSegment(t *testing.T) {
	src := &memSource{
		rate:     100,
		duration: 30,
		table:    CodeTable{"Фоновая запись": 1, "Открывание глаз": 2, "Закрывание глаз": 3},
		events: []RawEvent{
			{Sample: 0, Code: 1},
			{Sample: 500, Code: 2},
			{Sample: 2500, Code: 3},
		},
		cropErr: func(start, end float64) error {
			if start == 5.0 {
				return errors.CorruptFile("unreadable data record")
			}
			return nil
		},
	}

	eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5})
	require.NoError(t, eng.Load(src))

	res, err := eng.Process(context.Background())
	require.NoError(t, err)

	// The rejected window is reported and skipped; the rest survive.
	assert.Equal(t, []string{"Baseline", "EyesClosed"}, res.Names())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 5.0, res.Failures[0].Start)
	assert.Equal(t, 25.0, res.Failures[0].End)
	assert.Error(t, res.Failures[0].Err)
}

func TestProcessStateMachine(t *testing.T) {
	eng := newTestEngine(DefaultConfig())

	_, err := eng.Process(context.Background())
	assert.ErrorIs(t, err, ErrNoRecording)

	src := &memSource{
		rate:     100,
		duration: 40,
		table:    CodeTable{"Фоновая запись": 1},
		events:   []RawEvent{{Sample: 0, Code: 1}, {Sample: 2000, Code: 1}},
	}
	require.NoError(t, eng.Load(src))

	_, err = eng.Process(context.Background())
	require.NoError(t, err)

	_, err = eng.Process(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	// Reloading resets the state machine.
	require.NoError(t, eng.Load(src))
	_, err = eng.Process(context.Background())
	require.NoError(t, err)

	// Discard drops back to idle.
	eng.Discard()
	_, err = eng.Process(context.Background())
	assert.ErrorIs(t, err, ErrNoRecording)
}

func TestLoadValidation(t *testing.T) {
	eng := newTestEngine(DefaultConfig())

	err := eng.Load(&memSource{rate: 0, duration: 30})
	assert.Error(t, err)

	err = eng.Load(&memSource{rate: 100, duration: 0})
	assert.Error(t, err)
}

func TestProcessWorkerPoolDeterminism(t *testing.T) {
	// Many same-label events force heavy allocator disambiguation; the
	// pooled run must produce exactly the sequential result.
	table := CodeTable{"Фоновая запись": 1}
	events := make([]RawEvent, 0, 12)
	for i := 0; i < 12; i++ {
		events = append(events, RawEvent{Sample: int64(i * 1000), Code: 1})
	}
	src := &memSource{rate: 100, duration: 130, table: table, events: events}

	run := func(workers int) *Result {
		eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5, Workers: workers})
		require.NoError(t, eng.Load(src))
		res, err := eng.Process(context.Background())
		require.NoError(t, err)
		return res
	}

	sequential := run(1)
	checkInvariants(t, sequential, 5)
	require.Equal(t, 12, sequential.Len())

	for _, workers := range []int{2, 4, 8} {
		pooled := run(workers)
		require.Equal(t, sequential.Names(), pooled.Names(), "workers=%d", workers)
		for i, want := range sequential.Segments() {
			got := pooled.Segments()[i]
			assert.Equal(t, want.Start, got.Start)
			assert.Equal(t, want.End, got.End)
			assert.Equal(t, want.Predecessor, got.Predecessor)
			assert.Equal(t, want.Successor, got.Successor)
		}
	}
}

func TestProcessCancelledContext(t *testing.T) {
	src := &memSource{
		rate:     100,
		duration: 40,
		table:    CodeTable{"Фоновая запись": 1},
		events:   []RawEvent{{Sample: 0, Code: 1}, {Sample: 2000, Code: 1}},
	}

	eng := newTestEngine(Config{Mode: ModePairs, MinSegmentDuration: 5, Workers: 1})
	require.NoError(t, eng.Load(src))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Process(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimelineAccessor(t *testing.T) {
	src := &memSource{
		rate:     100,
		duration: 30,
		table:    CodeTable{"Фоновая запись": 1, "stimFlash": 2},
		events:   []RawEvent{{Sample: 0, Code: 1}, {Sample: 100, Code: 2}},
	}

	eng := newTestEngine(DefaultConfig())
	require.NoError(t, eng.Load(src))

	tl := eng.Timeline()
	assert.Equal(t, 2, tl.Total)
	assert.Equal(t, 1, tl.Excluded)
	require.Len(t, tl.Events, 1)
	assert.Equal(t, "Baseline", tl.Events[0].Label)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"boundary", ModeBoundary},
		{"pairs", ModePairs},
		{"grouped", ModeGrouped},
		{"", ModePairs},
		{"bogus", ModePairs},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMode(tt.in))
		})
	}
}
