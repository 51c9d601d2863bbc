// Package segment splits a continuous EEG recording into labeled time
// segments driven by its embedded annotation stream.
package segment

// Sentinel labels for the recording boundaries and unresolvable events.
const (
	LabelStart   = "Start"
	LabelEnd     = "End"
	LabelUnknown = "Unknown"
)

// RawEvent is an annotation marker as supplied by the recording source.
// Sources emit events roughly chronologically but make no ordering
// guarantee; the engine sorts by sample index before use.
type RawEvent struct {
	Sample int64
	Code   int
}

// CodeTable maps raw annotation labels to event codes.
type CodeTable map[string]int

// Event is a normalized annotation on the recording timeline.
type Event struct {
	Label string
	Time  float64
	Code  int
}

// Payload is an opaque reference to cropped channel data for one segment.
// It is produced by the source and never mutated by the engine.
type Payload interface {
	// Window returns the [start, end) time range the payload covers, in seconds.
	Window() (start, end float64)
}

// Source supplies recording data to the engine. Implementations must be
// safe for concurrent Crop calls on a shared handle; the engine never
// mutates the source.
type Source interface {
	SampleRate() float64
	DurationSeconds() float64
	ChannelNames() []string
	Events() []RawEvent
	CodeTable() CodeTable
	Crop(start, end float64) (Payload, error)
}

// Segment is one labeled window of the recording.
type Segment struct {
	Payload     Payload
	Name        string
	Predecessor string
	Successor   string
	Start       float64
	End         float64
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	return s.End - s.Start
}

// Mode selects how interior windows are derived from the event timeline.
type Mode string

// Segmentation modes.
const (
	// ModeBoundary opens a window at every valid event; a single event is enough.
	ModeBoundary Mode = "boundary"
	// ModePairs requires at least two valid events (adjacent-pair windows).
	ModePairs Mode = "pairs"
	// ModeGrouped is ModePairs with stimulation onset/parameter pairs
	// collapsed into one event carrying the parameter identity.
	ModeGrouped Mode = "grouped"
)

// minEvents returns the fewest valid events the mode can segment.
func (m Mode) minEvents() int {
	if m == ModeBoundary {
		return 1
	}
	return 2
}

// Config holds per-run engine settings. A zero Config is usable after
// applying defaults; pass it explicitly rather than through shared state so
// concurrent runs with different thresholds cannot interfere.
type Config struct {
	Mode Mode
	// MinSegmentDuration is the shortest segment kept, in seconds.
	MinSegmentDuration float64
	// Workers bounds the crop worker pool. Values below 2 disable fan-out.
	Workers int
	// ShortNames switches the allocator to the truncated-prefix policy.
	ShortNames bool
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		Mode:               ModePairs,
		MinSegmentDuration: 5.0,
		Workers:            4,
	}
}

// ParseMode converts a mode name to a Mode, defaulting to ModePairs.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeBoundary, ModePairs, ModeGrouped:
		return Mode(s)
	default:
		return ModePairs
	}
}
