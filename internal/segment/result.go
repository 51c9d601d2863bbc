package segment

// Stats summarizes one Process call for diagnostics. It is observability
// output, not part of the data contract.
type Stats struct {
	// Reason explains an empty or short-circuited result. Empty results
	// are valid outcomes, not errors.
	Reason         string
	EventsTotal    int
	EventsValid    int
	EventsExcluded int
	Retained       int
	DroppedShort   int
}

// Failure records a window whose crop was rejected. The segment is skipped;
// the rest of the run continues.
type Failure struct {
	Err   error
	Start float64
	End   float64
}

// Result is the outcome of one segmentation run: segments keyed by their
// unique name, iterable in discovery order.
type Result struct {
	index    map[string]int
	segments []*Segment
	Failures []Failure
	Stats    Stats
}

func newResult() *Result {
	return &Result{index: make(map[string]int)}
}

func (r *Result) add(s *Segment) {
	r.index[s.Name] = len(r.segments)
	r.segments = append(r.segments, s)
}

// Len returns the number of retained segments.
func (r *Result) Len() int {
	return len(r.segments)
}

// Get returns the segment with the given name.
func (r *Result) Get(name string) (*Segment, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.segments[i], true
}

// Segments returns the segments in discovery order (chronological).
// Callers must treat the slice as read-only.
func (r *Result) Segments() []*Segment {
	return r.segments
}

// Names returns the segment names in discovery order.
func (r *Result) Names() []string {
	names := make([]string, len(r.segments))
	for i, s := range r.segments {
		names[i] = s.Name
	}
	return names
}
