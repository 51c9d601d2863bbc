package segment

import "sort"

// Timeline is the normalized, filtered event list for one recording.
type Timeline struct {
	Events []Event
	// Total counts raw input events, including excluded ones, for diagnostics.
	Total int
	// Excluded counts events dropped by the normalizer.
	Excluded int
}

// ExtractTimeline resolves raw events against the code table, converts
// sample indices to seconds, and drops excluded labels. Output preserves
// chronological order; input sortedness is not assumed.
func ExtractTimeline(events []RawEvent, table CodeTable, sampleRate float64, n *Normalizer) Timeline {
	labels := invertCodeTable(table)

	sorted := make([]RawEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sample < sorted[j].Sample
	})

	tl := Timeline{Total: len(events)}
	for _, ev := range sorted {
		raw, found := labels[ev.Code]
		if !found {
			raw = LabelUnknown
		}
		label, ok := n.Normalize(raw)
		if !ok {
			tl.Excluded++
			continue
		}
		tl.Events = append(tl.Events, Event{
			Time:  float64(ev.Sample) / sampleRate,
			Code:  ev.Code,
			Label: label,
		})
	}
	return tl
}

// invertCodeTable builds the code-to-label lookup. Duplicate codes resolve
// to the lexicographically smallest label so the result does not depend on
// map iteration order.
func invertCodeTable(table CodeTable) map[int]string {
	labels := make(map[int]string, len(table))
	for label, code := range table {
		if existing, found := labels[code]; !found || label < existing {
			labels[code] = label
		}
	}
	return labels
}
