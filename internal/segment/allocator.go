package segment

import "strconv"

// Truncation lengths for the short-form naming policy.
const (
	shortNameLen = 8
	shortStemLen = 5
)

// Allocate returns a name derived from candidate that is not present in
// used: the candidate itself when free, otherwise the first free
// "candidate_N". An empty candidate maps to "Unknown". The used set is not
// mutated; recording the final name is the caller's responsibility.
func Allocate(candidate string, used map[string]struct{}) string {
	if candidate == "" {
		candidate = LabelUnknown
	}
	if _, taken := used[candidate]; !taken {
		return candidate
	}
	for counter := 1; ; counter++ {
		name := candidate + "_" + strconv.Itoa(counter)
		if _, taken := used[name]; !taken {
			return name
		}
	}
}

// AllocateShort is Allocate under the truncated-prefix policy: the
// candidate is cut to eight characters, and disambiguation counters hang
// off a five-character stem. Truncation is by rune so Cyrillic labels
// survive intact.
func AllocateShort(candidate string, used map[string]struct{}) string {
	if candidate == "" {
		candidate = LabelUnknown
	}
	short := truncate(candidate, shortNameLen)
	if _, taken := used[short]; !taken {
		return short
	}
	stem := truncate(short, shortStemLen)
	for counter := 1; ; counter++ {
		name := stem + "_" + strconv.Itoa(counter)
		if _, taken := used[name]; !taken {
			return name
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
