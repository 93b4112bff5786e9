package tasks

// Diff is the set difference between a playlist's current tracks and an episode's desired tracks.
type Diff struct {
	ToAdd    []string `json:"to_add"`    // Desired but absent, in desired order
	ToRemove []string `json:"to_remove"` // Present but not desired, in playlist order
}

// Empty reports whether applying the diff would change nothing.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// ComputeDiff returns to_add = desired - current and to_remove = current - desired with set semantics: each URI
// appears at most once in either list regardless of duplicates in the inputs.
func ComputeDiff(current, desired []string) Diff {
	have := make(map[string]struct{}, len(current))
	for _, uri := range current {
		have[uri] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for _, uri := range desired {
		want[uri] = struct{}{}
	}

	var d Diff
	added := make(map[string]struct{})
	for _, uri := range desired {
		if _, ok := have[uri]; ok {
			continue
		}
		if _, ok := added[uri]; ok {
			continue
		}
		added[uri] = struct{}{}
		d.ToAdd = append(d.ToAdd, uri)
	}

	removed := make(map[string]struct{})
	for _, uri := range current {
		if _, ok := want[uri]; ok {
			continue
		}
		if _, ok := removed[uri]; ok {
			continue
		}
		removed[uri] = struct{}{}
		d.ToRemove = append(d.ToRemove, uri)
	}
	return d
}
