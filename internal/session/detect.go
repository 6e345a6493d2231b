package session

// DetectNew returns the snapshots in current whose state does not appear
// anywhere in previous, preserving the order of current.
func DetectNew(current, previous []Snapshot) []Snapshot {
	seen := make(map[Key]struct{}, len(previous))
	for _, p := range previous {
		seen[p.Key()] = struct{}{}
	}
	var fresh []Snapshot
	for _, c := range current {
		if _, ok := seen[c.Key()]; ok {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}
