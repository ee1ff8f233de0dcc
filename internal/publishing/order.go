package publishing

import "sort"

// Less reports whether version a is older than version b.
func Less(aMajor, aMinor, bMajor, bMinor int) bool {
	if aMajor != bMajor {
		return aMajor < bMajor
	}

	return aMinor < bMinor
}

// Ordered is one item of a batch that touches several snapshots.
type Ordered struct {
	RootID     string
	SnapshotID string
	Major      int
	Minor      int
}

// SortBatch orders batch items by root id, then by version from oldest to newest, so the
// newest snapshot of a root is processed last and its effects win.
func SortBatch(items []Ordered) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].RootID != items[j].RootID {
			return items[i].RootID < items[j].RootID
		}

		return Less(items[i].Major, items[i].Minor, items[j].Major, items[j].Minor)
	})
}
