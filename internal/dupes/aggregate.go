package dupes

import "sort"

// aggregate merges digest entries into duplicate groups. Entries arrive
// in whatever order the workers finished; sorting by digest makes
// equal-digest entries contiguous so a single forward pass can merge
// them without holding group relationships in memory twice. Path is the
// tiebreaker so repeated runs over an unchanged tree produce identical
// output.
//
// Within a digest run all entries share size: size was part of
// candidate selection, so a digest can only repeat within one size
// bucket (barring a cross-size digest collision, which the size check
// in the run-boundary test rejects).
func aggregate(entries []DigestEntry) ([]Group, int64) {
	if len(entries) == 0 {
		return []Group{}, 0
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Digest != entries[j].Digest {
			return entries[i].Digest < entries[j].Digest
		}
		if entries[i].Size != entries[j].Size {
			return entries[i].Size < entries[j].Size
		}
		return entries[i].Path < entries[j].Path
	})

	groups := []Group{}
	var totalWasted int64

	flush := func(run []DigestEntry) {
		// Runs of one are digest collisions that never repeated; they
		// cost a hash computation but are not duplicates.
		if len(run) < 2 {
			return
		}
		files := make([]string, len(run))
		for i, e := range run {
			files[i] = e.Path
		}
		wasted := run[0].Size * int64(len(run)-1)
		groups = append(groups, Group{
			Hash:   run[0].Digest,
			Size:   run[0].Size,
			Count:  len(run),
			Wasted: wasted,
			Files:  files,
		})
		totalWasted += wasted
	}

	start := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].Digest != entries[start].Digest || entries[i].Size != entries[start].Size {
			flush(entries[start:i])
			start = i
		}
	}
	// The final run has no different-digest sentinel after it; flush it
	// explicitly once the input is exhausted.
	flush(entries[start:])

	// Biggest payoff first for reporting.
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Wasted != groups[j].Wasted {
			return groups[i].Wasted > groups[j].Wasted
		}
		return groups[i].Hash < groups[j].Hash
	})

	return groups, totalWasted
}
