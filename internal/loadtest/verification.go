package loadtest

import (
	"fmt"
	"sort"
)

// verifyPermutation checks that drawn covers 0..n-1 exactly once.
func verifyPermutation(drawn []int, n int) error {
	if len(drawn) != n {
		return fmt.Errorf("drew %d cards from a deck of %d", len(drawn), n)
	}
	seen := make([]bool, n)
	for i, idx := range drawn {
		if idx < 0 || idx >= n {
			return fmt.Errorf("draw %d returned index %d outside [0,%d)", i, idx, n)
		}
		if seen[idx] {
			return fmt.Errorf("draw %d repeated index %d", i, idx)
		}
		seen[idx] = true
	}
	return nil
}

// expectedTable merges the starting table with every submission and keeps
// the best size entries.
func expectedTable(before []Entry, players []*Player, size int) []Entry {
	all := make([]Entry, 0, len(before)+len(players))
	all = append(all, before...)
	for _, p := range players {
		all = append(all, Entry{Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > size {
		all = all[:size]
	}
	return all
}

// verifyLeaderboard checks the final table against the top entries of
// everything submitted. Player scores are distinct, so any serial order of
// the submits yields the same table.
func verifyLeaderboard(before []Entry, players []*Player, got []Entry, size int) error {
	want := expectedTable(before, players, size)
	if len(got) != len(want) {
		return fmt.Errorf("leaderboard has %d entries, want %d", len(got), len(want))
	}

	ours := make(map[float64]string, len(players))
	for _, p := range players {
		ours[p.Score] = p.Name
	}
	for i := range want {
		if got[i].Score != want[i].Score {
			return fmt.Errorf("position %d: score %v, want %v", i+1, got[i].Score, want[i].Score)
		}
		if name, ok := ours[want[i].Score]; ok && got[i].Name != name {
			return fmt.Errorf("position %d: name %q, want %q", i+1, got[i].Name, name)
		}
	}
	return nil
}
