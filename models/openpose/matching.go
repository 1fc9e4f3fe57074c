package openpose

import "sort"

// MatchConnections greedily selects a one-to-one subset of candidates for a
// single limb type.
//
// Candidates are ranked by descending score, ties broken by lower PeakA and
// then lower PeakB. Walking that ranking, a candidate is accepted only if
// neither of its peaks was used by an earlier accepted candidate. This is an
// approximation of maximum-weight bipartite matching.
//
// Arguments:
//   - candidates: Candidates of one limb type. The slice is not modified.
//
// Returns:
//   - []Connection: Accepted connections in acceptance order.
func MatchConnections(candidates []Connection) []Connection {
	if len(candidates) == 0 {
		return nil
	}

	ranked := append([]Connection(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].PeakA != ranked[j].PeakA {
			return ranked[i].PeakA < ranked[j].PeakA
		}
		return ranked[i].PeakB < ranked[j].PeakB
	})

	usedA := make(map[int]bool, len(ranked))
	usedB := make(map[int]bool, len(ranked))
	accepted := make([]Connection, 0, len(ranked))

	for _, c := range ranked {
		if usedA[c.PeakA] || usedB[c.PeakB] {
			continue
		}
		usedA[c.PeakA] = true
		usedB[c.PeakB] = true
		accepted = append(accepted, c)
	}

	return accepted
}
