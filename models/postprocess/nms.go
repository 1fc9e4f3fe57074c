// Package postprocess - provides Non-Maximum Suppression for keypoint peaks.
package postprocess

import "sort"

// NMSConfig defines parameters for distance based Non-Maximum Suppression.
type NMSConfig struct {
	// MinDistance is the suppression radius in pixels. Two kept peaks are never
	// closer than this.
	MinDistance float32
}

// ApplyPeakNMS performs greedy distance Non-Maximum Suppression over peak
// candidates.
//
// Candidates are visited by descending score. On equal scores the one that
// comes first in the input keeps priority, so callers pass candidates in
// raster order to get a deterministic result. A candidate is kept only if no
// previously kept candidate lies within MinDistance of it.
//
// Arguments:
//   - candidates: Peak candidates, in the order used for tie-breaking.
//   - config: NMS configuration.
//
// Returns:
//   - The surviving candidates in their input order. If no candidates are
//     provided, returns nil.
func ApplyPeakNMS(candidates []Peak, config *NMSConfig) []Peak {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Score > candidates[order[b]].Score
	})

	used := make([]bool, n)
	kept := make([]bool, n)

	for _, i := range order {
		if used[i] {
			continue
		}

		anchor := candidates[i]
		kept[i] = true
		used[i] = true

		for _, j := range order {
			if used[j] {
				continue
			}

			// Suppress if closer than the minimum distance.
			if anchor.Position.Distance(candidates[j].Position) < config.MinDistance {
				used[j] = true
			}
		}
	}

	filtered := make([]Peak, 0, n)
	for i, candidate := range candidates {
		if kept[i] {
			filtered = append(filtered, candidate)
		}
	}

	return filtered
}
