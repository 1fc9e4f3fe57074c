package openpose

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-pose/featuremap"
	"github.com/nvr-ai/go-pose/models/postprocess"
)

// Connection is a candidate (or accepted) limb between two peaks.
type Connection struct {
	// Limb is the topology index of the limb type.
	Limb int `json:"limb"`
	// PeakA is the global id of the peak at the limb's A end.
	PeakA int `json:"peak_a"`
	// PeakB is the global id of the peak at the limb's B end.
	PeakB int `json:"peak_b"`
	// Score is the mean PAF alignment over the passing samples.
	Score float32 `json:"score"`
}

// ScoreOptions controls how candidate limbs are sampled and gated.
type ScoreOptions struct {
	MidPointsNumber              int
	MidPointsScoreThreshold      float32
	FoundMidPointsRatioThreshold float32
	Interpolation                featuremap.Interpolation
	LimbLengthPenalty            bool
}

func (c Config) scoreOptions() ScoreOptions {
	return ScoreOptions{
		MidPointsNumber:              c.MidPointsNumber,
		MidPointsScoreThreshold:      c.MidPointsScoreThreshold,
		FoundMidPointsRatioThreshold: c.FoundMidPointsRatioThreshold,
		Interpolation:                c.Interpolation,
		LimbLengthPenalty:            c.LimbLengthPenalty,
	}
}

// ScoreLimb scores every pairing of an A peak with a B peak by integrating
// the limb's PAF along the segment between them.
//
// MidPointsNumber points are sampled from A to B, endpoints included. A sample
// passes when the PAF vector's projection onto the unit A->B direction exceeds
// MidPointsScoreThreshold. A pair becomes a candidate when the passing fraction
// reaches FoundMidPointsRatioThreshold; its score is the mean projection over
// the passing samples. Zero-length pairs are never candidates.
//
// Arguments:
//   - limb: The limb type being scored.
//   - candA: Peaks of keypoint type limb.A.
//   - candB: Peaks of keypoint type limb.B.
//   - pafX: PAF x component for the limb.
//   - pafY: PAF y component for the limb.
//   - opts: Sampling options.
//
// Returns:
//   - []Connection: Candidates in A-major, B-minor order.
func ScoreLimb(limb Limb, candA, candB []postprocess.Peak, pafX, pafY featuremap.Map, opts ScoreOptions) []Connection {
	if len(candA) == 0 || len(candB) == 0 {
		return nil
	}

	n := opts.MidPointsNumber
	if n < 2 {
		n = 2
	}
	halfHeight := float32(pafX.Height()) / 2

	var connections []Connection
	for _, a := range candA {
		for _, b := range candB {
			vec := b.Position.Sub(a.Position)
			norm := math32.Hypot(vec.X, vec.Y)
			if norm == 0 {
				continue
			}
			ux, uy := vec.X/norm, vec.Y/norm
			stepX, stepY := vec.X/float32(n-1), vec.Y/float32(n-1)

			var sum float32
			count := 0
			for i := 0; i < n; i++ {
				x := a.Position.X + float32(i)*stepX
				y := a.Position.Y + float32(i)*stepY
				dot := ux*pafX.Sample(x, y, opts.Interpolation) + uy*pafY.Sample(x, y, opts.Interpolation)
				if dot > opts.MidPointsScoreThreshold {
					sum += dot
					count++
				}
			}

			if count == 0 || float32(count)/float32(n) < opts.FoundMidPointsRatioThreshold {
				continue
			}

			score := sum / float32(count)
			if opts.LimbLengthPenalty {
				score += math32.Min(halfHeight/norm-1, 0)
				if score <= 0 {
					continue
				}
			}

			connections = append(connections, Connection{
				Limb:  limb.Index,
				PeakA: a.ID,
				PeakB: b.ID,
				Score: score,
			})
		}
	}

	return connections
}
