package openpose

import (
	"github.com/nvr-ai/go-pose/featuremap"
	"github.com/nvr-ai/go-pose/models/postprocess"
)

// FindPeaks extracts the local maxima of one heatmap.
//
// A pixel is a candidate when its value is at least threshold, positive, and
// not smaller than any of its 4-connected neighbours. NaN never qualifies.
// Candidates are then thinned with distance NMS (see postprocess.ApplyPeakNMS)
// so that no two returned peaks are closer than minDistance; on equal values
// the first candidate in raster order wins.
//
// Arguments:
//   - heatmap: The heatmap view.
//   - keypointType: Keypoint type recorded on every returned peak.
//   - threshold: Minimum confidence.
//   - minDistance: Suppression radius in pixels.
//
// Returns:
//   - []postprocess.Peak: Peaks in raster order with local ids 0..n-1.
func FindPeaks(heatmap featuremap.Map, keypointType int, threshold, minDistance float32) []postprocess.Peak {
	var candidates []postprocess.Peak

	for y := 0; y < heatmap.Height(); y++ {
		for x := 0; x < heatmap.Width(); x++ {
			val := heatmap.At(x, y)
			// Written as !(>=) so that NaN is rejected.
			if !(val >= threshold) || val <= 0 {
				continue
			}
			if !isLocalMaximum(heatmap, x, y, val) {
				continue
			}
			candidates = append(candidates, postprocess.Peak{
				Position: postprocess.Point{X: float32(x), Y: float32(y)},
				Score:    val,
				Type:     keypointType,
			})
		}
	}

	peaks := postprocess.ApplyPeakNMS(candidates, &postprocess.NMSConfig{MinDistance: minDistance})
	for i := range peaks {
		peaks[i].ID = i
	}
	return peaks
}

var neighbours = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func isLocalMaximum(heatmap featuremap.Map, x, y int, val float32) bool {
	for _, d := range neighbours {
		nx, ny := x+d[0], y+d[1]
		if heatmap.In(nx, ny) && heatmap.At(nx, ny) > val {
			return false
		}
	}
	return true
}
