package openpose

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-pose/featuremap"
	"github.com/nvr-ai/go-pose/models/postprocess"
)

// ErrShapeMismatch is returned when the heatmap or PAF stacks do not match the
// decoder's topology.
var ErrShapeMismatch = errors.New("openpose: feature map shape mismatch")

// Stage names reported to the StageTimer.
const (
	StageFindPeaks   = "find_peaks"
	StageGroupPeaks  = "group_peaks"
	StageFilterPoses = "filter_poses"
)

// Decoder turns heatmaps and part affinity fields into poses. It is immutable
// after construction and safe for concurrent use.
type Decoder struct {
	cfg      Config
	topology Topology
	logger   *zap.Logger
	timer    StageTimer
}

// NewDecoder creates a decoder.
//
// Arguments:
//   - cfg: Decoding thresholds.
//   - opts: Optional topology, logger and profiler.
//
// Returns:
//   - *Decoder: The decoder.
//   - error: If the config or topology is invalid.
func NewDecoder(cfg Config, opts ...Option) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	interp, err := featuremap.ParseInterpolation(string(cfg.Interpolation))
	if err != nil {
		return nil, err
	}
	cfg.Interpolation = interp

	d := &Decoder{
		cfg:      cfg,
		topology: COCO18(),
		logger:   zap.NewNop(),
		timer:    nopTimer{},
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.topology.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Config returns the decoder's thresholds.
func (d *Decoder) Config() Config { return d.cfg }

// Topology returns the decoder's skeleton definition.
func (d *Decoder) Topology() Topology { return d.topology }

// Decode extracts all poses from one frame's network outputs.
//
// Arguments:
//   - heatmaps: K+1 keypoint heatmaps, the last being background.
//   - pafs: 2*L PAF channels.
//
// Returns:
//   - []HumanPose: Poses in feature-map coordinates, in skeleton creation order.
//   - error: ErrShapeMismatch if the inputs do not fit the topology. No other
//     errors are possible; frames without confident peaks yield no poses.
func (d *Decoder) Decode(heatmaps, pafs featuremap.Set) ([]HumanPose, error) {
	if err := d.checkShapes(heatmaps, pafs); err != nil {
		return nil, err
	}

	stop := d.timer.StartOperation(StageFindPeaks)
	peaksByType := d.FindAllPeaks(heatmaps)
	stop()

	stop = d.timer.StartOperation(StageGroupPeaks)
	all := flatten(peaksByType)
	skeletons := d.group(peaksByType, all, pafs)
	stop()

	stop = d.timer.StartOperation(StageFilterPoses)
	poses := FilterPoses(skeletons, all, d.cfg.MinJointsNumber, d.cfg.MinSubsetScore)
	stop()

	d.logger.Debug("decoded poses",
		zap.Int("peaks", len(all)),
		zap.Int("skeletons", len(skeletons)),
		zap.Int("poses", len(poses)),
	)
	return poses, nil
}

// FindAllPeaks runs FindPeaks over the K keypoint heatmaps in parallel and
// numbers the peaks globally: heatmap 0 first, each later heatmap continuing
// from the running total.
//
// Arguments:
//   - heatmaps: At least K heatmaps.
//
// Returns:
//   - [][]postprocess.Peak: Peaks per keypoint type with global ids.
func (d *Decoder) FindAllPeaks(heatmaps featuremap.Set) [][]postprocess.Peak {
	k := min(d.topology.NumKeypoints(), heatmaps.Len())
	peaks := make([][]postprocess.Peak, k)

	workers := d.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, k)

	jobs := make(chan int, k)
	for i := 0; i < k; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				peaks[i] = FindPeaks(heatmaps.Channel(i), i, d.cfg.ConfidenceThreshold, d.cfg.MinPeaksDistance)
			}
		}()
	}
	wg.Wait()

	offset := 0
	for i := range peaks {
		for j := range peaks[i] {
			peaks[i][j].ID += offset
		}
		offset += len(peaks[i])
	}
	return peaks
}

func (d *Decoder) group(peaksByType [][]postprocess.Peak, all []postprocess.Peak, pafs featuremap.Set) []Skeleton {
	asm := NewAssembler(d.topology.NumKeypoints(), all)
	opts := d.cfg.scoreOptions()

	for _, limb := range d.topology.Limbs {
		candA, candB := peaksByType[limb.A], peaksByType[limb.B]

		switch {
		case len(candA) == 0 && len(candB) == 0:
			continue
		case len(candA) == 0:
			asm.AddSingletons(candB)
			continue
		case len(candB) == 0:
			asm.AddSingletons(candA)
			continue
		}

		candidates := ScoreLimb(limb, candA, candB, pafs.Channel(limb.PafX), pafs.Channel(limb.PafY), opts)
		matched := MatchConnections(candidates)
		asm.Add(limb, matched)

		if ce := d.logger.Check(zap.DebugLevel, "limb matched"); ce != nil {
			ce.Write(
				zap.Int("limb", limb.Index),
				zap.Int("candidates", len(candidates)),
				zap.Int("matched", len(matched)),
			)
		}
	}

	return asm.Skeletons()
}

func (d *Decoder) checkShapes(heatmaps, pafs featuremap.Set) error {
	if heatmaps.Len() != d.topology.NumHeatmaps() {
		return errors.Wrapf(ErrShapeMismatch, "got %d heatmaps, want %d", heatmaps.Len(), d.topology.NumHeatmaps())
	}
	if pafs.Len() != d.topology.NumPAFs() {
		return errors.Wrapf(ErrShapeMismatch, "got %d PAF channels, want %d", pafs.Len(), d.topology.NumPAFs())
	}
	if heatmaps.Width() != pafs.Width() || heatmaps.Height() != pafs.Height() {
		return errors.Wrapf(ErrShapeMismatch, "heatmaps are %dx%d, PAFs are %dx%d",
			heatmaps.Width(), heatmaps.Height(), pafs.Width(), pafs.Height())
	}
	return nil
}

func flatten(peaksByType [][]postprocess.Peak) []postprocess.Peak {
	n := 0
	for _, p := range peaksByType {
		n += len(p)
	}
	all := make([]postprocess.Peak, 0, n)
	for _, p := range peaksByType {
		all = append(all, p...)
	}
	return all
}
