package openpose

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-pose/featuremap"
)

// Config holds the decoding thresholds.
type Config struct {
	// ConfidenceThreshold is the minimum heatmap value for a peak candidate.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold" mapstructure:"confidence_threshold" validate:"gte=0"`
	// MinPeaksDistance is the suppression radius between peaks of one heatmap.
	MinPeaksDistance float32 `json:"min_peaks_distance" yaml:"min_peaks_distance" mapstructure:"min_peaks_distance" validate:"gte=0"`
	// MidPointsScoreThreshold is the per-sample PAF alignment threshold.
	MidPointsScoreThreshold float32 `json:"mid_points_score_threshold" yaml:"mid_points_score_threshold" mapstructure:"mid_points_score_threshold"`
	// FoundMidPointsRatioThreshold is the fraction of samples that must pass.
	// Values above 1 reject every limb.
	FoundMidPointsRatioThreshold float32 `json:"found_mid_points_ratio_threshold" yaml:"found_mid_points_ratio_threshold" mapstructure:"found_mid_points_ratio_threshold" validate:"gte=0"`
	// MinJointsNumber is the minimum joint count of a kept pose.
	MinJointsNumber int `json:"min_joints_number" yaml:"min_joints_number" mapstructure:"min_joints_number" validate:"gte=0"`
	// MinSubsetScore is the minimum average per-joint score of a kept pose.
	MinSubsetScore float32 `json:"min_subset_score" yaml:"min_subset_score" mapstructure:"min_subset_score"`
	// MidPointsNumber is the number of PAF samples taken along a candidate limb.
	MidPointsNumber int `json:"mid_points_number" yaml:"mid_points_number" mapstructure:"mid_points_number" validate:"gte=2"`
	// Interpolation used when reading the PAF between pixels. Empty selects
	// nearest.
	Interpolation featuremap.Interpolation `json:"interpolation" yaml:"interpolation" mapstructure:"interpolation"`
	// LimbLengthPenalty adds min(0.5*mapHeight/length - 1, 0) to limb scores,
	// penalizing limbs longer than half the map height.
	LimbLengthPenalty bool `json:"limb_length_penalty" yaml:"limb_length_penalty" mapstructure:"limb_length_penalty"`
	// Workers bounds the peak finding goroutines. Zero uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

// DefaultConfig returns the thresholds the OpenVINO OpenPose wrapper ships
// with.
//
// Returns:
//   - Config: Default decoding thresholds.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:          0.1,
		MinPeaksDistance:             3,
		MidPointsScoreThreshold:      0.05,
		FoundMidPointsRatioThreshold: 0.8,
		MinJointsNumber:              3,
		MinSubsetScore:               0.2,
		MidPointsNumber:              10,
		Interpolation:                featuremap.InterpolationNearest,
	}
}

var validate = validator.New()

// Validate checks the configuration against its field rules and the
// interpolation name.
//
// Returns:
//   - error: A wrapped validator or interpolation error if any rule fails.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid decoder config")
	}
	if _, err := featuremap.ParseInterpolation(string(c.Interpolation)); err != nil {
		return errors.Wrap(err, "invalid decoder config")
	}
	return nil
}

// StageTimer times named decoding stages. *profiler.Profiler satisfies it.
type StageTimer interface {
	StartOperation(name string) func()
}

type nopTimer struct{}

func (nopTimer) StartOperation(string) func() { return func() {} }

// Option customizes a Decoder.
type Option func(*Decoder)

// WithTopology replaces the default COCO18 topology.
func WithTopology(t Topology) Option {
	return func(d *Decoder) {
		d.topology = t
	}
}

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithProfiler records stage durations on the given timer.
func WithProfiler(timer StageTimer) Option {
	return func(d *Decoder) {
		if timer != nil {
			d.timer = timer
		}
	}
}
