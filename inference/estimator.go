// Package inference - Pose estimation on top of a network's raw outputs.
package inference

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-pose/featuremap"
	"github.com/nvr-ai/go-pose/featuremap/tensors"
	"github.com/nvr-ai/go-pose/models"
	"github.com/nvr-ai/go-pose/models/model"
	"github.com/nvr-ai/go-pose/models/openpose"
	"github.com/nvr-ai/go-pose/models/postprocess"
	"github.com/nvr-ai/go-pose/profiler"
)

// OperationDecode names the whole per-frame decode in the profiler.
const OperationDecode = "decode"

// ErrMissingOutput is returned when a named model output is absent.
var ErrMissingOutput = errors.New("missing model output")

// Options maps feature-map coordinates back to the network input.
type Options struct {
	// Stride is the network's input-to-feature-map downscale.
	Stride float32 `json:"stride" yaml:"stride" mapstructure:"stride" validate:"gt=0"`
	// UpsampleRatio is the factor the feature maps were resized by before
	// decoding.
	UpsampleRatio float32 `json:"upsample_ratio" yaml:"upsample_ratio" mapstructure:"upsample_ratio" validate:"gt=0"`
}

// DefaultOptions returns stride 8 with maps decoded at network resolution.
func DefaultOptions() Options {
	return Options{Stride: 8, UpsampleRatio: 1}
}

var validate = validator.New()

// Validate checks the options against their field rules.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(err, "invalid estimator options")
	}
	return nil
}

// Scale is the original-image to network-input ratio per axis. A zero
// component is treated as 1.
type Scale struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Frame is one inference result ready for decoding.
type Frame struct {
	ID       int
	Heatmaps featuremap.Set
	PAFs     featuremap.Set
	Scale    Scale
}

// NewFrame wraps a network's heatmap and PAF output tensors.
//
// Arguments:
//   - id: Frame number carried into the result.
//   - heatmaps: The [1,K+1,H,W] heatmap tensor.
//   - pafs: The [1,2L,H,W] PAF tensor.
//   - scale: Original-image to network-input ratio.
//
// Returns:
//   - Frame: The frame.
//   - error: If either tensor has an unusable layout.
func NewFrame(id int, heatmaps, pafs tensors.Tensor, scale Scale) (Frame, error) {
	heat, err := tensors.FromTensor(heatmaps)
	if err != nil {
		return Frame{}, errors.Wrap(err, "heatmaps")
	}
	paf, err := tensors.FromTensor(pafs)
	if err != nil {
		return Frame{}, errors.Wrap(err, "pafs")
	}
	return Frame{ID: id, Heatmaps: heat, PAFs: paf, Scale: scale}, nil
}

// NewFrameFromOutputs picks the heatmap and PAF tensors from a session's
// named outputs using the model's output names.
//
// Arguments:
//   - id: Frame number carried into the result.
//   - m: The model whose Outputs name the heatmaps and PAFs.
//   - outputs: Output tensors by name.
//   - scale: Original-image to network-input ratio.
//
// Returns:
//   - Frame: The frame.
//   - error: ErrMissingOutput, or a layout error from NewFrame.
func NewFrameFromOutputs(id int, m model.Model, outputs map[string]tensors.Tensor, scale Scale) (Frame, error) {
	heat, paf, err := SelectOutputs(m, outputs)
	if err != nil {
		return Frame{}, err
	}
	return NewFrame(id, heat, paf, scale)
}

// SelectOutputs returns the heatmap and PAF entries of outputs, named by the
// model's first and second output.
//
// Arguments:
//   - m: The model.
//   - outputs: Values keyed by output name.
//
// Returns:
//   - T: The heatmap output.
//   - T: The PAF output.
//   - error: ErrMissingOutput if either name is absent.
func SelectOutputs[T any](m model.Model, outputs map[string]T) (T, T, error) {
	var zero T
	names := m.Options().Outputs
	if len(names) != 2 {
		return zero, zero, errors.Errorf("model %s names %d outputs, want 2", m.Options().Name, len(names))
	}
	heat, ok := outputs[names[0]]
	if !ok {
		return zero, zero, errors.Wrapf(ErrMissingOutput, "heatmaps %q", names[0])
	}
	paf, ok := outputs[names[1]]
	if !ok {
		return zero, zero, errors.Wrapf(ErrMissingOutput, "pafs %q", names[1])
	}
	return heat, paf, nil
}

// Result holds the poses of one frame in original-image coordinates.
type Result struct {
	FrameID int                  `json:"frame"`
	Poses   []openpose.HumanPose `json:"poses"`
}

// Estimator decodes frames into image-space poses.
type Estimator interface {
	Predict(ctx context.Context, frame Frame) (*Result, error)
	PredictBatch(ctx context.Context, frames []Frame) ([]Result, error)
	Model() model.Model
}

// EstimatorBuilder assembles an Estimator with a fluent API.
type EstimatorBuilder struct {
	model    model.Model
	cfg      *openpose.Config
	options  Options
	logger   *zap.Logger
	profiler *profiler.Profiler
	err      error
}

// NewEstimatorBuilder creates a builder with DefaultOptions.
//
// Returns:
//   - *EstimatorBuilder: The estimator builder.
func NewEstimatorBuilder() *EstimatorBuilder {
	return &EstimatorBuilder{
		options: DefaultOptions(),
		logger:  zap.NewNop(),
	}
}

// WithModel selects the model whose outputs will be decoded. The model's
// stride and upsample ratio replace the current options.
//
// Arguments:
//   - args: The model arguments.
//
// Returns:
//   - *EstimatorBuilder: The estimator builder.
func (b *EstimatorBuilder) WithModel(args model.NewModelArgs) *EstimatorBuilder {
	if b.HasError() {
		return b
	}
	m, err := models.NewModel(args)
	if err != nil {
		b.err = err
		return b
	}
	b.model = m
	opts := m.Options()
	b.options = Options{Stride: float32(opts.Stride), UpsampleRatio: opts.UpsampleRatio}
	return b
}

// WithDecoderConfig overrides the model's default decoding thresholds.
func (b *EstimatorBuilder) WithDecoderConfig(cfg openpose.Config) *EstimatorBuilder {
	if b.HasError() {
		return b
	}
	b.cfg = &cfg
	return b
}

// WithOptions overrides the coordinate mapping.
func (b *EstimatorBuilder) WithOptions(opts Options) *EstimatorBuilder {
	if b.HasError() {
		return b
	}
	if err := opts.Validate(); err != nil {
		b.err = err
		return b
	}
	b.options = opts
	return b
}

// WithLogger sets the logger shared with the decoder.
func (b *EstimatorBuilder) WithLogger(logger *zap.Logger) *EstimatorBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithProfiler records decode stage timings and pose counts.
func (b *EstimatorBuilder) WithProfiler(p *profiler.Profiler) *EstimatorBuilder {
	b.profiler = p
	return b
}

// HasError checks if the builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EstimatorBuilder) HasError() bool {
	return b.err != nil
}

// MustBuild builds the estimator and panics if there is an error.
func (b *EstimatorBuilder) MustBuild() Estimator {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build builds the estimator.
//
// Returns:
//   - Estimator: The estimator.
//   - error: The first error recorded by the builder, or a decoder error.
func (b *EstimatorBuilder) Build() (Estimator, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.model == nil {
		return nil, errors.New("model not configured")
	}

	cfg := b.model.DecoderConfig()
	if b.cfg != nil {
		cfg = *b.cfg
	}

	opts := []openpose.Option{
		openpose.WithTopology(b.model.Topology()),
		openpose.WithLogger(b.logger.Named("decoder")),
	}
	if b.profiler != nil {
		opts = append(opts, openpose.WithProfiler(b.profiler))
	}

	decoder, err := openpose.NewDecoder(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &estimator{
		model:    b.model,
		decoder:  decoder,
		options:  b.options,
		logger:   b.logger,
		profiler: b.profiler,
	}, nil
}

type estimator struct {
	model    model.Model
	decoder  *openpose.Decoder
	options  Options
	logger   *zap.Logger
	profiler *profiler.Profiler
}

func (e *estimator) Model() model.Model {
	return e.model
}

// Predict decodes one frame and maps the poses to original-image pixels.
func (e *estimator) Predict(ctx context.Context, frame Frame) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stop func()
	if e.profiler != nil {
		stop = e.profiler.StartOperation(OperationDecode)
	}
	poses, err := e.decoder.Decode(frame.Heatmaps, frame.PAFs)
	if stop != nil {
		stop()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d", frame.ID)
	}

	Rescale(poses, e.options, frame.Scale)
	if e.profiler != nil {
		e.profiler.RecordMetric("poses", float64(len(poses)))
	}
	e.logger.Debug("frame decoded", zap.Int("frame", frame.ID), zap.Int("poses", len(poses)))

	return &Result{FrameID: frame.ID, Poses: poses}, nil
}

// PredictBatch decodes frames in order, stopping at the first error or when
// ctx is cancelled.
func (e *estimator) PredictBatch(ctx context.Context, frames []Frame) ([]Result, error) {
	results := make([]Result, 0, len(frames))
	for _, frame := range frames {
		res, err := e.Predict(ctx, frame)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// Rescale maps keypoints from feature-map to original-image coordinates in
// place: p * stride / upsampleRatio * scale. Missing keypoints stay
// postprocess.NotFound.
//
// Arguments:
//   - poses: Decoded poses.
//   - opts: Stride and upsample ratio of the feature maps.
//   - scale: Original-image to network-input ratio.
func Rescale(poses []openpose.HumanPose, opts Options, scale Scale) {
	sx, sy := scale.X, scale.Y
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	fx := opts.Stride / opts.UpsampleRatio * sx
	fy := opts.Stride / opts.UpsampleRatio * sy

	for i := range poses {
		for k, kp := range poses[i].Keypoints {
			if !kp.Found() {
				continue
			}
			poses[i].Keypoints[k] = postprocess.Point{X: kp.X * fx, Y: kp.Y * fy}
		}
	}
}
