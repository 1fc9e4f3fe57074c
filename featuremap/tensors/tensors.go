// Package tensors adapts onnxruntime and gorgonia tensors to feature map sets.
package tensors

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-pose/featuremap"
)

// Tensor is the read side of an onnxruntime output tensor.
// *ort.Tensor[float32] satisfies it.
type Tensor interface {
	GetData() []float32
	GetShape() ort.Shape
}

// FromTensor creates a set of channel views over an onnxruntime output.
//
// Arguments:
//   - t: Output tensor shaped [C, H, W] or [1, C, H, W].
//
// Returns:
//   - featuremap.Set: Views borrowing the tensor's data.
//   - error: featuremap.ErrInvalidLayout for unsupported shapes.
func FromTensor(t Tensor) (featuremap.Set, error) {
	if t == nil {
		return featuremap.Set{}, errors.Wrap(featuremap.ErrInvalidLayout, "nil tensor")
	}
	shape := t.GetShape()
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	c, h, w, err := channelsHeightWidth(dims)
	if err != nil {
		return featuremap.Set{}, err
	}
	return featuremap.NewSet(t.GetData(), c, h, w)
}

// FromDense creates a set of channel views over a gorgonia dense tensor.
// Views (sliced tensors) are materialized first, so the returned maps always
// read contiguous memory.
//
// Arguments:
//   - t: Float32 tensor shaped [C, H, W] or [1, C, H, W].
//
// Returns:
//   - featuremap.Set: Views over the tensor's backing data.
//   - error: featuremap.ErrInvalidLayout for nil tensors, wrong dtypes or shapes.
func FromDense(t *tensor.Dense) (featuremap.Set, error) {
	if t == nil {
		return featuremap.Set{}, errors.Wrap(featuremap.ErrInvalidLayout, "nil tensor")
	}
	if t.Dtype() != tensor.Float32 {
		return featuremap.Set{}, errors.Wrapf(featuremap.ErrInvalidLayout, "dtype %v, want float32", t.Dtype())
	}
	if t.IsMaterializable() {
		materialized, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return featuremap.Set{}, errors.Wrap(featuremap.ErrInvalidLayout, "cannot materialize tensor view")
		}
		t = materialized
	}

	c, h, w, err := channelsHeightWidth(t.Shape())
	if err != nil {
		return featuremap.Set{}, err
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return featuremap.Set{}, errors.Wrap(featuremap.ErrInvalidLayout, "tensor data is not a float32 slice")
	}
	return featuremap.NewSet(data, c, h, w)
}

func channelsHeightWidth(dims []int) (c, h, w int, err error) {
	switch {
	case len(dims) == 3:
		return dims[0], dims[1], dims[2], nil
	case len(dims) == 4 && dims[0] == 1:
		return dims[1], dims[2], dims[3], nil
	default:
		return 0, 0, 0, errors.Wrapf(featuremap.ErrInvalidLayout, "shape %v, want [C H W] or [1 C H W]", dims)
	}
}
