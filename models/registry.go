// Package models - registry for pose models.
package models

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pose/models/model"
	"github.com/nvr-ai/go-pose/models/openpose"
)

// ErrUnsupportedModel is returned for model names the registry does not know.
var ErrUnsupportedModel = errors.New("unsupported model name")

var registry = map[model.Name]model.BaseModel{
	model.ModelNameOpenPose: {
		Name:          model.ModelNameOpenPose,
		Family:        model.ModelFamilyCOCO,
		Outputs:       []string{"Mconv7_stage2_L2", "Mconv7_stage2_L1"},
		Stride:        8,
		UpsampleRatio: 1,
	},
	model.ModelNameLightweightOpenPose: {
		Name:          model.ModelNameLightweightOpenPose,
		Family:        model.ModelFamilyCOCO,
		Outputs:       []string{"stage_1_output_1_heatmaps", "stage_1_output_0_pafs"},
		Stride:        8,
		UpsampleRatio: 1,
	},
}

// NewModel creates a pose model descriptor by name.
//
// Outputs in args override the registered output names when set.
//
// Arguments:
//   - args: The model name and optional overrides.
//
// Returns:
//   - model.Model: The model.
//   - error: ErrUnsupportedModel for unknown names.
func NewModel(args model.NewModelArgs) (model.Model, error) {
	base, ok := registry[args.Name]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedModel, "%q", args.Name)
	}

	base.Outputs = append([]string(nil), base.Outputs...)
	if len(args.Outputs) > 0 {
		if len(args.Outputs) != 2 {
			return nil, errors.Errorf("model %s needs a heatmap and a PAF output, got %d outputs", args.Name, len(args.Outputs))
		}
		base.Outputs = args.Outputs
	}

	switch base.Family {
	case model.ModelFamilyCOCO:
		return &poseModel{base: base, topology: openpose.COCO18()}, nil
	default:
		return nil, errors.Errorf("model %s has unknown family %s", args.Name, base.Family)
	}
}

// Names lists the registered model names in sorted order.
func Names() []model.Name {
	names := make([]model.Name, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

type poseModel struct {
	base     model.BaseModel
	topology openpose.Topology
}

func (m *poseModel) Options() model.BaseModel {
	return m.base
}

func (m *poseModel) Topology() openpose.Topology {
	return m.topology
}

func (m *poseModel) DecoderConfig() openpose.Config {
	return openpose.DefaultConfig()
}
