package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pose/models/model"
)

func TestNewModel(t *testing.T) {
	tests := []struct {
		name            string
		args            model.NewModelArgs
		expectedOutputs []string
		wantErr         bool
	}{
		{
			name:            "OpenPose defaults",
			args:            model.NewModelArgs{Name: model.ModelNameOpenPose},
			expectedOutputs: []string{"Mconv7_stage2_L2", "Mconv7_stage2_L1"},
		},
		{
			name:            "Lightweight OpenPose",
			args:            model.NewModelArgs{Name: model.ModelNameLightweightOpenPose},
			expectedOutputs: []string{"stage_1_output_1_heatmaps", "stage_1_output_0_pafs"},
		},
		{
			name: "Output override",
			args: model.NewModelArgs{
				Name:    model.ModelNameOpenPose,
				Outputs: []string{"heatmaps", "pafs"},
			},
			expectedOutputs: []string{"heatmaps", "pafs"},
		},
		{
			name:    "Single output override",
			args:    model.NewModelArgs{Name: model.ModelNameOpenPose, Outputs: []string{"heatmaps"}},
			wantErr: true,
		},
		{
			name:    "Unknown model",
			args:    model.NewModelArgs{Name: "yolov8-pose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewModel(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)

			opts := m.Options()
			assert.Equal(t, tt.args.Name, opts.Name)
			assert.Equal(t, tt.expectedOutputs, opts.Outputs)
			assert.Equal(t, 8, opts.Stride)
			assert.Equal(t, "coco18", m.Topology().Name)
			assert.NoError(t, m.DecoderConfig().Validate())
		})
	}
}

func TestNewModel_UnknownIsSentinel(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{Name: "nope"})
	assert.True(t, errors.Is(err, ErrUnsupportedModel))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []model.Name{model.ModelNameLightweightOpenPose, model.ModelNameOpenPose}, Names())
}

func TestNewModel_DoesNotShareRegistrySlices(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{Name: model.ModelNameOpenPose})
	require.NoError(t, err)
	m.Options().Outputs[0] = "mutated"

	again, err := NewModel(model.NewModelArgs{Name: model.ModelNameOpenPose})
	require.NoError(t, err)
	assert.Equal(t, "Mconv7_stage2_L2", again.Options().Outputs[0])
}
