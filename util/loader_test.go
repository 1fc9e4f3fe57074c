package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pose/featuremap/tensors"
	"github.com/nvr-ai/go-pose/inference"
)

func writeDump(t *testing.T, dir, name string, dump FrameDump) {
	t.Helper()
	data, err := json.Marshal(dump)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func smallDump() FrameDump {
	return FrameDump{
		Scale:    inference.Scale{X: 1.5, Y: 1.5},
		Heatmaps: TensorDump{Shape: []int{1, 2, 2, 3}, Data: make([]float32, 12)},
		PAFs:     TensorDump{Shape: []int{2, 2, 3}, Data: []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	}
}

func TestLoadDirectoryFrames(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "frame-10.json", smallDump())
	writeDump(t, dir, "frame-2.json", smallDump())
	writeDump(t, dir, "frame-7.json", smallDump())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte("{}"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-1.json"), 0o755))

	frames, err := LoadDirectoryFrames(dir)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	for i, expected := range []int{2, 7, 10} {
		assert.Equal(t, expected, frames[i].Frame)
		assert.Equal(t, expected, frames[i].Dump.Frame)
		assert.Equal(t, inference.Scale{X: 1.5, Y: 1.5}, frames[i].Dump.Scale)
	}
}

func TestLoadDirectoryFrames_Errors(t *testing.T) {
	t.Run("Missing directory", func(t *testing.T) {
		_, err := LoadDirectoryFrames(filepath.Join(t.TempDir(), "absent"))
		assert.Error(t, err)
	})

	t.Run("Bad frame number", func(t *testing.T) {
		dir := t.TempDir()
		writeDump(t, dir, "frame-x.json", smallDump())
		_, err := LoadDirectoryFrames(dir)
		assert.Error(t, err)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-1.json"), []byte("{"), 0o600))
		_, err := LoadDirectoryFrames(dir)
		assert.Error(t, err)
	})
}

func TestTensorDump_Dense(t *testing.T) {
	dump := smallDump()

	dense, err := dump.PAFs.Dense()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3}, []int(dense.Shape()))

	set, err := tensors.FromDense(dense)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, float32(10), set.Channel(1).At(1, 1))

	tests := []struct {
		name string
		dump TensorDump
	}{
		{name: "Empty shape", dump: TensorDump{Data: []float32{1}}},
		{name: "Zero dimension", dump: TensorDump{Shape: []int{0, 2}}},
		{name: "Short data", dump: TensorDump{Shape: []int{2, 2}, Data: []float32{1, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.dump.Dense()
			assert.True(t, errors.Is(err, ErrInvalidDump))
		})
	}
}
