// Package util - Loading of dumped network outputs.
package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-pose/inference"
)

// ErrInvalidDump is returned for tensor dumps whose data does not fill their
// shape.
var ErrInvalidDump = errors.New("invalid tensor dump")

// TensorDump is a row-major float32 tensor as written by an export script.
type TensorDump struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// Dense wraps the dump's data in a gorgonia tensor without copying.
//
// Returns:
//   - *tensor.Dense: The tensor.
//   - error: ErrInvalidDump if the shape is empty or does not match the data.
func (d TensorDump) Dense() (*tensor.Dense, error) {
	if len(d.Shape) == 0 {
		return nil, errors.Wrap(ErrInvalidDump, "empty shape")
	}
	n := 1
	for _, dim := range d.Shape {
		if dim <= 0 {
			return nil, errors.Wrapf(ErrInvalidDump, "shape %v", d.Shape)
		}
		n *= dim
	}
	if n != len(d.Data) {
		return nil, errors.Wrapf(ErrInvalidDump, "shape %v needs %d values, have %d", d.Shape, n, len(d.Data))
	}
	return tensor.New(tensor.WithShape(d.Shape...), tensor.WithBacking(d.Data)), nil
}

// FrameDump is one frame's heatmap and PAF outputs. An export either fills
// Heatmaps and PAFs, or lists every session output by name in Outputs.
type FrameDump struct {
	Frame    int                   `json:"frame"`
	Scale    inference.Scale       `json:"scale"`
	Heatmaps TensorDump            `json:"heatmaps"`
	PAFs     TensorDump            `json:"pafs"`
	Outputs  map[string]TensorDump `json:"outputs,omitempty"`
}

// FrameFile represents a frame dump file.
type FrameFile struct {
	// Path is the path to the dump file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
	// Dump is the decoded content.
	Dump FrameDump
}

// LoadFrameFile reads one JSON frame dump.
//
// Arguments:
//   - path: Path to the dump file.
//
// Returns:
//   - FrameDump: The decoded dump.
//   - error: If the file cannot be read or decoded.
func LoadFrameFile(path string) (FrameDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FrameDump{}, errors.Wrapf(err, "read %s", path)
	}
	var dump FrameDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return FrameDump{}, errors.Wrapf(err, "decode %s", path)
	}
	return dump, nil
}

// LoadDirectoryFrames reads all frame-<N>.json dumps from a directory.
// Other files are ignored.
//
// Arguments:
//   - dir: Directory path containing the dumps.
//
// Returns:
//   - []FrameFile: Dumps sorted by frame number. The file name's number
//     replaces the frame field of the content.
//   - error: Error if loading fails.
func LoadDirectoryFrames(dir string) ([]FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}

	var frames []FrameFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || !strings.HasPrefix(name, "frame-") {
			continue
		}

		frame, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "frame-"), ".json"))
		if err != nil {
			return nil, errors.Wrapf(err, "frame number of %s", name)
		}

		path := filepath.Join(dir, name)
		dump, err := LoadFrameFile(path)
		if err != nil {
			return nil, err
		}
		dump.Frame = frame

		frames = append(frames, FrameFile{Path: path, Frame: frame, Dump: dump})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})

	return frames, nil
}
