// Package openpose - Bottom-up multi-person pose decoding from keypoint
// heatmaps and part affinity fields.
package openpose

import (
	"github.com/pkg/errors"
)

// ErrInvalidTopology is returned when a limb table references keypoints or
// PAF channels that do not exist.
var ErrInvalidTopology = errors.New("openpose: invalid topology")

// Limb connects two keypoint types and names the PAF channels that score it.
type Limb struct {
	// Index is the position of the limb in the topology.
	Index int `json:"index" yaml:"index"`
	// A is the keypoint type the limb starts at.
	A int `json:"a" yaml:"a"`
	// B is the keypoint type the limb ends at.
	B int `json:"b" yaml:"b"`
	// PafX is the PAF channel holding the x component.
	PafX int `json:"paf_x" yaml:"paf_x"`
	// PafY is the PAF channel holding the y component.
	PafY int `json:"paf_y" yaml:"paf_y"`
}

// Topology is a fixed skeleton definition. Limbs are processed in order.
type Topology struct {
	Name      string   `json:"name" yaml:"name"`
	Keypoints []string `json:"keypoints" yaml:"keypoints"`
	Limbs     []Limb   `json:"limbs" yaml:"limbs"`
}

// NumKeypoints returns K.
func (t Topology) NumKeypoints() int { return len(t.Keypoints) }

// NumHeatmaps returns the expected heatmap channel count: K plus background.
func (t Topology) NumHeatmaps() int { return len(t.Keypoints) + 1 }

// NumPAFs returns the expected PAF channel count: two per limb.
func (t Topology) NumPAFs() int { return 2 * len(t.Limbs) }

// Validate checks that every limb references existing keypoint types and PAF
// channels, never joins a keypoint type to itself, and that no PAF channel is
// claimed twice.
//
// Returns:
//   - error: ErrInvalidTopology describing the first problem found.
func (t Topology) Validate() error {
	k := len(t.Keypoints)
	if k == 0 {
		return errors.Wrap(ErrInvalidTopology, "no keypoints")
	}
	if len(t.Limbs) == 0 {
		return errors.Wrap(ErrInvalidTopology, "no limbs")
	}

	pafs := t.NumPAFs()
	claimed := make(map[int]int, pafs)
	for i, limb := range t.Limbs {
		if limb.Index != i {
			return errors.Wrapf(ErrInvalidTopology, "limb %d has index %d", i, limb.Index)
		}
		if limb.A < 0 || limb.A >= k || limb.B < 0 || limb.B >= k {
			return errors.Wrapf(ErrInvalidTopology, "limb %d joins %d-%d, have %d keypoints", i, limb.A, limb.B, k)
		}
		if limb.A == limb.B {
			return errors.Wrapf(ErrInvalidTopology, "limb %d joins keypoint %d to itself", i, limb.A)
		}
		for _, ch := range []int{limb.PafX, limb.PafY} {
			if ch < 0 || ch >= pafs {
				return errors.Wrapf(ErrInvalidTopology, "limb %d uses PAF channel %d, have %d", i, ch, pafs)
			}
			if other, ok := claimed[ch]; ok {
				return errors.Wrapf(ErrInvalidTopology, "PAF channel %d used by limbs %d and %d", ch, other, i)
			}
			claimed[ch] = i
		}
	}
	return nil
}

// COCO18 keypoint names in heatmap order.
var coco18Keypoints = []string{
	"nose", "neck",
	"right_shoulder", "right_elbow", "right_wrist",
	"left_shoulder", "left_elbow", "left_wrist",
	"right_hip", "right_knee", "right_ankle",
	"left_hip", "left_knee", "left_ankle",
	"right_eye", "left_eye", "right_ear", "left_ear",
}

// COCO18 returns the 18 keypoint, 19 limb topology used by OpenPose models
// trained on COCO (including the OpenVINO human-pose-estimation-0001 model).
// The last two limbs (shoulder to ear) close cycles and only ever merge
// skeletons or get skipped.
func COCO18() Topology {
	pairs := [][4]int{
		// A, B, PafX, PafY
		{1, 2, 12, 13},
		{1, 5, 20, 21},
		{2, 3, 14, 15},
		{3, 4, 16, 17},
		{5, 6, 22, 23},
		{6, 7, 24, 25},
		{1, 8, 0, 1},
		{8, 9, 2, 3},
		{9, 10, 4, 5},
		{1, 11, 6, 7},
		{11, 12, 8, 9},
		{12, 13, 10, 11},
		{1, 0, 28, 29},
		{0, 14, 30, 31},
		{14, 16, 34, 35},
		{0, 15, 32, 33},
		{15, 17, 36, 37},
		{2, 16, 18, 19},
		{5, 17, 26, 27},
	}

	limbs := make([]Limb, len(pairs))
	for i, p := range pairs {
		limbs[i] = Limb{Index: i, A: p[0], B: p[1], PafX: p[2], PafY: p[3]}
	}

	return Topology{
		Name:      "coco18",
		Keypoints: append([]string(nil), coco18Keypoints...),
		Limbs:     limbs,
	}
}
