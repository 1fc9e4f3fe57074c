package openpose

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pose/models/postprocess"
)

func TestFilterPoses(t *testing.T) {
	peaks := []postprocess.Peak{
		{ID: 0, Type: 0, Position: postprocess.Point{X: 1, Y: 2}, Score: 0.9},
		{ID: 1, Type: 1, Position: postprocess.Point{X: 3, Y: 4}, Score: 0.8},
		{ID: 2, Type: 2, Position: postprocess.Point{X: 5, Y: 6}, Score: 0.7},
	}

	tests := []struct {
		name           string
		skeleton       Skeleton
		minJoints      int
		minSubsetScore float32
		keep           bool
		score          float32
	}{
		{
			name:           "Strong three-joint skeleton",
			skeleton:       Skeleton{Joints: []int{0, 1, 2}, TotalScore: 4.5, JointCount: 3},
			minJoints:      3,
			minSubsetScore: 0.2,
			keep:           true,
			score:          9,
		},
		{
			name:           "Too few joints",
			skeleton:       Skeleton{Joints: []int{0, 1, -1}, TotalScore: 3, JointCount: 2},
			minJoints:      3,
			minSubsetScore: 0.2,
		},
		{
			name:           "Average score below the gate",
			skeleton:       Skeleton{Joints: []int{0, 1, 2}, TotalScore: 0.3, JointCount: 3},
			minJoints:      3,
			minSubsetScore: 0.2,
		},
		{
			name:           "Average score exactly at the gate",
			skeleton:       Skeleton{Joints: []int{0, 1, 2}, TotalScore: 0.75, JointCount: 3},
			minJoints:      3,
			minSubsetScore: 0.25,
			keep:           true,
			score:          1.5,
		},
		{
			name:           "Single joint scores zero",
			skeleton:       Skeleton{Joints: []int{-1, 1, -1}, TotalScore: 0.8, JointCount: 1},
			minJoints:      1,
			minSubsetScore: 0,
			keep:           true,
			score:          0,
		},
		{
			name:           "NaN score is dropped",
			skeleton:       Skeleton{Joints: []int{0, 1, 2}, TotalScore: math32.NaN(), JointCount: 3},
			minJoints:      1,
			minSubsetScore: 0,
		},
		{
			name:           "Empty skeleton is never a pose",
			skeleton:       Skeleton{Joints: []int{-1, -1, -1}},
			minJoints:      0,
			minSubsetScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poses := FilterPoses([]Skeleton{tt.skeleton}, peaks, tt.minJoints, tt.minSubsetScore)
			if !tt.keep {
				assert.Empty(t, poses)
				return
			}

			require.Len(t, poses, 1)
			pose := poses[0]
			assert.InDelta(t, tt.score, pose.Score, 1e-5)
			assert.Equal(t, tt.skeleton.TotalScore, pose.TotalScore)
			assert.Equal(t, tt.skeleton.JointCount, pose.JointCount)
			require.Len(t, pose.Keypoints, len(tt.skeleton.Joints))
			for k, id := range tt.skeleton.Joints {
				if id == emptyJoint {
					assert.Equal(t, postprocess.NotFound, pose.Keypoints[k])
					assert.False(t, pose.Keypoints[k].Found())
					continue
				}
				assert.Equal(t, peaks[id].Position, pose.Keypoints[k])
			}
		})
	}
}

func TestFilterPoses_KeepsCreationOrder(t *testing.T) {
	peaks := []postprocess.Peak{
		{ID: 0, Type: 0, Score: 1},
		{ID: 1, Type: 0, Score: 1},
		{ID: 2, Type: 0, Score: 1},
	}
	skeletons := []Skeleton{
		{Joints: []int{2}, TotalScore: 1, JointCount: 1},
		{Joints: []int{0}, TotalScore: 0.1, JointCount: 1},
		{Joints: []int{1}, TotalScore: 3, JointCount: 1},
	}

	poses := FilterPoses(skeletons, peaks, 1, 0.5)
	require.Len(t, poses, 2)
	assert.Equal(t, float32(1), poses[0].TotalScore)
	assert.Equal(t, float32(3), poses[1].TotalScore)
}
