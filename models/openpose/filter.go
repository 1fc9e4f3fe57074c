package openpose

import "github.com/nvr-ai/go-pose/models/postprocess"

// HumanPose is a decoded person.
type HumanPose struct {
	// Keypoints holds one position per keypoint type; undetected joints are
	// postprocess.NotFound.
	Keypoints []postprocess.Point `json:"keypoints"`
	// Score ranks poses: TotalScore * max(0, JointCount-1).
	Score float32 `json:"score"`
	// TotalScore is the assembled skeleton's summed score.
	TotalScore float32 `json:"total_score"`
	// JointCount is the number of detected keypoints.
	JointCount int `json:"joint_count"`
}

// FilterPoses drops weak skeletons and converts the rest to poses.
//
// Arguments:
//   - skeletons: Assembled skeletons in creation order.
//   - peaks: All peaks, indexed by global id.
//   - minJoints: Minimum joint count.
//   - minSubsetScore: Minimum TotalScore / JointCount.
//
// Returns:
//   - []HumanPose: Survivors in creation order.
func FilterPoses(skeletons []Skeleton, peaks []postprocess.Peak, minJoints int, minSubsetScore float32) []HumanPose {
	poses := make([]HumanPose, 0, len(skeletons))
	for _, s := range skeletons {
		if s.JointCount == 0 || s.JointCount < minJoints {
			continue
		}
		if !(s.TotalScore/float32(s.JointCount) >= minSubsetScore) {
			continue
		}

		keypoints := make([]postprocess.Point, len(s.Joints))
		for k, id := range s.Joints {
			if id == emptyJoint {
				keypoints[k] = postprocess.NotFound
				continue
			}
			keypoints[k] = peaks[id].Position
		}

		poses = append(poses, HumanPose{
			Keypoints:  keypoints,
			Score:      s.TotalScore * float32(max(0, s.JointCount-1)),
			TotalScore: s.TotalScore,
			JointCount: s.JointCount,
		})
	}
	return poses
}
