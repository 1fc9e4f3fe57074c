package openpose

import "github.com/nvr-ai/go-pose/models/postprocess"

// emptyJoint marks a keypoint slot without a peak.
const emptyJoint = -1

// Skeleton is a partial person assembled from matched limbs.
type Skeleton struct {
	// Joints holds the global peak id per keypoint type, or -1.
	Joints []int `json:"joints"`
	// TotalScore sums the placed peaks' confidences and the limb scores.
	TotalScore float32 `json:"total_score"`
	// JointCount is the number of non-empty slots in Joints.
	JointCount int `json:"joint_count"`
}

// Assembler grows partial skeletons from matched limbs, one limb type at a
// time. Every peak id is owned by at most one skeleton.
//
// Ownership is a peak id -> skeleton index map. Merged skeletons are linked
// with a union-find over skeleton indices, so ownership entries of an absorbed
// skeleton resolve to the survivor without being rewritten.
type Assembler struct {
	keypoints int
	peaks     []postprocess.Peak

	skeletons []Skeleton
	alive     []bool
	parent    []int
	owner     map[int]int
}

// NewAssembler creates an empty assembler.
//
// Arguments:
//   - keypoints: Number of keypoint types (skeleton slots).
//   - peaks: All peaks of the decode call, indexed by global id.
//
// Returns:
//   - *Assembler: The assembler.
func NewAssembler(keypoints int, peaks []postprocess.Peak) *Assembler {
	return &Assembler{
		keypoints: keypoints,
		peaks:     peaks,
		owner:     make(map[int]int, len(peaks)),
	}
}

// Add folds the accepted connections of one limb type into the skeletons, in
// the given order.
//
// For each connection:
//   - neither peak owned: a new two-joint skeleton is created;
//   - one peak owned: the owner is extended with the other peak, unless the
//     owner already has a different peak of that type;
//   - peaks owned by two skeletons: the later-created skeleton is merged into
//     the earlier one, unless both hold a peak for the same keypoint type;
//   - both peaks owned by the same skeleton: skipped, it would close a cycle.
//
// Arguments:
//   - limb: The limb type of the connections.
//   - matched: Output of MatchConnections for that limb type.
func (a *Assembler) Add(limb Limb, matched []Connection) {
	for _, c := range matched {
		ownerA, hasA := a.ownerOf(c.PeakA)
		ownerB, hasB := a.ownerOf(c.PeakB)

		switch {
		case !hasA && !hasB:
			s := a.newSkeleton()
			a.place(s, limb.A, c.PeakA)
			a.place(s, limb.B, c.PeakB)
			a.skeletons[s].TotalScore += c.Score
		case hasA && !hasB:
			a.extend(ownerA, limb.A, c.PeakA, limb.B, c.PeakB, c.Score)
		case !hasA && hasB:
			a.extend(ownerB, limb.B, c.PeakB, limb.A, c.PeakA, c.Score)
		case ownerA == ownerB:
			continue
		default:
			a.merge(ownerA, ownerB, c.Score)
		}
	}
}

// AddSingletons creates a one-joint skeleton for every peak not yet owned.
// Used for limb types where only one endpoint type has any peaks.
//
// Arguments:
//   - peaks: Peaks of a single keypoint type.
func (a *Assembler) AddSingletons(peaks []postprocess.Peak) {
	for _, p := range peaks {
		if _, owned := a.ownerOf(p.ID); owned {
			continue
		}
		a.place(a.newSkeleton(), p.Type, p.ID)
	}
}

// Skeletons returns copies of the live skeletons in creation order.
//
// Returns:
//   - []Skeleton: The assembled skeletons.
func (a *Assembler) Skeletons() []Skeleton {
	out := make([]Skeleton, 0, len(a.skeletons))
	for i, s := range a.skeletons {
		if !a.alive[i] {
			continue
		}
		s.Joints = append([]int(nil), s.Joints...)
		out = append(out, s)
	}
	return out
}

func (a *Assembler) newSkeleton() int {
	joints := make([]int, a.keypoints)
	for i := range joints {
		joints[i] = emptyJoint
	}
	a.skeletons = append(a.skeletons, Skeleton{Joints: joints})
	a.alive = append(a.alive, true)
	a.parent = append(a.parent, len(a.parent))
	return len(a.skeletons) - 1
}

// place puts a free peak into an empty slot of skeleton s.
func (a *Assembler) place(s, keypointType, peakID int) {
	sk := &a.skeletons[s]
	sk.Joints[keypointType] = peakID
	sk.JointCount++
	sk.TotalScore += a.peaks[peakID].Score
	a.owner[peakID] = s
}

func (a *Assembler) extend(s, ownedType, ownedPeak, freeType, freePeak int, score float32) {
	sk := &a.skeletons[s]
	if sk.Joints[ownedType] != ownedPeak || sk.Joints[freeType] != emptyJoint {
		return
	}
	a.place(s, freeType, freePeak)
	sk.TotalScore += score
}

func (a *Assembler) merge(x, y int, score float32) {
	keep, drop := x, y
	if drop < keep {
		keep, drop = drop, keep
	}
	kept, dropped := &a.skeletons[keep], &a.skeletons[drop]

	for k := range kept.Joints {
		if kept.Joints[k] != emptyJoint && dropped.Joints[k] != emptyJoint {
			return
		}
	}
	for k, id := range dropped.Joints {
		if id != emptyJoint {
			kept.Joints[k] = id
		}
	}
	kept.JointCount += dropped.JointCount
	kept.TotalScore += dropped.TotalScore + score

	a.parent[drop] = keep
	a.alive[drop] = false
	dropped.Joints = nil
}

func (a *Assembler) ownerOf(peakID int) (int, bool) {
	s, ok := a.owner[peakID]
	if !ok {
		return 0, false
	}
	return a.find(s), true
}

func (a *Assembler) find(s int) int {
	for a.parent[s] != s {
		a.parent[s] = a.parent[a.parent[s]]
		s = a.parent[s]
	}
	return s
}
