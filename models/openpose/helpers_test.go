package openpose

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-pose/featuremap"
	"github.com/nvr-ai/go-pose/models/postprocess"
)

// figure is a COCO18 stick person inside a 64x64 map, x in [4, 21].
var figure = [18]postprocess.Point{
	{X: 12, Y: 6},  // nose
	{X: 12, Y: 14}, // neck
	{X: 7, Y: 15},  // right shoulder
	{X: 5, Y: 24},  // right elbow
	{X: 4, Y: 32},  // right wrist
	{X: 17, Y: 15}, // left shoulder
	{X: 19, Y: 24}, // left elbow
	{X: 21, Y: 32}, // left wrist
	{X: 9, Y: 34},  // right hip
	{X: 8, Y: 45},  // right knee
	{X: 7, Y: 56},  // right ankle
	{X: 15, Y: 34}, // left hip
	{X: 16, Y: 45}, // left knee
	{X: 17, Y: 56}, // left ankle
	{X: 10, Y: 4},  // right eye
	{X: 14, Y: 4},  // left eye
	{X: 8, Y: 6},   // right ear
	{X: 16, Y: 6},  // left ear
}

func shifted(dx float32) [18]postprocess.Point {
	var out [18]postprocess.Point
	for i, p := range figure {
		out[i] = postprocess.Point{X: p.X + dx, Y: p.Y}
	}
	return out
}

// frame builds synthetic network outputs for a topology.
type frame struct {
	topology Topology
	width    int
	height   int
	heat     []float32
	paf      []float32
}

func newFrame(topology Topology, width, height int) *frame {
	plane := width * height
	return &frame{
		topology: topology,
		width:    width,
		height:   height,
		heat:     make([]float32, topology.NumHeatmaps()*plane),
		paf:      make([]float32, topology.NumPAFs()*plane),
	}
}

func (f *frame) setHeat(channel int, p postprocess.Point, v float32) {
	f.heat[channel*f.width*f.height+int(p.Y)*f.width+int(p.X)] = v
}

// fillPAF sets a constant vector over the whole channel pair of a limb.
func (f *frame) fillPAF(limb Limb, vx, vy float32) {
	plane := f.width * f.height
	for i := 0; i < plane; i++ {
		f.paf[limb.PafX*plane+i] = vx
		f.paf[limb.PafY*plane+i] = vy
	}
}

// addPerson places one peak per keypoint and points every limb's PAF along
// the person's limb direction with unit magnitude.
func (f *frame) addPerson(person [18]postprocess.Point, score float32) {
	for k, p := range person {
		f.setHeat(k, p, score)
	}
	for _, limb := range f.topology.Limbs {
		v := person[limb.B].Sub(person[limb.A])
		n := math32.Hypot(v.X, v.Y)
		f.fillPAF(limb, v.X/n, v.Y/n)
	}
}

func (f *frame) sets(tb testing.TB) (featuremap.Set, featuremap.Set) {
	tb.Helper()
	heat, err := featuremap.NewSet(f.heat, f.topology.NumHeatmaps(), f.height, f.width)
	require.NoError(tb, err)
	paf, err := featuremap.NewSet(f.paf, f.topology.NumPAFs(), f.height, f.width)
	require.NoError(tb, err)
	return heat, paf
}

func mustMap(t *testing.T, data []float32, width, height int) featuremap.Map {
	t.Helper()
	m, err := featuremap.NewMap(data, width, height, width)
	require.NoError(t, err)
	return m
}

func constantMap(t *testing.T, v float32, width, height int) featuremap.Map {
	t.Helper()
	data := make([]float32, width*height)
	for i := range data {
		data[i] = v
	}
	return mustMap(t, data, width, height)
}

func newTestDecoder(t *testing.T, mutate func(*Config), opts ...Option) *Decoder {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := NewDecoder(cfg, opts...)
	require.NoError(t, err)
	return d
}
