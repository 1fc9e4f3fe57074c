package featuremap

import (
	"go/parser"
	"go/token"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i)
	}
	return data
}

func TestNewSet(t *testing.T) {
	set, err := NewSet(sequence(2*3*4), 2, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 4, set.Width())
	assert.Equal(t, 3, set.Height())
	assert.Equal(t, float32(0), set.Channel(0).At(0, 0))
	assert.Equal(t, float32(6), set.Channel(0).At(2, 1))
	assert.Equal(t, float32(12), set.Channel(1).At(0, 0))
	assert.Equal(t, float32(23), set.Channel(1).At(3, 2))
}

func TestNewStridedSet(t *testing.T) {
	// Two 2x2 channels with one padding column per row and a padding row
	// between channels.
	data := []float32{
		1, 2, -1,
		3, 4, -1,
		-1, -1, -1,
		5, 6, -1,
		7, 8, -1,
	}
	set, err := NewStridedSet(data, Layout{Channels: 2, Height: 2, Width: 2, RowStride: 3, ChannelStride: 9})
	require.NoError(t, err)

	assert.Equal(t, float32(4), set.Channel(0).At(1, 1))
	assert.Equal(t, float32(5), set.Channel(1).At(0, 0))
	assert.Equal(t, float32(8), set.Channel(1).At(1, 1))
}

func TestNewSet_InvalidLayout(t *testing.T) {
	tests := []struct {
		name   string
		data   []float32
		layout Layout
	}{
		{"Buffer too short", sequence(10), Layout{Channels: 2, Height: 2, Width: 3}},
		{"Zero channels", sequence(10), Layout{Channels: 0, Height: 2, Width: 3}},
		{"Zero width", sequence(10), Layout{Channels: 1, Height: 2, Width: 0}},
		{"Row stride below width", sequence(10), Layout{Channels: 1, Height: 2, Width: 3, RowStride: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStridedSet(tt.data, tt.layout)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestSetOf(t *testing.T) {
	a, err := NewMap(sequence(4), 2, 2, 2)
	require.NoError(t, err)
	b, err := NewMap(sequence(6), 3, 2, 3)
	require.NoError(t, err)

	set, err := SetOf(a, a)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	_, err = SetOf(a, b)
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = SetOf()
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestMap_Sample(t *testing.T) {
	// 3x2 map:
	//   0 1 2
	//   3 4 5
	m, err := NewMap(sequence(6), 3, 2, 3)
	require.NoError(t, err)

	tests := []struct {
		name     string
		x, y     float32
		interp   Interpolation
		expected float32
	}{
		{"Nearest exact pixel", 1, 1, InterpolationNearest, 4},
		{"Nearest rounds to closest", 1.4, 0.6, InterpolationNearest, 4},
		{"Nearest clamps outside", -5, 9, InterpolationNearest, 3},
		{"Bilinear exact pixel", 2, 0, InterpolationBilinear, 2},
		{"Bilinear horizontal midpoint", 0.5, 0, InterpolationBilinear, 0.5},
		{"Bilinear centre of four", 0.5, 0.5, InterpolationBilinear, 2},
		{"Bilinear clamps outside", 10, 10, InterpolationBilinear, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, m.Sample(tt.x, tt.y, tt.interp), 1e-6)
		})
	}
}

func TestParseInterpolation(t *testing.T) {
	interp, err := ParseInterpolation("")
	require.NoError(t, err)
	assert.Equal(t, InterpolationNearest, interp)

	interp, err = ParseInterpolation("bilinear")
	require.NoError(t, err)
	assert.Equal(t, InterpolationBilinear, interp)

	_, err = ParseInterpolation("bicubic")
	assert.Error(t, err)
}

func TestImportsStayLight(t *testing.T) {
	allowed := map[string]bool{
		"github.com/chewxy/math32": true,
		"github.com/pkg/errors":    true,
	}

	entries, err := os.ReadDir(".")
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			if strings.Contains(path, ".") {
				assert.True(t, allowed[path], "%s imports %s", name, path)
			}
		}
	}
}
