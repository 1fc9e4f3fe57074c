// Package featuremap - Read-only views over dense network output channels.
//
// A Map borrows a caller-owned []float32 and never copies or mutates it. The
// backing slice must stay unchanged for as long as any view over it is in use,
// typically the duration of one decode call.
package featuremap

import (
	"github.com/pkg/errors"
)

// ErrInvalidLayout is returned when a buffer cannot back the requested layout.
var ErrInvalidLayout = errors.New("featuremap: invalid layout")

// Map is a read-only 2-D view over a row-major float32 buffer.
type Map struct {
	data   []float32
	width  int
	height int
	stride int
}

// NewMap creates a view over data with the given dimensions.
//
// Arguments:
//   - data: Row-major backing buffer.
//   - width: Number of columns.
//   - height: Number of rows.
//   - stride: Distance in elements between the starts of two rows (>= width).
//
// Returns:
//   - Map: The view.
//   - error: ErrInvalidLayout if the buffer is too short or dimensions are bad.
func NewMap(data []float32, width, height, stride int) (Map, error) {
	if width <= 0 || height <= 0 {
		return Map{}, errors.Wrapf(ErrInvalidLayout, "non-positive size %dx%d", width, height)
	}
	if stride < width {
		return Map{}, errors.Wrapf(ErrInvalidLayout, "row stride %d smaller than width %d", stride, width)
	}
	if need := (height-1)*stride + width; len(data) < need {
		return Map{}, errors.Wrapf(ErrInvalidLayout, "buffer has %d elements, need %d", len(data), need)
	}
	return Map{data: data, width: width, height: height, stride: stride}, nil
}

// Width returns the number of columns.
func (m Map) Width() int { return m.width }

// Height returns the number of rows.
func (m Map) Height() int { return m.height }

// At returns the value at integer coordinates. Callers must stay in bounds.
func (m Map) At(x, y int) float32 {
	return m.data[y*m.stride+x]
}

// In reports whether (x, y) lies inside the map.
func (m Map) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// Layout describes how a channel stack is laid out in a flat buffer.
type Layout struct {
	Channels int
	Height   int
	Width    int
	// RowStride is the element distance between rows. Zero means Width.
	RowStride int
	// ChannelStride is the element distance between channels. Zero means
	// Height*RowStride.
	ChannelStride int
}

// Set is an ordered stack of equally sized maps.
type Set struct {
	maps   []Map
	width  int
	height int
}

// NewSet creates a set over a dense CHW buffer.
//
// Arguments:
//   - data: Backing buffer in channel, row, column order.
//   - channels: Number of channels.
//   - height: Rows per channel.
//   - width: Columns per channel.
//
// Returns:
//   - Set: The channel views.
//   - error: ErrInvalidLayout if data does not fit the layout.
func NewSet(data []float32, channels, height, width int) (Set, error) {
	return NewStridedSet(data, Layout{Channels: channels, Height: height, Width: width})
}

// NewStridedSet creates a set over a buffer with explicit strides.
//
// Arguments:
//   - data: Backing buffer.
//   - layout: Channel count, dimensions and strides.
//
// Returns:
//   - Set: The channel views.
//   - error: ErrInvalidLayout if data does not fit the layout.
func NewStridedSet(data []float32, layout Layout) (Set, error) {
	if layout.Channels <= 0 {
		return Set{}, errors.Wrapf(ErrInvalidLayout, "non-positive channel count %d", layout.Channels)
	}
	rowStride := layout.RowStride
	if rowStride == 0 {
		rowStride = layout.Width
	}
	channelStride := layout.ChannelStride
	if channelStride == 0 {
		channelStride = layout.Height * rowStride
	}
	if channelStride < 0 {
		return Set{}, errors.Wrapf(ErrInvalidLayout, "negative channel stride %d", channelStride)
	}

	maps := make([]Map, layout.Channels)
	for c := range maps {
		offset := c * channelStride
		if offset > len(data) {
			return Set{}, errors.Wrapf(ErrInvalidLayout, "channel %d starts past end of buffer", c)
		}
		m, err := NewMap(data[offset:], layout.Width, layout.Height, rowStride)
		if err != nil {
			return Set{}, errors.Wrapf(err, "channel %d", c)
		}
		maps[c] = m
	}

	return Set{maps: maps, width: layout.Width, height: layout.Height}, nil
}

// SetOf assembles a set from individual maps, which must share dimensions.
//
// Arguments:
//   - maps: Channel views in order.
//
// Returns:
//   - Set: The set.
//   - error: ErrInvalidLayout if the maps differ in size or none are given.
func SetOf(maps ...Map) (Set, error) {
	if len(maps) == 0 {
		return Set{}, errors.Wrap(ErrInvalidLayout, "empty set")
	}
	w, h := maps[0].width, maps[0].height
	for i, m := range maps {
		if m.width != w || m.height != h {
			return Set{}, errors.Wrapf(ErrInvalidLayout, "channel %d is %dx%d, want %dx%d", i, m.width, m.height, w, h)
		}
	}
	return Set{maps: append([]Map(nil), maps...), width: w, height: h}, nil
}

// Len returns the number of channels.
func (s Set) Len() int { return len(s.maps) }

// Channel returns the view of channel i.
func (s Set) Channel(i int) Map { return s.maps[i] }

// Width returns the shared channel width.
func (s Set) Width() int { return s.width }

// Height returns the shared channel height.
func (s Set) Height() int { return s.height }
