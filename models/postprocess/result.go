// Package postprocess - Postprocessing primitives shared by model decoders.
package postprocess

import "github.com/chewxy/math32"

// Point is a real-valued pixel coordinate in feature-map space.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// NotFound is the sentinel stored for a keypoint that was not detected.
var NotFound = Point{X: -1, Y: -1}

// Found reports whether the point holds a detected position.
//
// Returns:
//   - bool: False for the NotFound sentinel.
func (p Point) Found() bool {
	return p != NotFound
}

// Sub returns the vector from o to p.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Distance returns the euclidean distance between two points.
//
// Arguments:
//   - o: The other point.
//
// Returns:
//   - float32: The distance in pixels.
func (p Point) Distance(o Point) float32 {
	return math32.Hypot(p.X-o.X, p.Y-o.Y)
}

// Peak represents a single local maximum extracted from a keypoint heatmap.
type Peak struct {
	// ID of the peak. Local to its heatmap until a decoder renumbers it.
	ID int `json:"id"`
	// Position of the peak in feature-map pixels.
	Position Point `json:"position"`
	// Score is the heatmap value at Position.
	Score float32 `json:"score"`
	// Type is the keypoint type (heatmap index) the peak was found on.
	Type int `json:"type"`
}
