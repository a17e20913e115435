// Package geometry holds the pure functions the editor uses for hit-testing
// and edge weighting. Everything works in scene coordinates.
package geometry

import "math"

// Weight constants. A single canonical pair is used by every backend.
const (
	// WeightScale divides the Euclidean length of an edge.
	WeightScale = 100.0
	// WeightPrecision is the number of decimal places kept after scaling.
	WeightPrecision = 4
	// CarFactor scales the weight of edges created while car mode is on.
	CarFactor = 3.0 / 5.0
)

// Point is a position in scene coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// IsFinite reports whether both coordinates are real numbers, neither NaN
// nor infinite.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// WeightMode selects the weight formula applied to a new edge.
type WeightMode int

const (
	WeightNormal WeightMode = iota
	WeightCar
)

func (m WeightMode) String() string {
	if m == WeightCar {
		return "car"
	}
	return "normal"
}

// SquaredDistance returns the squared Euclidean distance between p and q.
// Comparisons against a tolerance should square the tolerance instead of
// taking a root here.
func SquaredDistance(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return math.Sqrt(SquaredDistance(p, q))
}

// IsOnSegment reports whether p lies within tol of the segment a-b, measured
// vertically against the line through a and b, with p.X inside the x-range of
// the segment.
//
// A vertical segment (a.X == b.X) compares against a.Y only, so clicks along
// the body of a vertical edge are not detected. Callers rely on this
// behaviour; see DESIGN.md before changing it.
func IsOnSegment(p, a, b Point, tol float64) bool {
	var expectedY float64
	if b.X-a.X != 0 {
		slope := (b.Y - a.Y) / (b.X - a.X)
		expectedY = slope*(p.X-a.X) + a.Y
	} else {
		expectedY = a.Y
	}
	if math.Abs(p.Y-expectedY) >= tol {
		return false
	}
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X)
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// BaseWeight is the normal-mode weight of an edge from a to b.
func BaseWeight(a, b Point) float64 {
	return Round(Distance(a, b)/WeightScale, WeightPrecision)
}

// ComputeWeight returns the weight of an edge from a to b under mode.
// It is symmetric in a and b.
func ComputeWeight(a, b Point, mode WeightMode) float64 {
	w := BaseWeight(a, b)
	if mode == WeightCar {
		w = w * 3 / 5
	}
	return w
}

// ModeForWeight infers which formula produced a stored weight. Stores that
// do not keep the mode alongside the weight use it on load. A weight that
// matches neither formula, or both (zero length), is reported as normal.
func ModeForWeight(a, b Point, weight float64) WeightMode {
	const eps = 1e-9
	normal := ComputeWeight(a, b, WeightNormal)
	car := ComputeWeight(a, b, WeightCar)
	if math.Abs(weight-car) < eps && math.Abs(weight-normal) >= eps {
		return WeightCar
	}
	return WeightNormal
}
