// Package geometry provides the 3D position primitives shared by the motion
// engine and the OSC surface. Everything here is a plain value type.
package geometry

import (
	"fmt"
	"math"
)

// Position is a point in 3D space, in meters.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func NewPosition(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: z}
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

func (p Position) Scale(s float64) Position {
	return Position{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}

// Lerp interpolates linearly towards target. t is not clamped; callers clamp
// normalized time before interpolating.
func (p Position) Lerp(target Position, t float64) Position {
	return Position{
		X: p.X + (target.X-p.X)*t,
		Y: p.Y + (target.Y-p.Y)*t,
		Z: p.Z + (target.Z-p.Z)*t,
	}
}

func (p Position) Distance(o Position) float64 {
	dx, dy, dz := o.X-p.X, o.Y-p.Y, o.Z-p.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// IsFinite reports whether all three coordinates are finite numbers.
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// AED returns the polar projection of the position: azimuth in degrees
// measured from +X towards +Y, elevation in degrees above the XY plane, and
// distance from the origin.
func (p Position) AED() (azimuth, elevation, distance float64) {
	distance = math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	if distance == 0 {
		return 0, 0, 0
	}
	azimuth = math.Atan2(p.Y, p.X) * 180 / math.Pi
	if azimuth < 0 {
		azimuth += 360
	}
	elevation = math.Asin(p.Z/distance) * 180 / math.Pi
	return azimuth, elevation, distance
}

// FromAED builds a cartesian position from polar coordinates. Angles are in
// degrees.
func FromAED(azimuth, elevation, distance float64) Position {
	az := azimuth * math.Pi / 180
	el := elevation * math.Pi / 180
	return Position{
		X: distance * math.Cos(el) * math.Cos(az),
		Y: distance * math.Cos(el) * math.Sin(az),
		Z: distance * math.Sin(el),
	}
}

// Plane selects the pair of axes a planar curve rotates in.
type Plane uint8

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "XY"
	case PlaneXZ:
		return "XZ"
	case PlaneYZ:
		return "YZ"
	default:
		return "unknown"
	}
}

// ParsePlane parses "XY", "XZ" or "YZ".
func ParsePlane(s string) (Plane, error) {
	switch s {
	case "XY", "":
		return PlaneXY, nil
	case "XZ":
		return PlaneXZ, nil
	case "YZ":
		return PlaneYZ, nil
	default:
		return PlaneXY, fmt.Errorf("invalid plane %q", s)
	}
}

// Point maps a planar (u, v) offset onto a 3D position around center. The
// third axis keeps the center's coordinate.
func (p Plane) Point(center Position, u, v float64) Position {
	switch p {
	case PlaneXZ:
		return Position{X: center.X + u, Y: center.Y, Z: center.Z + v}
	case PlaneYZ:
		return Position{X: center.X, Y: center.Y + u, Z: center.Z + v}
	default:
		return Position{X: center.X + u, Y: center.Y + v, Z: center.Z}
	}
}
