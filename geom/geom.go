// Package geom holds the minimal field-level vector/matrix types the
// engine needs to shape its own structs. The real math/coordinate
// conversion library is an external collaborator (spec §1); this package
// is the stand-in for it, not a replacement.
package geom

import "math"

// Vec3 is a point or displacement in physical SRS.
type Vec3 struct {
	X, Y, Z float64
}

func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }
func (v Vec3) Mul(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Box3 is an axis-aligned bounding box. An unknown box is
// {Min: -Inf, Max: +Inf} in every component (spec §3 invariant).
type Box3 struct {
	Min, Max Vec3
}

var inf = math.Inf(1)

// Unknown returns the "unknown" sentinel box.
func Unknown() Box3 {
	return Box3{
		Min: Vec3{-inf, -inf, -inf},
		Max: Vec3{inf, inf, inf},
	}
}

func (b Box3) IsUnknown() bool {
	return math.IsInf(b.Min.X, -1) && math.IsInf(b.Max.X, 1)
}

// AxisDist is the squared-axis distance from pt to the box, zero if
// pt is inside. Mirrors the original's aabbPointDist.
func (b Box3) AxisDist(pt Vec3) float64 {
	d := 0.0
	for i := 0; i < 3; i++ {
		var lo, hi, p float64
		switch i {
		case 0:
			lo, hi, p = b.Min.X, b.Max.X, pt.X
		case 1:
			lo, hi, p = b.Min.Y, b.Max.Y, pt.Y
		default:
			lo, hi, p = b.Min.Z, b.Max.Z, pt.Z
		}
		if p < lo {
			d += (lo - p) * (lo - p)
		} else if p > hi {
			d += (p - hi) * (p - hi)
		}
	}
	return math.Sqrt(d)
}

// Mat4 is a 4x4 matrix in row-major order, used for model and MVP
// transforms.
type Mat4 struct {
	M [16]float64
}

func Identity4() Mat4 {
	m := Mat4{}
	m.M[0], m.M[5], m.M[10], m.M[15] = 1, 1, 1, 1
	return m
}

// Mul returns a*b (a applied after b, i.e. the usual composition order).
func (a Mat4) Mul(b Mat4) Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += a.M[row*4+k] * b.M[k*4+col]
			}
			r.M[row*4+col] = sum
		}
	}
	return r
}

// Mat3 is a 3x3 matrix used for UV transforms (compositor §4.5).
type Mat3 struct {
	M [9]float64
}

func Identity3() Mat3 {
	m := Mat3{}
	m.M[0], m.M[4], m.M[8] = 1, 1, 1
	return m
}

// UV builds the `[[scale,0,tx],[0,scale,ty],[0,0,1]]` matrix from §4.5.
func UV(scale, tx, ty float64) Mat3 {
	return Mat3{M: [9]float64{
		scale, 0, tx,
		0, scale, ty,
		0, 0, 1,
	}}
}

// Vec4 is a homogeneous color or coordinate.
type Vec4 struct {
	X, Y, Z, W float64
}
