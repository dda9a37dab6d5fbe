// Package mathx holds the small vector and angle helpers shared by the
// simulation and presentation layers.
package mathx

import "math"

// Vec3 is a point or direction in world units. Angles use the same type
// (pitch, yaw, roll) in degrees.
type Vec3 [3]float64

const (
	Pitch = 0
	Yaw   = 1
	Roll  = 2
)

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}
func (v Vec3) Dot(o Vec3) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }
func (v Vec3) Length() float64    { return math.Sqrt(v.Dot(v)) }
func (v Vec3) IsZero() bool       { return v[0] == 0 && v[1] == 0 && v[2] == 0 }

// Distance returns the euclidean distance between two points.
func Distance(a, b Vec3) float64 { return a.Sub(b).Length() }

// VecToAngles converts a direction into pitch/yaw angles (roll is always 0).
func VecToAngles(dir Vec3) Vec3 {
	var yaw, pitch float64
	if dir[1] == 0 && dir[0] == 0 {
		yaw = 0
		if dir[2] > 0 {
			pitch = 90
		} else {
			pitch = 270
		}
	} else {
		if dir[0] != 0 {
			yaw = math.Atan2(dir[1], dir[0]) * 180 / math.Pi
		} else if dir[1] > 0 {
			yaw = 90
		} else {
			yaw = 270
		}
		if yaw < 0 {
			yaw += 360
		}
		forward := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1])
		pitch = math.Atan2(dir[2], forward) * 180 / math.Pi
		if pitch < 0 {
			pitch += 360
		}
	}
	return Vec3{-pitch, yaw, 0}
}

// AngleToShort packs an angle in degrees into the 16-bit network form.
func AngleToShort(a float64) int {
	return int(a*65536/360) & 65535
}

// ShortToAngle is the inverse of AngleToShort.
func ShortToAngle(s int) float64 {
	return float64(s) * (360.0 / 65536)
}

// AngleMod wraps an angle into [0, 360).
func AngleMod(a float64) float64 {
	return ShortToAngle(AngleToShort(a))
}

// BoundsIntersect reports whether two axis-aligned boxes overlap.
func BoundsIntersect(mins, maxs, mins2, maxs2 Vec3) bool {
	for i := 0; i < 3; i++ {
		if maxs[i] < mins2[i] || mins[i] > maxs2[i] {
			return false
		}
	}
	return true
}

// AngleVectors returns the unit forward, right and up vectors for angles
// given as pitch, yaw, roll in degrees.
func AngleVectors(angles Vec3) (forward, right, up Vec3) {
	const deg = math.Pi / 180
	sy, cy := math.Sincos(angles[Yaw] * deg)
	sp, cp := math.Sincos(angles[Pitch] * deg)
	sr, cr := math.Sincos(angles[Roll] * deg)

	forward = Vec3{cp * cy, cp * sy, -sp}
	right = Vec3{-sr*sp*cy + cr*sy, -sr*sp*sy - cr*cy, -sr * cp}
	up = Vec3{cr*sp*cy + sr*sy, cr*sp*sy - sr*cy, cr * cp}
	return
}
