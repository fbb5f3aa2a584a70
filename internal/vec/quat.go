package vec

import "github.com/go-gl/mathgl/mgl64"

// Quat is a rotation quaternion.
type Quat mgl64.Quat

// Identity is the no-rotation quaternion.
var Identity = Quat(mgl64.QuatIdent())

// QuatFromAxisAngle returns the rotation of angle radians about axis.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	return Quat(mgl64.QuatRotate(angle, axis.Mgl()))
}

// QuatFromEulerYXZ composes yaw about Y, then pitch about X, then roll about
// Z, all in the body frame (q = qYaw * qPitch * qRoll).
func QuatFromEulerYXZ(yaw, pitch, roll float64) Quat {
	return Quat(mgl64.AnglesToQuat(yaw, pitch, roll, mgl64.YXZ))
}

// Mul returns the Hamilton product q * o (apply o first, then q).
func (q Quat) Mul(o Quat) Quat {
	return Quat(mgl64.Quat(q).Mul(mgl64.Quat(o)))
}

// Normalize returns q scaled to unit length; the zero quaternion maps to Identity.
func (q Quat) Normalize() Quat {
	return Quat(mgl64.Quat(q).Normalize())
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	return FromMgl(mgl64.Quat(q).Rotate(v.Mgl()))
}
