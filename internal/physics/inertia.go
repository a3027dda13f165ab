package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Mass returns the sum of the collider masses.
func (b *Body) Mass() float32 {
	var m float32
	for _, c := range b.colliders {
		m += c.Mass
	}
	return m
}

// LocalInertiaTensor returns the body inertia tensor about the body origin in
// body axes. Each collider contributes its shape tensor shifted to its offset
// with the parallel axis theorem.
func (b *Body) LocalInertiaTensor() rl.Matrix {
	var sum [3][3]float32
	for _, c := range b.colliders {
		t := toRows(c.Shape.LocalInertiaTensor(c.Mass))
		r := [3]float32{c.Offset.X, c.Offset.Y, c.Offset.Z}
		rr := r[0]*r[0] + r[1]*r[1] + r[2]*r[2]
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				shift := -c.Mass * r[i] * r[j]
				if i == j {
					shift += c.Mass * rr
				}
				sum[i][j] += t[i][j] + shift
			}
		}
	}
	return fromRows(sum)
}

// InverseInertiaWorld returns R * I^-1 * R^T for the current orientation.
// Static bodies and bodies with a singular tensor get a zero inverse, which
// the integrator treats as infinite inertia.
func (b *Body) InverseInertiaWorld() rl.Matrix {
	local := b.LocalInertiaTensor()
	if !b.movable || rl.MatrixDeterminant(local) == 0 {
		return rl.Matrix{M15: 1}
	}
	inv := rl.MatrixInvert(local)
	rot := rl.QuaternionToMatrix(b.transform.Rotation)
	// raymath multiplies right-to-left: MatrixMultiply(a, b) is b*a.
	return rl.MatrixMultiply(rl.MatrixMultiply(rl.MatrixTranspose(rot), inv), rot)
}

// toRows reads the upper-left 3x3 block. Raylib stores M0, M4, M8 as the
// first row.
func toRows(m rl.Matrix) [3][3]float32 {
	return [3][3]float32{
		{m.M0, m.M4, m.M8},
		{m.M1, m.M5, m.M9},
		{m.M2, m.M6, m.M10},
	}
}

func fromRows(r [3][3]float32) rl.Matrix {
	return rl.Matrix{
		M0: r[0][0], M4: r[0][1], M8: r[0][2],
		M1: r[1][0], M5: r[1][1], M9: r[1][2],
		M2: r[2][0], M6: r[2][1], M10: r[2][2],
		M15: 1,
	}
}
