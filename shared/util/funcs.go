package util

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Abs32 retorna o valor absoluto de um int32.
func Abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Clamp limita v ao intervalo [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp interpola linearmente entre a e b.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// DistSq retorna a distância ao quadrado entre dois pontos 3D.
func DistSq(a, b rl.Vector3) float32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// NormalizeXZ normaliza o vetor no plano XZ. Retorna false se degenerado.
func NormalizeXZ(v rl.Vector3) (rl.Vector3, bool) {
	lenSq := v.X*v.X + v.Z*v.Z
	if lenSq < 1e-8 {
		return rl.Vector3{}, false
	}
	inv := float32(1.0 / math.Sqrt(float64(lenSq)))
	return rl.Vector3{X: v.X * inv, Z: v.Z * inv}, true
}
