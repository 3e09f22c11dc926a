package streaming

import (
	"math"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
)

func TestPlacementMatrixRotatesAroundPosition(t *testing.T) {
	pos := rl.Vector3{X: 1000, Y: 5, Z: -2000}
	m := PlacementMatrix(pos, 90, 1)

	// A origem local cai exatamente na posição de colocação.
	o := rl.Vector3Transform(rl.Vector3{}, m)
	assert.InDelta(t, pos.X, o.X, 1e-3)
	assert.InDelta(t, pos.Y, o.Y, 1e-3)
	assert.InDelta(t, pos.Z, o.Z, 1e-3)

	// Um ponto a 1 unidade da origem continua a 1 unidade da posição:
	// a rotação gira em torno da colocação, não da origem do mundo.
	p := rl.Vector3Transform(rl.Vector3{X: 1}, m)
	dx := float64(p.X - pos.X)
	dy := float64(p.Y - pos.Y)
	dz := float64(p.Z - pos.Z)
	assert.InDelta(t, 1.0, math.Sqrt(dx*dx+dy*dy+dz*dz), 1e-3)
	assert.InDelta(t, 0.0, dy, 1e-3)

	// 90° em torno de Y leva o eixo X local ao eixo -Z do mundo.
	assert.InDelta(t, 0.0, dx, 1e-3)
	assert.InDelta(t, -1.0, dz, 1e-3)

	// O volume de mundo de uma instância rotacionada também fica
	// ancorado na posição.
	inst := NewInstance(0, 0, m, unitBox())
	assert.LessOrEqual(t, inst.WorldBounds.Min.X, pos.X)
	assert.GreaterOrEqual(t, inst.WorldBounds.Max.X, pos.X)
	assert.LessOrEqual(t, inst.WorldBounds.Min.Z, pos.Z)
	assert.GreaterOrEqual(t, inst.WorldBounds.Max.Z, pos.Z)
}

func TestPlacementMatrixScalesLocally(t *testing.T) {
	pos := rl.Vector3{X: -300, Y: 2, Z: 40}
	m := PlacementMatrix(pos, 0, 2)

	o := rl.Vector3Transform(rl.Vector3{}, m)
	assert.InDelta(t, pos.X, o.X, 1e-3)
	assert.InDelta(t, pos.Z, o.Z, 1e-3)

	p := rl.Vector3Transform(rl.Vector3{X: 1, Y: 1, Z: 1}, m)
	assert.InDelta(t, pos.X+2, p.X, 1e-3)
	assert.InDelta(t, pos.Y+2, p.Y, 1e-3)
	assert.InDelta(t, pos.Z+2, p.Z, 1e-3)

	// Escala zero cai para 1.
	id := PlacementMatrix(pos, 0, 0)
	q := rl.Vector3Transform(rl.Vector3{X: 1}, id)
	assert.InDelta(t, pos.X+1, q.X, 1e-3)
}
