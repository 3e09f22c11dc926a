package util

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB é um volume delimitador alinhado aos eixos no espaço do mundo.
type AABB struct {
	Min, Max rl.Vector3
}

// NewAABB cria um AABB a partir de dois cantos quaisquer.
func NewAABB(a, b rl.Vector3) AABB {
	return AABB{
		Min: rl.Vector3{X: minf(a.X, b.X), Y: minf(a.Y, b.Y), Z: minf(a.Z, b.Z)},
		Max: rl.Vector3{X: maxf(a.X, b.X), Y: maxf(a.Y, b.Y), Z: maxf(a.Z, b.Z)},
	}
}

// Merge expande o AABB para conter other.
func (b AABB) Merge(other AABB) AABB {
	return AABB{
		Min: rl.Vector3{X: minf(b.Min.X, other.Min.X), Y: minf(b.Min.Y, other.Min.Y), Z: minf(b.Min.Z, other.Min.Z)},
		Max: rl.Vector3{X: maxf(b.Max.X, other.Max.X), Y: maxf(b.Max.Y, other.Max.Y), Z: maxf(b.Max.Z, other.Max.Z)},
	}
}

// Transform aplica uma matriz ao AABB e retorna o AABB dos 8 cantos
// transformados. É conservador para rotações, o que basta para culling.
func (b AABB) Transform(m rl.Matrix) AABB {
	corners := [8]rl.Vector3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	}
	out := AABB{Min: rl.Vector3Transform(corners[0], m)}
	out.Max = out.Min
	for i := 1; i < 8; i++ {
		p := rl.Vector3Transform(corners[i], m)
		out.Min.X = minf(out.Min.X, p.X)
		out.Min.Y = minf(out.Min.Y, p.Y)
		out.Min.Z = minf(out.Min.Z, p.Z)
		out.Max.X = maxf(out.Max.X, p.X)
		out.Max.Y = maxf(out.Max.Y, p.Y)
		out.Max.Z = maxf(out.Max.Z, p.Z)
	}
	return out
}

// Plane representa um plano ax + by + cz + d = 0, com (a,b,c) = normal.
type Plane struct {
	Normal   rl.Vector3
	Distance float32
}

// Frustum contém os seis planos do volume de visão, com o semi-espaço
// positivo apontando para dentro.
type Frustum struct {
	Planes [6]Plane
}

// Índices dos planos do frustum.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ContainsResult é o resultado da classificação AABB vs frustum.
type ContainsResult int

const (
	// Outside: o volume está totalmente fora; a célula não contribui nada.
	Outside ContainsResult = iota
	// Intersects: corte parcial; cada instância precisa de teste individual.
	Intersects
	// Inside: totalmente dentro; habilita o caminho rápido por grupos.
	Inside
)

// ExtractFrustum extrai os planos de uma matriz view-projection
// (column-major, como mgl32), pelo método Gribb/Hartmann.
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	var f Frustum
	// Para matriz column-major, M[linha][coluna] = vp[coluna*4+linha].
	row := func(r int) [4]float32 {
		return [4]float32{vp[r], vp[4+r], vp[8+r], vp[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(idx int, a, b [4]float32, sub bool) {
		var p Plane
		if sub {
			p.Normal = rl.Vector3{X: a[0] - b[0], Y: a[1] - b[1], Z: a[2] - b[2]}
			p.Distance = a[3] - b[3]
		} else {
			p.Normal = rl.Vector3{X: a[0] + b[0], Y: a[1] + b[1], Z: a[2] + b[2]}
			p.Distance = a[3] + b[3]
		}
		f.Planes[idx] = p
	}

	set(FrustumLeft, r3, r0, false)
	set(FrustumRight, r3, r0, true)
	set(FrustumBottom, r3, r1, false)
	set(FrustumTop, r3, r1, true)
	set(FrustumNear, r3, r2, false)
	set(FrustumFar, r3, r2, true)

	for i := range f.Planes {
		f.normalizePlane(i)
	}
	return f
}

func (f *Frustum) normalizePlane(idx int) {
	p := &f.Planes[idx]
	length := float32(math.Sqrt(float64(
		p.Normal.X*p.Normal.X + p.Normal.Y*p.Normal.Y + p.Normal.Z*p.Normal.Z)))
	if length > 0 {
		inv := 1.0 / length
		p.Normal.X *= inv
		p.Normal.Y *= inv
		p.Normal.Z *= inv
		p.Distance *= inv
	}
}

// TestAABB classifica um AABB contra o frustum usando os vértices
// positivo e negativo de cada plano.
func (f *Frustum) TestAABB(box AABB) ContainsResult {
	result := Inside
	for i := range f.Planes {
		p := &f.Planes[i]

		// Vértice positivo: o canto mais alinhado com a normal do plano.
		pv := box.Min
		nv := box.Max
		if p.Normal.X >= 0 {
			pv.X = box.Max.X
			nv.X = box.Min.X
		}
		if p.Normal.Y >= 0 {
			pv.Y = box.Max.Y
			nv.Y = box.Min.Y
		}
		if p.Normal.Z >= 0 {
			pv.Z = box.Max.Z
			nv.Z = box.Min.Z
		}

		if p.Normal.X*pv.X+p.Normal.Y*pv.Y+p.Normal.Z*pv.Z+p.Distance < 0 {
			return Outside
		}
		if p.Normal.X*nv.X+p.Normal.Y*nv.Y+p.Normal.Z*nv.Z+p.Distance < 0 {
			result = Intersects
		}
	}
	return result
}

// RayAABB testa a interseção raio vs AABB pelo método das lâminas (slab).
// Retorna a distância de entrada e true se houve interseção.
func RayAABB(origin, dir rl.Vector3, box AABB) (float32, bool) {
	tMin := float32(0)
	tMax := float32(math.MaxFloat32)

	axes := [3][3]float32{
		{origin.X, dir.X, 0}, {origin.Y, dir.Y, 0}, {origin.Z, dir.Z, 0},
	}
	mins := [3]float32{box.Min.X, box.Min.Y, box.Min.Z}
	maxs := [3]float32{box.Max.X, box.Max.Y, box.Max.Z}

	for i := 0; i < 3; i++ {
		o, d := axes[i][0], axes[i][1]
		if d > -1e-8 && d < 1e-8 {
			if o < mins[i] || o > maxs[i] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / d
		t1 := (mins[i] - o) * inv
		t2 := (maxs[i] - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
