package streaming

import (
	"testing"
	"time"

	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	"github.com/go-gl/mathgl/mgl32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hugeFrustum cobre o cubo [-1000,1000]³: contém qualquer cena de teste.
func hugeFrustum() util.Frustum {
	return util.ExtractFrustum(mgl32.Ortho(-1000, 1000, -1000, 1000, -1000, 1000))
}

// mixedInstances devolve duas instâncias simples e um setup composto.
func mixedInstances(coord util.CellCoord) []Instance {
	o := util.CellOrigin(coord)
	return []Instance{
		NewInstance(resources.ObjectMeshID(1), NewInstanceID(KindStatic, 1),
			rl.MatrixTranslate(o.X+10, 0, o.Z-10), unitBox()),
		NewInstance(resources.ObjectMeshID(1), NewInstanceID(KindStatic, 2),
			rl.MatrixTranslate(o.X+30, 0, o.Z-30), unitBox()),
		NewInstance(resources.SetupMeshID(100), NewInstanceID(KindBuilding, 3),
			rl.MatrixTranslate(o.X+50, 0, o.Z-50),
			util.NewAABB(rl.Vector3{X: -1, Y: 0, Z: -1}, rl.Vector3{X: 3, Y: 2, Z: 1})),
	}
}

func residentMixedCell(t *testing.T) (*Engine, *Cell, rl.Vector3) {
	t.Helper()
	gen := &scriptedGen{name: "estaticos", build: mixedInstances}
	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 10, MaxJobs: 1})

	camPos := util.CellCenter(util.NewCellCoord(0, 0))
	settle(t, e, camPos, 1)

	cell, ok := e.Cell(util.NewCellCoord(0, 0))
	require.True(t, ok)
	return e, cell, camPos
}

func TestFastAndSlowPathsAgree(t *testing.T) {
	e, cell, camPos := residentMixedCell(t)
	f := hugeFrustum()

	// Caminho rápido: célula totalmente dentro do frustum.
	fast := NewCuller()
	fast.Begin()
	e.PrepareBatches(fast, &f, camPos)
	require.Equal(t, 1, fast.CellsVisible)

	// Esticar o volume da célula além do frustum força Intersects sem
	// tirar nenhuma instância de vista: o caminho lento deve produzir
	// exatamente os mesmos grupos.
	saved := cell.Bounds
	cell.Bounds.Max.X = 5000
	defer func() { cell.Bounds = saved }()

	slow := NewCuller()
	slow.Begin()
	e.PrepareBatches(slow, &f, camPos)
	require.Equal(t, 1, slow.CellsVisible)

	require.Equal(t, fast.Order(), slow.Order())
	for _, id := range fast.Order() {
		assert.Equal(t, fast.Group(id), slow.Group(id), "grupo da malha %s", id)
	}
	// O setup entra expandido: duas sub-partes, nunca o pai.
	assert.Len(t, fast.Order(), 3)
	assert.Equal(t, 4, fast.Instances) // 2 simples + 2 sub-partes
}

func TestCullingSkipsOutsideCells(t *testing.T) {
	e, _, camPos := residentMixedCell(t)

	// Frustum deslocado para longe da célula: nada entra no frame.
	far := util.ExtractFrustum(mgl32.Ortho(-1, 1, -1, 1, -1, 1).Mul4(
		mgl32.Translate3D(-100000, 0, 0)))

	cu := NewCuller()
	cu.Begin()
	e.PrepareBatches(cu, &far, camPos)
	assert.Equal(t, 0, cu.CellsVisible)
	assert.Equal(t, 0, cu.Instances)
	assert.Empty(t, cu.Order())
}

func TestCullerPoolReuseAcrossFrames(t *testing.T) {
	e, _, camPos := residentMixedCell(t)
	f := hugeFrustum()

	cu := NewCuller()
	cu.Begin()
	e.PrepareBatches(cu, &f, camPos)
	poolSize := len(cu.pool)
	require.Greater(t, poolSize, 0)

	// Frames seguintes com a mesma carga não crescem o pool.
	for i := 0; i < 5; i++ {
		cu.Begin()
		e.PrepareBatches(cu, &f, camPos)
	}
	assert.Equal(t, poolSize, len(cu.pool))
	assert.Equal(t, 4, cu.Instances)
}

func TestPickNearestInstance(t *testing.T) {
	e, cell, _ := residentMixedCell(t)
	require.NotEmpty(t, cell.CurrentInstances)

	// Raio vertical sobre a primeira instância simples.
	target := cell.CurrentInstances[0]
	top := rl.Vector3{
		X: (target.WorldBounds.Min.X + target.WorldBounds.Max.X) / 2,
		Y: target.WorldBounds.Max.Y + 10,
		Z: (target.WorldBounds.Min.Z + target.WorldBounds.Max.Z) / 2,
	}

	id, dist, ok := e.Pick(top, rl.Vector3{Y: -1})
	require.True(t, ok)
	assert.Equal(t, target.ID, id)
	assert.InDelta(t, 9.0, dist, 0.01)

	// Raio no vazio não acerta nada.
	_, _, ok = e.Pick(rl.Vector3{X: 1e6, Y: 1e6, Z: 1e6}, rl.Vector3{Y: -1})
	assert.False(t, ok)
}

func TestUploadBudgetSpreadsAcrossFrames(t *testing.T) {
	// Várias células prontas de uma vez: com orçamento apertado o engine
	// sobe algumas por frame e termina em frames subsequentes.
	gen := &scriptedGen{name: "estaticos", build: objInstances(2, 1)}
	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 1, UnloadDelay: 10, MaxJobs: 9})

	camPos := util.CellCenter(util.NewCellCoord(0, 0))
	e.Update(camPos, rl.Vector3{Z: -1}, 0.016)
	waitFor(t, "geração das 9 células", func() bool { return e.ActiveJobs() == 0 })
	require.Equal(t, 9, e.uploadQueue.Len())

	total := 0
	for frames := 0; frames < 50 && total < 9; frames++ {
		e.ProcessUploads(camPos, 200*time.Microsecond)
		total = e.CountByState()[StateResident]
	}
	assert.Equal(t, 9, total)
}

func TestCompositeSubPartsFollowInstanceRotation(t *testing.T) {
	// O offset relativo de uma sub-parte é aplicado no referencial do
	// setup: uma construção rotacionada leva a sub-parte junto, em vez
	// de deslocá-la pelos eixos do mundo.
	coord := util.NewCellCoord(0, 0)
	camPos := util.CellCenter(coord)
	placement := PlacementMatrix(rl.Vector3{X: camPos.X, Y: 0, Z: camPos.Z}, 90, 1)

	gen := &scriptedGen{name: "estaticos", build: func(util.CellCoord) []Instance {
		return []Instance{NewInstance(
			resources.SetupMeshID(100), NewInstanceID(KindBuilding, 1), placement,
			util.NewAABB(rl.Vector3{X: -3, Y: 0, Z: -3}, rl.Vector3{X: 3, Y: 2, Z: 3}),
		)}
	}}
	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 10, MaxJobs: 1})
	settle(t, e, camPos, 1)

	cell, ok := e.Cell(coord)
	require.True(t, ok)

	// A sub-parte deslocada (2,0,0) do fake vira, sob 90° em Y, um
	// deslocamento em -Z a partir da colocação da instância.
	part := resources.PartMeshID(100*10 + 2)
	expected := rl.Vector3Transform(rl.Vector3{X: 2}, placement)

	fastGroup := cell.PartGroups[part]
	require.Len(t, fastGroup, 1)
	assert.InDelta(t, expected.X, fastGroup[0].M12, 1e-3)
	assert.InDelta(t, expected.Y, fastGroup[0].M13, 1e-3)
	assert.InDelta(t, expected.Z, fastGroup[0].M14, 1e-3)

	// O caminho lento do culling expande do mesmo jeito.
	saved := cell.Bounds
	cell.Bounds.Max.X = 5000
	defer func() { cell.Bounds = saved }()

	f := hugeFrustum()
	cu := NewCuller()
	cu.Begin()
	e.PrepareBatches(cu, &f, camPos)
	slowGroup := cu.Group(part)
	require.Len(t, slowGroup, 1)
	assert.InDelta(t, expected.X, slowGroup[0].M12, 1e-3)
	assert.InDelta(t, expected.Z, slowGroup[0].M14, 1e-3)
}
