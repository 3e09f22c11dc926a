package streaming

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice contabiliza uploads sem GPU, com falha configurável por
// malha para os testes de commit parcial.
type fakeDevice struct {
	mu       sync.Mutex
	uploads  int
	releases int
	failFor  map[resources.MeshID]bool
}

func (d *fakeDevice) Upload(data *resources.MeshData) (resources.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[data.ID] {
		return nil, fmt.Errorf("upload recusado: %s", data.ID)
	}
	d.uploads++
	return fmt.Sprintf("h-%s-%d", data.ID, d.uploads), nil
}

func (d *fakeDevice) setFail(id resources.MeshID, fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor == nil {
		d.failFor = make(map[resources.MeshID]bool)
	}
	d.failFor[id] = fail
}

func (d *fakeDevice) releaseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

func (d *fakeDevice) Release(resources.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releases++
}

// fakeMeshSource resolve qualquer objeto para um triângulo unitário e
// setups para duas sub-partes deslocadas.
type fakeMeshSource struct{}

func (fakeMeshSource) Resolve(_ context.Context, id resources.MeshID) (*resources.MeshData, error) {
	if id.IsComposite() {
		return &resources.MeshData{
			ID: id,
			SubParts: []resources.SubPart{
				{ID: resources.PartMeshID(id.Raw()*10 + 1), Transform: rl.MatrixIdentity()},
				{ID: resources.PartMeshID(id.Raw()*10 + 2), Transform: rl.MatrixTranslate(2, 0, 0)},
			},
		}, nil
	}
	return &resources.MeshData{
		ID: id,
		Geometry: resources.GeometryData{
			Vertices: []float32{-0.5, 0, -0.5, 0.5, 0, -0.5, 0, 1, 0.5},
		},
	}, nil
}

// scriptedGen produz instâncias configuráveis, com portão opcional para
// congelar jobs em Generating.
type scriptedGen struct {
	name      string
	mu        sync.Mutex
	gate      chan struct{} // nil = não bloqueia
	build     func(coord util.CellCoord) []Instance
	cancelled atomic.Int32
}

func (g *scriptedGen) Name() string { return g.name }

func (g *scriptedGen) GenerateForCell(ctx context.Context, coord util.CellCoord) ([]Instance, error) {
	g.mu.Lock()
	gate := g.gate
	build := g.build
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			g.cancelled.Add(1)
			return nil, ctx.Err()
		}
	}
	if build == nil {
		return nil, nil
	}
	return build(coord), nil
}

func (g *scriptedGen) setGate(gate chan struct{}) {
	g.mu.Lock()
	g.gate = gate
	g.mu.Unlock()
}

// unitBox é o volume local padrão das instâncias de teste.
func unitBox() util.AABB {
	return util.NewAABB(rl.Vector3{X: -0.5, Y: 0, Z: -0.5}, rl.Vector3{X: 0.5, Y: 1, Z: 0.5})
}

// objInstances gera n instâncias simples espalhadas pela célula.
func objInstances(n int, meshRaw uint32) func(util.CellCoord) []Instance {
	return func(coord util.CellCoord) []Instance {
		o := util.CellOrigin(coord)
		out := make([]Instance, 0, n)
		for i := 0; i < n; i++ {
			pos := rl.Vector3{X: o.X + float32(i)*4, Y: 0, Z: o.Z - 4}
			out = append(out, NewInstance(
				resources.ObjectMeshID(meshRaw),
				NewInstanceID(KindStatic, uint64(i)),
				rl.MatrixTranslate(pos.X, pos.Y, pos.Z),
				unitBox(),
			))
		}
		return out
	}
}

func newTestEngine(t *testing.T, gen Generator, cfg Config) (*Engine, *resources.Cache, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	cache := resources.NewCache(fakeMeshSource{}, dev)
	e := NewEngine(gen, cache, cfg)
	t.Cleanup(e.Shutdown)
	return e, cache, dev
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout esperando: %s", what)
}

// settle roda Update+ProcessUploads até todas as células do raio ficarem
// residentes.
func settle(t *testing.T, e *Engine, camPos rl.Vector3, want int) {
	t.Helper()
	forward := rl.Vector3{Z: -1}
	waitFor(t, fmt.Sprintf("%d células residentes", want), func() bool {
		e.Update(camPos, forward, 0.016)
		waitFor(t, "jobs do tick", func() bool { return e.ActiveJobs() == 0 })
		e.ProcessUploads(camPos, time.Second)
		return e.CountByState()[StateResident] == want
	})
}

func TestEndToEndScenario(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(2, 7)}
	gate := make(chan struct{})
	gen.setGate(gate)

	e, _, _ := newTestEngine(t, gen, Config{
		RenderDistance: 2,
		UnloadDelay:    10,
		MaxJobs:        4,
	})

	camPos := util.CellCenter(util.NewCellCoord(0, 0))
	e.Update(camPos, rl.Vector3{Z: -1}, 0.016)

	// 5x5 células centradas em (0,0); teto de 4 jobs simultâneos.
	counts := e.CountByState()
	assert.Equal(t, 25, counts[StateGenerating]+counts[StateQueued])
	assert.Equal(t, 4, counts[StateGenerating])
	assert.Equal(t, 21, counts[StateQueued])
	assert.Equal(t, 4, e.ActiveJobs())

	close(gate)
	gen.setGate(nil)
	settle(t, e, camPos, 25)

	counts = e.CountByState()
	assert.Equal(t, 25, counts[StateResident])
}

func TestRefCountInvariant(t *testing.T) {
	// Células pares usam a malha 1, ímpares a malha 2: o refcount de cada
	// malha deve bater exatamente com o número de células residentes que
	// a referenciam.
	gen := &scriptedGen{name: "estaticos", build: func(coord util.CellCoord) []Instance {
		raw := uint32(1)
		if (coord.X+coord.Y)%2 != 0 {
			raw = 2
		}
		return objInstances(3, raw)(coord)
	}}

	e, cache, _ := newTestEngine(t, gen, Config{RenderDistance: 1, UnloadDelay: 10, MaxJobs: 2})
	camPos := util.CellCenter(util.NewCellCoord(0, 0))
	settle(t, e, camPos, 9)

	expected := map[resources.MeshID]uint{}
	for _, cell := range e.cells {
		if cell.State() != StateResident {
			continue
		}
		for _, id := range distinctMeshes(cell.CurrentInstances) {
			expected[id]++
		}
	}
	require.NotEmpty(t, expected)
	for id, want := range expected {
		assert.Equal(t, want, cache.RefCount(id), "refcount da malha %s", id)
	}

	// A mesma malha usada por várias instâncias da célula conta uma vez.
	assert.Equal(t, uint(5), cache.RefCount(resources.ObjectMeshID(1)))
	assert.Equal(t, uint(4), cache.RefCount(resources.ObjectMeshID(2)))
}

func TestInvalidationKeepsOldDataUntilSwap(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(10, 3)}
	e, cache, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 10, MaxJobs: 1})

	coord := util.NewCellCoord(0, 0)
	camPos := util.CellCenter(coord)
	settle(t, e, camPos, 1)

	cell, ok := e.Cell(coord)
	require.True(t, ok)
	require.Len(t, cell.CurrentInstances, 10)

	// Edição externa: a célula regenera com 4 instâncias da malha 9.
	gen.mu.Lock()
	gen.build = objInstances(4, 9)
	gen.mu.Unlock()

	e.OnRegionChanged([]util.CellCoord{coord})
	e.Update(camPos, rl.Vector3{Z: -1}, 0.016)
	waitFor(t, "regeneração", func() bool { return e.ActiveJobs() == 0 })

	// Antes da troca: os 10 antigos continuam desenhando (sem buraco).
	cu := NewCuller()
	cu.Begin()
	f := hugeFrustum()
	e.PrepareBatches(cu, &f, camPos)
	assert.Equal(t, 10, cu.Instances, "dados antigos devem desenhar até a troca")
	assert.False(t, cell.MeshDataReady)

	// Depois da troca: o conjunto novo assume e as referências migram.
	e.ProcessUploads(camPos, time.Second)
	cu.Begin()
	e.PrepareBatches(cu, &f, camPos)
	assert.Equal(t, 4, cu.Instances)
	assert.Equal(t, uint(0), cache.RefCount(resources.ObjectMeshID(3)))
	assert.Equal(t, uint(1), cache.RefCount(resources.ObjectMeshID(9)))
}

func TestCancellationLeavesRefCountsUntouched(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(2, 5)}
	gate := make(chan struct{})
	gen.setGate(gate)
	defer close(gate)

	e, cache, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 0, MaxJobs: 1})

	near := util.CellCenter(util.NewCellCoord(0, 0))
	e.Update(near, rl.Vector3{Z: -1}, 0.016)
	require.Equal(t, 1, e.ActiveJobs())

	// Câmera sai do raio: histerese zerada descarta na hora e cancela o job.
	far := util.CellCenter(util.NewCellCoord(40, 40))
	e.Update(far, rl.Vector3{Z: -1}, 1.0)

	waitFor(t, "cancelamento do job", func() bool { return gen.cancelled.Load() >= 1 })
	_, exists := e.Cell(util.NewCellCoord(0, 0))
	assert.False(t, exists)

	// Nenhum incremento líquido: a troca nunca aconteceu.
	e.ProcessUploads(far, time.Second)
	assert.Equal(t, uint(0), cache.RefCount(resources.ObjectMeshID(5)))
}

func TestUnloadHysteresis(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(3, 6)}
	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 3, MaxJobs: 1})

	coord := util.NewCellCoord(0, 0)
	near := util.CellCenter(coord)
	settle(t, e, near, 1)

	far := util.CellCenter(util.NewCellCoord(40, 40))

	// Fora do raio por menos que o atraso: nada é descartado.
	e.Update(far, rl.Vector3{Z: -1}, 1.0)
	e.Update(far, rl.Vector3{Z: -1}, 1.0)
	waitFor(t, "jobs das células novas", func() bool { return e.ActiveJobs() == 0 })

	cell, ok := e.Cell(coord)
	require.True(t, ok, "célula não deveria ser descartada antes do atraso")
	assert.Len(t, cell.CurrentInstances, 3)
	assert.InDelta(t, 2.0, cell.OutOfRange, 0.001)

	// De volta ao raio: o acumulador zera.
	e.Update(near, rl.Vector3{Z: -1}, 0.016)
	assert.Equal(t, float32(0), cell.OutOfRange)

	// Fora por mais que o atraso: agora sim descarta.
	for i := 0; i < 5; i++ {
		e.Update(far, rl.Vector3{Z: -1}, 1.0)
		waitFor(t, "jobs", func() bool { return e.ActiveJobs() == 0 })
	}
	_, ok = e.Cell(coord)
	assert.False(t, ok)
}

func TestStaleUploadDiscarded(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(2, 8)}
	e, cache, dev := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 30, MaxJobs: 1})

	coord := util.NewCellCoord(0, 0)
	near := util.CellCenter(coord)
	e.Update(near, rl.Vector3{Z: -1}, 0.016)
	waitFor(t, "geração", func() bool { return e.ActiveJobs() == 0 })

	// A câmera foge antes do upload: o resultado deve ser descartado sem
	// tocar a GPU nem os refcounts.
	far := util.CellCenter(util.NewCellCoord(40, 40))
	elapsed := e.ProcessUploads(far, time.Second)

	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	assert.Equal(t, 0, dev.uploads)
	assert.Equal(t, uint(0), cache.RefCount(resources.ObjectMeshID(8)))
	_, ok := e.Cell(coord)
	assert.False(t, ok)
}

func TestUploadBudgetZeroProcessesNothing(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(1, 4)}
	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 30, MaxJobs: 1})

	near := util.CellCenter(util.NewCellCoord(0, 0))
	e.Update(near, rl.Vector3{Z: -1}, 0.016)
	waitFor(t, "geração", func() bool { return e.ActiveJobs() == 0 })

	e.ProcessUploads(near, 0)
	assert.Equal(t, 0, e.CountByState()[StateResident])
	assert.Equal(t, 1, e.uploadQueue.Len(), "resultado deve esperar o próximo frame")

	e.ProcessUploads(near, time.Second)
	assert.Equal(t, 1, e.CountByState()[StateResident])
}

func TestSchedulerPrefersViewDirection(t *testing.T) {
	gen := &scriptedGen{name: "estaticos"}
	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 4, UnloadDelay: 10, MaxJobs: 1, ViewBias: 2.5})

	center := util.NewCellCoord(0, 0)
	east := NewCell(util.NewCellCoord(1, 0))
	west := NewCell(util.NewCellCoord(-1, 0))
	e.cells[east.Coord.Key()] = east
	e.cells[west.Coord.Key()] = west
	e.pending.Enqueue(east.Coord.Key(), east)
	e.pending.Enqueue(west.Coord.Key(), west)

	// Câmera olhando para leste (X+): a célula a leste vence o empate de
	// distância.
	fwd, ok := util.NormalizeXZ(rl.Vector3{X: 1})
	require.True(t, ok)
	best := e.nextCandidate(center, fwd, true)
	require.NotNil(t, best)
	assert.Equal(t, east.Coord, best.Coord)
}

func TestWaitResident(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(1, 2)}
	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 10, MaxJobs: 1})

	coord := util.NewCellCoord(0, 0)
	assert.False(t, e.WaitResident(context.Background(), coord, 30*time.Millisecond))

	settle(t, e, util.CellCenter(coord), 1)
	assert.True(t, e.WaitResident(context.Background(), coord, time.Second))
}

func TestEditDuringGenerationRegenerates(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(1, 7)}
	gate := make(chan struct{})
	gen.setGate(gate)

	e, _, _ := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 10, MaxJobs: 1})
	coord := util.NewCellCoord(0, 0)
	camPos := util.CellCenter(coord)
	fwd := rl.Vector3{Z: -1}

	e.Update(camPos, fwd, 0.016)
	require.Equal(t, 1, e.ActiveJobs())

	// A edição chega com o job em voo: o resultado em trânsito está
	// sendo produzido a partir da carga pré-edição.
	e.OnRegionChanged([]util.CellCoord{coord})
	e.Update(camPos, fwd, 0.016)

	close(gate)
	gen.setGate(nil)
	waitFor(t, "job concluído", func() bool { return e.ActiveJobs() == 0 })
	e.ProcessUploads(camPos, time.Second)

	// O conjunto velho assenta e continua visível, mas a célula volta
	// imediatamente à fila para regenerar com a carga editada.
	cell, ok := e.Cell(coord)
	require.True(t, ok)
	assert.Equal(t, StateQueued, cell.State())
	assert.False(t, cell.MeshDataReady)
	assert.Len(t, cell.CurrentInstances, 1)

	settle(t, e, camPos, 1)
	assert.Equal(t, StateResident, cell.State())
	assert.True(t, cell.MeshDataReady)
}

func TestFailedCommitLeavesNoOrphanMeshes(t *testing.T) {
	// A célula referencia duas malhas e o upload da segunda falha: a
	// primeira, enviada pelo mesmo commit e ainda sem referências, deve
	// ser destruída junto em vez de ficar órfã no cache.
	gen := &scriptedGen{name: "estaticos", build: func(coord util.CellCoord) []Instance {
		o := util.CellOrigin(coord)
		mk := func(raw uint32, i int) Instance {
			return NewInstance(
				resources.ObjectMeshID(raw),
				NewInstanceID(KindStatic, uint64(i)),
				rl.MatrixTranslate(o.X+float32(i)*4, 0, o.Z-4),
				unitBox(),
			)
		}
		return []Instance{mk(1, 0), mk(2, 1)}
	}}

	e, cache, dev := newTestEngine(t, gen, Config{RenderDistance: 0, UnloadDelay: 10, MaxJobs: 1})
	dev.setFail(resources.ObjectMeshID(2), true)

	camPos := util.CellCenter(util.NewCellCoord(0, 0))
	e.Update(camPos, rl.Vector3{Z: -1}, 0.016)
	waitFor(t, "job concluído", func() bool { return e.ActiveJobs() == 0 })
	e.ProcessUploads(camPos, time.Second)

	cell, ok := e.Cell(util.NewCellCoord(0, 0))
	require.True(t, ok)
	assert.Equal(t, StateQueued, cell.State())
	assert.False(t, cache.Has(resources.ObjectMeshID(1)))
	assert.False(t, cache.Has(resources.ObjectMeshID(2)))
	assert.Equal(t, 1, dev.releaseCount())

	// Dispositivo recuperado: uma invalidação recoloca a célula na fila
	// e ela termina residente com as referências corretas.
	dev.setFail(resources.ObjectMeshID(2), false)
	e.OnRegionChanged(nil)
	settle(t, e, camPos, 1)
	assert.Equal(t, uint(1), cache.RefCount(resources.ObjectMeshID(1)))
	assert.Equal(t, uint(1), cache.RefCount(resources.ObjectMeshID(2)))
}

func TestMapBoundsClipStreaming(t *testing.T) {
	gen := &scriptedGen{name: "estaticos", build: objInstances(1, 7)}
	e, _, _ := newTestEngine(t, gen, Config{
		RenderDistance: 1,
		UnloadDelay:    10,
		MaxJobs:        2,
		InBounds: func(c util.CellCoord) bool {
			return c.X >= 0 && c.Y >= 0
		},
	})

	// Anel 3x3 em torno de (0,0): só o quadrante válido vira célula.
	camPos := util.CellCenter(util.NewCellCoord(0, 0))
	settle(t, e, camPos, 4)

	assert.Len(t, e.cells, 4)
	for _, cell := range e.cells {
		assert.GreaterOrEqual(t, cell.Coord.X, int32(0))
		assert.GreaterOrEqual(t, cell.Coord.Y, int32(0))
	}
}
