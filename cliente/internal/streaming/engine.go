package streaming

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Generator é o callback de subsistema: produz as instâncias de um
// landblock. Roda em goroutine de fundo e deve checar o contexto entre
// passos caros; cancelamento é um aborto limpo, não um erro.
type Generator interface {
	Name() string
	GenerateForCell(ctx context.Context, coord util.CellCoord) ([]Instance, error)
}

// Config parametriza um engine de streaming.
type Config struct {
	RenderDistance int32   // Raio de residência em landblocks (Chebyshev)
	UnloadDelay    float32 // Segundos fora do raio antes do descarte
	MaxJobs        int     // Jobs de geração simultâneos
	ViewBias       float32 // Peso do prefetch na direção da câmera

	// InBounds limita a grade válida do mapa (nil = sem limites).
	InBounds func(util.CellCoord) bool
}

// pendingJob amarra uma célula ao cancelamento do seu job de geração.
type pendingJob struct {
	cancel context.CancelFunc
}

// Engine é o gerenciador de ciclo de vida de um subsistema de streaming.
// É genérico: os cinco sistemas concretos (terreno, estáticos, cenário,
// interiores, portais) são instâncias dele sobre Generators diferentes,
// todos compartilhando o mesmo cache de malhas.
//
// Todas as mutações visíveis à GPU (CurrentInstances, PartGroups,
// refcounts do cache) acontecem em Update/ProcessUploads, na thread de
// render. Os jobs só escrevem PendingInstances e o staging do cache.
type Engine struct {
	name  string
	gen   Generator
	cache *resources.Cache
	cfg   Config

	// cells é criado/removido apenas na thread de render.
	cells map[util.CellKey]*Cell

	pending     *util.UniqueQueue[util.CellKey, *Cell]
	uploadQueue *util.ThreadSafeQueue[*Cell]

	jobsMu sync.Mutex
	jobs   map[util.CellKey]*pendingJob
	active atomic.Int32

	// Espelho thread-safe do conjunto residente, para WaitResident de
	// outros subsistemas. Escrito na thread de render.
	residentMu sync.RWMutex
	resident   map[util.CellKey]bool

	// Invalidações chegam de outras goroutines e são drenadas no Update.
	invalidations chan []util.CellCoord

	baseCtx context.Context
	stop    context.CancelFunc
}

// NewEngine cria um engine para o gerador dado.
func NewEngine(gen Generator, cache *resources.Cache, cfg Config) *Engine {
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		name:          gen.Name(),
		gen:           gen,
		cache:         cache,
		cfg:           cfg,
		cells:         make(map[util.CellKey]*Cell),
		pending:       util.NewUniqueQueue[util.CellKey, *Cell](),
		uploadQueue:   util.NewThreadSafeQueue[*Cell](),
		jobs:          make(map[util.CellKey]*pendingJob),
		resident:      make(map[util.CellKey]bool),
		invalidations: make(chan []util.CellCoord, 64),
		baseCtx:       ctx,
		stop:          cancel,
	}
}

// Name retorna o nome do subsistema.
func (e *Engine) Name() string { return e.name }

// OnRegionChanged recebe uma notificação de mudança de região.
// affected == nil invalida tudo. Seguro para qualquer goroutine; o
// efeito acontece no próximo Update.
func (e *Engine) OnRegionChanged(affected []util.CellCoord) {
	select {
	case e.invalidations <- affected:
	default:
		// Fila cheia: degrada para invalidação total, que engloba tudo.
		select {
		case e.invalidations <- nil:
		default:
		}
	}
}

// Update executa o contrato por tick do gerenciador de ciclo de vida:
// cria células que entraram no raio, acumula histerese das que saíram,
// aplica invalidações pendentes e delega o despacho ao escalonador.
// Exclusivo da thread de render.
func (e *Engine) Update(camPos, camForward rl.Vector3, dt float32) {
	e.drainInvalidations()

	center := util.WorldToCell(camPos)
	r := e.cfg.RenderDistance

	// 1. Células que entraram no raio viram QueuedForGeneration.
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			coord := util.NewCellCoord(center.X+dx, center.Y+dy)
			if e.cfg.InBounds != nil && !e.cfg.InBounds(coord) {
				continue
			}
			key := coord.Key()
			if _, ok := e.cells[key]; ok {
				continue
			}
			cell := NewCell(coord)
			e.cells[key] = cell
			e.pending.Enqueue(key, cell)
		}
	}

	// 2. Histerese de descarte para células fora do raio.
	for key, cell := range e.cells {
		if center.Chebyshev(cell.Coord) <= r {
			cell.OutOfRange = 0
			continue
		}
		cell.OutOfRange += dt
		if cell.OutOfRange > e.cfg.UnloadDelay {
			e.unloadCell(key, cell)
		}
	}

	// 3. Despacho dos jobs de geração.
	e.dispatch(center, camForward)
}

// drainInvalidations aplica as mudanças de região recebidas desde o
// último tick.
func (e *Engine) drainInvalidations() {
	for {
		select {
		case affected := <-e.invalidations:
			if affected == nil {
				for _, cell := range e.cells {
					e.invalidateCell(cell)
				}
				log.Printf("[Streaming] %s: invalidação total (%d células)", e.name, len(e.cells))
			} else {
				for _, coord := range affected {
					if cell, ok := e.cells[coord.Key()]; ok {
						e.invalidateCell(cell)
					}
				}
			}
		default:
			return
		}
	}
}

// invalidateCell re-enfileira a célula para regeneração, preservando
// CurrentInstances e PartGroups: os dados antigos continuam desenhando
// até a troca, para não piscar durante edições.
func (e *Engine) invalidateCell(cell *Cell) {
	cell.MTime++
	cell.MeshDataReady = false
	switch cell.State() {
	case StateResident, StateQueued, StateUnloaded:
		cell.SetState(StateQueued)
		e.pending.Enqueue(cell.Coord.Key(), cell)
	}
	// Generating/AwaitingUpload: o resultado em trânsito assenta, o
	// commit vê MTime à frente de GenMTime e re-enfileira a célula.
}

// unloadCell cancela qualquer job em voo, devolve as referências do
// conjunto atual ao cache e remove a célula.
func (e *Engine) unloadCell(key util.CellKey, cell *Cell) {
	cell.SetState(StateUnloading)

	e.jobsMu.Lock()
	if job, ok := e.jobs[key]; ok {
		job.cancel()
		delete(e.jobs, key)
	}
	e.jobsMu.Unlock()

	e.pending.Remove(key)

	for _, id := range distinctMeshes(cell.CurrentInstances) {
		e.cache.Release(id)
	}
	cell.CurrentInstances = nil
	cell.PartGroups = nil
	cell.GroupOrder = nil
	cell.SetState(StateUnloaded)

	e.markResident(key, false)
	delete(e.cells, key)
}

// Cell retorna a célula registrada para a coordenada, se existir.
func (e *Engine) Cell(coord util.CellCoord) (*Cell, bool) {
	c, ok := e.cells[coord.Key()]
	return c, ok
}

// CountByState conta células por estado. Para HUD e testes.
func (e *Engine) CountByState() map[State]int {
	out := make(map[State]int)
	for _, c := range e.cells {
		out[c.State()]++
	}
	return out
}

// ActiveJobs retorna o número de jobs de geração em voo.
func (e *Engine) ActiveJobs() int {
	return int(e.active.Load())
}

// WaitResident espera a célula ficar residente, com prazo. Usado por
// geradores que dependem de outro subsistema (interiores esperam as
// construções). Retorna false no timeout ou cancelamento.
func (e *Engine) WaitResident(ctx context.Context, coord util.CellCoord, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		if e.IsResident(coord) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
		}
	}
}

// IsResident consulta o espelho residente. Seguro para qualquer goroutine.
func (e *Engine) IsResident(coord util.CellCoord) bool {
	e.residentMu.RLock()
	defer e.residentMu.RUnlock()
	return e.resident[coord.Key()]
}

func (e *Engine) markResident(key util.CellKey, isResident bool) {
	e.residentMu.Lock()
	if isResident {
		e.resident[key] = true
	} else {
		delete(e.resident, key)
	}
	e.residentMu.Unlock()
}

// Shutdown cancela todos os jobs em voo; eles abortam no próximo
// checkpoint de contexto.
func (e *Engine) Shutdown() {
	e.stop()
}
