package streaming

import (
	"context"
	"errors"
	"log"
	"math"

	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// dispatch escolhe, entre as células enfileiradas, as próximas a gerar,
// até o teto de concorrência. Prioriza distância euclidiana com bônus de
// alinhamento à direção da câmera (prefetch). A varredura é linear por
// chamada: a fila é limitada por renderDistance² e é pequena frente ao
// tempo de frame.
func (e *Engine) dispatch(center util.CellCoord, forward rl.Vector3) {
	fwd, fwdOk := util.NormalizeXZ(forward)

	for int(e.active.Load()) < e.cfg.MaxJobs {
		cell := e.nextCandidate(center, fwd, fwdOk)
		if cell == nil {
			return
		}

		key := cell.Coord.Key()
		e.pending.Remove(key)

		// Re-validação imediata: a câmera pode ter se movido enquanto a
		// célula esperava na fila. Fora do raio, entradas nunca geradas
		// são descartadas na hora (sem histerese, de propósito: a
		// histerese protege dados carregados contra flicker, não fila).
		if center.Chebyshev(cell.Coord) > e.cfg.RenderDistance {
			if len(cell.CurrentInstances) == 0 {
				cell.SetState(StateUnloaded)
				e.markResident(key, false)
				delete(e.cells, key)
			} else {
				cell.SetState(StateResident)
			}
			continue
		}

		e.startJob(cell)
	}
}

// nextCandidate varre a fila de pendências e devolve a célula de menor
// prioridade (menor = mais urgente).
func (e *Engine) nextCandidate(center util.CellCoord, fwd rl.Vector3, fwdOk bool) *Cell {
	var best *Cell
	bestPriority := float32(math.MaxFloat32)

	e.pending.Each(func(_ util.CellKey, cell *Cell) {
		p := e.priority(center, cell.Coord, fwd, fwdOk)
		if p < bestPriority {
			bestPriority = p
			best = cell
		}
	})
	return best
}

// priority = distância − bônus de alinhamento com a visão.
func (e *Engine) priority(center, coord util.CellCoord, fwd rl.Vector3, fwdOk bool) float32 {
	dist := center.Euclidean(coord)

	if !fwdOk {
		return dist
	}
	// Offset da célula no plano XZ do mundo (Y da grade aponta para -Z).
	off, ok := util.NormalizeXZ(rl.Vector3{
		X: float32(coord.X - center.X),
		Z: float32(-(coord.Y - center.Y)),
	})
	if !ok {
		// Célula da própria câmera: sem direção definida, só distância.
		return dist
	}
	alignment := fwd.X*off.X + fwd.Z*off.Z
	return dist - alignment*e.cfg.ViewBias
}

// startJob despacha o job de geração da célula, com cancelamento
// cooperativo registrado em jobs.
func (e *Engine) startJob(cell *Cell) {
	key := cell.Coord.Key()
	cell.GenMTime = cell.MTime
	cell.SetState(StateGenerating)

	ctx, cancel := context.WithCancel(e.baseCtx)
	e.jobsMu.Lock()
	e.jobs[key] = &pendingJob{cancel: cancel}
	e.jobsMu.Unlock()
	e.active.Add(1)

	go e.runJob(ctx, cell)
}

// runJob produz as instâncias da célula e as publica via fila de upload.
// Falhas nunca derrubam o pipeline: são logadas e a célula fica marcada
// para nova tentativa na próxima invalidação. Cancelamento é um aborto
// limpo, sem mutação de estado compartilhado.
func (e *Engine) runJob(ctx context.Context, cell *Cell) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] Job de geração %s %s: %v", e.name, cell.Coord, r)
		}
		e.jobsMu.Lock()
		delete(e.jobs, cell.Coord.Key())
		e.jobsMu.Unlock()
		e.active.Add(-1)
	}()

	instances, err := e.gen.GenerateForCell(ctx, cell.Coord)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		log.Printf("[Streaming] %s: falha ao gerar %s: %v", e.name, cell.Coord, err)
		cell.SetState(StateQueued)
		return
	}
	if ctx.Err() != nil {
		return
	}

	// Preparação das malhas (staging compartilhado do cache), com
	// checkpoint de cancelamento entre malhas.
	for _, id := range distinctMeshes(instances) {
		if ctx.Err() != nil {
			return
		}
		if err := e.cache.Prepare(ctx, id); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Printf("[Streaming] %s: falha ao preparar malha %s para %s: %v", e.name, id, cell.Coord, err)
			cell.SetState(StateQueued)
			return
		}
	}

	// Publicação: o job só escreve o conjunto pendente; a troca e todo o
	// trabalho visível à GPU ficam com o processador de uploads.
	cell.PendingInstances = instances
	cell.HasPending = true
	cell.SetState(StateAwaitingUpload)
	e.uploadQueue.Push(cell)
}
