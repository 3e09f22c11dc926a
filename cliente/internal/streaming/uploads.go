package streaming

import (
	"log"
	"time"

	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// ProcessUploads drena a fila de células prontas dentro do orçamento de
// tempo, realizando toda a mutação visível à GPU: residência das malhas,
// troca de refcounts e a troca atômica pending → current. Exclusivo da
// thread de render. Retorna o tempo gasto, para o chamador descontar do
// orçamento compartilhado entre subsistemas.
func (e *Engine) ProcessUploads(camPos rl.Vector3, budget time.Duration) time.Duration {
	start := time.Now()
	center := util.WorldToCell(camPos)

	for time.Since(start) < budget {
		cell, ok := e.uploadQueue.Pop()
		if !ok {
			break
		}

		key := cell.Coord.Key()

		// Re-validação: célula substituída ou já fora do raio é
		// descartada sem tocar a GPU.
		registered, exists := e.cells[key]
		if !exists || registered != cell || center.Chebyshev(cell.Coord) > e.cfg.RenderDistance {
			e.discardPending(cell, exists && registered == cell)
			continue
		}

		if err := e.commitCell(cell); err != nil {
			log.Printf("[Uploads] %s: falha no upload de %s: %v", e.name, cell.Coord, err)
			cell.PendingInstances = nil
			cell.HasPending = false
			cell.SetState(StateQueued)
		}
	}

	return time.Since(start)
}

// commitCell realiza a troca de uma célula: garante residência das
// malhas, reconstrói os grupos, ajusta refcounts e assenta o conjunto
// pendente como atual.
func (e *Engine) commitCell(cell *Cell) error {
	incoming := distinctMeshes(cell.PendingInstances)

	// 1. Residência idempotente de cada malha nova (sub-partes inclusas).
	// Uma falha no meio desfaz os uploads que este commit já fez e ainda
	// não referenciou, para não deixar entradas órfãs no cache.
	for i, id := range incoming {
		if e.cache.Has(id) {
			continue
		}
		if err := e.cache.EnsureUploaded(id); err != nil {
			for _, done := range incoming[:i] {
				e.cache.DropUnreferenced(done)
			}
			return err
		}
	}

	// 2. Grupos do caminho rápido, a partir do conjunto pendente.
	groups, order := e.buildGroups(cell.PendingInstances)

	// 3. Troca de referências: adquire o conjunto novo antes de liberar
	// o antigo, para que uma malha presente nos dois nunca chegue a zero
	// e seja destruída/recriada à toa.
	outgoing := distinctMeshes(cell.CurrentInstances)
	for _, id := range incoming {
		e.cache.Acquire(id)
	}
	for _, id := range outgoing {
		e.cache.Release(id)
	}

	// 4. Troca atômica do ponto de vista do culler: a thread de render é
	// a única escritora, então ninguém observa um estado intermediário.
	cell.CurrentInstances = cell.PendingInstances
	cell.PendingInstances = nil
	cell.HasPending = false
	cell.PartGroups = groups
	cell.GroupOrder = order
	cell.Bounds = e.cellBounds(cell.CurrentInstances, cell.Coord)

	// 5. Uma edição que chegou com o job em voo deixa MTime à frente de
	// GenMTime: o conjunto que acabou de assentar já nasceu velho. Ele
	// fica visível, mas a célula volta imediatamente à fila.
	if cell.MTime != cell.GenMTime {
		cell.MeshDataReady = false
		cell.SetState(StateQueued)
		e.pending.Enqueue(cell.Coord.Key(), cell)
	} else {
		cell.MeshDataReady = true
		cell.SetState(StateResident)
	}
	e.markResident(cell.Coord.Key(), true)
	return nil
}

// discardPending abandona um resultado que perdeu a validade antes do
// upload. O conjunto pendente nunca adquiriu referências, então basta
// soltá-lo; os recursos do conjunto atual seguem o caminho normal de
// descarte.
func (e *Engine) discardPending(cell *Cell, stillRegistered bool) {
	cell.PendingInstances = nil
	cell.HasPending = false

	if !stillRegistered {
		return
	}
	if len(cell.CurrentInstances) > 0 {
		cell.SetState(StateResident)
	} else {
		cell.SetState(StateUnloaded)
		e.markResident(cell.Coord.Key(), false)
		delete(e.cells, cell.Coord.Key())
	}
}

// buildGroups agrupa as instâncias por malha, já expandindo setups em
// suas sub-partes, na ordem do primeiro uso. É o que o caminho rápido do
// culling consome sem testar instância por instância.
func (e *Engine) buildGroups(instances []Instance) (map[resources.MeshID][]rl.Matrix, []resources.MeshID) {
	groups := make(map[resources.MeshID][]rl.Matrix)
	order := make([]resources.MeshID, 0, 8)

	add := func(id resources.MeshID, m rl.Matrix) {
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], m)
	}

	for i := range instances {
		inst := &instances[i]
		if inst.IsComposite {
			// A transformação relativa da sub-parte é aplicada primeiro,
			// no referencial local do setup, e só então a colocação da
			// instância leva o conjunto ao mundo.
			for _, sp := range e.cache.SubParts(inst.MeshID) {
				add(sp.ID, rl.MatrixMultiply(sp.Transform, inst.Transform))
			}
			continue
		}
		add(inst.MeshID, inst.Transform)
	}
	return groups, order
}

// cellBounds deriva o volume da célula da união dos volumes de mundo
// das instâncias. Sem instâncias, cai para a caixa do landblock.
func (e *Engine) cellBounds(instances []Instance, coord util.CellCoord) util.AABB {
	if len(instances) == 0 {
		o := util.CellOrigin(coord)
		return util.NewAABB(o, rl.Vector3{X: o.X + util.CellSize, Y: 1, Z: o.Z - util.CellSize})
	}
	box := instances[0].WorldBounds
	for i := 1; i < len(instances); i++ {
		box = box.Merge(instances[i].WorldBounds)
	}
	return box
}
