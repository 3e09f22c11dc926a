package streaming

import (
	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Culler monta, a cada frame, as listas de transformações agrupadas por
// malha, prontas para desenho instanciado. As listas vêm de um pool com
// cursor que zera por frame: a alocação fica limitada à marca d'água do
// pool ao longo da execução, não por frame.
type Culler struct {
	pool   [][]rl.Matrix
	cursor int

	order  []resources.MeshID
	groups map[resources.MeshID]int // índice no pool

	// Contadores do último frame, para a HUD.
	CellsVisible int
	Instances    int
}

// NewCuller cria um culler com pool vazio.
func NewCuller() *Culler {
	return &Culler{
		groups: make(map[resources.MeshID]int),
	}
}

// Begin zera o estado do frame, reaproveitando as listas do pool.
func (cu *Culler) Begin() {
	cu.cursor = 0
	cu.order = cu.order[:0]
	for k := range cu.groups {
		delete(cu.groups, k)
	}
	cu.CellsVisible = 0
	cu.Instances = 0
}

// getPooledList devolve o índice de uma lista limpa do pool, crescendo o
// pool só na primeira vez que cada slot é usado.
func (cu *Culler) getPooledList() int {
	if cu.cursor == len(cu.pool) {
		cu.pool = append(cu.pool, make([]rl.Matrix, 0, 256))
	}
	idx := cu.cursor
	cu.pool[idx] = cu.pool[idx][:0]
	cu.cursor++
	return idx
}

// add acrescenta uma transformação ao grupo da malha, registrando a
// malha na ordem de primeiro uso (ordem de desenho estável entre frames).
func (cu *Culler) add(id resources.MeshID, m rl.Matrix) {
	idx, ok := cu.groups[id]
	if !ok {
		idx = cu.getPooledList()
		cu.groups[id] = idx
		cu.order = append(cu.order, id)
	}
	cu.pool[idx] = append(cu.pool[idx], m)
	cu.Instances++
}

// addBulk acrescenta um grupo inteiro precomputado (caminho rápido).
func (cu *Culler) addBulk(id resources.MeshID, ms []rl.Matrix) {
	if len(ms) == 0 {
		return
	}
	idx, ok := cu.groups[id]
	if !ok {
		idx = cu.getPooledList()
		cu.groups[id] = idx
		cu.order = append(cu.order, id)
	}
	cu.pool[idx] = append(cu.pool[idx], ms...)
	cu.Instances += len(ms)
}

// Order retorna as malhas do frame na ordem de primeiro uso.
func (cu *Culler) Order() []resources.MeshID {
	return cu.order
}

// Group retorna a lista de transformações de uma malha do frame.
func (cu *Culler) Group(id resources.MeshID) []rl.Matrix {
	if idx, ok := cu.groups[id]; ok {
		return cu.pool[idx]
	}
	return nil
}

// PrepareBatches percorre as células residentes do engine e acumula no
// culler os grupos visíveis. Células totalmente dentro do frustum usam o
// caminho rápido (grupos precomputados, sem teste por instância); células
// cortadas testam cada instância e expandem setups em sub-partes.
// Exclusivo da thread de render.
func (e *Engine) PrepareBatches(cu *Culler, f *util.Frustum, camPos rl.Vector3) {
	center := util.WorldToCell(camPos)

	for _, cell := range e.cells {
		if cell.State() != StateResident && len(cell.CurrentInstances) == 0 {
			continue
		}
		if center.Chebyshev(cell.Coord) > e.cfg.RenderDistance {
			continue
		}

		switch f.TestAABB(cell.Bounds) {
		case util.Outside:
			continue

		case util.Inside:
			// Caminho rápido: grupos em bloco, sem teste por instância.
			for _, id := range cell.GroupOrder {
				cu.addBulk(id, cell.PartGroups[id])
			}
			cu.CellsVisible++

		case util.Intersects:
			// Caminho lento: teste individual de cada instância.
			visible := false
			for i := range cell.CurrentInstances {
				inst := &cell.CurrentInstances[i]
				if f.TestAABB(inst.WorldBounds) == util.Outside {
					continue
				}
				visible = true
				if inst.IsComposite {
					for _, sp := range e.cache.SubParts(inst.MeshID) {
						cu.add(sp.ID, rl.MatrixMultiply(sp.Transform, inst.Transform))
					}
				} else {
					cu.add(inst.MeshID, inst.Transform)
				}
			}
			if visible {
				cu.CellsVisible++
			}
		}
	}
}

// FindInstance localiza uma instância residente pelo id. Usado pelo
// destaque de seleção, que precisa do volume de mundo atualizado mesmo
// depois de a célula trocar de conjunto.
func (e *Engine) FindInstance(id InstanceID) (*Instance, bool) {
	for _, cell := range e.cells {
		for i := range cell.CurrentInstances {
			if cell.CurrentInstances[i].ID == id {
				return &cell.CurrentInstances[i], true
			}
		}
	}
	return nil, false
}

// Pick testa um raio contra os volumes de mundo das instâncias residentes
// e devolve o id da instância mais próxima. Usado para seleção.
func (e *Engine) Pick(origin, dir rl.Vector3) (InstanceID, float32, bool) {
	var bestID InstanceID
	bestDist := float32(0)
	hit := false

	for _, cell := range e.cells {
		if len(cell.CurrentInstances) == 0 {
			continue
		}
		if _, ok := util.RayAABB(origin, dir, cell.Bounds); !ok {
			continue
		}
		for i := range cell.CurrentInstances {
			inst := &cell.CurrentInstances[i]
			d, ok := util.RayAABB(origin, dir, inst.WorldBounds)
			if !ok {
				continue
			}
			if !hit || d < bestDist {
				bestID = inst.ID
				bestDist = d
				hit = true
			}
		}
	}
	return bestID, bestDist, hit
}
