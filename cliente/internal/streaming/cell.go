package streaming

import (
	"sync/atomic"

	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// State é o estado do ciclo de vida de uma célula de streaming.
type State int32

const (
	StateUnloaded State = iota
	StateQueued
	StateGenerating
	StateAwaitingUpload
	StateResident
	StateUnloading
)

// String retorna o nome do estado para logs.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateQueued:
		return "Queued"
	case StateGenerating:
		return "Generating"
	case StateAwaitingUpload:
		return "AwaitingUpload"
	case StateResident:
		return "Resident"
	case StateUnloading:
		return "Unloading"
	}
	return "?"
}

// Cell acompanha o ciclo de vida de um landblock dentro de um subsistema
// de streaming.
//
// Contrato de escrita: CurrentInstances, PartGroups, GroupOrder, Bounds e
// OutOfRange são mutados apenas na thread de render. PendingInstances é
// escrito pelo job de geração que detém a célula (no máximo um por vez) e
// lido na thread de render depois que a célula passa pela fila de upload.
// O estado é atômico porque o job o observa para abortar limpo.
type Cell struct {
	Coord util.CellCoord

	state atomic.Int32

	// Conjunto comprometido, com recursos de GPU garantidos.
	CurrentInstances []Instance

	// Resultado de um job concluído, ainda não trocado. Definido no
	// máximo uma vez entre trocas; a troca o limpa.
	PendingInstances []Instance
	HasPending       bool

	// Volume da célula no mundo, derivado das instâncias atuais.
	Bounds util.AABB

	// Agrupamento precomputado por malha (setups já expandidos),
	// reconstruído a cada troca. É o caminho rápido do culling.
	PartGroups map[resources.MeshID][]rl.Matrix
	GroupOrder []resources.MeshID

	// Tempo acumulado fora do raio de visão (histerese de descarte).
	OutOfRange float32

	// MeshDataReady cai quando uma invalidação chega; a célula continua
	// desenhando CurrentInstances até a regeneração terminar.
	MeshDataReady bool

	// MTime conta as edições aplicadas à célula; GenMTime congela esse
	// contador quando um job parte. Divergência no commit significa que
	// uma edição chegou com o job em voo: o resultado assenta, mas a
	// célula volta à fila. Ambos são exclusivos da thread de render.
	MTime    int64
	GenMTime int64
}

// NewCell cria uma célula recém-enfileirada.
func NewCell(coord util.CellCoord) *Cell {
	c := &Cell{Coord: coord}
	c.state.Store(int32(StateQueued))
	return c
}

// State lê o estado atual.
func (c *Cell) State() State {
	return State(c.state.Load())
}

// SetState grava o estado.
func (c *Cell) SetState(s State) {
	c.state.Store(int32(s))
}
