package streaming

import (
	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// InstanceID identifica uma instância colocada no mundo. O byte alto
// discrimina o tipo e o resto carrega o id bruto. Serve para seleção e
// hit-testing; nunca para busca de recursos (isso é papel do MeshID).
type InstanceID uint64

// Tipos de instância.
const (
	KindTerrain        uint8 = 0x01
	KindStatic         uint8 = 0x02
	KindBuilding       uint8 = 0x03
	KindScenery        uint8 = 0x04
	KindInteriorCell   uint8 = 0x05
	KindInteriorStatic uint8 = 0x06
	KindPortal         uint8 = 0x07
)

// NewInstanceID monta um id discriminado.
func NewInstanceID(kind uint8, raw uint64) InstanceID {
	return InstanceID(uint64(kind)<<56 | raw&0x00FFFFFFFFFFFFFF)
}

// Kind retorna o tipo da instância.
func (id InstanceID) Kind() uint8 {
	return uint8(id >> 56)
}

// Raw retorna o identificador bruto.
func (id InstanceID) Raw() uint64 {
	return uint64(id) & 0x00FFFFFFFFFFFFFF
}

// Instance é um objeto posicionado pertencente a uma célula de streaming.
type Instance struct {
	MeshID      resources.MeshID
	ID          InstanceID
	Transform   rl.Matrix
	LocalBounds util.AABB
	WorldBounds util.AABB // LocalBounds transformado; cacheado para o broad-phase
	IsComposite bool
}

// NewInstance cria uma instância com o volume de mundo já cacheado.
func NewInstance(meshID resources.MeshID, id InstanceID, transform rl.Matrix, localBounds util.AABB) Instance {
	return Instance{
		MeshID:      meshID,
		ID:          id,
		Transform:   transform,
		LocalBounds: localBounds,
		WorldBounds: localBounds.Transform(transform),
		IsComposite: meshID.IsComposite(),
	}
}

// PlacementMatrix monta a matriz de colocação: escala, rotação em Y e
// por fim a translação. No raymath, MatrixMultiply(a, b) aplica primeiro
// o operando da esquerda, então a translação entra por último para que a
// rotação gire em torno da posição de colocação, não da origem do mundo.
func PlacementMatrix(pos rl.Vector3, rotationDeg, scale float32) rl.Matrix {
	if scale == 0 {
		scale = 1.0
	}
	scaleMat := rl.MatrixScale(scale, scale, scale)
	rotMat := rl.MatrixRotateY(rotationDeg * rl.Deg2rad)
	m := rl.MatrixMultiply(scaleMat, rotMat)
	return rl.MatrixMultiply(m, rl.MatrixTranslate(pos.X, pos.Y, pos.Z))
}

// distinctMeshes retorna o conjunto de malhas distintas referenciadas
// pelas instâncias, na ordem do primeiro uso. Partes de setups contam
// uma vez pela referência ao pai, não por sub-parte.
func distinctMeshes(instances []Instance) []resources.MeshID {
	seen := make(map[resources.MeshID]struct{}, len(instances))
	out := make([]resources.MeshID, 0, len(instances))
	for i := range instances {
		id := instances[i].MeshID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
