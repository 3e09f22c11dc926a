package resources

import (
	"context"
	"fmt"

	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// MeshID identifica uma malha no cache. O byte alto discrimina o tipo
// e os 32 bits baixos carregam o id bruto do provedor (malhas de terreno
// embutem a CellKey do landblock).
type MeshID uint64

// Tipos de malha.
const (
	MeshKindTerrain uint8 = 0x01 // Malha única do relevo de um landblock
	MeshKindObject  uint8 = 0x02 // Objeto simples
	MeshKindSetup   uint8 = 0x03 // Montagem composta de sub-partes
	MeshKindPart    uint8 = 0x04 // Sub-parte de um setup
)

// TerrainMeshID deriva o id da malha de terreno de um landblock.
func TerrainMeshID(key util.CellKey) MeshID {
	return MeshID(uint64(MeshKindTerrain)<<56 | uint64(key))
}

// ObjectMeshID deriva o id de um objeto simples.
func ObjectMeshID(raw uint32) MeshID {
	return MeshID(uint64(MeshKindObject)<<56 | uint64(raw))
}

// SetupMeshID deriva o id de uma montagem composta.
func SetupMeshID(raw uint32) MeshID {
	return MeshID(uint64(MeshKindSetup)<<56 | uint64(raw))
}

// PartMeshID deriva o id de uma sub-parte.
func PartMeshID(raw uint32) MeshID {
	return MeshID(uint64(MeshKindPart)<<56 | uint64(raw))
}

// Kind retorna o tipo da malha.
func (id MeshID) Kind() uint8 {
	return uint8(id >> 56)
}

// Raw retorna o id bruto do provedor.
func (id MeshID) Raw() uint32 {
	return uint32(id)
}

// IsComposite informa se a malha é um setup (montagem de sub-partes).
func (id MeshID) IsComposite() bool {
	return id.Kind() == MeshKindSetup
}

// String formata o id para logs.
func (id MeshID) String() string {
	return fmt.Sprintf("%02x:%08x", id.Kind(), id.Raw())
}

// GeometryData contém os buffers de vértices de uma malha.
type GeometryData struct {
	Vertices []float32
	Normals  []float32
	Colors   []uint8
	UVs      []float32
	Indices  []uint16
}

// IsEmpty informa se não há geometria.
func (g *GeometryData) IsEmpty() bool {
	return len(g.Vertices) == 0
}

// SubPart referencia a malha de uma sub-parte com sua transformação
// relativa fixa dentro do setup.
type SubPart struct {
	ID        MeshID
	Transform rl.Matrix
}

// MeshData é o resultado da preparação de uma malha: geometria pronta
// para upload (ou sub-partes, se composta) e o volume local precomputado.
type MeshData struct {
	ID       MeshID
	Geometry GeometryData
	Bounds   util.AABB
	SubParts []SubPart // Presente apenas em setups
}

// Handle é um recurso opaco do dispositivo gráfico (ex.: rl.Model).
type Handle any

// Device abstrai o dispositivo gráfico para o cache. A implementação
// raylib vive em cliente/internal/render; os testes usam um fake.
// Upload e Release só podem ser chamados na thread de render.
type Device interface {
	Upload(data *MeshData) (Handle, error)
	Release(h Handle)
}

// Source resolve um MeshID para seus dados de malha. Pode ser lento
// (disco, geração procedural); é chamado a partir dos jobs de fundo.
type Source interface {
	Resolve(ctx context.Context, id MeshID) (*MeshData, error)
}
