package meshing

import (
	"fmt"

	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Ids de objeto reservados pela biblioteca, fora da faixa do provedor
// de mundo.
const (
	ObjectPortalFrame uint32 = 900 // moldura de passagem entre células
)

type objectBuilder func(*MeshBuffer) util.AABB

// Construtores por id de objeto. A faixa 1..6 cobre os objetos do
// provedor procedural; o scatter e as construções reutilizam os mesmos
// ids.
var objectBuilders = map[uint32]objectBuilder{
	1: buildTree,
	2: buildBush,
	3: buildRock,
	4: buildFallenLog,
	5: buildFern,
	6: buildBoulder,

	ObjectPortalFrame: buildPortalFrame,
}

// ObjectLocalBounds devolve o volume local de um objeto sem construir a
// geometria. Usado pelos geradores para cachear o worldBounds das
// instâncias antes do Prepare.
func ObjectLocalBounds(raw uint32) util.AABB {
	switch raw {
	case 1:
		return box(-4.0, 0, -4.0, 4.0, 14.5, 4.0)
	case 2:
		return box(-2.2, 0, -2.2, 2.2, 3.2, 2.2)
	case 3:
		return box(-2.0, 0, -2.0, 2.0, 2.6, 2.0)
	case 4:
		return box(-3.4, 0, -1.1, 3.4, 1.4, 1.1)
	case 5:
		return box(-1.6, 0, -1.6, 1.6, 2.4, 1.6)
	case 6:
		return box(-3.8, 0, -3.8, 3.8, 4.6, 3.8)
	case ObjectPortalFrame:
		return box(-3.2, 0, -0.6, 3.2, 7.6, 0.6)
	}
	return box(-1.5, 0, -1.5, 1.5, 3.0, 1.5)
}

// SetupLocalBounds devolve o volume local de uma montagem composta,
// cobrindo todas as sub-partes.
func SetupLocalBounds(uint32) util.AABB {
	return box(-houseHalf, 0, -houseHalf, houseHalf, houseWallH+houseRoofH, houseHalf)
}

func box(minX, minY, minZ, maxX, maxY, maxZ float32) util.AABB {
	return util.NewAABB(
		rl.Vector3{X: minX, Y: minY, Z: minZ},
		rl.Vector3{X: maxX, Y: maxY, Z: maxZ},
	)
}

var (
	colorTrunk   = [4]uint8{110, 82, 52, 255}
	colorLeaves  = [4]uint8{64, 120, 56, 255}
	colorBush    = [4]uint8{78, 132, 66, 255}
	colorStone   = [4]uint8{138, 138, 142, 255}
	colorStone2  = [4]uint8{118, 118, 124, 255}
	colorFern    = [4]uint8{70, 142, 74, 255}
	colorFallbck = [4]uint8{160, 160, 160, 255}
	colorFrame   = [4]uint8{96, 78, 58, 255}
)

func buildTree(b *MeshBuffer) util.AABB {
	b.AddBox(-0.8, 0, -0.8, 0.8, 9.0, 0.8, colorTrunk)
	b.AddBox(-4.0, 7.0, -4.0, 4.0, 14.5, 4.0, colorLeaves)
	return ObjectLocalBounds(1)
}

func buildBush(b *MeshBuffer) util.AABB {
	b.AddBox(-2.2, 0, -2.2, 2.2, 2.6, 2.2, colorBush)
	b.AddBox(-1.2, 2.6, -1.2, 1.2, 3.2, 1.2, shade(colorBush, 0.9))
	return ObjectLocalBounds(2)
}

func buildRock(b *MeshBuffer) util.AABB {
	b.AddBox(-2.0, 0, -2.0, 2.0, 1.8, 2.0, colorStone)
	b.AddBox(-1.1, 1.8, -0.9, 1.0, 2.6, 1.1, colorStone2)
	return ObjectLocalBounds(3)
}

func buildFallenLog(b *MeshBuffer) util.AABB {
	b.AddBox(-3.4, 0, -1.1, 3.4, 1.4, 1.1, shade(colorTrunk, 0.92))
	return ObjectLocalBounds(4)
}

func buildFern(b *MeshBuffer) util.AABB {
	b.AddCrossQuads(1.6, 2.4, colorFern)
	return ObjectLocalBounds(5)
}

func buildBoulder(b *MeshBuffer) util.AABB {
	b.AddBox(-3.8, 0, -3.8, 3.8, 3.4, 3.8, colorStone)
	b.AddBox(-2.4, 3.4, -2.6, 2.6, 4.6, 2.2, colorStone2)
	return ObjectLocalBounds(6)
}

func buildPortalFrame(b *MeshBuffer) util.AABB {
	// Dois batentes e uma verga.
	b.AddBox(-3.2, 0, -0.6, -2.2, 7.6, 0.6, colorFrame)
	b.AddBox(2.2, 0, -0.6, 3.2, 7.6, 0.6, colorFrame)
	b.AddBox(-3.2, 6.6, -0.6, 3.2, 7.6, 0.6, shade(colorFrame, 0.9))
	return ObjectLocalBounds(ObjectPortalFrame)
}

func buildFallbackBlock(b *MeshBuffer) util.AABB {
	b.AddBox(-1.5, 0, -1.5, 1.5, 3.0, 1.5, colorFallbck)
	return box(-1.5, 0, -1.5, 1.5, 3.0, 1.5)
}

// Dimensões das construções compostas. A pegada bate com o half de 1.5
// tiles usado pelo provedor de mundo.
const (
	houseHalf  = float32(1.5 * util.TileSize)
	houseWallH = float32(22)
	houseRoofH = float32(12)
)

// Tons de parede por id de setup.
var setupTints = map[uint32][4]uint8{
	100: {206, 196, 176, 255}, // reboco
	101: {150, 148, 152, 255}, // pedra
	102: {146, 112, 76, 255},  // madeira
	103: {168, 104, 86, 255},  // tijolo
}

func setupTint(raw uint32) [4]uint8 {
	if c, ok := setupTints[raw]; ok {
		return c
	}
	return setupTints[100]
}

// buildSetup monta a montagem composta: paredes, telhado e moldura da
// porta, cada uma como sub-parte com transformação fixa. O setup em si
// não carrega geometria.
func buildSetup(id resources.MeshID) (*resources.MeshData, error) {
	raw := id.Raw()
	if _, ok := setupTints[raw]; !ok && raw < 100 {
		return nil, fmt.Errorf("setup %d fora da faixa conhecida", raw)
	}
	return &resources.MeshData{
		ID: id,
		SubParts: []resources.SubPart{
			{ID: resources.PartMeshID(raw*10 + 1), Transform: rl.MatrixIdentity()},
			{ID: resources.PartMeshID(raw*10 + 2), Transform: rl.MatrixTranslate(0, houseWallH, 0)},
			{ID: resources.PartMeshID(raw*10 + 3), Transform: rl.MatrixTranslate(0, 0, houseHalf)},
		},
	}, nil
}

// buildPart constrói a geometria de uma sub-parte. O id embute o setup
// pai (raw/10) e a peça (raw%10).
func buildPart(id resources.MeshID) (*resources.MeshData, error) {
	setupRaw := id.Raw() / 10
	piece := id.Raw() % 10
	tint := setupTint(setupRaw)

	buf := &MeshBuffer{}
	var bounds util.AABB

	switch piece {
	case 1: // paredes
		buf.AddBox(-houseHalf, 0, -houseHalf, houseHalf, houseWallH, houseHalf, tint)
		bounds = box(-houseHalf, 0, -houseHalf, houseHalf, houseWallH, houseHalf)

	case 2: // telhado de duas águas, cumeeira ao longo de X
		h := houseHalf + 2
		roof := shade(tint, 0.72)
		buf.AddFace(
			[3]float32{-h, 0, h}, [3]float32{h, 0, h},
			[3]float32{h, houseRoofH, 0}, [3]float32{-h, houseRoofH, 0},
			[3]float32{0, 0.707, 0.707}, roof)
		buf.AddFace(
			[3]float32{h, 0, -h}, [3]float32{-h, 0, -h},
			[3]float32{-h, houseRoofH, 0}, [3]float32{h, houseRoofH, 0},
			[3]float32{0, 0.707, -0.707}, roof)
		// Oitões
		buf.AddTriangle(
			[3]float32{h, 0, h}, [3]float32{h, 0, -h}, [3]float32{h, houseRoofH, 0},
			[3]float32{1, 0, 0}, tint)
		buf.AddTriangle(
			[3]float32{-h, 0, -h}, [3]float32{-h, 0, h}, [3]float32{-h, houseRoofH, 0},
			[3]float32{-1, 0, 0}, tint)
		bounds = box(-h, 0, -h, h, houseRoofH, h)

	case 3: // moldura da porta, na face frontal
		frame := shade(tint, 0.6)
		buf.AddBox(-4.4, 0, -0.4, -3.2, 10.0, 0.8, frame)
		buf.AddBox(3.2, 0, -0.4, 4.4, 10.0, 0.8, frame)
		buf.AddBox(-4.4, 9.2, -0.4, 4.4, 10.4, 0.8, frame)
		bounds = box(-4.4, 0, -0.4, 4.4, 10.4, 0.8)

	default:
		return nil, fmt.Errorf("sub-parte %d desconhecida", id.Raw())
	}

	return &resources.MeshData{ID: id, Geometry: buf.Geometry, Bounds: bounds}, nil
}
