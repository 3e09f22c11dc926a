package worlddata

import (
	"bytes"
	"encoding/gob"
	"math"

	"WorldVision/shared/util"
)

// CellData é a carga bruta de um landblock, como entregue pelo provedor
// de dados do mundo. É tudo o que os geradores precisam para produzir
// instâncias: relevo, texturas, estradas, objetos, construções e interiores.
type CellData struct {
	Coord util.CellCoord
	MTime int64 // Versão dos dados (monotônica por célula)

	// Terreno: alturas dos vértices (grade 9x9) e índices de textura
	// e estradas por tile (grade 8x8).
	Heights  [9][9]float32
	Textures [8][8]uint8
	Roads    [8][8]bool

	Statics   []StaticPlacement
	Buildings []BuildingPlacement
	Interiors []InteriorCell
}

// StaticPlacement posiciona um objeto de malha simples. Em
// CellData.Statics a posição é absoluta no mundo; dentro de uma
// InteriorCell ela é relativa à base da célula interna.
type StaticPlacement struct {
	ObjectID uint32 // Identidade da malha no provedor
	Position util.Vector3
	Rotation float32 // Graus, eixo Y
	Scale    float32
}

// BuildingPlacement posiciona uma construção (malha composta / setup).
type BuildingPlacement struct {
	SetupID   uint32
	Position  util.Vector3
	Rotation  float32
	Footprint Rect2D // Pegada 2D no plano XZ, usada pelo scatter
}

// Rect2D é um retângulo no plano XZ em coordenadas do mundo.
type Rect2D struct {
	MinX, MinZ, MaxX, MaxZ float32
}

// Contains verifica se um ponto XZ está dentro do retângulo.
func (r Rect2D) Contains(x, z float32) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// InteriorCell descreve uma célula interna de uma construção. A base da
// célula no mundo é a posição da construção-mãe mais o Offset; as
// posições de Statics e Portals são relativas a essa base.
type InteriorCell struct {
	CellID   uint32
	Building int32 // Índice em Buildings (-1 se avulsa)
	Offset   util.Vector3
	Statics  []StaticPlacement
	Portals  []Portal
}

// Portal conecta duas células internas (ou uma célula ao exterior).
// Position é relativa à base da célula interna dona.
type Portal struct {
	ToCellID uint32 // 0 = exterior
	Position util.Vector3
	Rotation float32
}

// Encode serializa a célula em GOB.
func (d *CellData) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCell desserializa uma célula GOB.
func DecodeCell(data []byte) (*CellData, error) {
	var d CellData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// HeightAt amostra a altura do terreno por interpolação bilinear,
// com lx/lz em coordenadas locais do landblock ([0, CellSize]).
func (d *CellData) HeightAt(lx, lz float32) float32 {
	fx := lx / util.TileSize
	fz := lz / util.TileSize

	i := int(fx)
	j := int(fz)
	if i < 0 {
		i = 0
	}
	if i > 7 {
		i = 7
	}
	if j < 0 {
		j = 0
	}
	if j > 7 {
		j = 7
	}

	tx := fx - float32(i)
	tz := fz - float32(j)
	if tx < 0 {
		tx = 0
	} else if tx > 1 {
		tx = 1
	}
	if tz < 0 {
		tz = 0
	} else if tz > 1 {
		tz = 1
	}

	h00 := d.Heights[j][i]
	h10 := d.Heights[j][i+1]
	h01 := d.Heights[j+1][i]
	h11 := d.Heights[j+1][i+1]

	a := h00 + (h10-h00)*tx
	b := h01 + (h11-h01)*tx
	return a + (b-a)*tz
}

// NormalAt devolve a normal aproximada da superfície num tile (i,j in 0..7),
// derivada das alturas dos vértices do tile. Usada no teste de inclinação
// do scatter.
func (d *CellData) NormalAt(i, j int) util.Vector3 {
	if i < 0 {
		i = 0
	}
	if i > 7 {
		i = 7
	}
	if j < 0 {
		j = 0
	}
	if j > 7 {
		j = 7
	}

	dx := (d.Heights[j][i+1] - d.Heights[j][i]) / util.TileSize
	dz := (d.Heights[j+1][i] - d.Heights[j][i]) / util.TileSize

	// Normal não normalizada (-dx, 1, -dz).
	nx, ny, nz := -dx, float32(1), -dz
	inv := float32(1.0 / math.Sqrt(float64(nx*nx+ny*ny+nz*nz)))
	return util.Vector3{X: nx * inv, Y: ny * inv, Z: nz * inv}
}
