package util

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Vector3 é um alias para rl.Vector3 para conveniência.
type Vector3 = rl.Vector3

// CellCoord identifica um landblock na grade 2D do mundo.
// X = leste/oeste, Y = norte/sul. A identidade é imutável.
type CellCoord struct {
	X, Y int32
}

// CellKey é a chave escalar compacta de um landblock, usada em mapas
// e em notificações de mudança. O empacotamento é bijetivo para a
// grade suportada (coordenadas de 16 bits).
type CellKey uint32

// NewCellCoord cria uma nova coordenada de landblock.
func NewCellCoord(x, y int32) CellCoord {
	return CellCoord{X: x, Y: y}
}

// Key empacota a coordenada em uma chave escalar sem perdas.
func (c CellCoord) Key() CellKey {
	return CellKey(uint32(uint16(c.X))<<16 | uint32(uint16(c.Y)))
}

// CoordFromKey desfaz o empacotamento de Key.
func CoordFromKey(k CellKey) CellCoord {
	return CellCoord{
		X: int32(int16(uint16(k >> 16))),
		Y: int32(int16(uint16(k & 0xFFFF))),
	}
}

// Add soma duas coordenadas.
func (c CellCoord) Add(other CellCoord) CellCoord {
	return CellCoord{X: c.X + other.X, Y: c.Y + other.Y}
}

// Sub subtrai duas coordenadas.
func (c CellCoord) Sub(other CellCoord) CellCoord {
	return CellCoord{X: c.X - other.X, Y: c.Y - other.Y}
}

// Chebyshev retorna a distância de tabuleiro (máximo dos eixos) até other.
// É a métrica usada para decidir residência dentro do raio de visão.
func (c CellCoord) Chebyshev(other CellCoord) int32 {
	dx := Abs32(c.X - other.X)
	dy := Abs32(c.Y - other.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// Euclidean retorna a distância euclidiana em unidades de landblock.
func (c CellCoord) Euclidean(other CellCoord) float32 {
	dx := float64(c.X - other.X)
	dy := float64(c.Y - other.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}

// String retorna a representação textual da coordenada.
func (c CellCoord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// CellSize é o tamanho de um landblock em unidades do mundo.
// Cada landblock cobre uma grade interna de 8x8 tiles de TileSize.
const CellSize float32 = 192.0

// TileSize é o tamanho de um tile interno do landblock.
const TileSize float32 = CellSize / 8.0

// CellOrigin retorna o canto (mínimo em X/Z) do landblock no espaço 3D.
// No mundo: X = leste, Y = altura, Z = sul (Y da grade invertido).
func CellOrigin(c CellCoord) rl.Vector3 {
	return rl.Vector3{
		X: float32(c.X) * CellSize,
		Y: 0,
		Z: float32(-c.Y) * CellSize,
	}
}

// CellCenter retorna o centro do landblock no plano XZ.
func CellCenter(c CellCoord) rl.Vector3 {
	o := CellOrigin(c)
	o.X += CellSize * 0.5
	o.Z -= CellSize * 0.5
	return o
}

// WorldToCell converte uma posição 3D para a coordenada do landblock que a contém.
func WorldToCell(pos rl.Vector3) CellCoord {
	return CellCoord{
		X: int32(math.Floor(float64(pos.X / CellSize))),
		Y: int32(math.Floor(float64(-pos.Z / CellSize))),
	}
}
