package scenery

import (
	"context"
	"fmt"

	"WorldVision/cliente/internal/meshing"
	"WorldVision/cliente/internal/resources"
	"WorldVision/cliente/internal/streaming"
	"WorldVision/shared/util"
	"WorldVision/shared/worlddata"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Rule descreve uma espécie de cenário elegível para um tipo de solo.
type Rule struct {
	ObjectID  uint32
	Frequency float32 // Chance por tile, antes do fator de densidade
	MinUpY    float32 // Componente Y mínima da normal (tolerância de declive)
	ScaleMin  float32
	ScaleMax  float32
	NearRoads bool // Tolera tiles vizinhos de estrada
}

// Espécies por índice de textura do relevo. Grama recebe a vegetação;
// rocha só aceita pedras; areia fica quase vazia; estradas nunca recebem
// nada.
var sceneRules = map[uint8][]Rule{
	0: { // areia
		{ObjectID: 3, Frequency: 0.02, MinUpY: 0.85, ScaleMin: 0.5, ScaleMax: 1.0},
	},
	1: { // grama
		{ObjectID: 1, Frequency: 0.10, MinUpY: 0.92, ScaleMin: 0.8, ScaleMax: 1.3},
		{ObjectID: 2, Frequency: 0.14, MinUpY: 0.88, ScaleMin: 0.6, ScaleMax: 1.1, NearRoads: true},
		{ObjectID: 5, Frequency: 0.18, MinUpY: 0.90, ScaleMin: 0.5, ScaleMax: 1.0, NearRoads: true},
		{ObjectID: 4, Frequency: 0.03, MinUpY: 0.93, ScaleMin: 0.8, ScaleMax: 1.2},
	},
	2: { // rocha
		{ObjectID: 3, Frequency: 0.10, MinUpY: 0.70, ScaleMin: 0.6, ScaleMax: 1.4},
		{ObjectID: 6, Frequency: 0.04, MinUpY: 0.75, ScaleMin: 0.7, ScaleMax: 1.2},
	},
}

// Generator semeia cenário procedural por cima dos dados do relevo. A
// colocação é determinística a partir das coordenadas globais do tile
// (hash inteiro, sem estado aleatório): o mesmo landblock produz sempre
// o mesmo cenário, em qualquer máquina.
type Generator struct {
	store   *worlddata.Store
	density float32
}

// NewGenerator cria o gerador de cenário com o fator de densidade dado
// (0 desliga, 1 usa as frequências das regras por inteiro).
func NewGenerator(store *worlddata.Store, density float32) *Generator {
	return &Generator{store: store, density: util.Clamp(density, 0, 2)}
}

func (g *Generator) Name() string { return "Cenario" }

func (g *Generator) GenerateForCell(ctx context.Context, coord util.CellCoord) ([]streaming.Instance, error) {
	data, err := g.store.Ensure(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("cenário de %s: %w", coord, err)
	}
	if g.density <= 0 {
		return nil, nil
	}

	occupied := footprintGrid(coord, data)
	origin := util.CellOrigin(coord)

	var out []streaming.Instance
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			if data.Roads[j][i] || occupied[j][i] {
				continue
			}

			rules := sceneRules[data.Textures[j][i]]
			gx := coord.X*8 + int32(i)
			gy := coord.Y*8 + int32(j)
			upY := data.NormalAt(i, j).Y

			for r := range rules {
				rule := &rules[r]
				salt := uint32(r) * 0x9E3779B9
				if hash01(gx, gy, salt) >= rule.Frequency*g.density {
					continue
				}
				if upY < rule.MinUpY {
					continue
				}
				if !rule.NearRoads && nearRoad(data, i, j) {
					continue
				}

				// Posição dentro do tile com jitter determinístico.
				lx := (float32(i) + 0.15 + 0.7*hash01(gx, gy, salt^0x68BC21EB)) * util.TileSize
				lz := (float32(j) + 0.15 + 0.7*hash01(gx, gy, salt^0x02E5BE93)) * util.TileSize
				pos := rl.Vector3{
					X: origin.X + lx,
					Y: data.HeightAt(lx, lz),
					Z: origin.Z - lz,
				}
				rot := 360 * hash01(gx, gy, salt^0x0B4E0327)
				scale := util.Lerp(rule.ScaleMin, rule.ScaleMax, hash01(gx, gy, salt^0x5F356495))

				out = append(out, streaming.NewInstance(
					resources.ObjectMeshID(rule.ObjectID),
					sceneryInstanceID(coord, i, j, r),
					streaming.PlacementMatrix(pos, rot, scale),
					meshing.ObjectLocalBounds(rule.ObjectID),
				))
				break // no máximo uma espécie por tile
			}
		}
	}
	return out, nil
}

// footprintGrid marca os tiles cobertos por pegadas de construção. A
// grade 8x8 local evita testar cada candidato contra cada construção.
func footprintGrid(coord util.CellCoord, data *worlddata.CellData) [8][8]bool {
	var grid [8][8]bool
	if len(data.Buildings) == 0 {
		return grid
	}

	origin := util.CellOrigin(coord)
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			cx := origin.X + (float32(i)+0.5)*util.TileSize
			cz := origin.Z - (float32(j)+0.5)*util.TileSize
			for b := range data.Buildings {
				if data.Buildings[b].Footprint.Contains(cx, cz) {
					grid[j][i] = true
					break
				}
			}
		}
	}
	return grid
}

// nearRoad verifica o tile e os quatro vizinhos ortogonais.
func nearRoad(data *worlddata.CellData, i, j int) bool {
	if data.Roads[j][i] {
		return true
	}
	if i > 0 && data.Roads[j][i-1] {
		return true
	}
	if i < 7 && data.Roads[j][i+1] {
		return true
	}
	if j > 0 && data.Roads[j-1][i] {
		return true
	}
	if j < 7 && data.Roads[j+1][i] {
		return true
	}
	return false
}

// hash01 é o ruído inteiro da colocação: coordenadas globais do tile e
// um salt viram um float em [0,1).
func hash01(x, y int32, salt uint32) float32 {
	h := uint32(x)*0x85EBCA6B ^ uint32(y)*0xC2B2AE35 ^ salt
	h ^= h >> 13
	h *= 0x27D4EB2F
	h ^= h >> 15
	return float32(h&0xFFFFFF) / float32(0x1000000)
}

func sceneryInstanceID(coord util.CellCoord, i, j, rule int) streaming.InstanceID {
	payload := uint64(coord.Key())<<16 | uint64(j*8+i)<<4 | uint64(rule&0xF)
	return streaming.NewInstanceID(streaming.KindScenery, payload)
}
