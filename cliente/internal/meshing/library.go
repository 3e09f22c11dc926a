package meshing

import (
	"context"
	"fmt"
	"log"
	"sync"

	"WorldVision/cliente/internal/resources"
	"WorldVision/shared/util"
	"WorldVision/shared/worlddata"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Library resolve ids de malha para geometria pronta para upload. O
// relevo é construído a partir dos dados do landblock; objetos, setups
// e sub-partes saem de construtores procedurais fixos. Implementa
// resources.Source e é seguro para chamadas concorrentes dos jobs.
type Library struct {
	store *worlddata.Store

	warnMu sync.Mutex
	warned map[uint32]bool // objetos desconhecidos já reclamados no log
}

// NewLibrary cria a biblioteca de malhas sobre um store de mundo.
func NewLibrary(store *worlddata.Store) *Library {
	return &Library{
		store:  store,
		warned: make(map[uint32]bool),
	}
}

// Resolve constrói a malha identificada. Chamado pelo cache durante o
// Prepare, fora da thread de render.
func (l *Library) Resolve(ctx context.Context, id resources.MeshID) (*resources.MeshData, error) {
	switch id.Kind() {
	case resources.MeshKindTerrain:
		return l.buildTerrain(ctx, util.CellKey(id.Raw()), id)

	case resources.MeshKindObject:
		return l.buildObject(id)

	case resources.MeshKindSetup:
		return buildSetup(id)

	case resources.MeshKindPart:
		return buildPart(id)
	}
	return nil, fmt.Errorf("tipo de malha desconhecido %s", id)
}

// Paleta de cores por índice de textura do relevo.
var terrainPalette = [4][4]uint8{
	{208, 198, 158, 255}, // areia
	{92, 142, 72, 255},   // grama
	{132, 132, 138, 255}, // rocha
	{122, 96, 70, 255},   // terra batida
}

// buildTerrain gera a malha do relevo de um landblock em coordenadas
// locais (origem no canto do landblock, Z crescendo para -Z do mundo).
func (l *Library) buildTerrain(ctx context.Context, key util.CellKey, id resources.MeshID) (*resources.MeshData, error) {
	coord := util.CoordFromKey(key)
	data, err := l.store.Ensure(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("dados do landblock %s: %w", coord, err)
	}

	buf := &MeshBuffer{}
	minH, maxH := data.Heights[0][0], data.Heights[0][0]

	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			color := terrainPalette[int(data.Textures[j][i])%len(terrainPalette)]
			if data.Roads[j][i] {
				color = terrainPalette[3]
			} else if (i+j)%2 == 1 {
				// Quebra o aspecto chapado alternando o tom dos tiles.
				color = shade(color, 0.94)
			}

			x0 := float32(i) * util.TileSize
			x1 := x0 + util.TileSize
			z0 := -float32(j) * util.TileSize
			z1 := z0 - util.TileSize

			h00 := data.Heights[j][i]
			h10 := data.Heights[j][i+1]
			h01 := data.Heights[j+1][i]
			h11 := data.Heights[j+1][i+1]

			for _, h := range [4]float32{h00, h10, h01, h11} {
				if h < minH {
					minH = h
				}
				if h > maxH {
					maxH = h
				}
			}

			n := data.NormalAt(i, j)
			uv0 := float32(i) / 8
			uv1 := float32(i+1) / 8
			vv0 := float32(j) / 8
			vv1 := float32(j+1) / 8

			buf.AddFaceUV(
				[3]float32{x0, h00, z0}, [3]float32{x1, h10, z0},
				[3]float32{x1, h11, z1}, [3]float32{x0, h01, z1},
				[2]float32{uv0, vv0}, [2]float32{uv1, vv0},
				[2]float32{uv1, vv1}, [2]float32{uv0, vv1},
				[3]float32{n.X, n.Y, n.Z}, color)
		}
	}

	return &resources.MeshData{
		ID:       id,
		Geometry: buf.Geometry,
		Bounds: util.NewAABB(
			rl.Vector3{X: 0, Y: minH, Z: 0},
			rl.Vector3{X: util.CellSize, Y: maxH, Z: -util.CellSize},
		),
	}, nil
}

// buildObject gera um objeto simples. Id desconhecido degrada para um
// bloco cinza, com um aviso único no log.
func (l *Library) buildObject(id resources.MeshID) (*resources.MeshData, error) {
	builder, ok := objectBuilders[id.Raw()]
	if !ok {
		l.warnMu.Lock()
		if !l.warned[id.Raw()] {
			l.warned[id.Raw()] = true
			log.Printf("[Malhas] objeto %d desconhecido, usando bloco de fallback", id.Raw())
		}
		l.warnMu.Unlock()
		builder = buildFallbackBlock
	}

	buf := &MeshBuffer{}
	bounds := builder(buf)
	return &resources.MeshData{ID: id, Geometry: buf.Geometry, Bounds: bounds}, nil
}

func shade(c [4]uint8, f float32) [4]uint8 {
	return [4]uint8{
		uint8(float32(c[0]) * f),
		uint8(float32(c[1]) * f),
		uint8(float32(c[2]) * f),
		c[3],
	}
}
