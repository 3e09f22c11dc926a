package meshing

import (
	"context"
	"fmt"

	"WorldVision/cliente/internal/resources"
	"WorldVision/cliente/internal/streaming"
	"WorldVision/shared/util"
	"WorldVision/shared/worlddata"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// TerrainGenerator produz a instância única de relevo de cada landblock.
// A malha é exclusiva da célula (o id embute a CellKey), então o refcount
// dela acompanha exatamente a residência do landblock.
type TerrainGenerator struct {
	store *worlddata.Store
}

// NewTerrainGenerator cria o gerador de relevo.
func NewTerrainGenerator(store *worlddata.Store) *TerrainGenerator {
	return &TerrainGenerator{store: store}
}

func (g *TerrainGenerator) Name() string { return "Terreno" }

func (g *TerrainGenerator) GenerateForCell(ctx context.Context, coord util.CellCoord) ([]streaming.Instance, error) {
	data, err := g.store.Ensure(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("relevo de %s: %w", coord, err)
	}

	minH, maxH := data.Heights[0][0], data.Heights[0][0]
	for j := 0; j < 9; j++ {
		for i := 0; i < 9; i++ {
			h := data.Heights[j][i]
			if h < minH {
				minH = h
			}
			if h > maxH {
				maxH = h
			}
		}
	}

	key := coord.Key()
	origin := util.CellOrigin(coord)
	local := util.NewAABB(
		rl.Vector3{X: 0, Y: minH, Z: 0},
		rl.Vector3{X: util.CellSize, Y: maxH, Z: -util.CellSize},
	)

	inst := streaming.NewInstance(
		resources.TerrainMeshID(key),
		streaming.NewInstanceID(streaming.KindTerrain, uint64(key)),
		rl.MatrixTranslate(origin.X, origin.Y, origin.Z),
		local,
	)
	return []streaming.Instance{inst}, nil
}
