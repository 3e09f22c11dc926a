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

// PortalsGenerator produz as molduras de passagem declaradas pelas
// células internas. Todas as instâncias compartilham a mesma malha de
// moldura; só a transformação varia.
type PortalsGenerator struct {
	store *worlddata.Store
}

// NewPortalsGenerator cria o gerador de portais.
func NewPortalsGenerator(store *worlddata.Store) *PortalsGenerator {
	return &PortalsGenerator{store: store}
}

func (g *PortalsGenerator) Name() string { return "Portais" }

func (g *PortalsGenerator) GenerateForCell(ctx context.Context, coord util.CellCoord) ([]streaming.Instance, error) {
	data, err := g.store.Ensure(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("portais de %s: %w", coord, err)
	}

	var out []streaming.Instance
	for _, interior := range data.Interiors {
		base, ok := interiorBase(data, &interior)
		if !ok {
			continue
		}
		for idx, p := range interior.Portals {
			pos := rl.Vector3{
				X: base.X + p.Position.X,
				Y: base.Y + p.Position.Y,
				Z: base.Z + p.Position.Z,
			}
			out = append(out, streaming.NewInstance(
				resources.ObjectMeshID(ObjectPortalFrame),
				streaming.NewInstanceID(streaming.KindPortal,
					uint64(interior.CellID)<<16|uint64(uint16(idx))),
				streaming.PlacementMatrix(pos, p.Rotation, 1.0),
				ObjectLocalBounds(ObjectPortalFrame),
			))
		}
	}
	return out, nil
}
