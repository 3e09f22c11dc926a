package meshing

import (
	"context"
	"fmt"

	"WorldVision/cliente/internal/resources"
	"WorldVision/cliente/internal/streaming"
	"WorldVision/shared/util"
	"WorldVision/shared/worlddata"
)

// StaticsGenerator produz os objetos fixos e as construções de um
// landblock. Construções viram instâncias compostas: o culler expande as
// sub-partes na hora do desenho.
type StaticsGenerator struct {
	store *worlddata.Store
}

// NewStaticsGenerator cria o gerador de estáticos.
func NewStaticsGenerator(store *worlddata.Store) *StaticsGenerator {
	return &StaticsGenerator{store: store}
}

func (g *StaticsGenerator) Name() string { return "Estaticos" }

func (g *StaticsGenerator) GenerateForCell(ctx context.Context, coord util.CellCoord) ([]streaming.Instance, error) {
	data, err := g.store.Ensure(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("estáticos de %s: %w", coord, err)
	}

	out := make([]streaming.Instance, 0, len(data.Statics)+len(data.Buildings))

	for idx, s := range data.Statics {
		out = append(out, streaming.NewInstance(
			resources.ObjectMeshID(s.ObjectID),
			staticInstanceID(coord, streaming.KindStatic, idx),
			streaming.PlacementMatrix(s.Position, s.Rotation, s.Scale),
			ObjectLocalBounds(s.ObjectID),
		))
	}

	for idx, b := range data.Buildings {
		out = append(out, streaming.NewInstance(
			resources.SetupMeshID(b.SetupID),
			staticInstanceID(coord, streaming.KindBuilding, idx),
			streaming.PlacementMatrix(b.Position, b.Rotation, 1.0),
			SetupLocalBounds(b.SetupID),
		))
	}
	return out, nil
}

// staticInstanceID compõe um id estável: CellKey no meio do payload,
// índice da placement nos 16 bits baixos.
func staticInstanceID(coord util.CellCoord, kind uint8, idx int) streaming.InstanceID {
	return streaming.NewInstanceID(kind, uint64(coord.Key())<<16|uint64(uint16(idx)))
}
