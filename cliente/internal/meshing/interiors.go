package meshing

import (
	"context"
	"fmt"
	"log"
	"time"

	"WorldVision/cliente/internal/resources"
	"WorldVision/cliente/internal/streaming"
	"WorldVision/shared/util"
	"WorldVision/shared/worlddata"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// InteriorsGenerator produz o mobiliário das células internas das
// construções. Depende da residência dos estáticos do mesmo landblock
// (as construções precisam existir antes do interior delas); a espera é
// limitada e a falta vira degradação com aviso, nunca um deadlock.
type InteriorsGenerator struct {
	store   *worlddata.Store
	statics *streaming.Engine
	wait    time.Duration
}

// NewInteriorsGenerator cria o gerador de interiores, amarrado ao engine
// de estáticos do qual depende.
func NewInteriorsGenerator(store *worlddata.Store, statics *streaming.Engine) *InteriorsGenerator {
	return &InteriorsGenerator{
		store:   store,
		statics: statics,
		wait:    2 * time.Second,
	}
}

func (g *InteriorsGenerator) Name() string { return "Interiores" }

func (g *InteriorsGenerator) GenerateForCell(ctx context.Context, coord util.CellCoord) ([]streaming.Instance, error) {
	data, err := g.store.Ensure(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("interiores de %s: %w", coord, err)
	}
	if len(data.Interiors) == 0 {
		return nil, nil
	}

	if g.statics != nil && !g.statics.WaitResident(ctx, coord, g.wait) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Interiores] estáticos de %s não residentes após %v, gerando assim mesmo", coord, g.wait)
	}

	var out []streaming.Instance
	for _, interior := range data.Interiors {
		base, ok := interiorBase(data, &interior)
		if !ok {
			log.Printf("[Interiores] célula interna %d de %s referencia construção inexistente", interior.CellID, coord)
			continue
		}

		for idx, s := range interior.Statics {
			pos := rl.Vector3{
				X: base.X + s.Position.X,
				Y: base.Y + s.Position.Y,
				Z: base.Z + s.Position.Z,
			}
			out = append(out, streaming.NewInstance(
				resources.ObjectMeshID(s.ObjectID),
				interiorInstanceID(interior.CellID, idx),
				streaming.PlacementMatrix(pos, s.Rotation, s.Scale),
				ObjectLocalBounds(s.ObjectID),
			))
		}
	}
	return out, nil
}

// interiorBase resolve a origem de uma célula interna no mundo: posição
// da construção-mãe mais o deslocamento local, ou só o deslocamento para
// células avulsas.
func interiorBase(data *worlddata.CellData, interior *worlddata.InteriorCell) (rl.Vector3, bool) {
	if interior.Building < 0 {
		return interior.Offset, true
	}
	if int(interior.Building) >= len(data.Buildings) {
		return rl.Vector3{}, false
	}
	b := data.Buildings[interior.Building]
	return rl.Vector3{
		X: b.Position.X + interior.Offset.X,
		Y: b.Position.Y + interior.Offset.Y,
		Z: b.Position.Z + interior.Offset.Z,
	}, true
}

func interiorInstanceID(cellID uint32, idx int) streaming.InstanceID {
	return streaming.NewInstanceID(streaming.KindInteriorStatic,
		uint64(cellID)<<16|uint64(uint16(idx)))
}
