package meshing

import (
	"context"
	"testing"

	"WorldVision/cliente/internal/resources"
	"WorldVision/cliente/internal/streaming"
	"WorldVision/shared/util"
	"WorldVision/shared/worlddata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findBuildingCell varre a grade até achar um landblock com construção
// e interiores, para os geradores que dependem deles.
func findBuildingCell(t *testing.T, store *worlddata.Store) (util.CellCoord, *worlddata.CellData) {
	t.Helper()
	for x := int32(0); x < 64; x++ {
		for y := int32(0); y < 64; y++ {
			coord := util.NewCellCoord(x, y)
			data, err := store.Ensure(context.Background(), coord)
			require.NoError(t, err)
			if len(data.Buildings) > 0 && len(data.Interiors) > 0 {
				return coord, data
			}
		}
	}
	t.Fatal("nenhum landblock com construção na grade de teste")
	return util.CellCoord{}, nil
}

func TestTerrainGenerator(t *testing.T) {
	store := worlddata.NewStore(worlddata.NewProceduralSource(7))
	gen := NewTerrainGenerator(store)

	coord := util.NewCellCoord(2, 5)
	insts, err := gen.GenerateForCell(context.Background(), coord)
	require.NoError(t, err)
	require.Len(t, insts, 1)

	inst := insts[0]
	assert.Equal(t, resources.TerrainMeshID(coord.Key()), inst.MeshID)
	assert.Equal(t, streaming.KindTerrain, inst.ID.Kind())
	assert.False(t, inst.IsComposite)

	// O volume de mundo cobre exatamente o landblock no plano XZ.
	origin := util.CellOrigin(coord)
	assert.InDelta(t, origin.X, inst.WorldBounds.Min.X, 0.01)
	assert.InDelta(t, origin.X+util.CellSize, inst.WorldBounds.Max.X, 0.01)
	assert.InDelta(t, origin.Z-util.CellSize, inst.WorldBounds.Min.Z, 0.01)
	assert.InDelta(t, origin.Z, inst.WorldBounds.Max.Z, 0.01)
}

func TestStaticsGenerator(t *testing.T) {
	store := worlddata.NewStore(worlddata.NewProceduralSource(7))
	gen := NewStaticsGenerator(store)

	coord, data := findBuildingCell(t, store)
	insts, err := gen.GenerateForCell(context.Background(), coord)
	require.NoError(t, err)
	require.Len(t, insts, len(data.Statics)+len(data.Buildings))

	statics, buildings := 0, 0
	for _, inst := range insts {
		switch inst.ID.Kind() {
		case streaming.KindStatic:
			statics++
			assert.Equal(t, resources.MeshKindObject, inst.MeshID.Kind())
			assert.False(t, inst.IsComposite)
		case streaming.KindBuilding:
			buildings++
			assert.Equal(t, resources.MeshKindSetup, inst.MeshID.Kind())
			assert.True(t, inst.IsComposite)
		default:
			t.Fatalf("tipo de instância inesperado %d", inst.ID.Kind())
		}
	}
	assert.Equal(t, len(data.Statics), statics)
	assert.Equal(t, len(data.Buildings), buildings)
}

func TestStaticsInstanceIDsAreUnique(t *testing.T) {
	store := worlddata.NewStore(worlddata.NewProceduralSource(7))
	gen := NewStaticsGenerator(store)

	coord, _ := findBuildingCell(t, store)
	insts, err := gen.GenerateForCell(context.Background(), coord)
	require.NoError(t, err)

	seen := map[streaming.InstanceID]bool{}
	for _, inst := range insts {
		assert.False(t, seen[inst.ID], "id repetido %x", uint64(inst.ID))
		seen[inst.ID] = true
	}
}

func TestInteriorsGeneratorWithoutDependency(t *testing.T) {
	// Sem engine de estáticos o gerador degrada, mas ainda produz o
	// mobiliário ancorado na construção-mãe.
	store := worlddata.NewStore(worlddata.NewProceduralSource(7))
	gen := NewInteriorsGenerator(store, nil)

	coord, data := findBuildingCell(t, store)
	insts, err := gen.GenerateForCell(context.Background(), coord)
	require.NoError(t, err)

	want := 0
	for _, in := range data.Interiors {
		want += len(in.Statics)
	}
	require.Equal(t, want, len(insts))

	for _, inst := range insts {
		assert.Equal(t, streaming.KindInteriorStatic, inst.ID.Kind())
	}
}

func TestInteriorContentAnchoredAtBuilding(t *testing.T) {
	// As posições internas são relativas à base da célula interna: o
	// mobiliário e os portais devem cair junto da construção-mãe, nunca
	// na soma das coordenadas absolutas.
	store := worlddata.NewStore(worlddata.NewProceduralSource(7))
	coord, data := findBuildingCell(t, store)

	interior := data.Interiors[0]
	require.GreaterOrEqual(t, interior.Building, int32(0))
	b := data.Buildings[interior.Building]

	insts, err := NewInteriorsGenerator(store, nil).GenerateForCell(context.Background(), coord)
	require.NoError(t, err)
	require.NotEmpty(t, insts)

	pinsts, err := NewPortalsGenerator(store).GenerateForCell(context.Background(), coord)
	require.NoError(t, err)
	require.NotEmpty(t, pinsts)

	margin := float64(2 * util.TileSize)
	origin := util.CellOrigin(coord)
	for _, inst := range append(insts, pinsts...) {
		assert.InDelta(t, float64(b.Position.X), float64(inst.Transform.M12), margin)
		assert.InDelta(t, float64(b.Position.Z), float64(inst.Transform.M14), margin)

		// E, portanto, dentro do próprio landblock.
		assert.GreaterOrEqual(t, inst.Transform.M12, origin.X)
		assert.LessOrEqual(t, inst.Transform.M12, origin.X+util.CellSize)
		assert.LessOrEqual(t, inst.Transform.M14, origin.Z)
		assert.GreaterOrEqual(t, inst.Transform.M14, origin.Z-util.CellSize)
	}
}

func TestPortalsGenerator(t *testing.T) {
	store := worlddata.NewStore(worlddata.NewProceduralSource(7))
	gen := NewPortalsGenerator(store)

	coord, data := findBuildingCell(t, store)
	insts, err := gen.GenerateForCell(context.Background(), coord)
	require.NoError(t, err)

	want := 0
	for _, in := range data.Interiors {
		want += len(in.Portals)
	}
	require.Equal(t, want, len(insts))

	for _, inst := range insts {
		assert.Equal(t, streaming.KindPortal, inst.ID.Kind())
		assert.Equal(t, resources.ObjectMeshID(ObjectPortalFrame), inst.MeshID)
	}
}

func TestEmptyCellProducesNoInstances(t *testing.T) {
	// Célula sem construções: interiores e portais ficam vazios.
	store := worlddata.NewStore(worlddata.NewProceduralSource(7))

	var coord util.CellCoord
	found := false
	for x := int32(0); x < 64 && !found; x++ {
		for y := int32(0); y < 64 && !found; y++ {
			c := util.NewCellCoord(x, y)
			data, err := store.Ensure(context.Background(), c)
			require.NoError(t, err)
			if len(data.Interiors) == 0 {
				coord, found = c, true
			}
		}
	}
	require.True(t, found)

	insts, err := NewInteriorsGenerator(store, nil).GenerateForCell(context.Background(), coord)
	require.NoError(t, err)
	assert.Empty(t, insts)

	insts, err = NewPortalsGenerator(store).GenerateForCell(context.Background(), coord)
	require.NoError(t, err)
	assert.Empty(t, insts)
}
