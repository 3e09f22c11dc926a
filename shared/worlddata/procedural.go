package worlddata

import (
	"context"

	"WorldVision/shared/util"
)

// ProceduralSource gera um mundo determinístico a partir de hashes
// inteiros das coordenadas globais. Sem estado aleatório armazenado:
// a mesma coordenada produz sempre a mesma célula, o que torna o
// cliente utilizável sem servidor e os testes reprodutíveis.
type ProceduralSource struct {
	Seed uint32
}

// NewProceduralSource cria a fonte procedural com a seed dada.
func NewProceduralSource(seed uint32) *ProceduralSource {
	return &ProceduralSource{Seed: seed}
}

// hash2 mistura duas coordenadas inteiras e um salt num hash de 32 bits.
func hash2(x, y int32, salt uint32) uint32 {
	h := uint32(x)*0x8da6b343 ^ uint32(y)*0xd8163841 ^ salt*0xcb1ab31f
	h ^= h >> 13
	h *= 0x7feb352d
	h ^= h >> 15
	return h
}

// rand01 deriva um float em [0,1) do hash.
func rand01(x, y int32, salt uint32) float32 {
	return float32(hash2(x, y, salt)&0xFFFF) / 65536.0
}

// smooth aplica o polinômio de suavização clássico (3t² - 2t³).
func smooth(t float32) float32 {
	return t * t * (3 - 2*t)
}

// valueNoise interpola bilinearmente valores de hash numa grade de
// período cellPeriod vértices.
func (p *ProceduralSource) valueNoise(gx, gy int32, cellPeriod int32, salt uint32) float32 {
	lx := gx / cellPeriod
	ly := gy / cellPeriod
	if gx < 0 && gx%cellPeriod != 0 {
		lx--
	}
	if gy < 0 && gy%cellPeriod != 0 {
		ly--
	}
	fx := float32(gx-lx*cellPeriod) / float32(cellPeriod)
	fy := float32(gy-ly*cellPeriod) / float32(cellPeriod)

	s := p.Seed ^ salt
	v00 := rand01(lx, ly, s)
	v10 := rand01(lx+1, ly, s)
	v01 := rand01(lx, ly+1, s)
	v11 := rand01(lx+1, ly+1, s)

	tx := smooth(fx)
	ty := smooth(fy)
	a := v00 + (v10-v00)*tx
	b := v01 + (v11-v01)*tx
	return a + (b-a)*ty
}

// FetchCell produz a carga completa de um landblock.
func (p *ProceduralSource) FetchCell(ctx context.Context, coord util.CellCoord) (*CellData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := &CellData{
		Coord: coord,
		MTime: 1,
	}

	// Relevo: duas oitavas de value noise sobre os vértices globais.
	for j := 0; j < 9; j++ {
		for i := 0; i < 9; i++ {
			gx := coord.X*8 + int32(i)
			gy := coord.Y*8 + int32(j)
			h := p.valueNoise(gx, gy, 32, 0xA1)*48.0 + p.valueNoise(gx, gy, 7, 0xB2)*6.0
			d.Heights[j][i] = h
		}
	}

	// Texturas por altura; estradas em linhas globais a cada 16 tiles.
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			gx := coord.X*8 + int32(j)
			gy := coord.Y*8 + int32(i)
			avg := (d.Heights[j][i] + d.Heights[j+1][i+1]) * 0.5
			switch {
			case avg < 10:
				d.Textures[j][i] = 0 // areia
			case avg < 38:
				d.Textures[j][i] = 1 // grama
			default:
				d.Textures[j][i] = 2 // rocha
			}
			if gx%16 == 0 || gy%16 == 0 {
				d.Roads[j][i] = true
				d.Textures[j][i] = 3 // terra batida
			}
		}
	}

	origin := util.CellOrigin(coord)

	// Objetos estáticos espalhados pela célula.
	count := int(hash2(coord.X, coord.Y, p.Seed^0xC3) % 7)
	for n := 0; n < count; n++ {
		lx := rand01(coord.X*31+int32(n), coord.Y, p.Seed^0xD4) * util.CellSize
		lz := rand01(coord.X, coord.Y*31+int32(n), p.Seed^0xE5) * util.CellSize
		d.Statics = append(d.Statics, StaticPlacement{
			ObjectID: 1 + hash2(coord.X, coord.Y, p.Seed^uint32(0xF6+n))%6,
			Position: util.Vector3{
				X: origin.X + lx,
				Y: d.HeightAt(lx, lz),
				Z: origin.Z - lz,
			},
			Rotation: rand01(coord.Y, coord.X, p.Seed^uint32(0x17+n)) * 360.0,
			Scale:    0.8 + rand01(coord.X+int32(n), coord.Y-int32(n), p.Seed^0x28)*0.5,
		})
	}

	// Construção ocasional, com interior e portal para o exterior.
	if rand01(coord.X, coord.Y, p.Seed^0x39) < 0.25 {
		lx := util.CellSize * 0.5
		lz := util.CellSize * 0.5
		pos := util.Vector3{X: origin.X + lx, Y: d.HeightAt(lx, lz), Z: origin.Z - lz}
		half := util.TileSize * 1.5

		bIdx := int32(len(d.Buildings))
		d.Buildings = append(d.Buildings, BuildingPlacement{
			SetupID:  100 + hash2(coord.X, coord.Y, p.Seed^0x4A)%4,
			Position: pos,
			Rotation: float32(hash2(coord.Y, coord.X, p.Seed^0x5B)%4) * 90.0,
			Footprint: Rect2D{
				MinX: pos.X - half, MaxX: pos.X + half,
				MinZ: pos.Z - half, MaxZ: pos.Z + half,
			},
		})

		cellID := uint32(coord.Key())
		d.Interiors = append(d.Interiors, InteriorCell{
			CellID:   cellID,
			Building: bIdx,
			Offset:   util.Vector3{Y: 0.1},
			Statics: []StaticPlacement{{
				ObjectID: 1 + hash2(coord.X, coord.Y, p.Seed^0x6C)%6,
				Position: util.Vector3{}, // relativo à base da célula interna
				Rotation: 0,
				Scale:    1.0,
			}},
			Portals: []Portal{{
				ToCellID: 0, // exterior
				Position: util.Vector3{Z: half},
				Rotation: 0,
			}},
		})
	}

	return d, nil
}
