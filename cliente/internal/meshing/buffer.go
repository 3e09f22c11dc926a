package meshing

import (
	"WorldVision/cliente/internal/resources"
)

// MeshBuffer auxilia na construção de malhas dinâmicas. É só um
// acumulador de buffers; a posse da geometria passa adiante no Build.
type MeshBuffer struct {
	Geometry resources.GeometryData
}

// AddFace adiciona uma face retangular (quad) ao buffer.
func (b *MeshBuffer) AddFace(v1, v2, v3, v4 [3]float32, n [3]float32, c [4]uint8) {
	// Triângulo 1 (v1, v2, v3)
	b.addVertex(v1, n, c)
	b.addVertex(v2, n, c)
	b.addVertex(v3, n, c)

	// Triângulo 2 (v1, v3, v4)
	b.addVertex(v1, n, c)
	b.addVertex(v3, n, c)
	b.addVertex(v4, n, c)
}

// AddFaceUV adiciona uma face com coordenadas de textura explícitas.
func (b *MeshBuffer) AddFaceUV(v1, v2, v3, v4 [3]float32, uv1, uv2, uv3, uv4 [2]float32, n [3]float32, c [4]uint8) {
	b.addVertexUV(v1, uv1, n, c)
	b.addVertexUV(v2, uv2, n, c)
	b.addVertexUV(v3, uv3, n, c)

	b.addVertexUV(v1, uv1, n, c)
	b.addVertexUV(v3, uv3, n, c)
	b.addVertexUV(v4, uv4, n, c)
}

// AddTriangle adiciona uma face triangular ao buffer.
func (b *MeshBuffer) AddTriangle(v1, v2, v3 [3]float32, n [3]float32, c [4]uint8) {
	b.addVertex(v1, n, c)
	b.addVertex(v2, n, c)
	b.addVertex(v3, n, c)
}

// AddBox adiciona um paralelepípedo alinhado aos eixos, com as seis
// faces voltadas para fora.
func (b *MeshBuffer) AddBox(minX, minY, minZ, maxX, maxY, maxZ float32, c [4]uint8) {
	// Topo e fundo
	b.AddFace(
		[3]float32{minX, maxY, maxZ}, [3]float32{maxX, maxY, maxZ},
		[3]float32{maxX, maxY, minZ}, [3]float32{minX, maxY, minZ},
		[3]float32{0, 1, 0}, c)
	b.AddFace(
		[3]float32{minX, minY, minZ}, [3]float32{maxX, minY, minZ},
		[3]float32{maxX, minY, maxZ}, [3]float32{minX, minY, maxZ},
		[3]float32{0, -1, 0}, c)

	// Laterais
	b.AddFace(
		[3]float32{minX, minY, maxZ}, [3]float32{maxX, minY, maxZ},
		[3]float32{maxX, maxY, maxZ}, [3]float32{minX, maxY, maxZ},
		[3]float32{0, 0, 1}, c)
	b.AddFace(
		[3]float32{maxX, minY, minZ}, [3]float32{minX, minY, minZ},
		[3]float32{minX, maxY, minZ}, [3]float32{maxX, maxY, minZ},
		[3]float32{0, 0, -1}, c)
	b.AddFace(
		[3]float32{maxX, minY, maxZ}, [3]float32{maxX, minY, minZ},
		[3]float32{maxX, maxY, minZ}, [3]float32{maxX, maxY, maxZ},
		[3]float32{1, 0, 0}, c)
	b.AddFace(
		[3]float32{minX, minY, minZ}, [3]float32{minX, minY, maxZ},
		[3]float32{minX, maxY, maxZ}, [3]float32{minX, maxY, minZ},
		[3]float32{-1, 0, 0}, c)
}

// AddCrossQuads adiciona dois quads verticais cruzados (vegetação
// rasteira), com os dois lados visíveis.
func (b *MeshBuffer) AddCrossQuads(half, height float32, c [4]uint8) {
	// Plano XY
	b.AddFace(
		[3]float32{-half, 0, 0}, [3]float32{half, 0, 0},
		[3]float32{half, height, 0}, [3]float32{-half, height, 0},
		[3]float32{0, 0, 1}, c)
	b.AddFace(
		[3]float32{half, 0, 0}, [3]float32{-half, 0, 0},
		[3]float32{-half, height, 0}, [3]float32{half, height, 0},
		[3]float32{0, 0, -1}, c)

	// Plano ZY
	b.AddFace(
		[3]float32{0, 0, half}, [3]float32{0, 0, -half},
		[3]float32{0, height, -half}, [3]float32{0, height, half},
		[3]float32{1, 0, 0}, c)
	b.AddFace(
		[3]float32{0, 0, -half}, [3]float32{0, 0, half},
		[3]float32{0, height, half}, [3]float32{0, height, -half},
		[3]float32{-1, 0, 0}, c)
}

func (b *MeshBuffer) addVertex(v [3]float32, n [3]float32, c [4]uint8) {
	b.Geometry.Vertices = append(b.Geometry.Vertices, v[0], v[1], v[2])
	b.Geometry.Normals = append(b.Geometry.Normals, n[0], n[1], n[2])
	b.Geometry.Colors = append(b.Geometry.Colors, c[0], c[1], c[2], c[3])
	// UV padrão para vértices coloridos
	b.Geometry.UVs = append(b.Geometry.UVs, 0, 0)
}

func (b *MeshBuffer) addVertexUV(v [3]float32, uv [2]float32, n [3]float32, c [4]uint8) {
	b.Geometry.Vertices = append(b.Geometry.Vertices, v[0], v[1], v[2])
	b.Geometry.Normals = append(b.Geometry.Normals, n[0], n[1], n[2])
	b.Geometry.Colors = append(b.Geometry.Colors, c[0], c[1], c[2], c[3])
	b.Geometry.UVs = append(b.Geometry.UVs, uv[0], uv[1])
}
