package render

/*
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"WorldVision/cliente/internal/resources"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// GPUMesh é o handle devolvido pelo device: a malha residente na GPU.
type GPUMesh struct {
	Mesh rl.Mesh
}

// Device sobe geometria para a GPU via raylib. Implementa
// resources.Device; todas as chamadas acontecem na thread de render,
// que é a dona do contexto OpenGL.
type Device struct {
	uploads  int
	releases int
}

// NewDevice cria o device de upload.
func NewDevice() *Device {
	return &Device{}
}

// Upload copia os buffers para memória C, sobe a malha para a GPU e
// libera a cópia em RAM. O handle devolvido só vale enquanto a entrada
// do cache viver.
func (d *Device) Upload(data *resources.MeshData) (resources.Handle, error) {
	if !rl.IsWindowReady() {
		return nil, fmt.Errorf("upload de %s sem contexto gráfico", data.ID)
	}
	if data.Geometry.IsEmpty() {
		return nil, fmt.Errorf("upload de %s sem geometria", data.ID)
	}

	mesh := geometryToMesh(&data.Geometry)
	rl.UploadMesh(&mesh, false)
	freeMeshRAM(&mesh)

	d.uploads++
	return &GPUMesh{Mesh: mesh}, nil
}

// Release descarta os buffers de GPU de uma malha.
func (d *Device) Release(h resources.Handle) {
	gm, ok := h.(*GPUMesh)
	if !ok || gm == nil {
		return
	}
	rl.UnloadMesh(&gm.Mesh)
	d.releases++
}

// Uploads retorna o total de malhas subidas, para a HUD de debug.
func (d *Device) Uploads() int { return d.uploads }

// geometryToMesh monta uma rl.Mesh apontando para cópias em memória C
// dos buffers Go. O raylib guarda esses ponteiros, então eles não podem
// ser memória gerenciada pelo GC.
func geometryToMesh(data *resources.GeometryData) rl.Mesh {
	var mesh rl.Mesh
	vCount := int32(len(data.Vertices) / 3)
	mesh.VertexCount = vCount
	mesh.TriangleCount = vCount / 3

	if len(data.Vertices) > 0 {
		mesh.Vertices = (*float32)(copyToC(unsafe.Pointer(&data.Vertices[0]), len(data.Vertices)*4))
	}
	if len(data.Normals) > 0 {
		mesh.Normals = (*float32)(copyToC(unsafe.Pointer(&data.Normals[0]), len(data.Normals)*4))
	}
	if len(data.Colors) > 0 {
		mesh.Colors = (*uint8)(copyToC(unsafe.Pointer(&data.Colors[0]), len(data.Colors)))
	}
	if len(data.UVs) > 0 {
		mesh.Texcoords = (*float32)(copyToC(unsafe.Pointer(&data.UVs[0]), len(data.UVs)*4))
	}
	return mesh
}

func copyToC(data unsafe.Pointer, size int) unsafe.Pointer {
	if size <= 0 || data == nil {
		return nil
	}
	ptr := C.malloc(C.size_t(size))
	if ptr == nil {
		return nil
	}
	cSlice := unsafe.Slice((*byte)(ptr), size)
	goSlice := unsafe.Slice((*byte)(data), size)
	copy(cSlice, goSlice)
	return ptr
}

// freeMeshRAM libera a cópia em memória C depois que os dados já estão
// na GPU.
func freeMeshRAM(mesh *rl.Mesh) {
	if mesh.Vertices != nil {
		C.free(unsafe.Pointer(mesh.Vertices))
		mesh.Vertices = nil
	}
	if mesh.Normals != nil {
		C.free(unsafe.Pointer(mesh.Normals))
		mesh.Normals = nil
	}
	if mesh.Colors != nil {
		C.free(unsafe.Pointer(mesh.Colors))
		mesh.Colors = nil
	}
	if mesh.Texcoords != nil {
		C.free(unsafe.Pointer(mesh.Texcoords))
		mesh.Texcoords = nil
	}
}
