package render

import (
	"fmt"
	"log"
	"unsafe"

	"WorldVision/cliente/internal/resources"
	"WorldVision/cliente/internal/streaming"
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer emite os draws instanciados a partir dos lotes do culling.
// Todos os lotes compartilham um material de cor por vértice; o que
// varia por draw é só a malha e a lista de transformações.
type Renderer struct {
	shader    rl.Shader
	material  rl.Material
	camPosLoc int32
}

// NewRenderer compila o shader instanciado e prepara o material. Exige
// a janela aberta.
func NewRenderer() (*Renderer, error) {
	if !rl.IsWindowReady() {
		return nil, fmt.Errorf("renderer requer a janela criada")
	}

	r := &Renderer{}
	r.shader = rl.LoadShaderFromMemory(worldInstancedVertexShader, worldFragmentShader)
	if r.shader.ID == 0 {
		return nil, fmt.Errorf("falha compilando o shader instanciado")
	}

	// Locs é um ponteiro bruto para um array de 32 slots em C.
	locs := unsafe.Slice(r.shader.Locs, 32)
	locs[rl.ShaderLocMatrixMvp] = rl.GetShaderLocation(r.shader, "mvp")
	locs[rl.ShaderLocMatrixModel] = rl.GetShaderLocationAttrib(r.shader, "instanceTransform")
	locs[rl.ShaderLocColorDiffuse] = rl.GetShaderLocation(r.shader, "colDiffuse")
	r.camPosLoc = rl.GetShaderLocation(r.shader, "camPos")

	r.material = rl.LoadMaterialDefault()
	r.material.Shader = r.shader

	log.Printf("[Renderer] shader instanciado compilado (id %d)", r.shader.ID)
	return r, nil
}

// BeginFrame sobe os uniformes por-frame na primeira vez que o shader
// for usado neste frame.
func (r *Renderer) BeginFrame(ctx *Context, camPos rl.Vector3) {
	ctx.BeginFrame()
	if ctx.NeedsShader(r.shader) {
		rl.SetShaderValue(r.shader, r.camPosLoc,
			[]float32{camPos.X, camPos.Y, camPos.Z}, rl.ShaderUniformVec3)
	}
}

// DrawBatches percorre as malhas do frame na ordem do culler e emite um
// draw instanciado por malha residente. Malhas ainda não residentes são
// puladas em silêncio (aparecem no frame seguinte ao upload).
func (r *Renderer) DrawBatches(ctx *Context, cu *streaming.Culler, cache *resources.Cache) {
	for _, id := range cu.Order() {
		transforms := cu.Group(id)
		if len(transforms) == 0 {
			continue
		}
		handle, ok := cache.Handle(id)
		if !ok {
			continue
		}
		gm, ok := handle.(*GPUMesh)
		if !ok {
			continue
		}

		rl.DrawMeshInstanced(gm.Mesh, r.material, transforms, len(transforms))
		ctx.DrawCalls++
		ctx.InstancesDrawn += len(transforms)
	}
}

// DrawSelection desenha o destaque da instância selecionada. Passa
// final, sempre executada, para a seleção nunca sumir mesmo quando o
// lote da malha ficou vazio.
func (r *Renderer) DrawSelection(bounds util.AABB) {
	box := rl.BoundingBox{Min: bounds.Min, Max: bounds.Max}
	rl.DrawBoundingBox(box, rl.Yellow)
}

// Unload libera shader e material.
func (r *Renderer) Unload() {
	rl.UnloadShader(r.shader)
}
