package app

import (
	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// updateInput trata os atalhos e a seleção por clique.
func (a *App) updateInput() {
	if rl.IsKeyPressed(rl.KeyF3) {
		a.Config.ShowDebugInfo = !a.Config.ShowDebugInfo
	}
	if rl.IsKeyPressed(rl.KeyEscape) {
		a.selectedOK = false
	}

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		a.pickAtCursor()
	}
}

// pickAtCursor lança um raio pelo cursor e seleciona a instância mais
// próxima entre todos os subsistemas.
func (a *App) pickAtCursor() {
	ray := rl.GetMouseRay(rl.GetMousePosition(), a.Cam.RLCamera)

	best := float32(0)
	found := false
	for _, e := range a.engines {
		id, dist, ok := e.Pick(ray.Position, ray.Direction)
		if !ok {
			continue
		}
		if !found || dist < best {
			a.selectedID = id
			best = dist
			found = true
		}
	}
	a.selectedOK = found
}

// selectionBounds devolve o volume de mundo da instância selecionada,
// se ela ainda estiver residente em algum subsistema.
func (a *App) selectionBounds() (util.AABB, bool) {
	if !a.selectedOK {
		return util.AABB{}, false
	}
	for _, e := range a.engines {
		if inst, found := e.FindInstance(a.selectedID); found {
			return inst.WorldBounds, true
		}
	}
	return util.AABB{}, false
}
