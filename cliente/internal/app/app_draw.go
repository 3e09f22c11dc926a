package app

import (
	"fmt"

	"WorldVision/cliente/internal/streaming"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// draw renderiza a cena e a HUD.
func (a *App) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.NewColor(135, 161, 191, 255))

	a.drawScene()
	a.drawHUD()

	rl.EndDrawing()
}

// drawScene emite os lotes instanciados montados pelo update.
func (a *App) drawScene() {
	rl.BeginMode3D(a.Cam.RLCamera)

	if a.Config.WireframeMode {
		rl.DrawGrid(64, 24)
	}

	a.renderer.BeginFrame(&a.rctx, a.Cam.Position())
	a.renderer.DrawBatches(&a.rctx, a.culler, a.cache)

	// Passe final de seleção, sempre executado.
	if bounds, ok := a.selectionBounds(); ok {
		a.renderer.DrawSelection(bounds)
	}

	rl.EndMode3D()
}

// drawHUD desenha o painel de debug sobreposto.
func (a *App) drawHUD() {
	if !a.Config.ShowDebugInfo {
		return
	}

	width := int32(330)
	height := int32(90 + 20*int32(len(a.engines)))
	x := int32(10)
	y := int32(10)

	rl.DrawRectangle(x, y, width, height, rl.NewColor(0, 0, 0, 180))
	rl.DrawRectangleLines(x, y, width, height, rl.NewColor(50, 50, 50, 255))

	fps := rl.GetFPS()
	fpsColor := rl.Green
	if fps < 30 {
		fpsColor = rl.Red
	} else if fps < 50 {
		fpsColor = rl.Yellow
	}
	rl.DrawText(fmt.Sprintf("FPS: %d", fps), x+10, y+8, 20, fpsColor)

	coord := a.Cam.CurrentLookAt
	rl.DrawText(fmt.Sprintf("Pos: (%.0f, %.0f, %.0f)", coord.X, coord.Y, coord.Z),
		x+140, y+12, 14, rl.White)

	line := y + 34
	for _, e := range a.engines {
		counts := e.CountByState()
		rl.DrawText(fmt.Sprintf("%-10s res:%-4d fila:%-4d jobs:%d",
			e.Name(), counts[streaming.StateResident],
			counts[streaming.StateQueued]+counts[streaming.StateGenerating],
			e.ActiveJobs()),
			x+10, line, 14, rl.LightGray)
		line += 20
	}

	rl.DrawText(fmt.Sprintf("upload: %.2fms  draws:%d  inst:%d  células:%d",
		float64(a.uploadSpent.Microseconds())/1000.0,
		a.rctx.DrawCalls, a.rctx.InstancesDrawn, a.culler.CellsVisible),
		x+10, line, 14, rl.SkyBlue)
	line += 20

	status := "mundo procedural local"
	color := rl.Gray
	if a.netClient != nil {
		if a.netClient.IsConnected() {
			status = "servidor: conectado"
			color = rl.Green
		} else {
			status = "servidor: offline"
			color = rl.Red
		}
		if a.netStatus != "" {
			status += " (" + a.netStatus + ")"
		}
	}
	rl.DrawText(status, x+10, line, 14, color)
}
