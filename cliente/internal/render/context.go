package render

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Context carrega o estado de render de um frame: qual shader/material
// está ativo e os contadores do frame. É passado explicitamente pela
// cadeia de desenho em vez de viver em estado global, para que dois
// sistemas de desenho nunca disputem o mesmo rastreador de binds às
// escondidas.
type Context struct {
	boundShader uint32 // 0 = nenhum

	// Contadores do frame, para a HUD.
	DrawCalls      int
	InstancesDrawn int
	SkippedBinds   int
}

// BeginFrame zera o rastreamento para um novo frame.
func (c *Context) BeginFrame() {
	c.boundShader = 0
	c.DrawCalls = 0
	c.InstancesDrawn = 0
	c.SkippedBinds = 0
}

// NeedsShader informa se o shader dado ainda precisa de bind/uniformes
// neste frame, registrando-o como ativo.
func (c *Context) NeedsShader(s rl.Shader) bool {
	if c.boundShader == s.ID {
		c.SkippedBinds++
		return false
	}
	c.boundShader = s.ID
	return true
}
