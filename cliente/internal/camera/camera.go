package camera

import (
	"math"

	"WorldVision/shared/util"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// Planos de recorte usados na matriz de culling. O plano distante cobre
// o raio de streaming máximo com folga.
const (
	nearPlane = 0.5
	farPlane  = 4000.0
)

// Controller gerencia a câmera orbital de exploração: um ponto de
// interesse no chão, ângulos de órbita e zoom, tudo interpolado para
// movimento com peso. A posição real vem da conversão esférica.
type Controller struct {
	RLCamera rl.Camera3D

	MinZoom      float32
	MaxZoom      float32
	MoveSpeed    float32
	RotateSpeed  float32
	ZoomSpeed    float32
	SmoothFactor float32 // 0.0 a 1.0 (quanto menor, mais suave/lento)

	// Estado alvo (para interpolação suave)
	TargetLookAt rl.Vector3
	TargetZoom   float32
	TargetAngleY float32 // Azimute (radianos)
	TargetAngleX float32 // Elevação (radianos, negativa = olhando de cima)

	// Estado atual (interpolado)
	CurrentLookAt rl.Vector3
	CurrentZoom   float32

	// Altura do terreno sob o alvo, informada pelo app a cada frame para
	// a câmera acompanhar o relevo.
	groundY float32
}

// New cria o controlador com a pose isométrica padrão.
func New() *Controller {
	c := &Controller{
		MinZoom:      20.0,
		MaxZoom:      900.0,
		MoveSpeed:    120.0,
		RotateSpeed:  2.0,
		ZoomSpeed:    40.0,
		SmoothFactor: 0.12,

		TargetZoom:   260.0,
		TargetAngleY: 45.0 * rl.Deg2rad,
		TargetAngleX: -35.0 * rl.Deg2rad,
	}
	c.CurrentLookAt = c.TargetLookAt
	c.CurrentZoom = c.TargetZoom

	c.RLCamera = rl.Camera3D{
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45.0,
		Projection: rl.CameraPerspective,
	}
	c.recalc()
	return c
}

// SetTarget posiciona o alvo imediatamente, sem suavização.
func (c *Controller) SetTarget(pos rl.Vector3) {
	c.TargetLookAt = pos
	c.CurrentLookAt = pos
	c.recalc()
}

// SetGroundHeight informa a altura do relevo sob o alvo; o alvo gruda
// nela suavemente via Update.
func (c *Controller) SetGroundHeight(y float32) {
	c.groundY = y
}

// Update interpola o estado atual em direção ao alvo e recalcula a
// posição. Chamado uma vez por frame.
func (c *Controller) Update(dt float32) {
	// Amortecimento normalizado para 60 FPS.
	factor := c.SmoothFactor * 60.0 * dt
	if factor > 1.0 {
		factor = 1.0
	}

	c.TargetLookAt.Y = c.groundY

	cur := mgl32.Vec3{c.CurrentLookAt.X, c.CurrentLookAt.Y, c.CurrentLookAt.Z}
	tgt := mgl32.Vec3{c.TargetLookAt.X, c.TargetLookAt.Y, c.TargetLookAt.Z}
	lerped := cur.Add(tgt.Sub(cur).Mul(factor))

	c.CurrentLookAt = rl.Vector3{X: lerped.X(), Y: lerped.Y(), Z: lerped.Z()}
	c.CurrentZoom = util.Lerp(c.CurrentZoom, c.TargetZoom, factor)

	c.recalc()
}

// recalc converte órbita esférica (ângulos + zoom) em posição cartesiana.
func (c *Controller) recalc() {
	dist := c.CurrentZoom

	cosX := float32(math.Cos(float64(c.TargetAngleX)))
	sinX := float32(math.Sin(float64(c.TargetAngleX)))
	cosY := float32(math.Cos(float64(c.TargetAngleY)))
	sinY := float32(math.Sin(float64(c.TargetAngleY)))

	c.RLCamera.Position = rl.Vector3{
		X: c.CurrentLookAt.X + dist*cosX*sinY,
		Y: c.CurrentLookAt.Y + dist*-sinX,
		Z: c.CurrentLookAt.Z + dist*cosX*cosY,
	}
	c.RLCamera.Target = c.CurrentLookAt
}

// Position retorna a posição de mundo da câmera.
func (c *Controller) Position() rl.Vector3 {
	return c.RLCamera.Position
}

// Forward retorna a direção de visão normalizada.
func (c *Controller) Forward() rl.Vector3 {
	d := mgl32.Vec3{
		c.RLCamera.Target.X - c.RLCamera.Position.X,
		c.RLCamera.Target.Y - c.RLCamera.Position.Y,
		c.RLCamera.Target.Z - c.RLCamera.Position.Z,
	}
	if d.Len() == 0 {
		return rl.Vector3{Z: -1}
	}
	d = d.Normalize()
	return rl.Vector3{X: d.X(), Y: d.Y(), Z: d.Z()}
}

// ViewProjection monta a matriz view-projection usada na extração do
// frustum de culling.
func (c *Controller) ViewProjection(screenW, screenH int32) mgl32.Mat4 {
	aspect := float32(screenW) / float32(screenH)
	proj := mgl32.Perspective(mgl32.DegToRad(c.RLCamera.Fovy), aspect, nearPlane, farPlane)
	view := mgl32.LookAtV(
		mgl32.Vec3{c.RLCamera.Position.X, c.RLCamera.Position.Y, c.RLCamera.Position.Z},
		mgl32.Vec3{c.RLCamera.Target.X, c.RLCamera.Target.Y, c.RLCamera.Target.Z},
		mgl32.Vec3{0, 1, 0},
	)
	return proj.Mul4(view)
}

// HandleInput processa zoom, órbita e movimento WASD relativo à câmera.
// Retorna true se houve movimento.
func (c *Controller) HandleInput(dt float32) bool {
	moved := false

	wheel := rl.GetMouseWheelMove()
	if wheel != 0 {
		moved = true
		c.TargetZoom -= wheel * c.ZoomSpeed
		c.TargetZoom = util.Clamp(c.TargetZoom, c.MinZoom, c.MaxZoom)
	}

	// Órbita com o botão direito.
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		delta := rl.GetMouseDelta()
		if delta.X != 0 || delta.Y != 0 {
			moved = true
		}
		c.TargetAngleY -= delta.X * c.RotateSpeed * 0.005
		c.TargetAngleX -= delta.Y * c.RotateSpeed * 0.005

		// Elevação limitada para não virar a câmera de ponta cabeça.
		maxElev := float32(-5.0 * rl.Deg2rad)
		minElev := float32(-89.0 * rl.Deg2rad)
		c.TargetAngleX = util.Clamp(c.TargetAngleX, minElev, maxElev)
	}

	// Movimento no plano do chão, relativo à direção de visão.
	fwd, ok := util.NormalizeXZ(c.Forward())
	if !ok {
		fwd = rl.Vector3{Z: -1}
	}
	forward := mgl32.Vec3{fwd.X, 0, fwd.Z}
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()

	// Quanto mais longe o zoom, mais rápido o deslocamento.
	speed := c.MoveSpeed * (c.CurrentZoom / 200.0) * dt

	move := mgl32.Vec3{}
	if rl.IsKeyDown(rl.KeyW) {
		move = move.Add(forward)
	}
	if rl.IsKeyDown(rl.KeyS) {
		move = move.Sub(forward)
	}
	if rl.IsKeyDown(rl.KeyD) {
		move = move.Add(right)
	}
	if rl.IsKeyDown(rl.KeyA) {
		move = move.Sub(right)
	}

	if move.Len() > 0 {
		move = move.Normalize().Mul(speed)
		c.TargetLookAt.X += move.X()
		c.TargetLookAt.Z += move.Z()
		moved = true
	}
	return moved
}
