package app

import (
	"hash/fnv"
	"log"
	"time"

	"WorldVision/cliente/internal/camera"
	"WorldVision/cliente/internal/meshing"
	"WorldVision/cliente/internal/render"
	"WorldVision/cliente/internal/resources"
	"WorldVision/cliente/internal/scenery"
	"WorldVision/cliente/internal/streaming"
	"WorldVision/shared/config"
	"WorldVision/shared/util"
	"WorldVision/shared/worlddata"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// App é a aplicação principal do WorldVision: uma janela, uma câmera e
// cinco subsistemas de streaming alimentando um cache de malhas
// compartilhado.
type App struct {
	Config *config.Config

	Cam *camera.Controller

	store     *worlddata.Store
	netClient *worlddata.Client
	netStatus string

	device   *render.Device
	cache    *resources.Cache
	renderer *render.Renderer
	rctx     render.Context

	// Subsistemas, na ordem de desenho (terreno primeiro).
	engines []*streaming.Engine

	culler *streaming.Culler

	// Instância selecionada pelo usuário.
	selectedID streaming.InstanceID
	selectedOK bool

	frameCount  int
	uploadSpent time.Duration
}

// New cria a aplicação a partir da configuração carregada.
func New(cfg *config.Config) *App {
	return &App{Config: cfg, culler: streaming.NewCuller()}
}

// Run abre a janela e roda o loop principal até o fechamento.
func (a *App) Run() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] erro fatal: %v", r)
			panic(r)
		}
	}()

	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(a.Config.WindowWidth, a.Config.WindowHeight, a.Config.WindowTitle)
	rl.SetTraceLogLevel(rl.LogWarning)
	if a.Config.Fullscreen {
		rl.ToggleFullscreen()
	}
	rl.SetTargetFPS(a.Config.TargetFPS)

	log.Printf("[App] janela %dx%d criada", a.Config.WindowWidth, a.Config.WindowHeight)

	a.Cam = camera.New()
	a.Cam.MoveSpeed = a.Config.CameraSpeed
	a.Cam.ZoomSpeed = a.Config.ZoomSpeed
	a.Cam.SetTarget(util.CellCenter(util.NewCellCoord(0, 0)))

	if err := a.initWorld(); err != nil {
		log.Printf("[App] inicialização do mundo falhou: %v", err)
		rl.CloseWindow()
		return
	}

	for !rl.WindowShouldClose() {
		a.update()
		a.draw()
	}

	a.shutdown()
	rl.CloseWindow()
}

// initWorld monta a cadeia completa: store (+cache em disco e cliente
// de rede), biblioteca de malhas, device de GPU e os cinco engines.
func (a *App) initWorld() error {
	seed := worldSeed(a.Config.WorldName)
	a.store = worlddata.NewStore(worlddata.NewProceduralSource(seed))

	if p, err := worlddata.OpenPersistence(a.Config.WorldCachePath, a.Config.WorldName); err != nil {
		log.Printf("[App] cache de mundo indisponível: %v", err)
	} else {
		a.store.AttachPersistence(p)
	}

	if a.Config.ServerURL != "" {
		a.netClient = worlddata.NewClient(a.Config.ServerURL, a.store)
		a.netClient.OnStatus = func(msg string) { a.netStatus = msg }
		go func() {
			if err := a.netClient.Connect(); err != nil {
				log.Printf("[App] servidor de mundo fora do ar: %v", err)
			}
		}()
	}

	library := meshing.NewLibrary(a.store)
	a.device = render.NewDevice()
	a.cache = resources.NewCache(library, a.device)

	r, err := render.NewRenderer()
	if err != nil {
		return err
	}
	a.renderer = r

	base := streaming.Config{
		RenderDistance: a.Config.RenderDistance,
		UnloadDelay:    a.Config.UnloadDelaySec,
		MaxJobs:        a.Config.MaxGenerations,
		ViewBias:       a.Config.ViewBiasWeight,
		InBounds:       a.store.InBounds,
	}

	// Interiores e portais só importam de perto: raio reduzido.
	nearCfg := base
	if nearCfg.RenderDistance > 4 {
		nearCfg.RenderDistance = 4
	}

	terrain := streaming.NewEngine(meshing.NewTerrainGenerator(a.store), a.cache, base)
	statics := streaming.NewEngine(meshing.NewStaticsGenerator(a.store), a.cache, base)
	scen := streaming.NewEngine(scenery.NewGenerator(a.store, a.Config.SceneryDensity), a.cache, base)
	interiors := streaming.NewEngine(meshing.NewInteriorsGenerator(a.store, statics), a.cache, nearCfg)
	portals := streaming.NewEngine(meshing.NewPortalsGenerator(a.store), a.cache, nearCfg)

	a.engines = []*streaming.Engine{terrain, statics, scen, interiors, portals}

	// Edições de mundo invalidam os cinco subsistemas de uma vez.
	a.store.Subscribe(func(affected []util.CellCoord) {
		for _, e := range a.engines {
			e.OnRegionChanged(affected)
		}
	})

	log.Printf("[App] %d subsistemas de streaming ativos (raio=%d)", len(a.engines), base.RenderDistance)
	return nil
}

// update avança um frame de simulação: câmera, ciclo de vida das
// células, uploads sob orçamento e a montagem dos lotes visíveis.
func (a *App) update() {
	a.frameCount++
	dt := rl.GetFrameTime()

	a.Cam.HandleInput(dt)
	a.followTerrain()
	a.Cam.Update(dt)

	camPos := a.Cam.Position()
	forward := a.Cam.Forward()

	for _, e := range a.engines {
		e.Update(camPos, forward, dt)
	}

	// Orçamento de upload único, repartido entre os subsistemas na
	// ordem de desenho: o que um gasta falta para os seguintes.
	budget := time.Duration(a.Config.UploadBudgetMs * float64(time.Millisecond))
	spent := time.Duration(0)
	for _, e := range a.engines {
		if spent >= budget {
			break
		}
		spent += e.ProcessUploads(camPos, budget-spent)
	}
	a.uploadSpent = spent

	a.updateInput()

	// Lotes do frame: um culler compartilhado acumula os cinco engines.
	vp := a.Cam.ViewProjection(int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight()))
	frustum := util.ExtractFrustum(vp)
	a.culler.Begin()
	for _, e := range a.engines {
		e.PrepareBatches(a.culler, &frustum, camPos)
	}
}

// followTerrain gruda o alvo da câmera na altura do relevo, quando o
// landblock sob ele já está em memória.
func (a *App) followTerrain() {
	look := a.Cam.TargetLookAt
	coord := util.WorldToCell(look)
	data, ok := a.store.Get(coord)
	if !ok {
		return
	}
	origin := util.CellOrigin(coord)
	a.Cam.SetGroundHeight(data.HeightAt(look.X-origin.X, origin.Z-look.Z))
}

// shutdown para os jobs, fecha o cache em disco e salva a configuração.
func (a *App) shutdown() {
	log.Printf("[App] finalizando")

	for _, e := range a.engines {
		e.Shutdown()
	}
	if a.netClient != nil {
		a.netClient.Close()
	}
	a.store.Close()

	if a.renderer != nil {
		a.renderer.Unload()
	}
	if err := a.Config.Save(); err != nil {
		log.Printf("[App] erro salvando configuração: %v", err)
	}
}

// worldSeed deriva a semente do mundo procedural do nome configurado.
func worldSeed(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}
