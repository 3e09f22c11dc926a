package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config armazena as configurações do WorldVision.
type Config struct {
	// Janela
	WindowWidth  int32  `json:"window_width"`
	WindowHeight int32  `json:"window_height"`
	WindowTitle  string `json:"window_title"`
	Fullscreen   bool   `json:"fullscreen"`
	TargetFPS    int32  `json:"target_fps"`

	// Servidor de edição de mundo (opcional; vazio = mundo procedural local)
	ServerURL string `json:"server_url"`

	// Streaming
	RenderDistance int32   `json:"render_distance"`  // Raio em landblocks (Chebyshev)
	UnloadDelaySec float32 `json:"unload_delay_sec"` // Histerese de descarte
	UploadBudgetMs float64 `json:"upload_budget_ms"` // Orçamento de upload por frame
	MaxGenerations int     `json:"max_generations"`  // Jobs de geração simultâneos por subsistema
	ViewBiasWeight float32 `json:"view_bias_weight"` // Peso do prefetch na direção da câmera

	// Cenário procedural
	SceneryDensity float32 `json:"scenery_density"` // 0.0 a 1.0

	// Cache local de dados do mundo (SQLite)
	WorldCachePath string `json:"world_cache_path"`
	WorldName      string `json:"world_name"`

	// Câmera
	FOV               float32 `json:"fov"`
	CameraSpeed       float32 `json:"camera_speed"`
	CameraSensitivity float32 `json:"camera_sensitivity"`
	ZoomSpeed         float32 `json:"zoom_speed"`

	// Debug
	ShowDebugInfo bool `json:"show_debug_info"`
	WireframeMode bool `json:"wireframe_mode"`
}

// DefaultConfig retorna a configuração padrão.
func DefaultConfig() *Config {
	return &Config{
		WindowWidth:  1280,
		WindowHeight: 720,
		WindowTitle:  "WorldVision",
		Fullscreen:   false,
		TargetFPS:    60,

		ServerURL: "",

		RenderDistance: 8,
		UnloadDelaySec: 3.0,
		UploadBudgetMs: 4.0,
		MaxGenerations: 4,
		ViewBiasWeight: 2.5,

		SceneryDensity: 0.6,

		WorldCachePath: "saves",
		WorldName:      "default",

		FOV:               60.0,
		CameraSpeed:       120.0,
		CameraSensitivity: 0.3,
		ZoomSpeed:         10.0,

		ShowDebugInfo: true,
		WireframeMode: false,
	}
}

// configPath retorna o caminho do arquivo de configuração ao lado do executável.
func configPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "worldvision.json"
	}
	return filepath.Join(filepath.Dir(exe), "worldvision.json")
}

// Load carrega a configuração do disco, criando o padrão se não existir.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath())
	if err != nil {
		if os.IsNotExist(err) {
			// Primeira execução: salva o padrão para o usuário editar
			_ = cfg.Save()
			return cfg, nil
		}
		return cfg, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save grava a configuração atual no disco.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}
