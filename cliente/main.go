package main

import (
	"flag"
	"log"
	"runtime"

	"WorldVision/cliente/internal/app"
	"WorldVision/shared/config"
)

func main() {
	// Raylib/OpenGL exige rodar na thread principal do SO.
	runtime.LockOSThread()

	serverURL := flag.String("server", "", "URL do servidor de edição de mundo (vazio = mundo procedural local)")
	world := flag.String("world", "", "Nome do mundo (semente e cache em disco)")
	fullscreen := flag.Bool("fullscreen", false, "Iniciar em tela cheia")
	debug := flag.Bool("debug", false, "Mostrar informações de debug")
	width := flag.Int("width", 0, "Largura da janela")
	height := flag.Int("height", 0, "Altura da janela")
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lshortfile)
	log.Println("=== WorldVision ===")

	cfg, err := config.Load()
	if err != nil {
		log.Printf("[Main] configuração inválida, usando padrão: %v", err)
	}

	// Flags de linha de comando sobrescrevem o config salvo.
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *world != "" {
		cfg.WorldName = *world
	}
	if *fullscreen {
		cfg.Fullscreen = true
	}
	if *debug {
		cfg.ShowDebugInfo = true
	}
	if *width > 0 {
		cfg.WindowWidth = int32(*width)
	}
	if *height > 0 {
		cfg.WindowHeight = int32(*height)
	}

	app.New(cfg).Run()
}
