package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"roomrelay/internal/chat"
	"roomrelay/internal/config"
	"roomrelay/internal/http/http_server"
	"roomrelay/internal/rooms"
	"roomrelay/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. In-memory state: room registry + chat history
	registry := rooms.NewRegistry(cfg.MaxUsersPerRoom)
	store := chat.NewStore()

	// 4. WebSockets hub + relay server
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, registry, store, cfg.HeartbeatInterval)

	// 5. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, cfg.WsPath, wsSrv, registry)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
