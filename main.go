package main

import (
	"context"
	"log"

	"go_draft_backend/bootstrap"
	"go_draft_backend/config"
	"go_draft_backend/middleware"
	"go_draft_backend/pkg/logging"
	"go_draft_backend/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

func main() {
	// 环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process env")
	}
	logging.Init()

	cfg := config.LoadConfig()
	boot, err := bootstrap.NewApp(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := boot.Shutdown(); err != nil {
			logging.Logger.Error("fail Shutdown", "error", err)
		}
	}()

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.MaxFileSize),
	})
	app.Use(middleware.CORS())
	app.Use(middleware.Logger())

	requireUser := middleware.RequireUser(boot.Services.AuthService)
	routes.RegisterAuthRoutes(app, boot.Handlers.AuthHandler)
	routes.RegisterOutlineRoutes(app, requireUser, boot.Handlers.OutlineHandler)
	routes.RegisterTaskRoutes(app, requireUser, boot.Handlers.TaskHandler, boot.Handlers.DocumentHandler)
	routes.SetupWebSocketRoutes(app, boot.Handlers.WSHandler)

	// 草稿写后队列消费
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	boot.Services.TaskService.StartDraftWorker(workerCtx)

	port := cfg.HttpPort
	if port == "" {
		port = "3000"
	}
	log.Println("Server running on http://localhost:" + port)
	log.Fatal(app.Listen(":" + port))
}
