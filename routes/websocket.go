package routes

import (
	"go_draft_backend/handlers"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func SetupWebSocketRoutes(app *fiber.App, wsHandler *handlers.WSHandler) {
	ws := app.Group("/ws")

	// WebSocket route
	ws.Use("/tasks/:task_id", wsHandler.WebSocketUpgrade)
	ws.Get("/tasks/:task_id", websocket.New(wsHandler.HandleTaskEvents))
}
