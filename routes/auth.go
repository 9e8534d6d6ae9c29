package routes

import (
	"go_draft_backend/handlers"

	"github.com/gofiber/fiber/v2"
)

func RegisterAuthRoutes(app *fiber.App, authHandler *handlers.AuthHandler) {
	auth := app.Group("api/auth")
	auth.Post("/login", authHandler.Login)
}
