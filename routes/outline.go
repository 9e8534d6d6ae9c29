package routes

import (
	"go_draft_backend/handlers"

	"github.com/gofiber/fiber/v2"
)

func RegisterOutlineRoutes(app *fiber.App, requireUser fiber.Handler, outlineHandler *handlers.OutlineHandler) {
	outline := app.Group("api/outline", requireUser)
	outline.Post("/parse", outlineHandler.Parse)
	outline.Post("/distribute", outlineHandler.Distribute)
	outline.Post("/chapter_distribute", outlineHandler.ChapterDistribute)
	outline.Post("/edit", outlineHandler.Edit)
	outline.Get("/demo", outlineHandler.Demo)
}
