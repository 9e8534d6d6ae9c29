package routes

import (
	"go_draft_backend/handlers"

	"github.com/gofiber/fiber/v2"
)

func RegisterTaskRoutes(app *fiber.App, requireUser fiber.Handler,
	taskHandler *handlers.TaskHandler, docHandler *handlers.DocumentHandler) {
	tasks := app.Group("api/tasks", requireUser)

	tasks.Get("/", taskHandler.List)
	tasks.Post("/", taskHandler.Create)
	tasks.Get("/active", taskHandler.Active)
	tasks.Get("/:task_id", taskHandler.Get)
	tasks.Get("/:task_id/files", taskHandler.Files)
	tasks.Delete("/:task_id", taskHandler.Delete)
	tasks.Post("/:task_id/switch", taskHandler.Switch)
	tasks.Post("/:task_id/control", taskHandler.Control)
	tasks.Post("/:task_id/clear", taskHandler.Clear)
	tasks.Post("/:task_id/generate", taskHandler.Generate)
	tasks.Get("/:task_id/export/markdown", taskHandler.ExportMarkdown)
	tasks.Post("/:task_id/export/docx", taskHandler.ExportDocx)

	// 段操作，标题都在请求体里
	sections := tasks.Group("/:task_id/sections")
	sections.Post("/extract", docHandler.Extract)
	sections.Post("/edit", docHandler.Edit)
	sections.Post("/rewrite", docHandler.Rewrite)
	sections.Post("/refine", docHandler.Refine)
	sections.Post("/undo", docHandler.Undo)
	sections.Post("/delete", docHandler.Delete)
}
