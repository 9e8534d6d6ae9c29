package bootstrap

import (
	"go_draft_backend/config"
	"go_draft_backend/handlers"
)

type Handlers struct {
	AuthHandler     *handlers.AuthHandler
	OutlineHandler  *handlers.OutlineHandler
	TaskHandler     *handlers.TaskHandler
	DocumentHandler *handlers.DocumentHandler
	WSHandler       *handlers.WSHandler
}

func NewHandlers(cfg *config.Config, services *Services, infra *Infrastructure) *Handlers {
	res := &Handlers{}
	res.AuthHandler = handlers.NewAuthHandler(services.AuthService)
	res.OutlineHandler = handlers.NewOutlineHandler(services.OutlineService, services.BudgetService)
	res.TaskHandler = handlers.NewTaskHandler(services.TaskService, services.StreamService,
		services.WriterClient, services.OutlineService, infra.Storage, cfg)
	res.DocumentHandler = handlers.NewDocumentHandler(services.TaskService, services.SectionService)
	res.WSHandler = handlers.NewWSHandler(infra.EventPublisher)
	return res
}
