package bootstrap

import (
	"go_draft_backend/config"
	"go_draft_backend/services"
)

type Services struct {
	WriterClient   *services.WriterClient
	AuthService    *services.AuthService
	OutlineService *services.OutlineService
	BudgetService  *services.BudgetService
	SectionService *services.SectionService
	TaskService    *services.TaskService
	StreamService  *services.StreamService
}

func NewServices(cfg *config.Config, repos *Repositories, infra *Infrastructure) *Services {
	res := &Services{}

	writer := services.NewWriterClient(cfg)
	res.WriterClient = writer

	res.AuthService = services.NewAuthService(writer, infra.Cache, cfg.AuthCacheTTL)
	res.OutlineService = services.NewOutlineService()
	res.BudgetService = services.NewBudgetService(writer)
	res.SectionService = services.NewSectionService(writer)

	taskService := services.NewTaskService(repos.TaskRepository, repos.DraftRepository,
		infra.Queue, infra.EventPublisher)
	res.TaskService = taskService

	res.StreamService = services.NewStreamService(writer, taskService,
		infra.EventPublisher, cfg.StreamRetryDelay)
	return res
}
