package bootstrap

import (
	"go_draft_backend/repository"
)

type Repositories struct {
	TaskRepository  repository.TaskRepository
	DraftRepository repository.DraftRepository
}

func NewRepositories(infra *Infrastructure) *Repositories {
	return &Repositories{
		TaskRepository:  repository.NewTaskRepository(infra.DB.GetDatabase()),
		DraftRepository: repository.NewDraftRepository(infra.Redis),
	}
}
