package repository

import (
	"context"
	"go_draft_backend/models"
)

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, userID, taskID string) (*models.Task, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Task, error)
	UpdateStatus(ctx context.Context, userID, taskID string, status string) error
	UpdateTitle(ctx context.Context, userID, taskID string, title string) error
	UpdateRunMeta(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID, taskID string) error
}

type DraftRepository interface {
	Save(userID, taskID string, draft *models.TaskDraft) error
	Load(userID, taskID string) (*models.TaskDraft, error)
	Delete(userID, taskID string) error
	SetActive(userID, taskID string) error
	GetActive(userID string) (string, bool)
}
