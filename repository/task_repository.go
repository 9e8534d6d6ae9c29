package repository

import (
	"context"
	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"

	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, userID, taskID string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByUser(ctx context.Context, userID string) ([]*models.Task, error) {
	var res []*models.Task
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp DESC").Find(&res).Error
	if err != nil {
		logging.Logger.Error("fail ListByUser", "error", err)
		return nil, err
	}
	return res, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, userID, taskID string, status string) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Update("status", status).Error
}

func (r *taskRepository) UpdateTitle(ctx context.Context, userID, taskID string, title string) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Update("title", title).Error
}

// UpdateRunMeta 一次提交开始时写回标题、叶子清单和数据文件 key
func (r *taskRepository) UpdateRunMeta(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"status":      task.Status,
			"leaf_titles": task.LeafTitles,
			"file_keys":   task.FileKeys,
			"timestamp":   task.Timestamp,
		}).Error
}

func (r *taskRepository) Delete(ctx context.Context, userID, taskID string) error {
	return r.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).Delete(&models.Task{}).Error
}
