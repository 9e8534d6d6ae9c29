package repository

import (
	"encoding/json"
	"fmt"
	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
	"go_draft_backend/platform/redis"

	"golang.org/x/sync/singleflight"
)

// draftRepository 草稿整体快照存 redis，key 形如 draft:<user>:<task>。
// 另有一个 last-active 指针，登录后恢复上次打开的任务用。
type draftRepository struct {
	rdb *redis.Service
	sf  singleflight.Group
}

func NewDraftRepository(rdb *redis.Service) DraftRepository {
	return &draftRepository{rdb: rdb}
}

func draftKey(userID, taskID string) string {
	return fmt.Sprintf("%s:%s", userID, taskID)
}

func (r *draftRepository) Save(userID, taskID string, draft *models.TaskDraft) error {
	if err := r.rdb.SetDraft(draftKey(userID, taskID), draft); err != nil {
		logging.Logger.Error("fail Save draft", "error", err)
		return err
	}
	return nil
}

func (r *draftRepository) Load(userID, taskID string) (*models.TaskDraft, error) {
	key := draftKey(userID, taskID)
	// 并发加载同一份草稿只打一次 redis
	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		raw, ok := r.rdb.GetDraft(key)
		if !ok {
			return nil, fmt.Errorf("draft not found: %s", key)
		}
		var draft models.TaskDraft
		if err := json.Unmarshal([]byte(raw), &draft); err != nil {
			logging.Logger.Error("fail Load draft unmarshal", "error", err)
			return nil, err
		}
		draft.Migrate()
		return &draft, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.TaskDraft), nil
}

func (r *draftRepository) Delete(userID, taskID string) error {
	return r.rdb.DelDraft(draftKey(userID, taskID))
}

func (r *draftRepository) SetActive(userID, taskID string) error {
	return r.rdb.SetDraft("active:"+userID, taskID)
}

func (r *draftRepository) GetActive(userID string) (string, bool) {
	raw, ok := r.rdb.GetDraft("active:" + userID)
	if !ok {
		return "", false
	}
	var taskID string
	if err := json.Unmarshal([]byte(raw), &taskID); err != nil {
		return "", false
	}
	return taskID, true
}
