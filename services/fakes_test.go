package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go_draft_backend/models"
)

// 内存实现的仓储与队列，语义对齐真实实现：
// 队列 JSON 编码后入队、弹出字符串，草稿加载未命中时报错。

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*models.Task{}}
}

func (r *fakeTaskRepo) key(userID, taskID string) string { return userID + ":" + taskID }

func (r *fakeTaskRepo) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *task
	r.tasks[r.key(task.UserID, task.ID)] = &copied
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, userID, taskID string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[r.key(userID, taskID)]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *task
	return &copied, nil
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID string) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Task
	for _, task := range r.tasks {
		if task.UserID == userID {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) UpdateStatus(_ context.Context, userID, taskID string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[r.key(userID, taskID)]
	if !ok {
		return errors.New("record not found")
	}
	task.Status = status
	return nil
}

func (r *fakeTaskRepo) UpdateTitle(_ context.Context, userID, taskID string, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[r.key(userID, taskID)]
	if !ok {
		return errors.New("record not found")
	}
	task.Title = title
	return nil
}

func (r *fakeTaskRepo) UpdateRunMeta(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[r.key(task.UserID, task.ID)]
	if !ok {
		return errors.New("record not found")
	}
	stored.Title = task.Title
	stored.Status = task.Status
	stored.LeafTitles = task.LeafTitles
	stored.FileKeys = task.FileKeys
	stored.Timestamp = task.Timestamp
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, userID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, r.key(userID, taskID))
	return nil
}

func (r *fakeTaskRepo) status(userID, taskID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[r.key(userID, taskID)]; ok {
		return task.Status
	}
	return ""
}

type fakeDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]*models.TaskDraft
	active map[string]string
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: map[string]*models.TaskDraft{}, active: map[string]string{}}
}

func (r *fakeDraftRepo) Save(userID, taskID string, draft *models.TaskDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[userID+":"+taskID] = draft
	return nil
}

func (r *fakeDraftRepo) Load(userID, taskID string) (*models.TaskDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[userID+":"+taskID]
	if !ok {
		return nil, errors.New("draft not found")
	}
	draft.Migrate()
	return draft, nil
}

func (r *fakeDraftRepo) Delete(userID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, userID+":"+taskID)
	return nil
}

func (r *fakeDraftRepo) SetActive(userID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[userID] = taskID
	return nil
}

func (r *fakeDraftRepo) GetActive(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	taskID, ok := r.active[userID]
	return taskID, ok
}

type fakeQueue struct {
	mu     sync.Mutex
	queues map[string][]string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{queues: map[string][]string{}}
}

func (q *fakeQueue) PushToQueue(queueName string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[queueName] = append(q.queues[queueName], string(payload))
	return nil
}

func (q *fakeQueue) PopFromQueue(queueName string) (interface{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[queueName]
	if len(items) == 0 {
		return nil, errors.New("queue empty")
	}
	head := items[0]
	q.queues[queueName] = items[1:]
	return head, nil
}
