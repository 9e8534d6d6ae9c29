package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
	"go_draft_backend/platform/cache"
	"go_draft_backend/platform/events"
	"go_draft_backend/repository"

	"github.com/google/uuid"
)

const draftSaveQueue = "draft_saves"

type draftSaveMsg struct {
	UserID string            `json:"user_id"`
	TaskID string            `json:"task_id"`
	Draft  *models.TaskDraft `json:"draft"`
}

// TaskService 任务生命周期 + 会话注册表 + 草稿落盘。
// 草稿保存走写后队列，最后写入者胜出。
type TaskService struct {
	repo      repository.TaskRepository
	drafts    repository.DraftRepository
	queue     cache.MessageQueue
	publisher *events.EventPublisher

	mu       sync.Mutex
	sessions map[string]*DocumentSession
}

func NewTaskService(repo repository.TaskRepository, drafts repository.DraftRepository,
	queue cache.MessageQueue, publisher *events.EventPublisher) *TaskService {
	return &TaskService{
		repo:      repo,
		drafts:    drafts,
		queue:     queue,
		publisher: publisher,
		sessions:  map[string]*DocumentSession{},
	}
}

func sessionKey(userID, taskID string) string {
	return userID + ":" + taskID
}

// ---------- 任务 CRUD ----------

func (t *TaskService) CreateTask(ctx context.Context, userID, title string) (*models.Task, error) {
	task := &models.Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Status:    models.StatusDraft,
		Timestamp: time.Now(),
	}
	if err := t.repo.Create(ctx, task); err != nil {
		logging.Logger.Error("fail CreateTask", "error", err)
		return nil, err
	}
	if err := t.drafts.SetActive(userID, task.ID); err != nil {
		logging.Logger.Error("fail CreateTask set active", "error", err)
	}
	return task, nil
}

func (t *TaskService) ListTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	return t.repo.ListByUser(ctx, userID)
}

func (t *TaskService) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := t.repo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// DeleteTask 删除任务并级联草稿和内存会话。返回被删任务，
// 调用方据此清理归档的数据文件。
func (t *TaskService) DeleteTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := t.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := t.repo.Delete(ctx, userID, taskID); err != nil {
		logging.Logger.Error("fail DeleteTask", "error", err)
		return nil, err
	}
	if err := t.drafts.Delete(userID, taskID); err != nil {
		logging.Logger.Error("fail DeleteTask draft", "error", err)
	}
	t.mu.Lock()
	delete(t.sessions, sessionKey(userID, taskID))
	t.mu.Unlock()
	return task, nil
}

// ---------- 会话 ----------

// Session 取会话：内存里有就用，没有就从草稿恢复，再没有就新建。
func (t *TaskService) Session(userID, taskID string) *DocumentSession {
	key := sessionKey(userID, taskID)
	t.mu.Lock()
	defer t.mu.Unlock()
	if sess, ok := t.sessions[key]; ok {
		return sess
	}
	var sess *DocumentSession
	if draft, err := t.drafts.Load(userID, taskID); err == nil {
		sess = FromDraft(userID, taskID, draft)
	} else {
		sess = NewDocumentSession(userID, taskID)
	}
	t.sessions[key] = sess
	return sess
}

// SwitchTask 记录用户当前打开的任务，登录恢复用
func (t *TaskService) SwitchTask(userID, taskID string) *DocumentSession {
	if err := t.drafts.SetActive(userID, taskID); err != nil {
		logging.Logger.Error("fail SwitchTask", "error", err)
	}
	return t.Session(userID, taskID)
}

// ActiveTaskID 上次打开的任务
func (t *TaskService) ActiveTaskID(userID string) (string, bool) {
	return t.drafts.GetActive(userID)
}

// QueueSave 把会话快照排进写后队列，不阻塞调用方
func (t *TaskService) QueueSave(sess *DocumentSession) {
	msg := draftSaveMsg{UserID: sess.UserID, TaskID: sess.TaskID, Draft: sess.ToDraft()}
	if err := t.queue.PushToQueue(draftSaveQueue, msg); err != nil {
		logging.Logger.Error("fail QueueSave", "error", err)
	}
}

// StartDraftWorker 后台消费草稿保存队列。同一任务排了多条时
// 后写的覆盖先写的，正好是要的语义。
func (t *TaskService) StartDraftWorker(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			raw, err := t.queue.PopFromQueue(draftSaveQueue)
			if err != nil {
				time.Sleep(200 * time.Millisecond)
				continue
			}
			payload, ok := raw.(string)
			if !ok {
				continue
			}
			var msg draftSaveMsg
			if err := json.Unmarshal([]byte(payload), &msg); err != nil {
				logging.Logger.Error("fail draft worker unmarshal", "error", err)
				continue
			}
			if msg.Draft == nil {
				continue
			}
			if err := t.drafts.Save(msg.UserID, msg.TaskID, msg.Draft); err != nil {
				logging.Logger.Error("fail draft worker save", "error", err)
			}
		}
	}()
}

// ---------- 状态机 ----------

// Control 校验并应用控制动作，广播状态变更。
// 转移非法时拒绝，数据库保持原状。
func (t *TaskService) Control(ctx context.Context, userID, taskID, action string) (string, error) {
	target, ok := models.StatusForAction(action)
	if !ok {
		return "", fmt.Errorf("未知的控制动作: %s", action)
	}
	task, err := t.GetTask(ctx, userID, taskID)
	if err != nil {
		return "", err
	}
	if !models.CanTransition(task.Status, target) {
		return "", fmt.Errorf("%w: %s -> %s", ErrBadTransition, task.Status, target)
	}
	if err := t.repo.UpdateStatus(ctx, userID, taskID, target); err != nil {
		logging.Logger.Error("fail Control", "error", err)
		return "", err
	}
	t.publishStatus(userID, taskID, target)
	return target, nil
}

// StartRun 一次新提交把任务拉回 running，终态也能复活。
// 同时写回运行元数据（标题、叶子清单、数据文件 key）。
func (t *TaskService) StartRun(ctx context.Context, task *models.Task) error {
	task.Status = models.StatusRunning
	task.Timestamp = time.Now()
	if err := t.repo.UpdateRunMeta(ctx, task); err != nil {
		logging.Logger.Error("fail StartRun", "error", err)
		return err
	}
	t.publishStatus(task.UserID, task.ID, models.StatusRunning)
	return nil
}

// Complete 流结束时收尾。停止态不被覆盖。
func (t *TaskService) Complete(ctx context.Context, userID, taskID string) {
	task, err := t.GetTask(ctx, userID, taskID)
	if err != nil {
		return
	}
	if !models.CanTransition(task.Status, models.StatusCompleted) {
		return
	}
	if err := t.repo.UpdateStatus(ctx, userID, taskID, models.StatusCompleted); err != nil {
		logging.Logger.Error("fail Complete", "error", err)
		return
	}
	t.publishStatus(userID, taskID, models.StatusCompleted)
}

// MarkStopped 后台异常时强制停机，跳过状态机校验
func (t *TaskService) MarkStopped(ctx context.Context, userID, taskID string) {
	if err := t.repo.UpdateStatus(ctx, userID, taskID, models.StatusStopped); err != nil {
		logging.Logger.Error("fail MarkStopped", "error", err)
		return
	}
	t.publishStatus(userID, taskID, models.StatusStopped)
}

// ClearResults 清空正文回到草稿态，配置保留
func (t *TaskService) ClearResults(ctx context.Context, userID, taskID string) error {
	sess := t.Session(userID, taskID)
	sess.ClearContent()
	if err := t.repo.UpdateStatus(ctx, userID, taskID, models.StatusDraft); err != nil {
		logging.Logger.Error("fail ClearResults", "error", err)
		return err
	}
	t.QueueSave(sess)
	t.publishStatus(userID, taskID, models.StatusDraft)
	return nil
}

func (t *TaskService) publishStatus(userID, taskID, status string) {
	if t.publisher == nil {
		return
	}
	err := t.publisher.PublishTaskEvent(&models.TaskEvent{
		Type:   models.EventTaskStatus,
		TaskID: taskID,
		UserID: userID,
		Status: status,
	})
	if err != nil {
		logging.Logger.Error("fail publishStatus", "error", err)
	}
}
