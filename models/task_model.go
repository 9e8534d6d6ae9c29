package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// TaskStatus 任务状态机
// draft → running → {completed | stopped}; running ⇄ paused; paused → stopped
// 任何状态都可以通过新的提交回到 running。
const (
	StatusDraft     = "draft"
	StatusRunning   = "running"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
)

// Task 会话级生成任务元数据
type Task struct {
	ID         string         `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	UserID     string         `gorm:"column:user_id;type:varchar(255);not null;index:idx_task_user" json:"user_id"`
	Title      string         `gorm:"column:title;type:varchar(512)" json:"title"`
	Status     string         `gorm:"column:status;type:varchar(32);default:'draft';index:idx_task_status" json:"status"`
	LeafTitles pq.StringArray `gorm:"column:leaf_titles;type:text[]" json:"leaf_titles,omitempty"`
	FileKeys   pq.StringArray `gorm:"column:file_keys;type:text[]" json:"file_keys,omitempty"`
	Timestamp  time.Time      `gorm:"column:timestamp;type:timestamp" json:"timestamp"`
}

func (Task) TableName() string {
	return "draft_tasks"
}

// BeforeCreate GORM 钩子：创建前设置默认值
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = StatusDraft
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	return nil
}

func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusStopped
}

func (t *Task) IsActive() bool {
	return t.Status == StatusRunning || t.Status == StatusPaused
}

// CanTransition 状态机校验。回到 running 只允许通过新提交（见 StartRun），
// 这里的 running 入口只覆盖 paused → running 的恢复。
func CanTransition(from, to string) bool {
	switch from {
	case StatusDraft:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusPaused || to == StatusCompleted || to == StatusStopped
	case StatusPaused:
		return to == StatusRunning || to == StatusStopped
	case StatusCompleted, StatusStopped:
		// 终态只能通过新提交复活，由调用方显式走 StartRun
		return false
	}
	return false
}

// ControlAction /control 接受的动作
const (
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionStop   = "stop"
)

// StatusForAction 控制动作对应的目标状态
func StatusForAction(action string) (string, bool) {
	switch action {
	case ActionPause:
		return StatusPaused, true
	case ActionResume:
		return StatusRunning, true
	case ActionStop:
		return StatusStopped, true
	}
	return "", false
}
