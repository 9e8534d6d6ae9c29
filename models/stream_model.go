package models

import "time"

// StreamEventType 上游 SSE 帧的 type 判别字段
type StreamEventType string

const (
	StreamLog     StreamEventType = "log"
	StreamContent StreamEventType = "content"
	StreamDone    StreamEventType = "done"
)

// StreamEvent 上游 data: 帧的 JSON 载荷
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	Msg  string          `json:"msg,omitempty"`
	Md   string          `json:"md,omitempty"`
}

// TaskEventType 本服务向 UI 客户端广播的事件类型
type TaskEventType string

const (
	EventTaskLog     TaskEventType = "log"
	EventTaskContent TaskEventType = "content"
	EventTaskStatus  TaskEventType = "status"
	EventTaskDone    TaskEventType = "done"
)

// TaskEvent 经 Redis pub/sub 广播、由 websocket 推给前端的进度事件
type TaskEvent struct {
	Type      TaskEventType `json:"type"`
	TaskID    string        `json:"task_id"`
	UserID    string        `json:"user_id"`
	Index     int           `json:"index"`
	Status    string        `json:"status,omitempty"`
	Msg       string        `json:"msg,omitempty"`
	Md        string        `json:"md,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
