package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
	"go_draft_backend/platform/events"
)

// StreamService 进度流对账器。每个运行中的任务一条消费 goroutine：
// 断流后带着事件游标重连，已消费的帧不会重放；用户主动停止/切换/删除
// 通过 ctx 取消，取消后不再重连。
type StreamService struct {
	writer     *WriterClient
	tasks      *TaskService
	publisher  *events.EventPublisher
	retryDelay time.Duration

	mu      sync.Mutex
	handles map[string]*streamHandle
}

// streamHandle 一轮对账的取消句柄。每轮 run 持有自己的句柄，
// 退出时只清理自己的注册项——重提交换上的新对账器不受旧轮收尾影响。
type streamHandle struct {
	cancel context.CancelFunc
}

func NewStreamService(writer *WriterClient, tasks *TaskService,
	publisher *events.EventPublisher, retryDelay time.Duration) *StreamService {
	return &StreamService{
		writer:     writer,
		tasks:      tasks,
		publisher:  publisher,
		retryDelay: retryDelay,
		handles:    map[string]*streamHandle{},
	}
}

// Start 为会话启动对账。同一任务已有对账器时先取消旧的再开新的。
func (s *StreamService) Start(sess *DocumentSession) {
	key := sessionKey(sess.UserID, sess.TaskID)
	ctx, cancel := context.WithCancel(context.Background())
	handle := &streamHandle{cancel: cancel}

	s.mu.Lock()
	if old, ok := s.handles[key]; ok {
		old.cancel()
	}
	s.handles[key] = handle
	s.mu.Unlock()

	go s.run(ctx, sess, handle)
}

// Cancel 用户主动停止：取消后重连循环立即退出
func (s *StreamService) Cancel(userID, taskID string) {
	key := sessionKey(userID, taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle, ok := s.handles[key]; ok {
		handle.cancel()
		delete(s.handles, key)
	}
}

// release 本轮收尾。句柄比对保证只摘掉自己注册的那一项。
func (s *StreamService) release(userID, taskID string, own *streamHandle) {
	own.cancel()
	key := sessionKey(userID, taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[key] == own {
		delete(s.handles, key)
	}
}

func (s *StreamService) run(ctx context.Context, sess *DocumentSession, own *streamHandle) {
	defer s.release(sess.UserID, sess.TaskID, own)

	for {
		body, err := s.writer.OpenStream(ctx, sess.UserID, sess.TaskID, sess.EventIndex())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Logger.Warn("stream connect failed, retrying", "task", sess.TaskID, "error", err)
			s.publishLog(sess, "⚠️ 连接波动，重试中...")
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		done, err := s.consume(ctx, sess, body)
		closeBody(body)

		if done {
			s.finish(ctx, sess)
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logging.Logger.Warn("stream disrupted, retrying", "task", sess.TaskID, "error", err)
		}
		// 流在 done 之前断了，带游标重连
		if !s.sleep(ctx) {
			return
		}
	}
}

func (s *StreamService) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.retryDelay):
		return true
	}
}

// consume 逐帧消费直到流断开或 done。帧以空行分隔；data: 前缀的帧
// 才携带事件，keep-alive 注释帧直接丢弃。解析失败的帧跳过不中断。
func (s *StreamService) consume(ctx context.Context, sess *DocumentSession, r io.Reader) (done bool, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanEventFrames)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		frame := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(frame, "data: ") {
			continue
		}
		var ev models.StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev); err != nil {
			logging.Logger.Error("fail parse stream frame", "error", err)
			continue
		}
		if s.apply(sess, &ev) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func (s *StreamService) apply(sess *DocumentSession, ev *models.StreamEvent) (done bool) {
	done = sess.ApplyStreamEvent(ev)
	if done {
		return true
	}
	if ev.Type == models.StreamContent {
		s.tasks.QueueSave(sess)
	}
	if s.publisher != nil {
		err := s.publisher.PublishTaskEvent(&models.TaskEvent{
			Type:   models.TaskEventType(ev.Type),
			TaskID: sess.TaskID,
			UserID: sess.UserID,
			Index:  sess.EventIndex(),
			Msg:    ev.Msg,
			Md:     ev.Md,
		})
		if err != nil {
			logging.Logger.Error("fail publish stream event", "error", err)
		}
	}
	return false
}

func (s *StreamService) finish(ctx context.Context, sess *DocumentSession) {
	sess.AppendLog("🎉 生成完成")
	s.tasks.Complete(ctx, sess.UserID, sess.TaskID)
	s.tasks.QueueSave(sess)
	if s.publisher != nil {
		err := s.publisher.PublishTaskEvent(&models.TaskEvent{
			Type:   models.EventTaskDone,
			TaskID: sess.TaskID,
			UserID: sess.UserID,
			Index:  sess.EventIndex(),
		})
		if err != nil {
			logging.Logger.Error("fail publish done event", "error", err)
		}
	}
}

func (s *StreamService) publishLog(sess *DocumentSession, msg string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishTaskEvent(&models.TaskEvent{
		Type:   models.EventTaskLog,
		TaskID: sess.TaskID,
		UserID: sess.UserID,
		Index:  sess.EventIndex(),
		Msg:    msg,
	})
	if err != nil {
		logging.Logger.Error("fail publishLog", "error", err)
	}
}

// scanEventFrames 按空行切帧的 bufio.SplitFunc
func scanEventFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
