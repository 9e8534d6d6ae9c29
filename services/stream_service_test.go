package services

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go_draft_backend/config"
	"go_draft_backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamFixture(baseURL string, retry time.Duration) (*StreamService, *TaskService, *fakeTaskRepo) {
	repo := newFakeTaskRepo()
	tasks := NewTaskService(repo, newFakeDraftRepo(), newFakeQueue(), nil)
	writer := NewWriterClient(&config.Config{WriterBaseURL: baseURL})
	return NewStreamService(writer, tasks, nil, retry), tasks, repo
}

func TestScanEventFrames(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("第一帧\n\n第二帧\n\n残帧"))
	scanner.Split(scanEventFrames)

	var frames []string
	for scanner.Scan() {
		frames = append(frames, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"第一帧", "第二帧", "残帧"}, frames)
}

func TestConsumeFrames(t *testing.T) {
	stream, _, _ := newStreamFixture("http://unused", time.Millisecond)
	sess := NewDocumentSession("u1", "t1")

	payload := ": keep-alive\n\n" +
		"data: {\"type\":\"log\",\"msg\":\"任务启动\"}\n\n" +
		"data: {\"type\":\"content\",\"md\":\"## 摘要\\n第一段\"}\n\n" +
		"data: 不是JSON的帧\n\n" +
		"data: {\"type\":\"content\",\"md\":\"第二段\"}\n\n" +
		"data: {\"type\":\"done\"}\n\n"

	done, err := stream.consume(context.Background(), sess, strings.NewReader(payload))
	require.NoError(t, err)
	assert.True(t, done)

	// keep-alive 和坏帧不推游标，三条有效帧 + done
	assert.Equal(t, 4, sess.EventIndex())
	assert.Equal(t, "## 摘要\n第一段第二段", sess.Content())
}

func TestConsumeStopsWithoutDone(t *testing.T) {
	stream, _, _ := newStreamFixture("http://unused", time.Millisecond)
	sess := NewDocumentSession("u1", "t1")

	done, err := stream.consume(context.Background(), sess,
		strings.NewReader("data: {\"type\":\"content\",\"md\":\"片段\"}\n\n"))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, sess.EventIndex())
}

// 断流后带游标重连：第二次请求携带 last_index，已消费的帧不重放
func TestRunResumesAfterDrop(t *testing.T) {
	var mu sync.Mutex
	var lastIndexes []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lastIndexes = append(lastIndexes, r.URL.Query().Get("last_index"))
		attempt := len(lastIndexes)
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		if attempt == 1 {
			// 发两帧后断流，不发 done
			fmt.Fprint(w, "data: {\"type\":\"content\",\"md\":\"第一段\"}\n\n")
			fmt.Fprint(w, "data: {\"type\":\"content\",\"md\":\"第二段\"}\n\n")
			return
		}
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
	}))
	defer srv.Close()

	stream, tasks, repo := newStreamFixture(srv.URL, 10*time.Millisecond)
	require.NoError(t, repo.Create(context.Background(), &models.Task{
		ID: "t1", UserID: "u1", Status: models.StatusRunning,
	}))

	sess := tasks.Session("u1", "t1")
	stream.Start(sess)

	require.Eventually(t, func() bool {
		return repo.status("u1", "t1") == models.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, sess.EventIndex())
	assert.Equal(t, "第一段第二段", sess.Content())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0", "2"}, lastIndexes)
}

func TestCancelStopsReconnect(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	stream, tasks, _ := newStreamFixture(srv.URL, 5*time.Millisecond)
	sess := tasks.Session("u1", "t2")
	stream.Start(sess)

	require.Eventually(t, func() bool {
		return attempts.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	stream.Cancel("u1", "t2")
	time.Sleep(50 * time.Millisecond)
	settled := attempts.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, attempts.Load())
}

// 任务在跑时重新提交：旧对账器被换下后，它的收尾不能连累新对账器。
// 第一条连接一直挂着不发 done，换上的新连接才给 done。
func TestRestartWhileStreamHeld(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			// 挂住第一条连接，直到旧对账器被取消
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			<-r.Context().Done()
			return
		}
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
	}))
	defer srv.Close()

	stream, tasks, repo := newStreamFixture(srv.URL, 10*time.Millisecond)
	require.NoError(t, repo.Create(context.Background(), &models.Task{
		ID: "t4", UserID: "u1", Status: models.StatusRunning,
	}))

	sess := tasks.Session("u1", "t4")
	stream.Start(sess)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return conns >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// 重新提交，换上新对账器
	stream.Start(sess)

	require.Eventually(t, func() bool {
		return repo.status("u1", "t4") == models.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, conns, 2)
}

func TestStartReplacesExistingReconciler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
	}))
	defer srv.Close()

	stream, tasks, repo := newStreamFixture(srv.URL, 5*time.Millisecond)
	require.NoError(t, repo.Create(context.Background(), &models.Task{
		ID: "t3", UserID: "u1", Status: models.StatusRunning,
	}))

	sess := tasks.Session("u1", "t3")
	stream.Start(sess)
	stream.Start(sess)

	require.Eventually(t, func() bool {
		return repo.status("u1", "t3") == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
