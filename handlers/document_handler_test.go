package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go_draft_backend/models"
	"go_draft_backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTaskRepo struct{}

func (stubTaskRepo) Create(context.Context, *models.Task) error { return nil }
func (stubTaskRepo) GetByID(context.Context, string, string) (*models.Task, error) {
	return nil, errors.New("not found")
}
func (stubTaskRepo) ListByUser(context.Context, string) ([]*models.Task, error) { return nil, nil }
func (stubTaskRepo) UpdateStatus(context.Context, string, string, string) error { return nil }
func (stubTaskRepo) UpdateTitle(context.Context, string, string, string) error  { return nil }
func (stubTaskRepo) UpdateRunMeta(context.Context, *models.Task) error          { return nil }
func (stubTaskRepo) Delete(context.Context, string, string) error               { return nil }

type stubDraftRepo struct{}

func (stubDraftRepo) Save(string, string, *models.TaskDraft) error { return nil }
func (stubDraftRepo) Load(string, string) (*models.TaskDraft, error) {
	return nil, errors.New("no draft")
}
func (stubDraftRepo) Delete(string, string) error     { return nil }
func (stubDraftRepo) SetActive(string, string) error  { return nil }
func (stubDraftRepo) GetActive(string) (string, bool) { return "", false }

type stubQueue struct{}

func (stubQueue) PushToQueue(string, interface{}) error    { return nil }
func (stubQueue) PopFromQueue(string) (interface{}, error) { return nil, errors.New("empty") }

func newDocumentApp() (*fiber.App, *services.TaskService) {
	tasks := services.NewTaskService(stubTaskRepo{}, stubDraftRepo{}, stubQueue{}, nil)
	h := NewDocumentHandler(tasks, services.NewSectionService(nil))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", "u1")
		return c.Next()
	})
	sections := app.Group("/api/tasks/:task_id/sections")
	sections.Post("/extract", h.Extract)
	sections.Post("/edit", h.Edit)
	sections.Post("/undo", h.Undo)
	return app, tasks
}

func postSection(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, string) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func TestExtractSectionEndpoint(t *testing.T) {
	app, tasks := newDocumentApp()
	sess := tasks.Session("u1", "t1")
	sess.ApplyStreamEvent(&models.StreamEvent{
		Type: models.StreamContent,
		Md:   "# 第一章\n## 1.1 概述\n概述正文\n",
	})

	resp, body := postSection(t, app, "/api/tasks/t1/sections/extract",
		models.SectionReq{Title: "1.1 概述"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var section models.SectionResp
	require.NoError(t, json.Unmarshal([]byte(body), &section))
	assert.Equal(t, "概述正文", section.Content)
}

// 缺节时状态码和文案都来自同一个哨兵错误
func TestExtractSectionEndpointNotFound(t *testing.T) {
	app, tasks := newDocumentApp()
	tasks.Session("u1", "t1").ApplyStreamEvent(&models.StreamEvent{
		Type: models.StreamContent,
		Md:   "## 1.1 概述\n概述正文\n",
	})

	resp, body := postSection(t, app, "/api/tasks/t1/sections/extract",
		models.SectionReq{Title: "不存在的节"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, services.ErrSectionNotFound.Error(), body)
}

func TestEditThenUndoEndpoint(t *testing.T) {
	app, tasks := newDocumentApp()
	tasks.Session("u1", "t1").ApplyStreamEvent(&models.StreamEvent{
		Type: models.StreamContent,
		Md:   "## 1.1 概述\n旧内容\n",
	})

	resp, _ := postSection(t, app, "/api/tasks/t1/sections/edit",
		models.ManualEditReq{Title: "1.1 概述", Content: "新内容"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postSection(t, app, "/api/tasks/t1/sections/undo",
		models.SectionReq{Title: "1.1 概述"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "旧内容")

	// 没有历史可退时 404
	resp, _ = postSection(t, app, "/api/tasks/t1/sections/undo",
		models.SectionReq{Title: "1.2 没有的节"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
