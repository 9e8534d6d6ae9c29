package handlers

import (
	"bytes"
	"encoding/json"
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

func newOutlineApp() (*fiber.App, *services.OutlineService) {
	outline := services.NewOutlineService()
	h := NewOutlineHandler(outline, services.NewBudgetService(nil))
	app := fiber.New()
	app.Post("/api/outline/edit", h.Edit)
	return app, outline
}

func postEdit(t *testing.T, app *fiber.App, req models.OutlineEditReq) (*http.Response, fiber.Map) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq := httptest.NewRequest(http.MethodPost, "/api/outline/edit", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(httpReq)
	require.NoError(t, err)

	var parsed fiber.Map
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = json.Unmarshal(raw, &parsed)
	return resp, parsed
}

func editedStructure(t *testing.T, parsed fiber.Map) models.ParsedStructure {
	t.Helper()
	raw, err := json.Marshal(parsed["structure"])
	require.NoError(t, err)
	var structure models.ParsedStructure
	require.NoError(t, json.Unmarshal(raw, &structure))
	return structure
}

func TestOutlineEditAddChapterAndLeaf(t *testing.T) {
	app, outline := newOutlineApp()
	structure := outline.Parse("第一章 绪论\n1.1 背景")

	resp, parsed := postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "add_chapter", Title: "第二章 方法",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	structure = editedStructure(t, parsed)
	require.Len(t, structure, 2)
	assert.Equal(t, "第二章 方法", structure[1].Title)

	resp, parsed = postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "add_leaf", GroupIndex: 1, Title: "2.1 数据分析",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	structure = editedStructure(t, parsed)
	require.Len(t, structure[1].Children, 2)
	leaf := structure[1].Children[1]
	assert.Equal(t, 2, leaf.Level)
	assert.True(t, leaf.UseData)
}

func TestOutlineEditToggleAndChart(t *testing.T) {
	app, outline := newOutlineApp()
	structure := outline.Parse("第一章 绪论\n1.1 背景")

	resp, parsed := postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "cycle_chart", GroupIndex: 0, LeafIndex: 0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	structure = editedStructure(t, parsed)
	assert.Equal(t, models.ChartTable, structure[0].Children[0].ChartType)
	// 开了图表就需要数据
	assert.True(t, structure[0].Children[0].UseData)

	resp, parsed = postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "toggle_data", GroupIndex: 0, LeafIndex: 0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	structure = editedStructure(t, parsed)
	assert.False(t, structure[0].Children[0].UseData)
}

func TestOutlineEditDeleteAndSort(t *testing.T) {
	app, outline := newOutlineApp()
	structure := outline.Parse("第一章 绪论\n1.10 收尾\n1.2 方法\n1.1 背景\n第二章 总结\n2.1 回顾")

	resp, parsed := postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "sort_children", GroupIndex: 0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	structure = editedStructure(t, parsed)
	assert.Equal(t, "1.1 背景", structure[0].Children[0].Text)
	assert.Equal(t, "1.10 收尾", structure[0].Children[2].Text)

	resp, parsed = postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "delete_group", GroupIndex: 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	structure = editedStructure(t, parsed)
	require.Len(t, structure, 1)

	resp, parsed = postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "delete_leaf", GroupIndex: 0, LeafIndex: 0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	structure = editedStructure(t, parsed)
	assert.Len(t, structure[0].Children, 2)
}

func TestOutlineEditRejectsBadInput(t *testing.T) {
	app, outline := newOutlineApp()
	structure := outline.Parse("第一章 绪论\n1.1 背景")

	resp, _ := postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "insert_sub_leaf", GroupIndex: 0, LeafIndex: 99,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "delete_group", GroupIndex: 99,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "merge_groups",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postEdit(t, app, models.OutlineEditReq{
		Structure: structure, Op: "add_chapter",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
