package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"go_draft_backend/config"
	"go_draft_backend/middleware"
	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
	"go_draft_backend/platform/storage"
	"go_draft_backend/services"

	"github.com/gofiber/fiber/v2"
)

type TaskHandler struct {
	tasks   *services.TaskService
	stream  *services.StreamService
	writer  *services.WriterClient
	outline *services.OutlineService
	storage *storage.Service
	cfg     *config.Config
}

func NewTaskHandler(tasks *services.TaskService, stream *services.StreamService,
	writer *services.WriterClient, outline *services.OutlineService,
	store *storage.Service, cfg *config.Config) *TaskHandler {
	return &TaskHandler{
		tasks:   tasks,
		stream:  stream,
		writer:  writer,
		outline: outline,
		storage: store,
		cfg:     cfg,
	}
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	tasks, err := h.tasks.ListTasks(c.Context(), middleware.UserID(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "任务列表加载失败")
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req models.CreateTaskReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		req.Title = "未命名任务"
	}
	task, err := h.tasks.CreateTask(c.Context(), middleware.UserID(c), req.Title)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "任务创建失败")
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// Get 任务元数据 + 当前草稿快照
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	taskID := c.Params("task_id")
	task, err := h.tasks.GetTask(c.Context(), userID, taskID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "任务不存在")
	}
	sess := h.tasks.Session(userID, taskID)
	return c.JSON(fiber.Map{"task": task, "draft": sess.ToDraft()})
}

// Switch 切到某个任务，记录 last-active 指针
func (h *TaskHandler) Switch(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	taskID := c.Params("task_id")
	if _, err := h.tasks.GetTask(c.Context(), userID, taskID); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "任务不存在")
	}
	sess := h.tasks.SwitchTask(userID, taskID)
	return c.JSON(fiber.Map{"status": "success", "draft": sess.ToDraft()})
}

// Active 上次打开的任务，登录恢复用
func (h *TaskHandler) Active(c *fiber.Ctx) error {
	taskID, ok := h.tasks.ActiveTaskID(middleware.UserID(c))
	return c.JSON(fiber.Map{"task_id": taskID, "found": ok})
}

// Delete 删除任务，级联草稿、内存会话、归档文件；在途流先取消
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	taskID := c.Params("task_id")

	h.stream.Cancel(userID, taskID)
	task, err := h.tasks.DeleteTask(c.Context(), userID, taskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "任务不存在")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "任务删除失败")
	}
	for _, key := range task.FileKeys {
		if err := h.storage.RemoveObject(c.Context(), key); err != nil {
			logging.Logger.Error("fail remove archived file", "error", err)
		}
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// Files 列出任务归档的数据文件，带限时下载地址。
// 对象可能被后台清掉，逐个探活，丢失的标记出来不给签名。
func (h *TaskHandler) Files(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	taskID := c.Params("task_id")

	task, err := h.tasks.GetTask(c.Context(), userID, taskID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "任务不存在")
	}

	files := make([]fiber.Map, 0, len(task.FileKeys))
	for _, key := range task.FileKeys {
		exists, err := h.storage.FileExists(c.Context(), key)
		if err != nil {
			logging.Logger.Error("fail stat archived file", "error", err, "key", key)
			continue
		}
		if !exists {
			files = append(files, fiber.Map{"file_key": key, "available": false})
			continue
		}
		url, err := h.storage.GeneratePresignedGetDownload(c.Context(), key, 15*time.Minute)
		if err != nil {
			logging.Logger.Error("fail presign archived file", "error", err, "key", key)
			continue
		}
		files = append(files, fiber.Map{"file_key": key, "available": true, "url": url})
	}
	return c.JSON(fiber.Map{"files": files})
}

// Control 暂停/继续/停止。先过本地状态机，再转发给生成后端；
// 停止会同时掐掉本地对账器，不再重连。
func (h *TaskHandler) Control(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	taskID := c.Params("task_id")
	var req models.ControlReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	status, err := h.tasks.Control(c.Context(), userID, taskID, req.Action)
	if err != nil {
		if errors.Is(err, services.ErrBadTransition) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if errors.Is(err, services.ErrTaskNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "任务不存在")
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if req.Action == models.ActionStop {
		h.stream.Cancel(userID, taskID)
	}
	if err := h.writer.Control(c.Context(), userID, taskID, req.Action); err != nil {
		logging.Logger.Error("fail forward control", "error", err)
	}
	return c.JSON(fiber.Map{"status": "success", "task_status": status})
}

// Clear 清空正文回草稿态，配置保留
func (h *TaskHandler) Clear(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	taskID := c.Params("task_id")
	h.stream.Cancel(userID, taskID)
	if err := h.tasks.ClearResults(c.Context(), userID, taskID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "清空失败")
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// Generate 提交一次生成：校验结构 → 归档数据文件 → 提交后端 → 起对账器。
// 空大纲是硬失败，不会部分提交。
func (h *TaskHandler) Generate(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	taskID := c.Params("task_id")

	task, err := h.tasks.GetTask(c.Context(), userID, taskID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "任务不存在")
	}

	title := c.FormValue("title")
	if title == "" {
		title = "未命名任务"
	}
	var structure models.ParsedStructure
	rawStructure := c.FormValue("structure")
	if rawStructure != "" {
		if err := json.Unmarshal([]byte(rawStructure), &structure); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "structure 解析失败")
		}
	}
	if len(structure) == 0 {
		// 没传结构就从原始大纲现场解析一次
		structure = h.outline.Parse(c.FormValue("outline"))
	}
	if len(structure) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, services.ErrEmptyOutline.Error())
	}

	sess := h.tasks.Session(userID, taskID)
	sess.SetMeta(title, c.FormValue("outline"), c.FormValue("ref_domestic"),
		c.FormValue("ref_foreign"), c.FormValue("custom_data"))
	sess.SetStructure(structure)

	files, fileKeys, err := h.collectDataFiles(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	flat := h.outline.Flatten(structure)
	var leafTitles []string
	for _, ft := range flat {
		if !ft.IsParent {
			leafTitles = append(leafTitles, ft.Title)
		}
	}

	sub := &models.GenerateSubmission{
		TaskID:         taskID,
		Title:          title,
		RefDomestic:    c.FormValue("ref_domestic"),
		RefForeign:     c.FormValue("ref_foreign"),
		CustomData:     c.FormValue("custom_data"),
		InitialContext: sess.InitialContext(),
		Tasks:          flat,
		Files:          files,
	}
	if err := h.writer.StartGenerate(c.Context(), userID, sub); err != nil {
		logging.Logger.Error("fail StartGenerate", "error", err)
		h.tasks.MarkStopped(c.Context(), userID, taskID)
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("任务启动失败: %v", err))
	}

	task.Title = title
	task.LeafTitles = leafTitles
	task.FileKeys = fileKeys
	if err := h.tasks.StartRun(c.Context(), task); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "任务状态更新失败")
	}

	// 新一轮提交后端会重建事件序列，游标归零重新对账
	sess.ResetEventIndex()
	sess.AppendLog("✅ 任务启动，建立连接...")
	h.tasks.QueueSave(sess)
	h.stream.Start(sess)

	return c.JSON(fiber.Map{"status": "success", "msg": "任务已启动"})
}

// collectDataFiles 读上传文件并归档一份到对象存储。
// 归档失败不阻塞提交，只少一份备份。
func (h *TaskHandler) collectDataFiles(c *fiber.Ctx) ([]models.DataFile, []string, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil, nil
	}
	var files []models.DataFile
	var fileKeys []string
	for _, fh := range form.File["data_files"] {
		if fh.Size > h.cfg.MaxFileSize {
			return nil, nil, fmt.Errorf("文件 %s 超过大小限制", fh.Filename)
		}
		content, err := readMultipartFile(fh)
		if err != nil {
			return nil, nil, fmt.Errorf("文件 %s 读取失败", fh.Filename)
		}
		files = append(files, models.DataFile{Name: fh.Filename, Content: content})

		ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
		key, err := h.storage.UploadObject(ctx, fh.Filename, content, fh.Header.Get("Content-Type"))
		cancel()
		if err != nil {
			logging.Logger.Error("fail archive data file", "error", err)
			continue
		}
		fileKeys = append(fileKeys, key)
	}
	return files, fileKeys, nil
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func(f multipart.File) {
		if err := f.Close(); err != nil {
			logging.Logger.Error("fail close upload file", "error", err)
		}
	}(f)
	return io.ReadAll(f)
}

// ExportMarkdown 原样导出正文
func (h *TaskHandler) ExportMarkdown(c *fiber.Ctx) error {
	sess := h.tasks.Session(middleware.UserID(c), c.Params("task_id"))
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="thesis.md"`)
	return c.SendString(sess.Content())
}

// ExportDocx markdown 转 docx，转换在生成后端做
func (h *TaskHandler) ExportDocx(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	var req models.ExportReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	content := req.Content
	if content == "" {
		content = h.tasks.Session(userID, c.Params("task_id")).Content()
	}
	if content == "" {
		return fiber.NewError(fiber.StatusBadRequest, "无内容可导出")
	}
	data, err := h.writer.ExportDocx(c.Context(), userID, content)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "导出失败")
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="thesis.docx"`)
	return c.Send(data)
}
