package handlers

import (
	"errors"

	"go_draft_backend/middleware"
	"go_draft_backend/models"
	"go_draft_backend/services"

	"github.com/gofiber/fiber/v2"
)

// DocumentHandler 正文段操作。段标题带斜杠点号空格，全部走请求体。
type DocumentHandler struct {
	tasks    *services.TaskService
	sections *services.SectionService
}

func NewDocumentHandler(tasks *services.TaskService, sections *services.SectionService) *DocumentHandler {
	return &DocumentHandler{tasks: tasks, sections: sections}
}

func (h *DocumentHandler) session(c *fiber.Ctx) *services.DocumentSession {
	return h.tasks.Session(middleware.UserID(c), c.Params("task_id"))
}

// Extract 取某节正文
func (h *DocumentHandler) Extract(c *fiber.Ctx) error {
	var req models.SectionReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	content, found := h.session(c).ExtractSection(req.Title)
	if !found {
		return fiber.NewError(fiber.StatusNotFound, services.ErrSectionNotFound.Error())
	}
	return c.JSON(models.SectionResp{Title: req.Title, Content: content})
}

// Edit 人工修订：整段替换，旧内容进撤销历史
func (h *DocumentHandler) Edit(c *fiber.Ctx) error {
	var req models.ManualEditReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return fiber.NewError(fiber.StatusBadRequest, "缺少章节标题")
	}
	sess := h.session(c)
	appended := sess.ReplaceSection(req.Title, req.Content)
	h.tasks.QueueSave(sess)
	content, _ := sess.ExtractSection(req.Title)
	return c.JSON(fiber.Map{
		"status":   "success",
		"appended": appended,
		"section":  models.SectionResp{Title: req.Title, Content: content},
	})
}

// Rewrite AI 整段重写
func (h *DocumentHandler) Rewrite(c *fiber.Ctx) error {
	var req models.RewriteReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Title == "" || req.Instruction == "" {
		return fiber.NewError(fiber.StatusBadRequest, "缺少章节标题或修改指令")
	}
	sess := h.session(c)
	content, err := h.sections.Rewrite(c.Context(), sess, req.Title, req.Instruction)
	if err != nil {
		return sectionOpError(err)
	}
	h.tasks.QueueSave(sess)
	return c.JSON(fiber.Map{"status": "success", "content": content})
}

// Refine 精简到大纲目标字数
func (h *DocumentHandler) Refine(c *fiber.Ctx) error {
	var req models.SectionReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	sess := h.session(c)
	content, err := h.sections.Refine(c.Context(), sess, req.Title)
	if err != nil {
		return sectionOpError(err)
	}
	h.tasks.QueueSave(sess)
	return c.JSON(fiber.Map{"status": "success", "content": content})
}

// Undo 回退某节到上一版。连按两次等于换回来。
func (h *DocumentHandler) Undo(c *fiber.Ctx) error {
	var req models.SectionReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	sess := h.session(c)
	if err := sess.Undo(req.Title); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	h.tasks.QueueSave(sess)
	content, _ := sess.ExtractSection(req.Title)
	return c.JSON(fiber.Map{
		"status":  "success",
		"section": models.SectionResp{Title: req.Title, Content: content},
	})
}

// Delete 清空某节正文，标题保留，可撤销
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	var req models.SectionReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	sess := h.session(c)
	sess.DeleteSection(req.Title)
	h.tasks.QueueSave(sess)
	return c.JSON(fiber.Map{"status": "success"})
}

func sectionOpError(err error) error {
	switch {
	case errors.Is(err, services.ErrRefineBusy):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrStaleReply):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrRefineNoBudget),
		errors.Is(err, services.ErrRefineNoContent),
		errors.Is(err, services.ErrRefineNotNeeded):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}
