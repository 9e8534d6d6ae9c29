package handlers

import (
	"errors"

	"go_draft_backend/models"
	"go_draft_backend/services"

	"github.com/gofiber/fiber/v2"
)

type OutlineHandler struct {
	outline *services.OutlineService
	budget  *services.BudgetService
}

func NewOutlineHandler(outline *services.OutlineService, budget *services.BudgetService) *OutlineHandler {
	return &OutlineHandler{outline: outline, budget: budget}
}

// Parse 大纲文本 → 章结构。total_words 给了就顺手做一次本地分配。
func (h *OutlineHandler) Parse(c *fiber.Ctx) error {
	var req models.ParseOutlineReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	structure := h.outline.Parse(req.Text)
	if req.TotalWords > 0 && len(structure) > 0 {
		h.budget.DistributeLocal(structure, req.TotalWords)
	}
	return c.JSON(models.ParseOutlineResp{
		Structure:  structure,
		TotalWords: structure.TotalWords(),
	})
}

// Distribute 字数分配。smart 失败时结构里已经是均分兜底值，
// 照常返回并带上 fallback 标记。
func (h *OutlineHandler) Distribute(c *fiber.Ctx) error {
	var req models.DistributeReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	switch req.Mode {
	case "smart":
		if err := h.budget.DistributeSmart(c.Context(), req.Structure, req.TotalWords); err != nil {
			if errors.Is(err, services.ErrNoWritableLeaves) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return c.JSON(fiber.Map{
				"status":      "fallback",
				"msg":         "智能分配失败，已回退到平均分配",
				"structure":   req.Structure,
				"total_words": req.Structure.TotalWords(),
			})
		}
	default:
		h.budget.DistributeLocal(req.Structure, req.TotalWords)
	}
	return c.JSON(fiber.Map{
		"status":      "success",
		"structure":   req.Structure,
		"total_words": req.Structure.TotalWords(),
	})
}

// ChapterDistribute 单章精确分配
func (h *OutlineHandler) ChapterDistribute(c *fiber.Ctx) error {
	var req models.ChapterDistributeReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.GroupIndex < 0 || req.GroupIndex >= len(req.Structure) {
		return fiber.NewError(fiber.StatusBadRequest, "group_index 越界")
	}
	if !h.budget.DistributeChapter(req.Structure[req.GroupIndex], req.Target) {
		return fiber.NewError(fiber.StatusBadRequest, "该章节下没有可分配的小节")
	}
	return c.JSON(fiber.Map{
		"status":      "success",
		"structure":   req.Structure,
		"total_words": req.Structure.TotalWords(),
	})
}

// Edit 结构化编辑：加章/加小节/插子节/升降级/数据开关/图表循环/删除/排序。
// 结构随请求来回，编辑规则只在服务端存在一份。
func (h *OutlineHandler) Edit(c *fiber.Ctx) error {
	var req models.OutlineEditReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	structure := req.Structure

	switch req.Op {
	case "add_chapter":
		if req.Title == "" {
			return fiber.NewError(fiber.StatusBadRequest, "缺少章标题")
		}
		structure = h.outline.AddChapter(structure, req.Title)
	case "add_leaf":
		group, err := groupAt(structure, req.GroupIndex)
		if err != nil {
			return err
		}
		if req.Title == "" {
			return fiber.NewError(fiber.StatusBadRequest, "缺少小节标题")
		}
		h.outline.AddLeaf(group, req.Title)
	case "insert_sub_leaf":
		group, err := groupAt(structure, req.GroupIndex)
		if err != nil {
			return err
		}
		if h.outline.InsertSubLeaf(group, req.LeafIndex) == nil {
			return fiber.NewError(fiber.StatusBadRequest, "leaf_index 越界")
		}
	case "change_level":
		leaf, err := leafAt(structure, req.GroupIndex, req.LeafIndex)
		if err != nil {
			return err
		}
		h.outline.ChangeLeafLevel(leaf, req.Delta)
	case "toggle_data":
		leaf, err := leafAt(structure, req.GroupIndex, req.LeafIndex)
		if err != nil {
			return err
		}
		h.outline.ToggleData(leaf)
	case "cycle_chart":
		leaf, err := leafAt(structure, req.GroupIndex, req.LeafIndex)
		if err != nil {
			return err
		}
		h.outline.CycleChart(leaf)
	case "delete_leaf":
		group, err := groupAt(structure, req.GroupIndex)
		if err != nil {
			return err
		}
		if !h.outline.DeleteLeaf(group, req.LeafIndex) {
			return fiber.NewError(fiber.StatusBadRequest, "leaf_index 越界")
		}
	case "delete_group":
		var ok bool
		if structure, ok = h.outline.DeleteGroup(structure, req.GroupIndex); !ok {
			return fiber.NewError(fiber.StatusBadRequest, "group_index 越界")
		}
	case "sort_children":
		group, err := groupAt(structure, req.GroupIndex)
		if err != nil {
			return err
		}
		h.outline.SortChildrenByNumericPrefix(group)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "未知的编辑操作: "+req.Op)
	}

	return c.JSON(fiber.Map{
		"status":      "success",
		"structure":   structure,
		"total_words": structure.TotalWords(),
	})
}

func groupAt(structure models.ParsedStructure, idx int) (*models.ChapterGroup, error) {
	if idx < 0 || idx >= len(structure) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "group_index 越界")
	}
	return structure[idx], nil
}

func leafAt(structure models.ParsedStructure, groupIdx, leafIdx int) (*models.OutlineItem, error) {
	group, err := groupAt(structure, groupIdx)
	if err != nil {
		return nil, err
	}
	if leafIdx < 0 || leafIdx >= len(group.Children) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "leaf_index 越界")
	}
	return group.Children[leafIdx], nil
}

// Demo 示例大纲
func (h *OutlineHandler) Demo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"outline": h.outline.DemoOutline()})
}
