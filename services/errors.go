package services

import "errors"

var (
	ErrNoWritableLeaves = errors.New("大纲中没有可写作的小节")
	ErrSectionNotFound  = errors.New("正文中未找到该章节")
	ErrNoUndoHistory    = errors.New("该章节没有可回退的历史版本")
	ErrRefineBusy       = errors.New("精简任务数已达上限，请稍候再试")
	ErrRefineNoBudget   = errors.New("大纲中没有该章节的目标字数配置")
	ErrRefineNoContent  = errors.New("该章节暂无内容，无需精简")
	ErrRefineNotNeeded  = errors.New("当前字数未超过目标字数，无需精简")
	ErrStaleReply       = errors.New("章节内容已变化，重写结果被丢弃")
	ErrTaskNotFound     = errors.New("任务不存在")
	ErrBadTransition    = errors.New("当前状态不允许该操作")
	ErrEmptyOutline     = errors.New("大纲为空，无法提交")
)
