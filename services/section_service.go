package services

import (
	"context"
	"fmt"

	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
)

// SectionService 整段重写/精简的编排：标记在途 → 调远端 → 带陈旧保护地应用。
type SectionService struct {
	writer *WriterClient
}

func NewSectionService(writer *WriterClient) *SectionService {
	return &SectionService{writer: writer}
}

// Rewrite 按指令重写某节。上下文带正文前 1500 字符；
// 期间该节又被改过时返回 ErrStaleReply，文档不动。
func (s *SectionService) Rewrite(ctx context.Context, sess *DocumentSession, sectionTitle, instruction string) (string, error) {
	original, err := sess.BeginRewrite(sectionTitle)
	if err != nil {
		return "", err
	}

	title, _, _, customData := sess.Meta()
	newContent, err := s.writer.RewriteSection(ctx, sess.UserID, &models.WriterRewriteReq{
		Title:           title,
		SectionTitle:    sectionTitle,
		Instruction:     instruction,
		Context:         sess.ContextHead(1500),
		CustomData:      customData,
		OriginalContent: original,
	})
	if err != nil {
		sess.FailRewrite(sectionTitle)
		logging.Logger.Error("fail Rewrite", "error", err)
		return "", err
	}
	if err := sess.CompleteRewrite(sectionTitle, original, newContent); err != nil {
		return "", err
	}
	sess.AppendLog(fmt.Sprintf("✅ 章节 [%s] 重写完成", sectionTitle))
	return newContent, nil
}

// Refine 压缩某节到大纲配置的目标字数。前置检查都在 BeginRefine 里。
func (s *SectionService) Refine(ctx context.Context, sess *DocumentSession, sectionTitle string) (string, error) {
	original, targetWords, err := sess.BeginRefine(sectionTitle)
	if err != nil {
		return "", err
	}

	title, _, _, customData := sess.Meta()
	instruction := fmt.Sprintf("请将上述内容精简到 %d 字左右。要求：保留核心论点和数据，删除冗余修饰，确保语句通顺。", targetWords)
	newContent, err := s.writer.RewriteSection(ctx, sess.UserID, &models.WriterRewriteReq{
		Title:           title,
		SectionTitle:    sectionTitle,
		Instruction:     instruction,
		Context:         sess.ContextHead(1500),
		CustomData:      customData,
		OriginalContent: original,
	})
	if err != nil {
		sess.FailRefine(sectionTitle)
		logging.Logger.Error("fail Refine", "error", err)
		return "", err
	}
	if err := sess.CompleteRefine(sectionTitle, original, newContent); err != nil {
		return "", err
	}
	sess.AppendLog(fmt.Sprintf("✂️ 章节 [%s] 精简完成", sectionTitle))
	return newContent, nil
}
