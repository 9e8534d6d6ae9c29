package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
)

const maxConcurrentRefines = 3

var (
	reActionWords = regexp.MustCompile(`AI重写|编辑|撤销|删除|精简|重写此节`)
	reAllSpace    = regexp.MustCompile(`\s+`)
	reHeadingLine = regexp.MustCompile(`^\s*(#{1,6})\s*(.*?)\s*$`)
	reLeadingLF   = regexp.MustCompile(`^\n+`)
	reLeadSpaces  = regexp.MustCompile(`^ +`)
)

// NormalizeTitle 标题归一：去掉所有空白，再剥掉渲染层可能混进来的操作词。
// 定位、撤销键、状态标记都用归一后的标题比较。
func NormalizeTitle(title string) string {
	return reActionWords.ReplaceAllString(reAllSpace.ReplaceAllString(title, ""), "")
}

// sectionSpan 缓冲区里一个标题段的位置。index 在每次变更后整体重建，
// 偏移量只在持有锁的当次操作内有效。
type sectionSpan struct {
	title        string
	headingStart int // 标题行行首
	bodyStart    int // 标题行换行符之后
	end          int // 下一个标题行行首，或缓冲区末尾
}

// DocumentSession 一个任务的全部可变文档状态。所有修改都经过它的方法，
// 锁内完成，外部拿不到裸缓冲区。
type DocumentSession struct {
	mu sync.Mutex

	UserID string
	TaskID string

	title       string
	outline     string
	refDomestic string
	refForeign  string
	customData  string
	structure   models.ParsedStructure

	content    string
	eventIndex int
	logs       []string
	undo       map[string]string // 归一标题 -> 上一版正文，单槽
	states     map[string]string // 归一标题 -> "rewriting" / "refining"

	activeRefines int
	index         []sectionSpan
	updatedAt     time.Time
}

func NewDocumentSession(userID, taskID string) *DocumentSession {
	return &DocumentSession{
		UserID: userID,
		TaskID: taskID,
		undo:   map[string]string{},
		states: map[string]string{},
	}
}

// FromDraft 从持久化快照恢复会话
func FromDraft(userID, taskID string, draft *models.TaskDraft) *DocumentSession {
	s := NewDocumentSession(userID, taskID)
	s.title = draft.Title
	s.outline = draft.Outline
	s.refDomestic = draft.RefDomestic
	s.refForeign = draft.RefForeign
	s.customData = draft.CustomData
	s.structure = draft.Structure
	s.content = draft.Content
	s.eventIndex = draft.EventIndex
	if draft.LogsHTML != "" {
		s.logs = strings.Split(draft.LogsHTML, "\n")
	}
	if draft.UndoHistory != nil {
		s.undo = draft.UndoHistory
	}
	s.rebuildIndexLocked()
	return s
}

// ToDraft 导出持久化快照
func (s *DocumentSession) ToDraft() *models.TaskDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	undoCopy := make(map[string]string, len(s.undo))
	for k, v := range s.undo {
		undoCopy[k] = v
	}
	return &models.TaskDraft{
		Title:       s.title,
		Outline:     s.outline,
		RefDomestic: s.refDomestic,
		RefForeign:  s.refForeign,
		CustomData:  s.customData,
		Content:     s.content,
		Structure:   s.structure,
		EventIndex:  s.eventIndex,
		LogsHTML:    strings.Join(s.logs, "\n"),
		UndoHistory: undoCopy,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// ---------- 元数据 ----------

func (s *DocumentSession) SetMeta(title, outline, refDomestic, refForeign, customData string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
	s.outline = outline
	s.refDomestic = refDomestic
	s.refForeign = refForeign
	s.customData = customData
	s.updatedAt = time.Now()
}

func (s *DocumentSession) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *DocumentSession) Meta() (title, refDomestic, refForeign, customData string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, s.refDomestic, s.refForeign, s.customData
}

func (s *DocumentSession) Structure() models.ParsedStructure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structure
}

func (s *DocumentSession) SetStructure(structure models.ParsedStructure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structure = structure
	s.updatedAt = time.Now()
}

// FindBudget 在大纲配置里找某节的目标字数（按归一标题匹配章标题和写作点）
func (s *DocumentSession) FindBudget(title string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clean := NormalizeTitle(title)
	for _, group := range s.structure {
		if strings.EqualFold(NormalizeTitle(group.Title), clean) {
			total := 0
			for _, child := range group.Children {
				total += child.Words
			}
			return total, true
		}
		for _, child := range group.Children {
			if strings.EqualFold(NormalizeTitle(child.Text), clean) {
				return child.Words, true
			}
		}
	}
	return 0, false
}

// ---------- 缓冲区 ----------

func (s *DocumentSession) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *DocumentSession) EventIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventIndex
}

// ResetEventIndex 新一轮提交前事件游标归零
func (s *DocumentSession) ResetEventIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventIndex = 0
}

// InitialContext 续写种子：正文超过 50 字符时取末尾 3000 字符，否则为空
func (s *DocumentSession) InitialContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	runes := []rune(s.content)
	if len(runes) <= 50 {
		return ""
	}
	if len(runes) > 3000 {
		runes = runes[len(runes)-3000:]
	}
	return string(runes)
}

// ContextHead 重写请求携带的正文开头片段
func (s *DocumentSession) ContextHead(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	runes := []rune(s.content)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func (s *DocumentSession) AppendLog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg))
}

// ApplyStreamEvent 消费一条进度帧。每条 data 帧都推进事件游标，
// content 帧追加正文，done 帧返回 true 通知上层收尾。
func (s *DocumentSession) ApplyStreamEvent(ev *models.StreamEvent) (done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventIndex++
	switch ev.Type {
	case models.StreamLog:
		s.logs = append(s.logs, ev.Msg)
	case models.StreamContent:
		s.content += ev.Md
		s.rebuildIndexLocked()
	case models.StreamDone:
		return true
	}
	return false
}

// ClearContent 清空正文，事件游标归零。配置与大纲保留。
func (s *DocumentSession) ClearContent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = ""
	s.eventIndex = 0
	s.index = nil
	s.updatedAt = time.Now()
}

// ---------- 段定位 ----------

// rebuildIndexLocked 重扫缓冲区建段索引。调用方必须持锁。
func (s *DocumentSession) rebuildIndexLocked() {
	s.index = s.index[:0]
	offset := 0
	lines := strings.SplitAfter(s.content, "\n")
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\n")
		if m := reHeadingLine.FindStringSubmatch(trimmed); m != nil && m[2] != "" {
			if n := len(s.index); n > 0 {
				s.index[n-1].end = offset
			}
			s.index = append(s.index, sectionSpan{
				title:        m[2],
				headingStart: offset,
				bodyStart:    offset + len(line),
			})
		}
		offset += len(line)
	}
	if n := len(s.index); n > 0 {
		s.index[n-1].end = len(s.content)
	}
}

// locateLocked 按归一标题找第一个匹配段。调用方必须持锁。
func (s *DocumentSession) locateLocked(title string) (sectionSpan, bool) {
	clean := NormalizeTitle(title)
	for _, span := range s.index {
		if strings.EqualFold(NormalizeTitle(span.title), clean) {
			return span, true
		}
	}
	return sectionSpan{}, false
}

// ExtractSection 取某节正文：去掉开头的空行和末尾的空白。找不到返回 false。
func (s *DocumentSession) ExtractSection(title string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	span, ok := s.locateLocked(title)
	if !ok {
		return "", false
	}
	body := s.content[span.bodyStart:span.end]
	body = reLeadingLF.ReplaceAllString(body, "")
	return strings.TrimRight(body, " \t\n\r"), true
}

// SectionTitles 按出现顺序列出正文里的标题
func (s *DocumentSession) SectionTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.index))
	for _, span := range s.index {
		titles = append(titles, span.title)
	}
	return titles
}

// FormatSectionBody 正文排版归一：普通段落加全角缩进（　　），
// 两个半角空格起头的按 2:1 折算成全角；标题/表格/代码/列表/引用行不动，
// 表格行整行去空白；表格块结束后补一个空行。幂等，撤销回放不会二次变形。
func FormatSectionBody(content string) string {
	content = strings.TrimRight(content, " \t\n\r")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var formatted []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}

		processed := line
		trimmed := strings.TrimLeft(line, " \t")
		if !isBlockMarker(trimmed) {
			switch {
			case strings.HasPrefix(line, "　　"):
				// 已经是全角缩进
			case strings.HasPrefix(line, "  "):
				processed = reLeadSpaces.ReplaceAllStringFunc(line, func(m string) string {
					return strings.Repeat("　", int(math.Ceil(float64(len(m))/2)))
				})
			default:
				processed = "　　" + trimmed
			}
		} else if strings.HasPrefix(trimmed, "|") {
			processed = strings.TrimSpace(line)
		}

		if len(formatted) > 0 {
			last := strings.TrimSpace(formatted[len(formatted)-1])
			if strings.HasPrefix(last, "|") && !strings.HasPrefix(strings.TrimSpace(processed), "|") {
				formatted = append(formatted, "")
			}
		}
		formatted = append(formatted, processed)
	}
	return strings.Join(formatted, "\n")
}

func isBlockMarker(trimmed string) bool {
	for _, prefix := range []string{"#", "|", "`", "- ", "* ", "> "} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// ReplaceSection 替换某节正文。替换前把旧正文存进单槽撤销历史；
// 找不到该节时在末尾追加一个三级标题段（appended=true）。
func (s *DocumentSession) ReplaceSection(title, newContent string) (appended bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceSectionLocked(title, newContent)
}

func (s *DocumentSession) replaceSectionLocked(title, newContent string) (appended bool) {
	formatted := FormatSectionBody(newContent)
	span, ok := s.locateLocked(title)
	if ok {
		body := s.content[span.bodyStart:span.end]
		s.undo[NormalizeTitle(title)] = strings.TrimSpace(body)

		heading := s.content[span.headingStart:span.bodyStart]
		replacement := heading + "\n" + formatted + "\n\n"
		s.content = s.content[:span.headingStart] + replacement + s.content[span.end:]
	} else {
		logging.Logger.Warn("section not found, appending", "title", title)
		s.content += fmt.Sprintf("\n\n### %s\n\n%s\n\n", title, formatted)
		appended = true
	}
	s.rebuildIndexLocked()
	s.updatedAt = time.Now()
	return appended
}

// Undo 回退到上一版。替换本身又会把当前版存进历史，所以连按两次
// 等于原样换回来。
func (s *DocumentSession) Undo(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.undo[NormalizeTitle(title)]
	if !ok {
		return ErrNoUndoHistory
	}
	s.replaceSectionLocked(title, prev)
	return nil
}

// DeleteSection 清空某节正文，标题保留，删掉的内容进撤销历史
func (s *DocumentSession) DeleteSection(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceSectionLocked(title, "")
}

// ---------- 在途操作标记 ----------

// BeginRewrite 标记某节进入重写，返回发起时刻的正文快照。
// 同一节已有在途操作时拒绝。
func (s *DocumentSession) BeginRewrite(title string) (original string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clean := NormalizeTitle(title)
	if s.states[clean] != "" {
		return "", fmt.Errorf("章节 [%s] 已有在途操作", title)
	}
	s.states[clean] = "rewriting"
	span, ok := s.locateLocked(title)
	if !ok {
		return "", nil
	}
	body := s.content[span.bodyStart:span.end]
	body = reLeadingLF.ReplaceAllString(body, "")
	return strings.TrimRight(body, " \t\n\r"), nil
}

// CompleteRewrite 应用重写结果。发起后该节正文被改过的话，结果作废，
// 文档保持现状。
func (s *DocumentSession) CompleteRewrite(title, original, newContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clean := NormalizeTitle(title)
	delete(s.states, clean)

	current := ""
	if span, ok := s.locateLocked(title); ok {
		body := s.content[span.bodyStart:span.end]
		current = strings.TrimRight(reLeadingLF.ReplaceAllString(body, ""), " \t\n\r")
	}
	if current != original {
		logging.Logger.Warn("stale rewrite reply dropped", "title", title)
		return ErrStaleReply
	}
	s.replaceSectionLocked(title, newContent)
	return nil
}

// FailRewrite 清掉在途标记，文档不动
func (s *DocumentSession) FailRewrite(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, NormalizeTitle(title))
}

// BeginRefine 精简前置检查：并发上限、大纲里有目标字数、有内容、
// 且当前字数（去空白）确实超标。通过后占一个精简名额。
func (s *DocumentSession) BeginRefine(title string) (original string, targetWords int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeRefines >= maxConcurrentRefines {
		return "", 0, ErrRefineBusy
	}

	clean := NormalizeTitle(title)
	if s.states[clean] != "" {
		return "", 0, fmt.Errorf("章节 [%s] 已有在途操作", title)
	}

	targetWords = 0
	found := false
	for _, group := range s.structure {
		if strings.EqualFold(NormalizeTitle(group.Title), clean) {
			for _, child := range group.Children {
				targetWords += child.Words
			}
			found = true
			break
		}
		for _, child := range group.Children {
			if strings.EqualFold(NormalizeTitle(child.Text), clean) {
				targetWords = child.Words
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if !found {
		return "", 0, ErrRefineNoBudget
	}
	if targetWords <= 0 {
		targetWords = 500
	}

	span, ok := s.locateLocked(title)
	if !ok {
		return "", 0, ErrRefineNoContent
	}
	body := s.content[span.bodyStart:span.end]
	original = strings.TrimRight(reLeadingLF.ReplaceAllString(body, ""), " \t\n\r")
	if original == "" {
		return "", 0, ErrRefineNoContent
	}
	if currentLen := len([]rune(reAllSpace.ReplaceAllString(original, ""))); currentLen <= targetWords {
		return "", 0, ErrRefineNotNeeded
	}

	s.states[clean] = "refining"
	s.activeRefines++
	return original, targetWords, nil
}

// CompleteRefine 应用精简结果，同样受陈旧结果保护
func (s *DocumentSession) CompleteRefine(title, original, newContent string) error {
	s.mu.Lock()
	s.activeRefines--
	s.mu.Unlock()
	return s.CompleteRewrite(title, original, newContent)
}

// FailRefine 释放名额，文档不动
func (s *DocumentSession) FailRefine(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeRefines--
	delete(s.states, NormalizeTitle(title))
}
