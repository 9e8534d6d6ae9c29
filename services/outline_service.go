package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go_draft_backend/models"
)

// 行分类按优先级依次尝试，任何一行都能落到某个类别，解析永不失败。
var (
	reKeyword   = regexp.MustCompile(`(?i)^(摘要|Abstract|参考文献|致谢|总结|结论)`)
	reChapter   = regexp.MustCompile(`^第[一二三四五六七八九十0-9]+(章|部分)`)
	reDecimal   = regexp.MustCompile(`^(\d+(\.\d+)+)`)
	reCnNum     = regexp.MustCompile(`^[一二三四五六七八九十]+、`)
	reParen     = regexp.MustCompile(`^[(（][一二三四五六七八九十0-9]+[)）]`)
	reSimpleNum = regexp.MustCompile(`^\d+([.\s、]|$)`)

	reUseData = regexp.MustCompile(`结果|分析|实验|数据|验证|测试`)
	// 手动新增小节时的识别范围更宽
	reUseDataManual = regexp.MustCompile(`结果|分析|实验|数据|验证|测试|调研|统计`)

	reNumPrefix = regexp.MustCompile(`^(\d+(?:\.\d+)*)`)
)

type OutlineService struct{}

func NewOutlineService() *OutlineService {
	return &OutlineService{}
}

// AnalyzeLine 单行分类。空行返回 nil。
func (s *OutlineService) AnalyzeLine(text string) *models.LineInfo {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if reKeyword.MatchString(text) {
		return &models.LineInfo{Level: 1, Type: models.LineKeyword}
	}
	if reChapter.MatchString(text) {
		return &models.LineInfo{Level: 1, Type: models.LineChapter}
	}
	if m := reDecimal.FindStringSubmatch(text); m != nil {
		return &models.LineInfo{Level: len(strings.Split(m[1], ".")), Type: models.LineDecimal}
	}
	if reCnNum.MatchString(text) {
		return &models.LineInfo{Level: 2, Type: models.LineCnNum}
	}
	if reParen.MatchString(text) {
		return &models.LineInfo{Level: 3, Type: models.LineParen}
	}
	if reSimpleNum.MatchString(text) {
		return &models.LineInfo{Level: 1, Type: models.LineSimpleNum}
	}
	return &models.LineInfo{Level: 2, Type: models.LineText}
}

// ParseOutline 逐行分类。"1." 式编号跟在 第X章 后面时降为二级，
// 避免把章内小节误判成新章。
func (s *OutlineService) ParseOutline(text string) []*models.OutlineItem {
	var items []*models.OutlineItem
	var lastLevel1Type models.LineType

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		info := s.AnalyzeLine(trimmed)
		level := info.Level
		if info.Type == models.LineSimpleNum && lastLevel1Type == models.LineChapter {
			level = 2
		}
		if level == 1 {
			lastLevel1Type = info.Type
		}
		items = append(items, &models.OutlineItem{
			Text:    trimmed,
			Level:   level,
			UseData: reUseData.MatchString(trimmed),
		})
	}

	// 下一项更深的就是父节点
	for i := 0; i < len(items)-1; i++ {
		if items[i+1].Level > items[i].Level {
			items[i].IsParent = true
		}
	}
	return items
}

// BuildStructure 把线性条目折成章分组。一级条目开新组；
// 非父的一级条目同时作为本组唯一写作点（摘要、参考文献等独立段）。
// 大纲不以一级条目开头时补一个"前言/导论"组兜底。
func (s *OutlineService) BuildStructure(items []*models.OutlineItem) models.ParsedStructure {
	structure := models.ParsedStructure{}
	var current *models.ChapterGroup

	for _, item := range items {
		if item.Level == 1 {
			current = &models.ChapterGroup{Title: item.Text, Children: []*models.OutlineItem{}}
			structure = append(structure, current)
			if !item.IsParent {
				current.Children = append(current.Children, item)
			}
		} else {
			if current == nil {
				current = &models.ChapterGroup{Title: "前言/导论", Children: []*models.OutlineItem{}}
				structure = append(structure, current)
			}
			current.Children = append(current.Children, item)
		}
	}
	return structure
}

// Parse 一步完成 ParseOutline + BuildStructure
func (s *OutlineService) Parse(text string) models.ParsedStructure {
	return s.BuildStructure(s.ParseOutline(text))
}

// Flatten 按存储顺序展平成生成后端的任务序列：每章一条父任务，
// 随后是它的子项。展平从不重排。线性序列里只有章标题是父任务，
// 子项一律按写作点下发——结构上的父子关系（1.1 下挂 1.1.1）不进 wire。
func (s *OutlineService) Flatten(structure models.ParsedStructure) []models.FlatTask {
	var flat []models.FlatTask
	for _, group := range structure {
		flat = append(flat, models.FlatTask{Title: group.Title, IsParent: true, Level: 1})
		for _, child := range group.Children {
			level := child.Level
			if level == 0 {
				level = 2
			}
			flat = append(flat, models.FlatTask{
				Title:    child.Text,
				IsParent: false,
				Level:    level,
				Words:    child.Words,
				UseData:  child.UseData,
			})
		}
	}
	return flat
}

// SortChildrenByNumericPrefix 显式重排操作：带数字前缀的子项按前缀排序，
// 不带前缀的保持相对位置排在带前缀项之后。稳定排序。
func (s *OutlineService) SortChildrenByNumericPrefix(group *models.ChapterGroup) {
	sort.SliceStable(group.Children, func(i, j int) bool {
		a, aok := numericPrefix(group.Children[i].Text)
		b, bok := numericPrefix(group.Children[j].Text)
		if aok != bok {
			return aok
		}
		if !aok {
			return false
		}
		return lessNumeric(a, b)
	})
}

func numericPrefix(text string) ([]int, bool) {
	m := reNumPrefix.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, false
	}
	parts := strings.Split(m[1], ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

func lessNumeric(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// ---------- 结构化编辑 ----------

// AddChapter 末尾追加一章，带一条默认写作点
func (s *OutlineService) AddChapter(structure models.ParsedStructure, title string) models.ParsedStructure {
	return append(structure, &models.ChapterGroup{
		Title: title,
		Children: []*models.OutlineItem{
			{Text: title + " 概述", Words: 500, Level: 2},
		},
	})
}

// AddLeaf 章末追加小节。标题带 1.1 / 1.1.1 式前缀时自动识别层级。
func (s *OutlineService) AddLeaf(group *models.ChapterGroup, title string) *models.OutlineItem {
	title = strings.TrimSpace(title)
	level := 2
	if m := reNumPrefix.FindStringSubmatch(title); m != nil {
		if depth := len(strings.Split(m[1], ".")); depth >= 2 && depth <= 6 {
			level = depth
		}
	}
	leaf := &models.OutlineItem{
		Text:      title,
		Level:     level,
		Words:     500,
		UseData:   reUseDataManual.MatchString(title),
		ChartType: models.ChartNone,
	}
	group.Children = append(group.Children, leaf)
	return leaf
}

// InsertSubLeaf 在指定子项后面插入一条下一层级的空白小节
func (s *OutlineService) InsertSubLeaf(group *models.ChapterGroup, idx int) *models.OutlineItem {
	if idx < 0 || idx >= len(group.Children) {
		return nil
	}
	parentLevel := group.Children[idx].Level
	if parentLevel == 0 {
		parentLevel = 2
	}
	level := parentLevel + 1
	if level > 6 {
		level = 6
	}
	leaf := &models.OutlineItem{
		Level:     level,
		Words:     300,
		ChartType: models.ChartNone,
	}
	group.Children = append(group.Children, nil)
	copy(group.Children[idx+2:], group.Children[idx+1:])
	group.Children[idx+1] = leaf
	return leaf
}

// ChangeLeafLevel 升降级，范围钳在 2..6（升到 1 会变成章，不允许）
func (s *OutlineService) ChangeLeafLevel(leaf *models.OutlineItem, delta int) {
	level := leaf.Level
	if level == 0 {
		level = 2
	}
	level += delta
	if level < 2 {
		level = 2
	}
	if level > 6 {
		level = 6
	}
	leaf.Level = level
}

// ToggleData 翻转数据开关
func (s *OutlineService) ToggleData(leaf *models.OutlineItem) {
	leaf.UseData = !leaf.UseData
}

// CycleChart none → table → plot → none；开了图表就需要数据
func (s *OutlineService) CycleChart(leaf *models.OutlineItem) {
	switch leaf.ChartType {
	case models.ChartTable:
		leaf.ChartType = models.ChartPlot
	case models.ChartPlot:
		leaf.ChartType = models.ChartNone
	default:
		leaf.ChartType = models.ChartTable
	}
	if leaf.ChartType != models.ChartNone {
		leaf.UseData = true
	}
}

// DeleteLeaf 删除指定子项
func (s *OutlineService) DeleteLeaf(group *models.ChapterGroup, idx int) bool {
	if idx < 0 || idx >= len(group.Children) {
		return false
	}
	group.Children = append(group.Children[:idx], group.Children[idx+1:]...)
	return true
}

// DeleteGroup 删除整章
func (s *OutlineService) DeleteGroup(structure models.ParsedStructure, idx int) (models.ParsedStructure, bool) {
	if idx < 0 || idx >= len(structure) {
		return structure, false
	}
	return append(structure[:idx], structure[idx+1:]...), true
}

// DemoOutline 示例大纲，前端"加载示例"用
func (s *OutlineService) DemoOutline() string {
	return "摘要\n第一章 绪论\n1.1 研究背景\n1.2 研究意义\n第二章 核心理论\n2.1 理论基础\n第三章 总结\n参考文献"
}
