package models

// ChartType 小节图表策略
type ChartType string

const (
	ChartNone  ChartType = "none"
	ChartTable ChartType = "table"
	ChartPlot  ChartType = "plot"
)

// LineType 大纲行的分类结果
type LineType string

const (
	LineKeyword   LineType = "keyword"    // 摘要 / Abstract / 参考文献 ...
	LineChapter   LineType = "chapter"    // 第X章 / 第X部分
	LineDecimal   LineType = "decimal"    // 1.1 / 2.3.1
	LineCnNum     LineType = "cn_num"     // 一、
	LineParen     LineType = "paren"      // （一） / (1)
	LineSimpleNum LineType = "simple_num" // 1. / 1、 / 1
	LineText      LineType = "text"       // fallback
)

// LineInfo 单行分类结果
type LineInfo struct {
	Level int
	Type  LineType
}

// OutlineItem 大纲中的一条写作点
type OutlineItem struct {
	Text      string    `json:"text"`
	Level     int       `json:"level"`
	IsParent  bool      `json:"isParent"`
	Words     int       `json:"words"`
	UseData   bool      `json:"useData"`
	ChartType ChartType `json:"chartType,omitempty"`
}

// ChapterGroup 一章及其有序的写作点
type ChapterGroup struct {
	Title    string         `json:"title"`
	Children []*OutlineItem `json:"children"`
}

// ParsedStructure 整个大纲。分组顺序 + 子项顺序即提交顺序。
type ParsedStructure []*ChapterGroup

// FlatTask 生成后端消费的线性任务。只由 Flatten 派生，从不手改。
type FlatTask struct {
	Title    string `json:"title"`
	IsParent bool   `json:"is_parent"`
	Level    int    `json:"level"`
	Words    int    `json:"words"`
	UseData  bool   `json:"use_data"`
}

// TotalWords 当前结构的字数合计（父节点结构上为 0）
func (ps ParsedStructure) TotalWords() int {
	total := 0
	for _, group := range ps {
		for _, child := range group.Children {
			total += child.Words
		}
	}
	return total
}

// LeafCount 可写作叶子数量
func (ps ParsedStructure) LeafCount() int {
	count := 0
	for _, group := range ps {
		for _, child := range group.Children {
			if !child.IsParent {
				count++
			}
		}
	}
	return count
}
