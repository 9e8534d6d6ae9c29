package models

// ---------- 本服务自己的 API ----------

type LoginReq struct {
	Key string `json:"key"`
}

type ParseOutlineReq struct {
	Text       string `json:"text"`
	TotalWords int    `json:"total_words"`
}

type ParseOutlineResp struct {
	Structure  ParsedStructure `json:"structure"`
	TotalWords int             `json:"total_words"`
}

type DistributeReq struct {
	Structure  ParsedStructure `json:"structure"`
	TotalWords int             `json:"total_words"`
	Mode       string          `json:"mode"` // "local" or "smart"
}

type ChapterDistributeReq struct {
	Structure  ParsedStructure `json:"structure"`
	GroupIndex int             `json:"group_index"`
	Target     int             `json:"target"`
}

// OutlineEditReq 结构化大纲编辑。结构随请求来回，编辑在服务端做，
// 保证层级钳制、编号识别这类规则只有一份。
type OutlineEditReq struct {
	Structure  ParsedStructure `json:"structure"`
	Op         string          `json:"op"` // add_chapter | add_leaf | insert_sub_leaf | change_level | toggle_data | cycle_chart | delete_leaf | delete_group | sort_children
	GroupIndex int             `json:"group_index"`
	LeafIndex  int             `json:"leaf_index"`
	Title      string          `json:"title"`
	Delta      int             `json:"delta"`
}

type ControlReq struct {
	Action string `json:"action"` // pause | resume | stop
}

type CreateTaskReq struct {
	Title string `json:"title"`
}

type SectionReq struct {
	Title string `json:"title"`
}

type ManualEditReq struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type RewriteReq struct {
	Title       string `json:"title"`
	Instruction string `json:"instruction"`
}

type SectionResp struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ExportReq struct {
	Content string `json:"content,omitempty"`
}

// ---------- 上游生成后端的 wire 形状 ----------

type WriterRewriteReq struct {
	Title           string `json:"title"`
	SectionTitle    string `json:"section_title"`
	Instruction     string `json:"instruction"`
	Context         string `json:"context"`
	CustomData      string `json:"custom_data"`
	OriginalContent string `json:"original_content"`
}

type WriterRewriteResp struct {
	Status  string `json:"status"`
	Content string `json:"content"`
	Msg     string `json:"msg"`
}

type SmartDistributeReq struct {
	TotalWords int      `json:"total_words"`
	LeafTitles []string `json:"leaf_titles"`
}

// LeafPlan 远端字数规划对单个叶子的建议。
// NeedsData 用指针区分"明确说了不需要"和"没说"，没说就保持现状。
type LeafPlan struct {
	Words     int   `json:"words"`
	NeedsData *bool `json:"needs_data,omitempty"`
}

type SmartDistributeResp struct {
	Status       string              `json:"status"`
	Distribution map[string]LeafPlan `json:"distribution"`
	Msg          string              `json:"msg"`
}

type WriterStatusResp struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

// DataFile 随生成请求转发/归档的上传数据文件
type DataFile struct {
	Name    string
	Content []byte
}

// GenerateSubmission 一次生成提交携带的全部内容
type GenerateSubmission struct {
	TaskID         string
	Title          string
	RefDomestic    string
	RefForeign     string
	CustomData     string
	InitialContext string
	Tasks          []FlatTask
	Files          []DataFile
}
