package models

// TaskDraft 每个任务持久化的完整快照（不透明 KV 存储中的值）。
// 字段名即存储契约，切换/保存/加载都必须按这个形状读写。
type TaskDraft struct {
	Title       string            `json:"title"`
	Outline     string            `json:"outline"`
	RefDomestic string            `json:"refDomestic"`
	RefForeign  string            `json:"refForeign"`
	Refs        string            `json:"refs,omitempty"` // 旧版单一文献字段，加载时迁移
	CustomData  string            `json:"customData"`
	Content     string            `json:"content"`
	Structure   ParsedStructure   `json:"structure"`
	EventIndex  int               `json:"eventIndex"`
	LogsHTML    string            `json:"logsHtml"`
	UndoHistory map[string]string `json:"undoHistory"`
	Timestamp   int64             `json:"timestamp"`
}

// Migrate 把旧持久化形状升级到当前形状，加载后调用一次。
// 旧版只有一个 refs 字段；新版拆成国内/国外两栏。
func (d *TaskDraft) Migrate() {
	if d.RefDomestic == "" && d.Refs != "" {
		d.RefDomestic = d.Refs
	}
	d.Refs = ""
	if d.UndoHistory == nil {
		d.UndoHistory = map[string]string{}
	}
}
