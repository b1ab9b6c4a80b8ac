package operation

import (
	"context"
	"sort"
)

// 对外部协作方的能力键（对外导出）
// 每个外部协作方对应一种操作类型，由静态配置选择，不做运行时类查找
const (
	KeySearchLiterature = "search_literature" // 文献检索（PubMed esearch）
	KeyFetchAbstracts   = "fetch_abstracts"   // 摘要获取（PubMed efetch）
	KeyLookupDrug       = "lookup_drug"       // 药物查询（RxNorm）
	KeySearchTrials     = "search_trials"     // 临床试验检索（ClinicalTrials.gov）
	KeyFetchGuidelines  = "fetch_guidelines"  // 指南检索（CDC）
	KeyClassifyQuery    = "classify_query"    // 查询类型分类（本地规则）
	KeyEmbedIndex       = "embed_index"       // 文本分块并写入向量库
	KeyRetrieveChunks   = "retrieve_chunks"   // 向量检索相关片段
	KeyGenerateSummary  = "generate_summary"  // LLM生成最终答案
)

// Input 操作输入（对外导出）
// Upstream按上游任务ID携带各依赖的输出，选择策略由任务定义的input_keys决定
type Input struct {
	RunID    string            // 本次运行标识, 运行级资源按其隔离
	Query    string            // 用户原始查询
	Upstream map[string]string // 上游Task ID -> 输出文本
	Params   map[string]string // 任务定义中的静态参数
	Prompt   string            // Agent元数据渲染出的提示词前缀（可为空）
}

// UpstreamText 按声明顺序拼接上游输出（对外导出）
// 带来源标记拼接，便于下游区分证据出处
func (in *Input) UpstreamText(keys []string) string {
	text := ""
	for _, key := range keys {
		out, exists := in.Upstream[key]
		if !exists || out == "" {
			continue
		}
		if text != "" {
			text += "\n\n"
		}
		text += "[" + key + "]\n" + out
	}
	return text
}

// MergedUpstream 按Task ID字典序拼接全部上游输出（对外导出）
// 用于不关心来源顺序、只需要汇总证据的操作
func (in *Input) MergedUpstream() string {
	keys := make([]string, 0, len(in.Upstream))
	for key := range in.Upstream {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return in.UpstreamText(keys)
}

// Result 操作结果（对外导出）
// Empty表示外部服务正常返回但无内容（如未检索到文献），不视为失败
type Result struct {
	Output string
	Empty  bool
	Meta   map[string]string
}

// EmptyResult 创建空结果（对外导出）
func EmptyResult() *Result {
	return &Result{Empty: true}
}

// Operation 外部协作方能力接口（对外导出）
// 执行器对操作内部行为完全不感知，只关心输入输出契约
type Operation interface {
	// Key 操作键，与任务定义中的operation字段对应
	Key() string
	// Execute 执行操作，阻塞调用需响应ctx取消
	Execute(ctx context.Context, in *Input) (*Result, error)
}
