package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LENAX/med-pipeline/pkg/core/operation"
	"github.com/LENAX/med-pipeline/pkg/llm"
	"github.com/LENAX/med-pipeline/pkg/storage"
	"github.com/LENAX/med-pipeline/pkg/tools/cdc"
	"github.com/LENAX/med-pipeline/pkg/tools/classify"
	"github.com/LENAX/med-pipeline/pkg/tools/clinicaltrials"
	"github.com/LENAX/med-pipeline/pkg/tools/pubmed"
	"github.com/LENAX/med-pipeline/pkg/tools/rxnorm"
	"github.com/LENAX/med-pipeline/pkg/vector"
)

// Toolset 操作依赖的外部客户端集合（对外导出）
type Toolset struct {
	PubMed    *pubmed.Client
	RxNorm    *rxnorm.Client
	Trials    *clinicaltrials.Client
	CDC       *cdc.Client
	LLM       llm.Client
	Knowledge *vector.Index           // 可选: 预索引的知识库
	Chunks    storage.ChunkRepository // 可选: 向量块持久化
}

// RegisterOperations 将全部能力注册到Registry（对外导出）
func RegisterOperations(registry *operation.Registry, tools *Toolset, indexes *runIndexes) error {
	ops := []operation.Operation{
		&searchLiteratureOp{pubmed: tools.PubMed},
		&fetchAbstractsOp{pubmed: tools.PubMed},
		&lookupDrugOp{rxnorm: tools.RxNorm},
		&searchTrialsOp{trials: tools.Trials},
		&fetchGuidelinesOp{cdc: tools.CDC},
		&classifyQueryOp{},
		&embedIndexOp{indexes: indexes, chunks: tools.Chunks},
		&retrieveChunksOp{indexes: indexes, knowledge: tools.Knowledge},
		&generateSummaryOp{llm: tools.LLM},
	}
	for _, op := range ops {
		if err := registry.Register(op); err != nil {
			return err
		}
	}
	return nil
}

// searchLiteratureOp 文献检索（小写，不导出）
// 输出为逗号分隔的PMID列表, 供fetch_abstracts消费
type searchLiteratureOp struct {
	pubmed *pubmed.Client
}

func (o *searchLiteratureOp) Key() string { return operation.KeySearchLiterature }

func (o *searchLiteratureOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	pmids, err := o.pubmed.Search(ctx, in.Query)
	if err != nil {
		return nil, fmt.Errorf("PubMed检索失败: %w", err)
	}
	if len(pmids) == 0 {
		return operation.EmptyResult(), nil
	}
	return &operation.Result{
		Output: strings.Join(pmids, ","),
		Meta:   map[string]string{"count": fmt.Sprintf("%d", len(pmids))},
	}, nil
}

// fetchAbstractsOp 摘要获取（小写，不导出）
type fetchAbstractsOp struct {
	pubmed *pubmed.Client
}

func (o *fetchAbstractsOp) Key() string { return operation.KeyFetchAbstracts }

func (o *fetchAbstractsOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	pmids := parsePMIDs(in.Upstream)
	if len(pmids) == 0 {
		return operation.EmptyResult(), nil
	}

	articles, err := o.pubmed.Fetch(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("PubMed摘要获取失败: %w", err)
	}
	if len(articles) == 0 {
		return operation.EmptyResult(), nil
	}
	return &operation.Result{
		Output: pubmed.FormatArticles(articles),
		Meta:   map[string]string{"count": fmt.Sprintf("%d", len(articles))},
	}, nil
}

// parsePMIDs 从上游输出中提取PMID列表（内部方法）
func parsePMIDs(upstream map[string]string) []string {
	var pmids []string
	seen := make(map[string]bool)
	for _, text := range upstream {
		for _, field := range strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == '\n' || r == ' '
		}) {
			field = strings.TrimSpace(field)
			if field == "" || !isDigits(field) || seen[field] {
				continue
			}
			seen[field] = true
			pmids = append(pmids, field)
		}
	}
	return pmids
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// lookupDrugOp 药物查询（小写，不导出）
// 先从查询中粗筛候选词, 再由RxNorm确认
type lookupDrugOp struct {
	rxnorm *rxnorm.Client
}

func (o *lookupDrugOp) Key() string { return operation.KeyLookupDrug }

func (o *lookupDrugOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	for _, candidate := range classify.DrugCandidates(in.Query) {
		info, err := o.rxnorm.Lookup(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("RxNorm查询失败: %w", err)
		}
		if info.Found() {
			return &operation.Result{
				Output: info.Format(),
				Meta:   map[string]string{"rxcui": info.RxCUI},
			}, nil
		}
	}
	return operation.EmptyResult(), nil
}

// searchTrialsOp 临床试验检索（小写，不导出）
type searchTrialsOp struct {
	trials *clinicaltrials.Client
}

func (o *searchTrialsOp) Key() string { return operation.KeySearchTrials }

func (o *searchTrialsOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	trials := o.trials.Search(ctx, in.Query)
	if len(trials) == 0 {
		return operation.EmptyResult(), nil
	}
	return &operation.Result{
		Output: clinicaltrials.FormatTrials(trials),
		Meta:   map[string]string{"count": fmt.Sprintf("%d", len(trials))},
	}, nil
}

// fetchGuidelinesOp 指南检索（小写，不导出）
type fetchGuidelinesOp struct {
	cdc *cdc.Client
}

func (o *fetchGuidelinesOp) Key() string { return operation.KeyFetchGuidelines }

func (o *fetchGuidelinesOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	guidelines := o.cdc.Search(ctx, in.Query)
	if len(guidelines) == 0 {
		return operation.EmptyResult(), nil
	}
	return &operation.Result{Output: cdc.FormatGuidelines(guidelines)}, nil
}

// classifyQueryOp 查询类型分类（小写，不导出）
type classifyQueryOp struct{}

func (o *classifyQueryOp) Key() string { return operation.KeyClassifyQuery }

func (o *classifyQueryOp) Execute(_ context.Context, in *operation.Input) (*operation.Result, error) {
	queryType := classify.Classify(in.Query)
	return &operation.Result{
		Output: fmt.Sprintf("Query type: %s", queryType),
		Meta:   map[string]string{"type": string(queryType)},
	}, nil
}

// embedIndexOp 文本分块并写入运行级向量索引（小写，不导出）
type embedIndexOp struct {
	indexes *runIndexes
	chunks  storage.ChunkRepository
}

func (o *embedIndexOp) Key() string { return operation.KeyEmbedIndex }

func (o *embedIndexOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	text := in.MergedUpstream()
	if strings.TrimSpace(text) == "" {
		return operation.EmptyResult(), nil
	}

	idx := o.indexes.get(in.RunID)
	n, err := idx.IndexText(ctx, text)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return operation.EmptyResult(), nil
	}

	if o.chunks != nil {
		if err := o.persistChunks(ctx, in.RunID, idx); err != nil {
			// 持久化失败不影响本次运行, 索引仍在内存中
			log.Printf("向量块持久化失败: %v", err)
		}
	}

	return &operation.Result{
		Output: fmt.Sprintf("Indexed %d chunks.", n),
		Meta:   map[string]string{"chunks": fmt.Sprintf("%d", n)},
	}, nil
}

// persistChunks 将索引内容写入存储（内部方法）
func (o *embedIndexOp) persistChunks(ctx context.Context, runID string, idx *vector.Index) error {
	now := time.Now().UTC()
	var records []*storage.ChunkRecord
	for _, chunk := range idx.Chunks() {
		records = append(records, &storage.ChunkRecord{
			ID:         chunk.ID,
			RunID:      runID,
			Text:       chunk.Text,
			Vector:     chunk.Vector,
			CreateTime: now,
		})
	}
	return o.chunks.SaveChunks(ctx, records)
}

// retrieveChunksOp 向量检索相关片段（小写，不导出）
// 同时检索运行级索引与知识库索引
type retrieveChunksOp struct {
	indexes   *runIndexes
	knowledge *vector.Index
}

func (o *retrieveChunksOp) Key() string { return operation.KeyRetrieveChunks }

func (o *retrieveChunksOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	var contexts []string

	if idx := o.indexes.peek(in.RunID); idx != nil {
		found, err := idx.Search(ctx, in.Query, vector.DefaultTopK)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, found...)
	}

	if o.knowledge != nil && o.knowledge.Size() > 0 {
		found, err := o.knowledge.Search(ctx, in.Query, vector.DefaultTopK)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, found...)
	}

	if len(contexts) == 0 {
		return operation.EmptyResult(), nil
	}
	return &operation.Result{
		Output: strings.Join(contexts, "\n\n"),
		Meta:   map[string]string{"count": fmt.Sprintf("%d", len(contexts))},
	}, nil
}

// generateSummaryOp LLM生成最终答案（小写，不导出）
type generateSummaryOp struct {
	llm llm.Client
}

func (o *generateSummaryOp) Key() string { return operation.KeyGenerateSummary }

func (o *generateSummaryOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	contextText := in.MergedUpstream()
	if strings.TrimSpace(contextText) == "" {
		// 全链路无证据时直接给出兜底回答
		return &operation.Result{Output: llm.FallbackAnswer, Empty: true}, nil
	}

	prompt := buildSummaryPrompt(in.Prompt, contextText, in.Query)
	answer, err := o.llm.Chat(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("答案生成失败: %w", err)
	}
	if answer == "" || strings.HasPrefix(strings.ToLower(answer), "insufficient") {
		return &operation.Result{Output: llm.FallbackAnswer, Empty: true}, nil
	}
	return &operation.Result{Output: answer}, nil
}

// buildSummaryPrompt 组装最终答案提示词（内部方法）
func buildSummaryPrompt(agentPreamble, contextText, query string) string {
	var b strings.Builder
	if agentPreamble != "" {
		b.WriteString(agentPreamble)
		b.WriteString("\n\n")
	}
	b.WriteString("You are a medical assistant. Use ONLY the provided context below to answer the user's medical question. ")
	b.WriteString("For each major claim, cite the PMID (PubMed ID) or source if available. ")
	b.WriteString("If the context does not contain enough information, say: 'No relevant medical evidence was found in PubMed. Please consult a healthcare professional.' ")
	b.WriteString("Structure your answer as a concise, evidence-based summary with bullet points or sections. ")
	b.WriteString("Do NOT make up information.\n\n")
	b.WriteString("CONTEXT (from PubMed abstracts and drug databases, may include PMIDs):\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nANSWER (with citations):")
	return b.String()
}
