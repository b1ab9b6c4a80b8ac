package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const DefaultTopK = 3

// Chunk 带向量的文本块（对外导出）
type Chunk struct {
	ID     string
	Text   string
	Vector []float32
}

// Index 内存向量索引（对外导出）
// 每次运行独立构建, 互不共享
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	chunks   []*Chunk
}

// NewIndex 创建空索引（对外导出）
func NewIndex(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// IndexText 分块、向量化并入库, 返回新增块数（对外导出）
func (idx *Index) IndexText(ctx context.Context, text string) (int, error) {
	chunks := SentenceChunk(text, DefaultMaxSentences, DefaultOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := idx.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("文本向量化失败: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, text := range chunks {
		idx.chunks = append(idx.chunks, &Chunk{
			ID:     uuid.New().String(),
			Text:   text,
			Vector: vectors[i],
		})
	}
	return len(chunks), nil
}

// Search 返回与查询最相似的k个文本块（对外导出）
// 索引为空时返回空列表, 不报错
func (idx *Index) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	idx.mu.RLock()
	empty := len(idx.chunks) == 0
	idx.mu.RUnlock()
	if empty || query == "" {
		return nil, nil
	}

	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}
	queryVec := vectors[0]

	type scored struct {
		text  string
		score float32
	}

	idx.mu.RLock()
	results := make([]scored, 0, len(idx.chunks))
	for _, chunk := range idx.chunks {
		results = append(results, scored{text: chunk.Text, score: cosine(queryVec, chunk.Vector)})
	}
	idx.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if k > len(results) {
		k = len(results)
	}

	texts := make([]string, 0, k)
	for _, r := range results[:k] {
		texts = append(texts, r.text)
	}
	return texts, nil
}

// Size 当前块数（对外导出）
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Chunks 块快照, 用于持久化（对外导出）
func (idx *Index) Chunks() []*Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*Chunk, len(idx.chunks))
	copy(out, idx.chunks)
	return out
}

// cosine 余弦相似度（内部方法）
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
