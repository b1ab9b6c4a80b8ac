package engine

import (
	"sync"

	"github.com/LENAX/med-pipeline/pkg/vector"
)

// runIndexes 运行级向量索引表（小写，不导出）
// 每次运行独立一个索引, 运行结束后丢弃
type runIndexes struct {
	embedder vector.Embedder
	mu       sync.Mutex
	indexes  map[string]*vector.Index
}

func newRunIndexes(embedder vector.Embedder) *runIndexes {
	return &runIndexes{
		embedder: embedder,
		indexes:  make(map[string]*vector.Index),
	}
}

// get 获取或创建某次运行的索引
func (r *runIndexes) get(runID string) *vector.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, exists := r.indexes[runID]
	if !exists {
		idx = vector.NewIndex(r.embedder)
		r.indexes[runID] = idx
	}
	return idx
}

// peek 只读取已有索引, 不存在时返回nil
func (r *runIndexes) peek(runID string) *vector.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexes[runID]
}

// drop 运行结束后释放索引
func (r *runIndexes) drop(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexes, runID)
}
