package operation

import (
	"fmt"
	"sort"
	"sync"
)

// Registry 操作注册中心（对外导出）
// 启动时静态注册全部操作，运行期只读
type Registry struct {
	mu         sync.RWMutex
	operations map[string]Operation
}

// NewRegistry 创建操作注册中心（对外导出）
func NewRegistry() *Registry {
	return &Registry{
		operations: make(map[string]Operation),
	}
}

// Register 注册操作（对外导出）
// 同一个操作键只允许注册一次
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return fmt.Errorf("操作不能为空")
	}
	if op.Key() == "" {
		return fmt.Errorf("操作键不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operations[op.Key()]; exists {
		return fmt.Errorf("操作 %s 已注册", op.Key())
	}
	r.operations[op.Key()] = op
	return nil
}

// Get 获取操作（对外导出）
func (r *Registry) Get(key string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, exists := r.operations[key]
	return op, exists
}

// Keys 获取所有已注册的操作键（对外导出）
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.operations))
	for key := range r.operations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
