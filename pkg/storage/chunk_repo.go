package storage

import (
	"context"
)

// ChunkRepository 向量文本块存储接口（对外导出）
type ChunkRepository interface {
	// SaveChunks 批量保存文本块
	SaveChunks(ctx context.Context, chunks []*ChunkRecord) error

	// ListByRun 查询某次运行产生的文本块
	ListByRun(ctx context.Context, runID string) ([]*ChunkRecord, error)

	// DeleteByRun 删除某次运行的文本块
	DeleteByRun(ctx context.Context, runID string) error
}
