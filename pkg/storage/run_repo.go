package storage

import (
	"context"
)

// RunRepository 运行记录存储接口（对外导出）
type RunRepository interface {
	// Save 保存或更新运行记录
	Save(ctx context.Context, run *RunRecord) error

	// SaveTaskResults 保存运行中所有任务的结果
	SaveTaskResults(ctx context.Context, results []*TaskRunRecord) error

	// GetByID 查询运行记录, 不存在时返回(nil, nil)
	GetByID(ctx context.Context, id string) (*RunRecord, error)

	// GetTaskResults 查询运行的任务结果列表
	GetTaskResults(ctx context.Context, runID string) ([]*TaskRunRecord, error)

	// ListRecent 按创建时间倒序查询最近的运行记录
	ListRecent(ctx context.Context, limit int) ([]*RunRecord, error)
}
