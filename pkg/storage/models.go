package storage

import (
	"time"
)

// RunRecord 一次问答运行的持久化记录（对外导出）
type RunRecord struct {
	ID           string
	PipelineID   string
	Query        string
	Status       string
	Answer       string
	FailedTask   string
	ErrorMessage string
	StartTime    time.Time
	EndTime      *time.Time
	CreateTime   time.Time
}

// TaskRunRecord 运行中单个任务的结果记录（对外导出）
type TaskRunRecord struct {
	RunID        string
	TaskID       string
	Status       string
	Output       string
	Empty        bool
	ErrorMessage string
	StartTime    *time.Time
	EndTime      *time.Time
}

// ChunkRecord 持久化的向量文本块（对外导出）
type ChunkRecord struct {
	ID         string
	RunID      string
	Text       string
	Vector     []float32
	CreateTime time.Time
}
