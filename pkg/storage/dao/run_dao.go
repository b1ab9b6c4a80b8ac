// Package dao 存储层数据对象
package dao

import (
	"database/sql"
	"time"
)

// RunDAO 运行记录表行（对外导出）
type RunDAO struct {
	ID           string         `db:"id"`
	PipelineID   string         `db:"pipeline_id"`
	Query        string         `db:"query"`
	Status       string         `db:"status"`
	Answer       sql.NullString `db:"answer"`
	FailedTask   sql.NullString `db:"failed_task"`
	ErrorMessage sql.NullString `db:"error_message"`
	StartTime    sql.NullTime   `db:"start_time"`
	EndTime      sql.NullTime   `db:"end_time"`
	CreateTime   time.Time      `db:"create_time"`
}

// TaskRunDAO 任务结果表行（对外导出）
type TaskRunDAO struct {
	RunID        string         `db:"run_id"`
	TaskID       string         `db:"task_id"`
	Status       string         `db:"status"`
	Output       sql.NullString `db:"output"`
	Empty        bool           `db:"empty"`
	ErrorMessage sql.NullString `db:"error_message"`
	StartTime    sql.NullTime   `db:"start_time"`
	EndTime      sql.NullTime   `db:"end_time"`
}

// ChunkDAO 向量块表行（对外导出）
// 向量以JSON数组存储
type ChunkDAO struct {
	ID         string    `db:"id"`
	RunID      string    `db:"run_id"`
	Text       string    `db:"text"`
	Vector     string    `db:"vector"`
	CreateTime time.Time `db:"create_time"`
}
