// Package events 提供Pipeline运行过程的事件驱动通知支持
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// 运行状态事件
	EventRunStarted   EventType = "run.started"   // 运行开始
	EventRunCompleted EventType = "run.completed" // 运行成功结束
	EventRunFailed    EventType = "run.failed"    // 运行失败结束

	// 任务状态事件
	EventTaskStarted   EventType = "task.started"   // 任务开始执行
	EventTaskSucceeded EventType = "task.succeeded" // 任务执行成功
	EventTaskFailed    EventType = "task.failed"    // 任务执行失败
	EventTaskSkipped   EventType = "task.skipped"   // 任务因上游失败被跳过
)

// RunEvent 运行事件基础结构
type RunEvent struct {
	ID        string            `json:"id"`               // 事件ID（UUID）
	Type      EventType         `json:"type"`             // 事件类型
	RunID     string            `json:"run_id"`           // 关联Run ID
	TaskID    string            `json:"task_id,omitempty"` // 关联任务ID（运行级事件为空）
	Timestamp time.Time         `json:"timestamp"`        // 事件时间
	Message   string            `json:"message,omitempty"` // 附加说明
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewRunEvent 创建运行事件
func NewRunEvent(eventType EventType, runID, taskID, message string) *RunEvent {
	return &RunEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		RunID:     runID,
		TaskID:    taskID,
		Timestamp: time.Now(),
		Message:   message,
		Metadata:  make(map[string]string),
	}
}

// WithMetadata 添加元数据
func (e *RunEvent) WithMetadata(key, value string) *RunEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}
