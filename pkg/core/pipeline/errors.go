package pipeline

import (
	"fmt"
	"time"
)

// ConfigurationError 配置错误（对外导出）
// 图结构非法（循环依赖、依赖不存在等），启动期致命，进程必须拒绝对外服务
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置错误: %s", e.Reason)
}

// NewConfigurationError 创建ConfigurationError（对外导出）
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// TaskExecutionError 单个任务执行失败（对外导出）
// 仅影响当前Run，错误信息需同时携带查询和失败任务以便排查
type TaskExecutionError struct {
	TaskID string
	Query  string
	Err    error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("任务执行失败: task=%s, query=%q, 原因: %v", e.TaskID, e.Query, e.Err)
}

func (e *TaskExecutionError) Unwrap() error {
	return e.Err
}

// TimeoutError 外部调用超时（对外导出）
type TimeoutError struct {
	TaskID  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("任务超时: task=%s, 超时时间=%v", e.TaskID, e.Timeout)
}
