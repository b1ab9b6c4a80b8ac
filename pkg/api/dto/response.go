package dto

import "time"

// AskResponse 医学问答响应
// 前端协作方只依赖result字段, 附加字段向后兼容
type AskResponse struct {
	Result    string `json:"result"`
	RunID     string `json:"run_id,omitempty"`
	QueryType string `json:"query_type,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// AskErrorResponse 医学问答失败响应
type AskErrorResponse struct {
	Error      string `json:"error"`
	FailedTask string `json:"failed_task,omitempty"`
}

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// PipelineDetail 流水线详细信息
type PipelineDetail struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	FinalTask    string              `json:"final_task"`
	Tasks        []TaskSummary       `json:"tasks"`
	Dependencies map[string][]string `json:"dependencies"`
}

// TaskSummary 任务摘要信息
type TaskSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Operation    string   `json:"operation"`
	Agent        string   `json:"agent,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Timeout      string   `json:"timeout,omitempty"`
}

// RunSummary 运行摘要信息
type RunSummary struct {
	ID         string     `json:"id"`
	Query      string     `json:"query"`
	Status     string     `json:"status"`
	FailedTask string     `json:"failed_task,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Duration   string     `json:"duration,omitempty"`
}

// RunDetail 运行详细信息
type RunDetail struct {
	RunSummary
	Answer       string `json:"answer,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// TaskRunDetail 任务运行详细信息
type TaskRunDetail struct {
	TaskID       string     `json:"task_id"`
	Status       string     `json:"status"`
	Empty        bool       `json:"empty"`
	Output       string     `json:"output,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total   int  `json:"total"`
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}
