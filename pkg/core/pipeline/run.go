package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskResult 单个任务的执行结果（对外导出）
type TaskResult struct {
	TaskID       string     `json:"task_id"`
	Status       string     `json:"status"`
	Output       string     `json:"output,omitempty"`
	Empty        bool       `json:"empty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Run Pipeline的一次执行实例（对外导出）
// 每个用户查询创建独立实例，结果映射write-once-per-key，运行结束后丢弃
type Run struct {
	ID         string    `json:"run_id"`
	PipelineID string    `json:"pipeline_id"`
	Query      string    `json:"query"`
	Status     string    `json:"status"`
	FailedTask string    `json:"failed_task,omitempty"`
	Answer     string    `json:"answer,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`

	mu      sync.RWMutex
	results map[string]*TaskResult
}

// NewRun 创建Run实例（对外导出）
func NewRun(pipelineID, query string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		PipelineID: pipelineID,
		Query:      query,
		Status:     RunStatusRunning,
		StartTime:  time.Now(),
		results:    make(map[string]*TaskResult),
	}
}

// RecordResult 记录任务结果（对外导出）
// 每个任务ID只允许写入一次，重复写入返回错误
func (r *Run) RecordResult(result *TaskResult) error {
	if result == nil || result.TaskID == "" {
		return fmt.Errorf("结果不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.results[result.TaskID]; exists && existing.Status != TaskStatusPending && existing.Status != TaskStatusRunning {
		return fmt.Errorf("任务 %s 的结果已存在，不允许重复写入", result.TaskID)
	}
	r.results[result.TaskID] = result
	return nil
}

// MarkRunning 标记任务开始执行（对外导出）
func (r *Run) MarkRunning(taskID string) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[taskID] = &TaskResult{
		TaskID:    taskID,
		Status:    TaskStatusRunning,
		StartedAt: &now,
	}
}

// GetResult 获取任务结果（对外导出）
func (r *Run) GetResult(taskID string) (*TaskResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, exists := r.results[taskID]
	return result, exists
}

// Results 获取所有任务结果的快照（对外导出）
func (r *Run) Results() map[string]*TaskResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]*TaskResult, len(r.results))
	for id, result := range r.results {
		copied := *result
		snapshot[id] = &copied
	}
	return snapshot
}

// Finish 标记Run结束（对外导出）
func (r *Run) Finish(status, failedTask, answer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.FailedTask = failedTask
	r.Answer = answer
	r.EndTime = time.Now()
}

// Duration 获取Run耗时（对外导出）
func (r *Run) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}
