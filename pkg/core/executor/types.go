package executor

import (
	"github.com/LENAX/med-pipeline/pkg/core/operation"
)

// 任务调度状态（内部使用）
const (
	statePending  = iota // 未调度
	stateRunning         // 执行中
	stateFinished        // 已结束（成功或失败）
	stateSkipped         // 因上游失败被跳过
)

// taskDone 任务完成通知（内部结构）
type taskDone struct {
	taskID string
	result *operation.Result
	err    error
}
