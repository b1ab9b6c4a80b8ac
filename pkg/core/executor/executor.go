package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/med-pipeline/pkg/core/dag"
	"github.com/LENAX/med-pipeline/pkg/core/events"
	"github.com/LENAX/med-pipeline/pkg/core/operation"
	"github.com/LENAX/med-pipeline/pkg/core/pipeline"
)

const (
	maxGlobalWorkers   = 1000             // 全局最大并发数上限
	defaultTaskTimeout = 30 * time.Second // 默认任务超时时间
)

// Executor 任务图执行器（对外导出）
// 对给定Pipeline和用户查询执行一次完整调度：
// 依赖全部就绪的任务立即派发，独立分支并发执行，
// 任一任务失败则取消运行并跳过所有未开始的任务
type Executor struct {
	maxWorkers     int
	workerPool     chan struct{} // 全局Worker池（跨Run共享）
	registry       *operation.Registry
	bus            *events.Bus // 可为nil（不发布事件）
	defaultTimeout time.Duration
}

// NewExecutor 创建执行器实例（对外导出）
func NewExecutor(maxWorkers int, registry *operation.Registry) (*Executor, error) {
	if registry == nil {
		return nil, fmt.Errorf("操作注册中心不能为空")
	}
	if maxWorkers <= 0 {
		maxWorkers = 10 // 默认值
	}
	if maxWorkers > maxGlobalWorkers {
		return nil, fmt.Errorf("最大并发数不能超过 %d", maxGlobalWorkers)
	}

	return &Executor{
		maxWorkers:     maxWorkers,
		workerPool:     make(chan struct{}, maxWorkers),
		registry:       registry,
		defaultTimeout: defaultTaskTimeout,
	}, nil
}

// SetEventBus 设置事件总线（对外导出）
func (e *Executor) SetEventBus(bus *events.Bus) {
	e.bus = bus
}

// SetDefaultTimeout 设置默认任务超时时间（对外导出）
func (e *Executor) SetDefaultTimeout(timeout time.Duration) {
	if timeout > 0 {
		e.defaultTimeout = timeout
	}
}

// Run 执行一次Pipeline（对外导出）
// 为本次查询创建独立的Run（ExecutionContext），并发查询互不干扰。
// 成功时返回的Run中Answer为终点任务的输出；
// 失败时返回TaskExecutionError，指明失败任务和查询
func (e *Executor) Run(ctx context.Context, p *pipeline.Pipeline, td *dag.TaskDAG, query string) (*pipeline.Run, error) {
	run := pipeline.NewRun(p.ID, query)
	e.publish(events.NewRunEvent(events.EventRunStarted, run.ID, "", query))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	vertices := td.GetVertices()
	total := len(vertices)
	doneCh := make(chan taskDone, total)

	// 每个节点的剩余未完成前置数
	remaining := make(map[string]int, total)
	state := make(map[string]int, total)
	for id := range vertices {
		parents, err := td.GetParents(id)
		if err != nil {
			return run, pipeline.NewConfigurationError("获取任务 %s 的前置任务失败: %v", id, err)
		}
		remaining[id] = len(parents)
		state[id] = statePending
	}

	dispatch := func(taskID string) {
		t := vertices[taskID]
		state[taskID] = stateRunning
		run.MarkRunning(taskID)

		go func() {
			// 获取Worker池token
			select {
			case e.workerPool <- struct{}{}:
			case <-runCtx.Done():
				doneCh <- taskDone{taskID: taskID, err: runCtx.Err()}
				return
			}
			defer func() { <-e.workerPool }()

			e.publish(events.NewRunEvent(events.EventTaskStarted, run.ID, taskID, t.Name))
			result, err := e.executeTask(runCtx, p, run, t)
			doneCh <- taskDone{taskID: taskID, result: result, err: err}
		}()
	}

	// 先派发所有无前置的根任务
	for _, rootID := range td.GetRoots() {
		dispatch(rootID)
	}

	finished := 0
	var runErr error
	failedTask := ""

	for finished < total {
		done := <-doneCh
		finished++
		state[done.taskID] = stateFinished
		now := time.Now()

		if done.err != nil {
			// 失败结果记录在失败任务名下
			recordErr := run.RecordResult(&pipeline.TaskResult{
				TaskID:       done.taskID,
				Status:       pipeline.TaskStatusFailed,
				ErrorMessage: done.err.Error(),
				FinishedAt:   &now,
			})
			if recordErr != nil {
				log.Printf("记录失败结果异常: %v", recordErr)
			}
			e.publish(events.NewRunEvent(events.EventTaskFailed, run.ID, done.taskID, done.err.Error()))

			// 首个失败决定整个Run的失败原因；取消运行并跳过所有未开始的任务
			if runErr == nil {
				failedTask = done.taskID
				runErr = e.wrapTaskError(done.taskID, query, done.err)
				cancel()
				finished += e.skipPending(td, run, state)
			}
			continue
		}

		// 空结果照常记录，但不视为失败，下游需自行降级处理
		output := ""
		empty := true
		if done.result != nil {
			output = done.result.Output
			empty = done.result.Empty || done.result.Output == ""
		}
		if err := run.RecordResult(&pipeline.TaskResult{
			TaskID:     done.taskID,
			Status:     pipeline.TaskStatusSuccess,
			Output:     output,
			Empty:      empty,
			FinishedAt: &now,
		}); err != nil {
			log.Printf("记录任务结果异常: %v", err)
		}
		e.publish(events.NewRunEvent(events.EventTaskSucceeded, run.ID, done.taskID, ""))

		if runErr != nil {
			// 运行已失败，不再派发新任务
			continue
		}

		// 更新下游任务的剩余前置数，全部就绪则立即派发
		children, err := td.GetChildren(done.taskID)
		if err != nil {
			continue
		}
		for _, childID := range children {
			if state[childID] != statePending {
				continue
			}
			remaining[childID]--
			if remaining[childID] == 0 {
				dispatch(childID)
			}
		}
	}

	if runErr != nil {
		// 已计算的上游部分结果不用于生成最终答案，但保留在Run中供观测
		run.Finish(pipeline.RunStatusFailed, failedTask, "")
		e.publish(events.NewRunEvent(events.EventRunFailed, run.ID, failedTask, runErr.Error()))
		return run, runErr
	}

	// 终态判定：只有指定的终点任务（答案合成）产出结果才算成功
	finalResult, exists := run.GetResult(p.FinalTask)
	if !exists || finalResult.Status != pipeline.TaskStatusSuccess {
		runErr = fmt.Errorf("终点任务 %s 未产出结果", p.FinalTask)
		run.Finish(pipeline.RunStatusFailed, p.FinalTask, "")
		e.publish(events.NewRunEvent(events.EventRunFailed, run.ID, p.FinalTask, runErr.Error()))
		return run, runErr
	}

	run.Finish(pipeline.RunStatusSuccess, "", finalResult.Output)
	e.publish(events.NewRunEvent(events.EventRunCompleted, run.ID, "", ""))
	return run, nil
}

// executeTask 执行单个任务（内部方法）
// 上游输出按任务的input_keys契约选择，外部调用携带有界超时
func (e *Executor) executeTask(ctx context.Context, p *pipeline.Pipeline, run *pipeline.Run, t *pipeline.Task) (*operation.Result, error) {
	op, exists := e.registry.Get(t.Operation)
	if !exists {
		return nil, fmt.Errorf("操作 %s 未注册", t.Operation)
	}

	// 组装输入：上游结果按声明的选择策略注入
	upstream := make(map[string]string)
	for _, depID := range t.GetInputKeys() {
		if result, ok := run.GetResult(depID); ok && result.Status == pipeline.TaskStatusSuccess {
			upstream[depID] = result.Output
		}
	}

	in := &operation.Input{
		RunID:    run.ID,
		Query:    run.Query,
		Upstream: upstream,
		Params:   t.Params,
		Prompt:   renderPrompt(p, t),
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	opCtx, cancelOp := context.WithTimeout(ctx, timeout)
	defer cancelOp()

	result, err := op.Execute(opCtx, in)
	if err != nil {
		// 超时作为该任务的失败上报，而不是挂起整个运行
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &pipeline.TimeoutError{TaskID: t.TaskID, Timeout: timeout}
		}
		return nil, err
	}
	return result, nil
}

// skipPending 跳过所有未开始的任务（内部方法）
// 返回被跳过的任务数量
func (e *Executor) skipPending(td *dag.TaskDAG, run *pipeline.Run, state map[string]int) int {
	skipped := 0
	now := time.Now()
	for id, s := range state {
		if s != statePending {
			continue
		}
		state[id] = stateSkipped
		skipped++
		if err := run.RecordResult(&pipeline.TaskResult{
			TaskID:     id,
			Status:     pipeline.TaskStatusSkipped,
			FinishedAt: &now,
		}); err != nil {
			log.Printf("记录跳过结果异常: %v", err)
		}
		e.publish(events.NewRunEvent(events.EventTaskSkipped, run.ID, id, "上游任务失败"))
	}
	return skipped
}

// wrapTaskError 包装任务错误（内部方法）
func (e *Executor) wrapTaskError(taskID, query string, err error) error {
	var taskErr *pipeline.TaskExecutionError
	if errors.As(err, &taskErr) {
		return err
	}
	return &pipeline.TaskExecutionError{TaskID: taskID, Query: query, Err: err}
}

// publish 发布事件（内部方法，总线未配置时为空操作）
func (e *Executor) publish(event *events.RunEvent) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(event); err != nil {
		log.Printf("发布事件失败: %v", err)
	}
}

// renderPrompt 渲染Agent元数据为提示词前缀（内部方法）
// Agent的role/goal/backstory对调度透明，仅在此拼入提示词
func renderPrompt(p *pipeline.Pipeline, t *pipeline.Task) string {
	agent := p.GetAgent(t)
	if agent == nil {
		return ""
	}
	return fmt.Sprintf("角色: %s\n目标: %s\n背景: %s\n任务: %s\n期望输出: %s",
		agent.Role, agent.Goal, agent.Backstory, t.Description, t.ExpectedOutput)
}
