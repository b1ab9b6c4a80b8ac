package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LENAX/med-pipeline/pkg/core/dag"
	"github.com/LENAX/med-pipeline/pkg/core/operation"
	"github.com/LENAX/med-pipeline/pkg/core/pipeline"
)

// fakeOp 测试用操作，可配置行为
type fakeOp struct {
	key     string
	execute func(ctx context.Context, in *operation.Input) (*operation.Result, error)

	mu    sync.Mutex
	calls []*operation.Input
}

func (f *fakeOp) Key() string { return f.key }

func (f *fakeOp) Execute(ctx context.Context, in *operation.Input) (*operation.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	if f.execute != nil {
		return f.execute(ctx, in)
	}
	return &operation.Result{Output: f.key + "-output"}, nil
}

func (f *fakeOp) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeOp) lastInput() *operation.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// buildPipeline 从任务定义构建Pipeline和DAG（测试辅助）
func buildPipeline(t *testing.T, finalTask string, tasks ...*pipeline.Task) (*pipeline.Pipeline, *dag.TaskDAG) {
	t.Helper()

	taskMap := make(map[string]*pipeline.Task, len(tasks))
	for _, task := range tasks {
		taskMap[task.TaskID] = task
	}
	p := &pipeline.Pipeline{
		ID:        "test-pipeline",
		Name:      "测试Pipeline",
		Tasks:     taskMap,
		FinalTask: finalTask,
		Agents:    make(map[string]*pipeline.Agent),
	}

	td, err := dag.BuildDAG(taskMap, p.Dependencies())
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}
	return p, td
}

func newTestExecutor(t *testing.T, ops ...operation.Operation) *Executor {
	t.Helper()

	registry := operation.NewRegistry()
	for _, op := range ops {
		if err := registry.Register(op); err != nil {
			t.Fatalf("注册操作失败: %v", err)
		}
	}
	exec, err := NewExecutor(10, registry)
	if err != nil {
		t.Fatalf("创建Executor失败: %v", err)
	}
	return exec
}

func TestRun_LinearChain(t *testing.T) {
	searchOp := &fakeOp{key: "search"}
	fetchOp := &fakeOp{key: "fetch", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		if in.Upstream["t_search"] != "search-output" {
			return nil, fmt.Errorf("上游输出未传递: %v", in.Upstream)
		}
		return &operation.Result{Output: "fetch-output"}, nil
	}}

	p, td := buildPipeline(t, "t_fetch",
		&pipeline.Task{TaskID: "t_search", Operation: "search"},
		&pipeline.Task{TaskID: "t_fetch", Operation: "fetch", Dependencies: []string{"t_search"}},
	)

	exec := newTestExecutor(t, searchOp, fetchOp)
	run, err := exec.Run(context.Background(), p, td, "test query")
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}

	if run.Status != pipeline.RunStatusSuccess {
		t.Errorf("Run状态错误，期望: SUCCESS, 实际: %s", run.Status)
	}
	if run.Answer != "fetch-output" {
		t.Errorf("最终答案错误，期望: fetch-output, 实际: %s", run.Answer)
	}
}

func TestRun_IndependentBranchesMerge(t *testing.T) {
	// 两个独立分支（文献和药物）无依赖关系，可以任意相对顺序执行；
	// 汇合任务必须同时收到两者的结果
	var mu sync.Mutex
	started := make(map[string]time.Time)

	literatureOp := &fakeOp{key: "literature", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		mu.Lock()
		started["literature"] = time.Now()
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		return &operation.Result{Output: "literature-evidence"}, nil
	}}
	drugOp := &fakeOp{key: "drug", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		mu.Lock()
		started["drug"] = time.Now()
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return &operation.Result{Output: "drug-evidence"}, nil
	}}
	mergeOp := &fakeOp{key: "merge", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		return &operation.Result{Output: in.UpstreamText([]string{"t_literature", "t_drug"})}, nil
	}}

	p, td := buildPipeline(t, "t_merge",
		&pipeline.Task{TaskID: "t_literature", Operation: "literature"},
		&pipeline.Task{TaskID: "t_drug", Operation: "drug"},
		&pipeline.Task{TaskID: "t_merge", Operation: "merge", Dependencies: []string{"t_literature", "t_drug"}},
	)

	exec := newTestExecutor(t, literatureOp, drugOp, mergeOp)
	run, err := exec.Run(context.Background(), p, td, "query")
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}

	// 两个分支并发启动（启动间隔远小于literature的执行时间）
	mu.Lock()
	gap := started["literature"].Sub(started["drug"])
	mu.Unlock()
	if gap < 0 {
		gap = -gap
	}
	if gap > 20*time.Millisecond {
		t.Errorf("独立分支未并发执行，启动间隔: %v", gap)
	}

	// 汇合任务收到两个分支的输出
	if !strings.Contains(run.Answer, "literature-evidence") || !strings.Contains(run.Answer, "drug-evidence") {
		t.Errorf("汇合任务未收到全部上游结果: %s", run.Answer)
	}
}

func TestRun_EmptyUpstreamDegradesGracefully(t *testing.T) {
	// 上游返回空结果（如未检索到文献）应被记录但不视为失败，
	// 下游照常执行并产出缺少该输入贡献的尽力结果
	emptyOp := &fakeOp{key: "empty", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		return operation.EmptyResult(), nil
	}}
	downstreamOp := &fakeOp{key: "downstream", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		if in.Upstream["t_empty"] != "" {
			return nil, fmt.Errorf("期望空上游输入")
		}
		return &operation.Result{Output: "best-effort"}, nil
	}}

	p, td := buildPipeline(t, "t_down",
		&pipeline.Task{TaskID: "t_empty", Operation: "empty"},
		&pipeline.Task{TaskID: "t_down", Operation: "downstream", Dependencies: []string{"t_empty"}},
	)

	exec := newTestExecutor(t, emptyOp, downstreamOp)
	run, err := exec.Run(context.Background(), p, td, "query")
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}

	emptyResult, _ := run.GetResult("t_empty")
	if emptyResult.Status != pipeline.TaskStatusSuccess || !emptyResult.Empty {
		t.Errorf("空结果应记录为成功且标记Empty: %+v", emptyResult)
	}
	if run.Answer != "best-effort" {
		t.Errorf("下游未降级执行，答案: %s", run.Answer)
	}
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	// 任务失败后，直接和传递依赖它的任务都不执行，Run报告失败任务名
	failOp := &fakeOp{key: "fail", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		return nil, fmt.Errorf("外部API不可用")
	}}
	neverOp := &fakeOp{key: "never"}
	finalOp := &fakeOp{key: "final"}

	p, td := buildPipeline(t, "t_final",
		&pipeline.Task{TaskID: "t_fail", Operation: "fail"},
		&pipeline.Task{TaskID: "t_never", Operation: "never", Dependencies: []string{"t_fail"}},
		&pipeline.Task{TaskID: "t_final", Operation: "final", Dependencies: []string{"t_never"}},
	)

	exec := newTestExecutor(t, failOp, neverOp, finalOp)
	run, err := exec.Run(context.Background(), p, td, "pembrolizumab dosage")
	if err == nil {
		t.Fatal("期望运行失败，但成功了")
	}

	var taskErr *pipeline.TaskExecutionError
	if !errors.As(err, &taskErr) {
		t.Fatalf("错误类型错误，期望TaskExecutionError，实际: %T", err)
	}
	if taskErr.TaskID != "t_fail" {
		t.Errorf("失败任务名错误，期望: t_fail, 实际: %s", taskErr.TaskID)
	}
	// 失败信息需同时指明查询和失败阶段
	if !strings.Contains(err.Error(), "pembrolizumab dosage") || !strings.Contains(err.Error(), "t_fail") {
		t.Errorf("失败信息缺少查询或失败任务: %s", err.Error())
	}

	if neverOp.callCount() != 0 || finalOp.callCount() != 0 {
		t.Errorf("依赖失败任务的下游不应执行: never=%d, final=%d", neverOp.callCount(), finalOp.callCount())
	}

	if run.FailedTask != "t_fail" {
		t.Errorf("Run.FailedTask错误，期望: t_fail, 实际: %s", run.FailedTask)
	}
	for _, id := range []string{"t_never", "t_final"} {
		result, _ := run.GetResult(id)
		if result == nil || result.Status != pipeline.TaskStatusSkipped {
			t.Errorf("任务 %s 应标记为SKIPPED: %+v", id, result)
		}
	}
}

func TestRun_TaskTimeout(t *testing.T) {
	// 外部调用超时作为该任务的失败上报，而不是挂起整个运行
	slowOp := &fakeOp{key: "slow", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		select {
		case <-time.After(5 * time.Second):
			return &operation.Result{Output: "too late"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}

	p, td := buildPipeline(t, "t_slow",
		&pipeline.Task{TaskID: "t_slow", Operation: "slow", Timeout: 50 * time.Millisecond},
	)

	exec := newTestExecutor(t, slowOp)
	start := time.Now()
	_, err := exec.Run(context.Background(), p, td, "query")
	if err == nil {
		t.Fatal("期望超时失败，但成功了")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("超时未生效，运行被挂起")
	}

	var timeoutErr *pipeline.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("错误类型错误，期望TimeoutError，实际: %v", err)
	}
	if timeoutErr.TaskID != "t_slow" {
		t.Errorf("超时任务名错误，期望: t_slow, 实际: %s", timeoutErr.TaskID)
	}
}

func TestRun_FailureInOneBranchSkipsUnstartedTasks(t *testing.T) {
	// 一个分支失败后，另一分支未开始的任务被跳过，运行整体取消
	failFastOp := &fakeOp{key: "failfast", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		return nil, fmt.Errorf("检索服务异常")
	}}
	slowBranchOp := &fakeOp{key: "slowbranch", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return &operation.Result{Output: "slow"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	afterSlowOp := &fakeOp{key: "afterslow"}
	mergeOp := &fakeOp{key: "merge2"}

	p, td := buildPipeline(t, "t_merge",
		&pipeline.Task{TaskID: "t_fail", Operation: "failfast"},
		&pipeline.Task{TaskID: "t_slow", Operation: "slowbranch"},
		&pipeline.Task{TaskID: "t_after", Operation: "afterslow", Dependencies: []string{"t_slow"}},
		&pipeline.Task{TaskID: "t_merge", Operation: "merge2", Dependencies: []string{"t_fail", "t_after"}},
	)

	exec := newTestExecutor(t, failFastOp, slowBranchOp, afterSlowOp, mergeOp)
	run, err := exec.Run(context.Background(), p, td, "query")
	if err == nil {
		t.Fatal("期望运行失败，但成功了")
	}

	if mergeOp.callCount() != 0 {
		t.Error("汇合任务依赖失败任务，不应执行")
	}
	if afterSlowOp.callCount() != 0 {
		t.Error("失败后未开始的任务应被跳过，不应执行")
	}
	if run.Status != pipeline.RunStatusFailed {
		t.Errorf("Run状态错误，期望: FAILED, 实际: %s", run.Status)
	}
}

func TestRun_ConcurrentRunsAreIsolated(t *testing.T) {
	// 并发查询各自持有独立的ExecutionContext，互不干扰
	echoOp := &fakeOp{key: "echo", execute: func(ctx context.Context, in *operation.Input) (*operation.Result, error) {
		return &operation.Result{Output: "answer:" + in.Query}, nil
	}}

	p, td := buildPipeline(t, "t_echo",
		&pipeline.Task{TaskID: "t_echo", Operation: "echo"},
	)
	exec := newTestExecutor(t, echoOp)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			query := fmt.Sprintf("query-%d", i)
			run, err := exec.Run(context.Background(), p, td, query)
			if err != nil {
				t.Errorf("运行失败: %v", err)
				return
			}
			if run.Answer != "answer:"+query {
				t.Errorf("并发Run结果串扰，期望: answer:%s, 实际: %s", query, run.Answer)
			}
		}(i)
	}
	wg.Wait()
}

func TestRun_PromptCarriesAgentMetadata(t *testing.T) {
	promptOp := &fakeOp{key: "prompted"}

	taskMap := map[string]*pipeline.Task{
		"t1": {TaskID: "t1", Operation: "prompted", AgentRef: "researcher", Description: "检索文献", ExpectedOutput: "带PMID的结论"},
	}
	p := &pipeline.Pipeline{
		ID:    "p1",
		Tasks: taskMap,
		Agents: map[string]*pipeline.Agent{
			"researcher": {Name: "researcher", Role: "医学文献研究员", Goal: "找到相关文献", Backstory: "擅长检索"},
		},
		FinalTask: "t1",
	}
	td, err := dag.BuildDAG(taskMap, p.Dependencies())
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	exec := newTestExecutor(t, promptOp)
	if _, err := exec.Run(context.Background(), p, td, "query"); err != nil {
		t.Fatalf("运行失败: %v", err)
	}

	in := promptOp.lastInput()
	if in == nil {
		t.Fatal("操作未被调用")
	}
	for _, fragment := range []string{"医学文献研究员", "检索文献", "带PMID的结论"} {
		if !strings.Contains(in.Prompt, fragment) {
			t.Errorf("提示词缺少Agent元数据片段 %q: %s", fragment, in.Prompt)
		}
	}
}
