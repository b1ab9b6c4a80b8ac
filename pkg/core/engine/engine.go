// Package engine 问答流水线引擎: 配置装配、运行调度与结果持久化
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/LENAX/med-pipeline/pkg/config"
	"github.com/LENAX/med-pipeline/pkg/core/dag"
	"github.com/LENAX/med-pipeline/pkg/core/events"
	"github.com/LENAX/med-pipeline/pkg/core/executor"
	"github.com/LENAX/med-pipeline/pkg/core/operation"
	"github.com/LENAX/med-pipeline/pkg/core/pipeline"
	"github.com/LENAX/med-pipeline/pkg/plugin"
	"github.com/LENAX/med-pipeline/pkg/storage"
)

// Engine 流水线引擎核心结构体（对外导出）
type Engine struct {
	cfg      *config.EngineConfig
	pipe     *pipeline.Pipeline
	taskDAG  *dag.TaskDAG
	exec     *executor.Executor
	registry *operation.Registry
	bus      *events.Bus
	tools    *Toolset
	indexes  *runIndexes

	runRepo   storage.RunRepository
	chunkRepo storage.ChunkRepository

	knowledgeDir string
	cronRunner   *cron.Cron

	plugins     []plugin.Plugin
	alertCancel context.CancelFunc

	running bool
	mu      sync.RWMutex
}

// Start 启动引擎（对外导出）
// 加载知识库并启动定时刷新任务
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	if e.knowledgeDir != "" {
		if err := e.refreshKnowledge(ctx); err != nil {
			log.Printf("知识库加载失败: %v", err)
		}
	}

	if e.cronRunner != nil {
		e.cronRunner.Start()
	}

	if len(e.plugins) > 0 {
		alertCtx, cancel := context.WithCancel(context.Background())
		e.alertCancel = cancel
		failures, err := e.bus.Subscribe(alertCtx, events.EventRunFailed)
		if err != nil {
			cancel()
			return fmt.Errorf("订阅失败事件失败: %w", err)
		}
		go e.dispatchAlerts(failures)
	}

	e.running = true
	log.Printf("✅ 问答流水线引擎已启动: pipeline=%s", e.pipe.ID)
	return nil
}

// Stop 停止引擎（对外导出）
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}

	if e.cronRunner != nil {
		ctx := e.cronRunner.Stop()
		<-ctx.Done()
	}
	if e.alertCancel != nil {
		e.alertCancel()
	}
	if e.bus != nil {
		if err := e.bus.Close(); err != nil {
			log.Printf("事件总线关闭失败: %v", err)
		}
	}

	e.running = false
	log.Println("🛑 问答流水线引擎已停止")
}

// AskQuery 执行一次完整的问答运行（对外导出）
// 返回的Run携带全部任务结果; 运行失败时err非空且Run仍可用于诊断
func (e *Engine) AskQuery(ctx context.Context, query string) (*pipeline.Run, error) {
	e.mu.RLock()
	running := e.running
	e.mu.RUnlock()
	if !running {
		return nil, fmt.Errorf("引擎未启动")
	}

	run, runErr := e.exec.Run(ctx, e.pipe, e.taskDAG, query)
	if run != nil {
		e.indexes.drop(run.ID)
		e.persistRun(ctx, run)
	}
	return run, runErr
}

// dispatchAlerts 将运行失败事件派发给告警插件（内部方法）
func (e *Engine) dispatchAlerts(failures <-chan *events.RunEvent) {
	for event := range failures {
		for _, p := range e.plugins {
			if err := p.OnRunFailed(event); err != nil {
				log.Printf("插件%s告警失败: %v", p.Name(), err)
			}
		}
	}
}

// Pipeline 当前加载的流水线（对外导出）
func (e *Engine) Pipeline() *pipeline.Pipeline {
	return e.pipe
}

// DAG 当前流水线的任务图（对外导出）
func (e *Engine) DAG() *dag.TaskDAG {
	return e.taskDAG
}

// EventBus 事件总线（对外导出, 供API层订阅）
func (e *Engine) EventBus() *events.Bus {
	return e.bus
}

// RunRepository 运行记录存储（对外导出, 供API层查询历史）
func (e *Engine) RunRepository() storage.RunRepository {
	return e.runRepo
}

// persistRun 持久化运行记录与任务结果（内部方法）
// 存储不可用时只记日志, 不影响问答结果返回
func (e *Engine) persistRun(ctx context.Context, run *pipeline.Run) {
	if e.runRepo == nil {
		return
	}

	results := run.Results()

	record := &storage.RunRecord{
		ID:         run.ID,
		PipelineID: e.pipe.ID,
		Query:      run.Query,
		Status:     run.Status,
		Answer:     run.Answer,
		FailedTask: run.FailedTask,
		StartTime:  run.StartTime,
		CreateTime: run.StartTime,
	}
	if !run.EndTime.IsZero() {
		endTime := run.EndTime
		record.EndTime = &endTime
	}
	if run.FailedTask != "" {
		if failed, exists := results[run.FailedTask]; exists {
			record.ErrorMessage = failed.ErrorMessage
		}
	}
	if err := e.runRepo.Save(ctx, record); err != nil {
		log.Printf("运行记录持久化失败: %v", err)
		return
	}

	var taskRecords []*storage.TaskRunRecord
	for _, result := range results {
		taskRecords = append(taskRecords, &storage.TaskRunRecord{
			RunID:        run.ID,
			TaskID:       result.TaskID,
			Status:       result.Status,
			Output:       result.Output,
			Empty:        result.Empty,
			ErrorMessage: result.ErrorMessage,
			StartTime:    result.StartedAt,
			EndTime:      result.FinishedAt,
		})
	}
	if err := e.runRepo.SaveTaskResults(ctx, taskRecords); err != nil {
		log.Printf("任务结果持久化失败: %v", err)
	}
}

// refreshKnowledge 重新索引知识库目录下的.txt文件（内部方法）
func (e *Engine) refreshKnowledge(ctx context.Context) error {
	if e.tools.Knowledge == nil {
		return nil
	}

	entries, err := os.ReadDir(e.knowledgeDir)
	if err != nil {
		return fmt.Errorf("读取知识库目录失败: %w", err)
	}

	var texts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(e.knowledgeDir, entry.Name()))
		if err != nil {
			log.Printf("读取知识文件%s失败: %v", entry.Name(), err)
			continue
		}
		texts = append(texts, string(data))
	}
	if len(texts) == 0 {
		log.Printf("知识库目录%s中没有.txt文件", e.knowledgeDir)
		return nil
	}

	n, err := e.tools.Knowledge.IndexText(ctx, strings.Join(texts, "\n"))
	if err != nil {
		return fmt.Errorf("知识库索引失败: %w", err)
	}
	log.Printf("✅ 知识库已刷新: %d个文件, %d个文本块", len(texts), n)
	return nil
}
