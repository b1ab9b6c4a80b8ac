package engine

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LENAX/med-pipeline/pkg/config"
	"github.com/LENAX/med-pipeline/pkg/core/dag"
	"github.com/LENAX/med-pipeline/pkg/core/events"
	"github.com/LENAX/med-pipeline/pkg/core/executor"
	"github.com/LENAX/med-pipeline/pkg/core/operation"
	"github.com/LENAX/med-pipeline/pkg/core/pipeline"
	"github.com/LENAX/med-pipeline/pkg/llm"
	"github.com/LENAX/med-pipeline/pkg/plugin"
	"github.com/LENAX/med-pipeline/pkg/storage"
	"github.com/LENAX/med-pipeline/pkg/tools/cdc"
	"github.com/LENAX/med-pipeline/pkg/tools/clinicaltrials"
	"github.com/LENAX/med-pipeline/pkg/tools/pubmed"
	"github.com/LENAX/med-pipeline/pkg/tools/rxnorm"
	"github.com/LENAX/med-pipeline/pkg/vector"
)

const toolTimeout = 10 * time.Second

// Builder Engine装配器（对外导出）
// 配置错误在Build阶段全部暴露, 不进入运行期
type Builder struct {
	engineCfg   *config.EngineConfig
	pipelineCfg *config.PipelineConfig

	runRepo   storage.RunRepository
	chunkRepo storage.ChunkRepository

	plugins []plugin.Plugin

	// 测试时可注入替身
	llmClient llm.Client
	embedder  vector.Embedder
	tools     *Toolset
}

// NewBuilder 创建装配器（对外导出）
func NewBuilder(engineCfg *config.EngineConfig, pipelineCfg *config.PipelineConfig) *Builder {
	return &Builder{
		engineCfg:   engineCfg,
		pipelineCfg: pipelineCfg,
	}
}

// WithStorage 注入运行记录与向量块存储（对外导出）
func (b *Builder) WithStorage(runRepo storage.RunRepository, chunkRepo storage.ChunkRepository) *Builder {
	b.runRepo = runRepo
	b.chunkRepo = chunkRepo
	return b
}

// WithLLM 注入LLM客户端（对外导出）
func (b *Builder) WithLLM(client llm.Client) *Builder {
	b.llmClient = client
	return b
}

// WithEmbedder 注入向量化器（对外导出）
func (b *Builder) WithEmbedder(embedder vector.Embedder) *Builder {
	b.embedder = embedder
	return b
}

// WithToolset 整体替换外部客户端集合（对外导出, 测试用）
func (b *Builder) WithToolset(tools *Toolset) *Builder {
	b.tools = tools
	return b
}

// WithPlugins 注册运行失败告警插件（对外导出）
func (b *Builder) WithPlugins(plugins ...plugin.Plugin) *Builder {
	b.plugins = append(b.plugins, plugins...)
	return b
}

// Build 装配Engine（对外导出）
// 任何配置问题都以ConfigurationError返回, 引擎不会在损坏的配置上启动
func (b *Builder) Build() (*Engine, error) {
	if err := config.ValidateEngineConfig(b.engineCfg); err != nil {
		return nil, pipeline.NewConfigurationError("%v", err)
	}
	mp := &b.engineCfg.MedPipeline

	registry := operation.NewRegistry()

	embedder := b.embedder
	if embedder == nil {
		if mp.Embedding.Endpoint != "" {
			embedder = vector.NewHTTPEmbedder(mp.Embedding.Endpoint, mp.Embedding.Model, mp.Credentials.EmbedAPIKey, toolTimeout)
		} else {
			embedder = vector.NewHashEmbedder(mp.Embedding.Dim)
		}
	}
	indexes := newRunIndexes(embedder)

	tools := b.tools
	if tools == nil {
		llmClient := b.llmClient
		if llmClient == nil {
			if mp.LLM.Mock {
				llmClient = llm.NewMockClient()
			} else {
				llmClient = llm.NewHTTPClient(llm.Options{
					Endpoint:   mp.LLM.Endpoint,
					Model:      mp.LLM.Model,
					APIKey:     mp.Credentials.GroqAPIKey,
					MaxTokens:  mp.LLM.MaxTokens,
					MaxRetries: mp.LLM.MaxRetries,
					BaseDelay:  mp.LLM.BaseDelay.Std(),
				})
			}
		}

		tools = &Toolset{
			PubMed: pubmed.NewClient(mp.Tools.PubMed.BaseURL, mp.Tools.PubMed.RetMax, mp.Credentials.NCBIAPIKey, toolTimeout),
			RxNorm: rxnorm.NewClient(mp.Tools.RxNorm.BaseURL, toolTimeout),
			Trials: clinicaltrials.NewClient(mp.Tools.ClinicalTrials.BaseURL, mp.Tools.ClinicalTrials.MaxResults, toolTimeout),
			CDC:    cdc.NewClient(mp.Tools.CDC.BaseURL, mp.Tools.CDC.MaxResults, toolTimeout),
			LLM:    llmClient,
			Chunks: b.chunkRepo,
		}
	}
	if tools.Knowledge == nil && mp.Knowledge.Dir != "" {
		tools.Knowledge = vector.NewIndex(embedder)
	}

	if err := RegisterOperations(registry, tools, indexes); err != nil {
		return nil, pipeline.NewConfigurationError("注册操作失败: %v", err)
	}

	operationKeys := make(map[string]bool)
	for _, key := range registry.Keys() {
		operationKeys[key] = true
	}
	b.pipelineCfg.ApplyDefaults(mp.Execution.DefaultTaskTimeout)
	if err := config.ValidatePipelineConfig(b.pipelineCfg, operationKeys); err != nil {
		return nil, pipeline.NewConfigurationError("%v", err)
	}

	pipe := buildPipeline(b.pipelineCfg)
	taskDAG, err := dag.BuildDAG(pipe.Tasks, pipe.Dependencies())
	if err != nil {
		return nil, pipeline.NewConfigurationError("构建任务图失败: %v", err)
	}

	exec, err := executor.NewExecutor(mp.Execution.WorkerConcurrency, registry)
	if err != nil {
		return nil, pipeline.NewConfigurationError("创建执行器失败: %v", err)
	}
	exec.SetDefaultTimeout(mp.Execution.DefaultTaskTimeout.Std())

	bus := events.NewBus(mp.General.LogLevel == "debug")
	exec.SetEventBus(bus)

	engine := &Engine{
		cfg:          b.engineCfg,
		pipe:         pipe,
		taskDAG:      taskDAG,
		exec:         exec,
		registry:     registry,
		bus:          bus,
		tools:        tools,
		indexes:      indexes,
		runRepo:      b.runRepo,
		chunkRepo:    b.chunkRepo,
		knowledgeDir: mp.Knowledge.Dir,
		plugins:      b.plugins,
	}

	if mp.Knowledge.RefreshCron != "" && mp.Knowledge.Dir != "" {
		runner := cron.New()
		if _, err := runner.AddFunc(mp.Knowledge.RefreshCron, func() {
			if err := engine.refreshKnowledge(context.Background()); err != nil {
				log.Printf("知识库定时刷新失败: %v", err)
			}
		}); err != nil {
			return nil, pipeline.NewConfigurationError("知识库刷新cron表达式不合法: %v", err)
		}
		engine.cronRunner = runner
	}

	return engine, nil
}

// buildPipeline 配置转运行时流水线（内部方法）
func buildPipeline(cfg *config.PipelineConfig) *pipeline.Pipeline {
	p := &pipeline.Pipeline{
		ID:          cfg.Pipeline.ID,
		Name:        cfg.Pipeline.Name,
		Description: cfg.Pipeline.Description,
		Agents:      make(map[string]*pipeline.Agent),
		Tasks:       make(map[string]*pipeline.Task),
		FinalTask:   cfg.Pipeline.FinalTask,
		CreateTime:  time.Now(),
	}

	for i := range cfg.Pipeline.Agents {
		def := &cfg.Pipeline.Agents[i]
		p.Agents[def.Name] = &pipeline.Agent{
			Name:      def.Name,
			Role:      def.Role,
			Goal:      def.Goal,
			Backstory: def.Backstory,
		}
	}

	for i := range cfg.Pipeline.Tasks {
		def := &cfg.Pipeline.Tasks[i]
		p.Tasks[def.TaskID] = &pipeline.Task{
			TaskID:         def.TaskID,
			Name:           def.Name,
			Description:    def.Description,
			AgentRef:       def.Agent,
			Operation:      def.Operation,
			ExpectedOutput: def.ExpectedOutput,
			InputKeys:      def.InputKeys,
			Dependencies:   def.Dependencies,
			Params:         def.Params,
			Timeout:        def.Timeout.Std(),
		}
	}

	return p
}
