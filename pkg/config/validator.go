package config

import (
	"fmt"
)

// ValidateEngineConfig 校验框架配置合法性
func ValidateEngineConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}
	mp := &cfg.MedPipeline

	if mp.General.InstanceName == "" {
		return fmt.Errorf("instance_name不能为空")
	}
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[mp.General.LogLevel] {
		return fmt.Errorf("log_level必须是debug/info/warn/error之一")
	}

	validDBTypes := map[string]bool{
		"sqlite":     true,
		"postgres":   true,
		"postgresql": true,
		"mysql":      true,
	}
	if !validDBTypes[mp.Storage.Database.Type] {
		return fmt.Errorf("database.type必须是sqlite/postgres/mysql之一")
	}
	if mp.Storage.Database.DSN == "" {
		return fmt.Errorf("database.dsn不能为空")
	}
	if mp.Storage.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns必须大于0")
	}
	if mp.Storage.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns不能为负数")
	}

	if mp.Execution.WorkerConcurrency <= 0 {
		return fmt.Errorf("execution.worker_concurrency必须大于0")
	}
	if mp.Execution.DefaultTaskTimeout <= 0 {
		return fmt.Errorf("execution.default_task_timeout必须大于0")
	}

	// 非mock模式下LLM凭证必须通过环境变量注入
	if !mp.LLM.Mock && mp.Credentials.GroqAPIKey == "" {
		return fmt.Errorf("缺少环境变量GROQ_API_KEY (或启用llm.mock)")
	}

	return nil
}

// ValidatePipelineConfig 校验业务配置合法性
// operationKeys为已注册的能力键, 为nil时跳过该项检查
func ValidatePipelineConfig(cfg *PipelineConfig, operationKeys map[string]bool) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}
	p := &cfg.Pipeline

	if p.ID == "" {
		return fmt.Errorf("pipeline.id不能为空")
	}
	if len(p.Tasks) == 0 {
		return fmt.Errorf("pipeline.tasks不能为空")
	}
	if p.FinalTask == "" {
		return fmt.Errorf("pipeline.final_task不能为空")
	}

	agentNames := make(map[string]bool)
	for i, agent := range p.Agents {
		if agent.Name == "" {
			return fmt.Errorf("agents[%d].name不能为空", i)
		}
		if agentNames[agent.Name] {
			return fmt.Errorf("agents中存在重复的name: %s", agent.Name)
		}
		agentNames[agent.Name] = true
	}

	taskIDs := make(map[string]bool)
	for i, task := range p.Tasks {
		if task.TaskID == "" {
			return fmt.Errorf("tasks[%d].task_id不能为空", i)
		}
		if taskIDs[task.TaskID] {
			return fmt.Errorf("tasks中存在重复的task_id: %s", task.TaskID)
		}
		taskIDs[task.TaskID] = true

		if task.Operation == "" {
			return fmt.Errorf("tasks[%d].operation不能为空", i)
		}
		if operationKeys != nil && !operationKeys[task.Operation] {
			return fmt.Errorf("tasks[%d].operation %s 未注册", i, task.Operation)
		}
		if task.Agent != "" && !agentNames[task.Agent] {
			return fmt.Errorf("tasks[%d].agent %s 不存在于agents中", i, task.Agent)
		}
	}

	for i, task := range p.Tasks {
		for j, dep := range task.Dependencies {
			if dep == task.TaskID {
				return fmt.Errorf("tasks[%d].dependencies[%d] 不能依赖自己", i, j)
			}
			if !taskIDs[dep] {
				return fmt.Errorf("tasks[%d].dependencies[%d] %s 不存在于tasks中", i, j, dep)
			}
		}
		for j, key := range task.InputKeys {
			if !taskIDs[key] {
				return fmt.Errorf("tasks[%d].input_keys[%d] %s 不存在于tasks中", i, j, key)
			}
		}
	}

	if !taskIDs[p.FinalTask] {
		return fmt.Errorf("pipeline.final_task %s 不存在于tasks中", p.FinalTask)
	}

	return nil
}
