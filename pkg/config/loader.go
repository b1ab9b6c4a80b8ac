package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadEngineConfig 加载框架配置, 支持${VAR}环境变量占位符
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	var cfg EngineConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadPipelineConfig 加载业务配置
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取流水线配置失败: %w", err)
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析流水线配置失败: %w", err)
	}

	return &cfg, nil
}

// applyDefaults 填充框架配置默认值（内部方法）
func (c *EngineConfig) applyDefaults() {
	mp := &c.MedPipeline
	if mp.General.InstanceName == "" {
		mp.General.InstanceName = "med-pipeline"
	}
	if mp.General.LogLevel == "" {
		mp.General.LogLevel = "info"
	}
	if mp.General.Env == "" {
		mp.General.Env = "dev"
	}
	if mp.Server.HTTPPort == 0 {
		mp.Server.HTTPPort = 8080
	}
	if mp.Storage.Database.Type == "" {
		mp.Storage.Database.Type = "sqlite"
	}
	if mp.Storage.Database.DSN == "" {
		mp.Storage.Database.DSN = "./med_pipeline.db"
	}
	if mp.Storage.Database.MaxOpenConns <= 0 {
		mp.Storage.Database.MaxOpenConns = 10
	}
	if mp.Storage.Database.MaxIdleConns <= 0 {
		mp.Storage.Database.MaxIdleConns = 5
	}
	if mp.Execution.WorkerConcurrency <= 0 {
		mp.Execution.WorkerConcurrency = 8
	}
	if mp.Execution.DefaultTaskTimeout <= 0 {
		mp.Execution.DefaultTaskTimeout = Duration(30 * time.Second)
	}
	if mp.LLM.MaxTokens <= 0 {
		mp.LLM.MaxTokens = 1024
	}
	if mp.LLM.MaxRetries <= 0 {
		mp.LLM.MaxRetries = 5
	}
	if mp.Tools.PubMed.RetMax <= 0 {
		mp.Tools.PubMed.RetMax = 5
	}
	if mp.Tools.ClinicalTrials.MaxResults <= 0 {
		mp.Tools.ClinicalTrials.MaxResults = 3
	}
	if mp.Tools.CDC.MaxResults <= 0 {
		mp.Tools.CDC.MaxResults = 3
	}
	if mp.Embedding.Dim <= 0 {
		mp.Embedding.Dim = 256
	}
}

// ParseDuration 解析时长字符串, 空串返回0
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
