// Package config 引擎与流水线的YAML配置
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持"30s"/"2h"写法的时长字段
type Duration time.Duration

// UnmarshalYAML 解析时长字符串
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("时长格式不正确 %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转为标准库时长
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EngineConfig 框架配置（对外导出）
type EngineConfig struct {
	MedPipeline struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Server struct {
			HTTPPort int `yaml:"http_port"`
		} `yaml:"server"`
		Storage struct {
			Database struct {
				Type            string   `yaml:"type"`
				DSN             string   `yaml:"dsn"`
				MaxOpenConns    int      `yaml:"max_open_conns"`
				MaxIdleConns    int      `yaml:"max_idle_conns"`
				ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
		} `yaml:"storage"`
		Execution struct {
			WorkerConcurrency  int      `yaml:"worker_concurrency"`
			DefaultTaskTimeout Duration `yaml:"default_task_timeout"`
		} `yaml:"execution"`
		Credentials struct {
			// 凭证只从环境变量注入, 配置文件中写${VAR}占位符
			GroqAPIKey  string `yaml:"groq_api_key"`
			NCBIAPIKey  string `yaml:"ncbi_api_key"`
			EmbedAPIKey string `yaml:"embed_api_key"`
		} `yaml:"credentials"`
		LLM struct {
			Endpoint   string   `yaml:"endpoint"`
			Model      string   `yaml:"model"`
			MaxTokens  int      `yaml:"max_tokens"`
			MaxRetries int      `yaml:"max_retries"`
			BaseDelay  Duration `yaml:"base_delay"`
			Mock       bool     `yaml:"mock"`
		} `yaml:"llm"`
		Embedding struct {
			Endpoint string `yaml:"endpoint"`
			Model    string `yaml:"model"`
			Dim      int    `yaml:"dim"`
		} `yaml:"embedding"`
		Tools struct {
			PubMed struct {
				BaseURL string `yaml:"base_url"`
				RetMax  int    `yaml:"retmax"`
			} `yaml:"pubmed"`
			RxNorm struct {
				BaseURL string `yaml:"base_url"`
			} `yaml:"rxnorm"`
			ClinicalTrials struct {
				BaseURL    string `yaml:"base_url"`
				MaxResults int    `yaml:"max_results"`
			} `yaml:"clinicaltrials"`
			CDC struct {
				BaseURL    string `yaml:"base_url"`
				MaxResults int    `yaml:"max_results"`
			} `yaml:"cdc"`
		} `yaml:"tools"`
		Knowledge struct {
			Dir         string `yaml:"dir"`
			RefreshCron string `yaml:"refresh_cron"`
		} `yaml:"knowledge"`
	} `yaml:"med-pipeline"`
}
