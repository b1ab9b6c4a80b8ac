package config

// PipelineConfig 业务配置: 声明式任务图（对外导出）
type PipelineConfig struct {
	Pipeline struct {
		ID          string            `yaml:"id"`
		Name        string            `yaml:"name"`
		Description string            `yaml:"description"`
		FinalTask   string            `yaml:"final_task"`
		Agents      []AgentDefinition `yaml:"agents"`
		Tasks       []TaskDefinition  `yaml:"tasks"`
	} `yaml:"pipeline"`
}

// AgentDefinition Agent定义
type AgentDefinition struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// TaskDefinition Task定义
type TaskDefinition struct {
	TaskID         string            `yaml:"task_id"`
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	Agent          string            `yaml:"agent"`
	Operation      string            `yaml:"operation"`
	ExpectedOutput string            `yaml:"expected_output"`
	InputKeys      []string          `yaml:"input_keys"`
	Dependencies   []string          `yaml:"dependencies"`
	Params         map[string]string `yaml:"params"`
	Timeout        Duration          `yaml:"timeout"`
}

// GetTaskByID 根据TaskID获取Task定义
func (c *PipelineConfig) GetTaskByID(taskID string) *TaskDefinition {
	for i := range c.Pipeline.Tasks {
		if c.Pipeline.Tasks[i].TaskID == taskID {
			return &c.Pipeline.Tasks[i]
		}
	}
	return nil
}

// GetAgentByName 根据名称获取Agent定义
func (c *PipelineConfig) GetAgentByName(name string) *AgentDefinition {
	for i := range c.Pipeline.Agents {
		if c.Pipeline.Agents[i].Name == name {
			return &c.Pipeline.Agents[i]
		}
	}
	return nil
}

// ApplyDefaults 填充默认超时
func (c *PipelineConfig) ApplyDefaults(defaultTimeout Duration) {
	for i := range c.Pipeline.Tasks {
		if c.Pipeline.Tasks[i].Timeout <= 0 {
			c.Pipeline.Tasks[i].Timeout = defaultTimeout
		}
	}
}
