package pipeline

import (
	"time"
)

const (
	TaskStatusPending = "PENDING"
	TaskStatusRunning = "RUNNING"
	TaskStatusSuccess = "SUCCESS"
	TaskStatusFailed  = "FAILED"
	TaskStatusSkipped = "SKIPPED"

	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Agent Agent元数据（对外导出）
// role/goal/backstory仅用于构建LLM提示词，对图调度完全透明
type Agent struct {
	Name      string `yaml:"name" json:"name"`
	Role      string `yaml:"role" json:"role"`
	Goal      string `yaml:"goal" json:"goal"`
	Backstory string `yaml:"backstory" json:"backstory"`
}

// Task Pipeline中的静态任务定义（对外导出）
// 启动时从配置加载一次，之后不可变
type Task struct {
	TaskID         string            `yaml:"task_id" json:"task_id"`
	Name           string            `yaml:"name" json:"name"`
	Description    string            `yaml:"description" json:"description"`
	AgentRef       string            `yaml:"agent" json:"agent"`
	Operation      string            `yaml:"operation" json:"operation"`
	ExpectedOutput string            `yaml:"expected_output" json:"expected_output"`
	InputKeys      []string          `yaml:"input_keys" json:"input_keys,omitempty"`
	Dependencies   []string          `yaml:"dependencies" json:"dependencies,omitempty"`
	Params         map[string]string `yaml:"params" json:"params,omitempty"`
	Timeout        time.Duration     `yaml:"timeout" json:"timeout,omitempty"`
}

// ID 实现go-dag的Identifiable接口（对外导出）
func (t *Task) ID() string {
	return t.TaskID
}

// GetInputKeys 获取上游输出选择策略（对外导出）
// 未显式声明input_keys时，默认按依赖声明顺序取全部上游输出
func (t *Task) GetInputKeys() []string {
	if len(t.InputKeys) > 0 {
		return t.InputKeys
	}
	return t.Dependencies
}

// Pipeline 任务图定义（对外导出）
// 启动时构建一次，之后只读；每个用户查询创建独立的Run实例
type Pipeline struct {
	ID          string
	Name        string
	Description string
	Agents      map[string]*Agent
	Tasks       map[string]*Task
	FinalTask   string
	CreateTime  time.Time
}

// GetTask 获取指定任务定义（对外导出）
func (p *Pipeline) GetTask(taskID string) *Task {
	return p.Tasks[taskID]
}

// GetAgent 获取任务关联的Agent元数据（对外导出）
// 任务未绑定Agent时返回nil
func (p *Pipeline) GetAgent(t *Task) *Agent {
	if t == nil || t.AgentRef == "" {
		return nil
	}
	return p.Agents[t.AgentRef]
}

// Dependencies 返回任务ID到前置任务ID列表的映射（对外导出）
func (p *Pipeline) Dependencies() map[string][]string {
	deps := make(map[string][]string, len(p.Tasks))
	for id, t := range p.Tasks {
		if len(t.Dependencies) > 0 {
			deps[id] = t.Dependencies
		}
	}
	return deps
}
