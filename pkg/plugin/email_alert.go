package plugin

import (
	"log"

	"github.com/LENAX/med-pipeline/pkg/core/events"
)

// EmailAlertPlugin 邮件告警插件（对外导出）
type EmailAlertPlugin struct {
	name     string
	smtpHost string
	smtpPort int
	to       string
}

// Name 插件名称（实现Plugin接口，对外导出）
func (e *EmailAlertPlugin) Name() string {
	return e.name
}

// Init 初始化插件（实现Plugin接口，对外导出）
func (e *EmailAlertPlugin) Init(params map[string]string) error {
	e.smtpHost = params["smtp_host"]
	e.smtpPort = 25
	e.to = params["to"]
	log.Println("✅ 邮件告警插件初始化完成")
	return nil
}

// OnRunFailed 发送运行失败邮件（实现Plugin接口，对外导出）
func (e *EmailAlertPlugin) OnRunFailed(event *events.RunEvent) error {
	log.Printf("📧 发送邮件告警：run=%s task=%s %s", event.RunID, event.TaskID, event.Message)
	return nil
}
