package plugin

import (
	"log"

	"github.com/LENAX/med-pipeline/pkg/core/events"
)

// SmsAlertPlugin 短信告警插件（对外导出）
type SmsAlertPlugin struct {
	name      string
	url       string
	apiKey    string
	apiSecret string
}

// Name 插件名称（实现Plugin接口，对外导出）
func (s *SmsAlertPlugin) Name() string {
	return s.name
}

// Init 初始化插件（实现Plugin接口，对外导出）
func (s *SmsAlertPlugin) Init(params map[string]string) error {
	s.url = params["url"]
	s.apiKey = params["api_key"]
	s.apiSecret = params["api_secret"]
	log.Println("✅ 短信告警插件初始化完成")
	return nil
}

// OnRunFailed 发送运行失败短信（实现Plugin接口，对外导出）
func (s *SmsAlertPlugin) OnRunFailed(event *events.RunEvent) error {
	log.Printf("🔔 发送短信告警：run=%s %s", event.RunID, event.Message)
	return nil
}
