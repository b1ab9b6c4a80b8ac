package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus 运行事件总线（对外导出）
// 基于Watermill的内存Pub/Sub，API层和日志订阅事件用于观测运行进度
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewBus 创建事件总线（对外导出）
func NewBus(debug bool) *Bus {
	logger := watermill.NewStdLogger(debug, false)

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	return &Bus{
		pubsub: pubsub,
		logger: logger,
	}
}

// Publish 发布事件（对外导出）
func (b *Bus) Publish(event *RunEvent) error {
	if event == nil {
		return fmt.Errorf("事件不能为空")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("run_id", event.RunID)
	msg.Metadata.Set("task_id", event.TaskID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(string(event.Type), msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Subscribe 订阅指定类型的事件（对外导出）
// 返回的channel在ctx取消后关闭
func (b *Bus) Subscribe(ctx context.Context, eventType EventType) (<-chan *RunEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("订阅事件失败: %w", err)
	}

	out := make(chan *RunEvent, 16)
	go func() {
		defer close(out)
		for msg := range msgs {
			var event RunEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Error("反序列化事件失败", err, watermill.LogFields{"message_id": msg.UUID})
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// SubscribeAll 订阅所有事件类型（对外导出）
// 用于WebSocket推送等需要完整事件流的场景
func (b *Bus) SubscribeAll(ctx context.Context) (<-chan *RunEvent, error) {
	types := []EventType{
		EventRunStarted, EventRunCompleted, EventRunFailed,
		EventTaskStarted, EventTaskSucceeded, EventTaskFailed, EventTaskSkipped,
	}

	merged := make(chan *RunEvent, 64)
	var wg sync.WaitGroup
	for _, eventType := range types {
		ch, err := b.Subscribe(ctx, eventType)
		if err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(ch <-chan *RunEvent) {
			defer wg.Done()
			for event := range ch {
				select {
				case merged <- event:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged, nil
}

// Close 关闭事件总线（对外导出）
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
