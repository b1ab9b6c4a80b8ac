package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(false)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, EventTaskSucceeded)
	if err != nil {
		t.Fatalf("订阅失败: %v", err)
	}

	event := NewRunEvent(EventTaskSucceeded, "run-1", "search", "ok").
		WithMetadata("count", "5")
	if err := bus.Publish(event); err != nil {
		t.Fatalf("发布失败: %v", err)
	}

	select {
	case received := <-ch:
		if received.RunID != "run-1" || received.TaskID != "search" {
			t.Errorf("事件内容错误: %+v", received)
		}
		if received.Metadata["count"] != "5" {
			t.Errorf("元数据丢失: %+v", received.Metadata)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("等待事件超时")
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus(false)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.SubscribeAll(ctx)
	if err != nil {
		t.Fatalf("订阅失败: %v", err)
	}

	published := []EventType{EventRunStarted, EventTaskStarted, EventTaskSucceeded, EventRunCompleted}
	for _, eventType := range published {
		if err := bus.Publish(NewRunEvent(eventType, "run-2", "", "")); err != nil {
			t.Fatalf("发布%s失败: %v", eventType, err)
		}
	}

	seen := make(map[EventType]bool)
	deadline := time.After(2 * time.Second)
	for len(seen) < len(published) {
		select {
		case event := <-ch:
			seen[event.Type] = true
		case <-deadline:
			t.Fatalf("等待事件超时, 已收到%v", seen)
		}
	}
}

func TestPublish_NilEvent(t *testing.T) {
	bus := NewBus(false)
	defer bus.Close()

	if err := bus.Publish(nil); err == nil {
		t.Error("空事件应报错")
	}
}
