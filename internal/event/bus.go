package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event 表示系统中的一个事件
type Event struct {
	Type      string    `json:"type"`      // 事件类型
	Source    string    `json:"source"`    // 事件来源
	Data      any       `json:"data"`      // 事件数据
	Timestamp time.Time `json:"timestamp"` // 时间戳
}

// Handler 事件处理函数
type Handler func(ctx context.Context, event Event) error

// Bus 事件总线，用于解耦服务层与 Redis/WebSocket 等下游
type Bus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex

	// 异步处理的缓冲通道
	eventChan chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	closeOnce sync.Once
	closed    bool
}

// NewBus 创建新的事件总线
func NewBus(bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		handlers:  make(map[string][]Handler),
		eventChan: make(chan Event, bufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	// 启动事件处理协程
	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe 订阅事件类型
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	slog.Debug("event bus subscription added", "component", "event", "type", eventType)
}

// Publish 发布事件（异步）。通道满或总线已关闭时丢弃事件。
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.eventChan <- event:
	default:
		slog.Warn("event channel full, dropping event", "component", "event", "type", event.Type)
	}
}

// PublishSync 同步发布事件（立即处理）
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return b.dispatch(ctx, event)
}

// processEvents 处理事件的后台协程
func (b *Bus) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case event, ok := <-b.eventChan:
			if !ok {
				return
			}
			if err := b.dispatch(b.ctx, event); err != nil {
				slog.Error("event processing failed", "component", "event", "type", event.Type, "error", err)
			}
		case <-b.ctx.Done():
			return
		}
	}
}

// dispatch 分发事件给所有订阅者
func (b *Bus) dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	// 并发执行所有处理器
	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				slog.Error("event handler failed", "component", "event", "type", event.Type, "error", err)
			}
		}(handler)
	}
	wg.Wait()

	return nil
}

// Shutdown 关闭事件总线。之后的 Publish 调用为空操作。
func (b *Bus) Shutdown() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		b.cancel()
		b.wg.Wait()
		close(b.eventChan)
		slog.Info("event bus shut down", "component", "event")
	})
}

// GetSubscriberCount 获取某个事件类型的订阅者数量（用于调试）
func (b *Bus) GetSubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
