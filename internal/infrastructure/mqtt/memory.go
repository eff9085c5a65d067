package mqtt

import (
	"strings"
	"sync"
)

// Message 进程内总线上发布过的消息
type Message struct {
	Topic   string
	Payload []byte
}

// MemoryBus 进程内消息总线，同步投递给匹配的订阅者
type MemoryBus struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	published []Message
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string]Handler)}
}

func (b *MemoryBus) Publish(topic string, payload interface{}) error {
	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.published = append(b.published, Message{Topic: topic, Payload: data})
	var matched []Handler
	for filter, h := range b.handlers {
		if TopicMatches(filter, topic) {
			matched = append(matched, h)
		}
	}
	b.mu.Unlock()

	for _, h := range matched {
		h(topic, data)
	}
	return nil
}

func (b *MemoryBus) Subscribe(topic string, handler Handler) error {
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) Close() {}

// Published 返回所有已发布消息的副本
func (b *MemoryBus) Published() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Message(nil), b.published...)
}

// TopicMatches 按 MQTT 通配符规则（+ 单层，# 多层）匹配主题
func TopicMatches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
