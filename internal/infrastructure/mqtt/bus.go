package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"aquasense-http-service/internal/infrastructure/config"
	Logger "aquasense-http-service/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// 主题，均会加上配置中的前缀
const (
	TopicAccessPrefix       = "access/"             // access/<userID> 访问申请审批结果
	TopicAdminNotifications = "notifications/admin" // 新的管理员通知
	TopicSensorAlerts       = "sensors/+/alert"     // sensors/<deviceID>/alert 传感器告警
)

// AccessTopic 返回用户的审批结果主题
func AccessTopic(userID uint) string {
	return fmt.Sprintf("%s%d", TopicAccessPrefix, userID)
}

// Handler 处理收到的消息，topic 不含前缀
type Handler func(topic string, payload []byte)

// Bus 消息总线
type Bus interface {
	// Publish 把 payload 序列化为JSON后发布
	Publish(topic string, payload interface{}) error
	// Subscribe 订阅主题，重连后自动重新订阅
	Subscribe(topic string, handler Handler) error
	Close()
}

// New 根据配置创建消息总线；MQTT未启用或连接失败时使用进程内总线
func New(cfg *config.Config) Bus {
	if !cfg.MQTTEnabled {
		Logger.Info("[MQTT] 未启用，使用进程内消息总线")
		return NewMemoryBus()
	}

	bus := NewPahoBus(cfg)
	if err := bus.Connect(); err != nil {
		Logger.Error("[MQTT] 连接失败，使用进程内消息总线: %v", err)
		return NewMemoryBus()
	}
	return bus
}

// PahoBus 基于 paho 的 MQTT 总线
type PahoBus struct {
	client   paho.Client
	cfg      *config.Config
	qos      byte
	retained bool
	prefix   string

	handlers   map[string]Handler
	handlersMu sync.RWMutex
	connectMu  sync.Mutex
}

// NewPahoBus 创建客户端，不立即连接
func NewPahoBus(cfg *config.Config) *PahoBus {
	b := &PahoBus{
		cfg:      cfg,
		qos:      byte(cfg.MQTTQoS),
		retained: cfg.MQTTRetained,
		prefix:   cfg.MQTTTopicPrefix,
		handlers: make(map[string]Handler),
	}
	if b.qos > 2 {
		b.qos = 1
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.MQTTClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	if strings.HasPrefix(cfg.MQTTBrokerURL, "ssl://") || strings.HasPrefix(cfg.MQTTBrokerURL, "tls://") || cfg.MQTTSSLEnabled {
		Logger.Info("[MQTT] 使用TLS连接")
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		Logger.Warning("[MQTT] 收到未处理的消息: topic=%s", msg.Topic())
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		Logger.Warning("[MQTT] 连接丢失: %v", err)
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		Logger.Info("[MQTT] 正在尝试重连...")
	})
	// 连接建立（包括重连）后重新订阅
	opts.SetOnConnectHandler(func(paho.Client) {
		Logger.Info("[MQTT] 成功连接到 %s", cfg.MQTTBrokerURL)
		b.resubscribe()
	})

	b.client = paho.NewClient(opts)
	return b
}

// Connect 连接到MQTT服务器，指数退避重试
func (b *PahoBus) Connect() error {
	b.connectMu.Lock()
	defer b.connectMu.Unlock()

	if b.client.IsConnected() {
		return nil
	}

	maxRetries := 5
	var err error
	for i := 0; i < maxRetries; i++ {
		token := b.client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			return nil
		}

		err = token.Error()
		if err == nil {
			err = fmt.Errorf("connect timeout")
		}
		if i == maxRetries-1 {
			break
		}
		backoffTime := time.Duration(1<<uint(i)) * time.Second // 1s, 2s, 4s, 8s
		Logger.Warning("[MQTT] 连接尝试 %d/%d 失败: %v, 将在 %v 后重试", i+1, maxRetries, err, backoffTime)
		time.Sleep(backoffTime)
	}
	return fmt.Errorf("[MQTT] 连接失败，已尝试 %d 次: %w", maxRetries, err)
}

// Publish 发布消息
func (b *PahoBus) Publish(topic string, payload interface{}) error {
	if !b.client.IsConnected() {
		Logger.Warning("[MQTT] 客户端未连接，尝试重新连接...")
		if err := b.Connect(); err != nil {
			return err
		}
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	token := b.client.Publish(b.prefix+topic, b.qos, b.retained, data)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("发布消息超时: %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("发布消息失败: %w", token.Error())
	}
	Logger.Info("[MQTT] 已发布消息到主题: %s%s", b.prefix, topic)
	return nil
}

// Subscribe 订阅主题
func (b *PahoBus) Subscribe(topic string, handler Handler) error {
	b.handlersMu.Lock()
	b.handlers[topic] = handler
	b.handlersMu.Unlock()

	if !b.client.IsConnected() {
		// 连接建立后由 OnConnect 订阅
		return nil
	}
	return b.subscribe(topic, handler)
}

func (b *PahoBus) subscribe(topic string, handler Handler) error {
	prefix := b.prefix
	token := b.client.Subscribe(prefix+topic, b.qos, func(_ paho.Client, msg paho.Message) {
		handler(strings.TrimPrefix(msg.Topic(), prefix), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("订阅主题失败 [%s]: %w", topic, token.Error())
	}
	Logger.Info("[MQTT] 已订阅主题: %s%s", prefix, topic)
	return nil
}

func (b *PahoBus) resubscribe() {
	b.handlersMu.RLock()
	defer b.handlersMu.RUnlock()
	for topic, handler := range b.handlers {
		if err := b.subscribe(topic, handler); err != nil {
			Logger.Error("[MQTT] %v", err)
		}
	}
}

// Close 断开连接
func (b *PahoBus) Close() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

func marshalPayload(payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化消息失败: %w", err)
	}
	return data, nil
}
