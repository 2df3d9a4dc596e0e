package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"keijiban/backend/pkg/metrics"
)

// EventNoticesUpdated 有效联络事项全量更新事件，data 为联络事项数组
const EventNoticesUpdated = "EmergencyNoticeUpdated"

// Frame 推送帧格式
type Frame struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at"`
}

// Hub 管理所有在线连接并负责扇出
// 仅做通知：不保存历史，新连接不会收到补发
type Hub struct {
	clients sync.Map // key: client.ID -> *Client
	count   atomic.Int64
	logger  *zap.Logger
	now     func() time.Time
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger, now: time.Now}
}

// Register 注册客户端
func (h *Hub) Register(c *Client) {
	if _, loaded := h.clients.LoadOrStore(c.ID, c); loaded {
		return
	}
	h.count.Add(1)
	metrics.AddHubClients(1)
	h.logger.Info("客户端已连接",
		zap.String("client_id", c.ID),
		zap.String("remote_addr", c.RemoteAddr),
		zap.Int64("clients", h.count.Load()),
	)
}

// Unregister 注销并关闭客户端；重复调用无副作用
func (h *Hub) Unregister(c *Client) {
	if _, loaded := h.clients.LoadAndDelete(c.ID); loaded {
		h.count.Add(-1)
		metrics.AddHubClients(-1)
		h.logger.Info("客户端已断开",
			zap.String("client_id", c.ID),
			zap.Int64("clients", h.count.Load()),
		)
	}
	c.Close()
}

// ClientCount 当前在线连接数
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// EncodeFrame 编码推送帧
func (h *Hub) EncodeFrame(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("编码推送数据失败: %w", err)
	}
	return json.Marshal(Frame{Event: event, Data: data, SentAt: h.now().UTC()})
}

// Broadcast 编码一次后发给所有客户端，返回成功入队的客户端数
func (h *Hub) Broadcast(event string, payload interface{}) (int, error) {
	frame, err := h.EncodeFrame(event, payload)
	if err != nil {
		return 0, err
	}
	return h.BroadcastFrame(event, frame), nil
}

// BroadcastFrame 扇出已编码的帧；队列已满的客户端跳过并计数
func (h *Hub) BroadcastFrame(event string, frame []byte) int {
	delivered, dropped := 0, 0
	h.clients.Range(func(_, v any) bool {
		c, ok := v.(*Client)
		if !ok {
			return true
		}
		if c.Send(frame) {
			delivered++
		} else if !c.IsClosed() {
			dropped++
			metrics.IncHubDropped()
			h.logger.Warn("客户端发送队列已满，丢弃本次推送",
				zap.String("client_id", c.ID),
				zap.String("event", event),
			)
		}
		return true
	})
	metrics.IncHubFrame(event)
	h.logger.Debug("推送已扇出",
		zap.String("event", event),
		zap.Int("delivered", delivered),
		zap.Int("dropped", dropped),
	)
	return delivered
}

// Close 关闭所有连接（优雅关闭时调用）
func (h *Hub) Close() {
	h.clients.Range(func(_, v any) bool {
		if c, ok := v.(*Client); ok {
			h.Unregister(c)
		}
		return true
	})
}
