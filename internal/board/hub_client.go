package board

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"keijiban/backend/internal/hub"
	"keijiban/backend/internal/model"
)

const (
	// 服务端 ping 间隔默认 30s，超过该时长无任何帧视为断线
	defaultReadTimeout = 90 * time.Second
	maxFrameSize       = 1 << 20
)

// Update 推送到看板的一次更新
//   - Notices 非 nil：Hub 推送的全局有效联络事项
//   - Resync 为 true：重连成功，断线期间可能漏掉推送，需要重新拉取
type Update struct {
	Notices []model.EmergencyNotice
	Resync  bool
}

// HubClient 订阅服务端 Hub，断线后按 RetryPolicy 无限重连
type HubClient struct {
	url         string
	policy      *RetryPolicy
	dialer      *websocket.Dialer
	logger      *zap.Logger
	readTimeout time.Duration
	updates     chan Update

	// sleep 可在测试中替换
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHubClient 创建 HubClient
func NewHubClient(url string, policy *RetryPolicy, logger *zap.Logger) *HubClient {
	if policy == nil {
		policy = NewRetryPolicy()
	}
	return &HubClient{
		url:         url,
		policy:      policy,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:      logger,
		readTimeout: defaultReadTimeout,
		updates:     make(chan Update, 1),
		sleep:       sleepContext,
	}
}

// Updates 只读更新通道；消费者处理不及时时旧的推送被新的替换
func (c *HubClient) Updates() <-chan Update {
	return c.updates
}

// ═══════════════════════════════════════════════════════════
// Run — 连接并保持订阅，直到 ctx 取消
// ═══════════════════════════════════════════════════════════
//
//   - 首次连接不等待
//   - 连接失败或断线后等待 policy.NextDelay(attempt)，attempt 随之递增
//   - 连接成功后 attempt 归零，下一次断线从头开始计算

func (c *HubClient) Run(ctx context.Context) error {
	attempt := 0
	connectedOnce := false
	retrying := false

	for {
		if retrying {
			delay := c.policy.NextDelay(attempt)
			c.logger.Info("等待重连 Hub",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil
			}
			attempt++
		}
		retrying = true

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("连接 Hub 失败",
				zap.String("url", c.url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		attempt = 0
		if connectedOnce {
			c.logger.Info("Hub 已重连", zap.String("url", c.url))
			c.push(Update{Resync: true})
		} else {
			c.logger.Info("Hub 已连接", zap.String("url", c.url))
		}
		connectedOnce = true

		err = c.readLoop(ctx, conn)
		if ctx.Err() != nil {
			c.logger.Info("Hub 连接已关闭")
			return nil
		}
		c.logger.Warn("Hub 连接中断，准备重连", zap.Error(err))
	}
}

// readLoop 读取推送直到连接出错或 ctx 取消
func (c *HubClient) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(c.readTimeout))

		notices, err := decodeNoticeFrame(data)
		if err != nil {
			c.logger.Warn("忽略无法解析的推送帧", zap.Error(err))
			continue
		}
		if notices == nil {
			continue
		}
		c.logger.Info("收到联络事项推送", zap.Int("count", len(notices)))
		c.push(Update{Notices: notices})
	}
}

// push 通道满时丢弃未消费的旧更新，保证最后一次推送生效
func (c *HubClient) push(u Update) {
	for {
		select {
		case c.updates <- u:
			return
		default:
		}
		select {
		case old := <-c.updates:
			// 旧的重新同步请求不能被普通推送吞掉
			if old.Resync && !u.Resync {
				u.Resync = true
			}
		default:
		}
	}
}

var errUnexpectedFrame = errors.New("推送帧格式错误")

// decodeNoticeFrame 解析 Hub 帧；非联络事项事件返回 (nil, nil)
func decodeNoticeFrame(data []byte) ([]model.EmergencyNotice, error) {
	var f hub.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(errUnexpectedFrame, err)
	}
	if f.Event != hub.EventNoticesUpdated {
		return nil, nil
	}
	notices := []model.EmergencyNotice{}
	if len(f.Data) > 0 && string(f.Data) != "null" {
		if err := json.Unmarshal(f.Data, &notices); err != nil {
			return nil, errors.Join(errUnexpectedFrame, err)
		}
	}
	return notices, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
