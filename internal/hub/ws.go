package hub

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"keijiban/backend/config"
)

// 客户端只发送控制帧，数据帧读取后丢弃
const maxInboundMessageSize = 4096

// Options WebSocket 连接参数
type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	PingInterval time.Duration
	AllowOrigins []string
}

// OptionsFromConfig 由 Hub 配置生成连接参数，零值使用默认值
func OptionsFromConfig(cfg *config.HubConfig) Options {
	opts := Options{
		SendBuffer:   cfg.SendBuffer,
		WriteTimeout: cfg.WriteTimeout,
		PongTimeout:  cfg.PongTimeout,
		PingInterval: cfg.PingInterval,
		AllowOrigins: cfg.AllowOrigins,
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.PongTimeout {
		opts.PingInterval = opts.PongTimeout * 9 / 10
	}
	return opts
}

// checkOrigin 允许列表为空或包含 "*" 时放行；无 Origin 头（非浏览器客户端）放行
func checkOrigin(allow []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allow))
	wildcard := len(allow) == 0
	for _, o := range allow {
		if o == "*" {
			wildcard = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		if wildcard {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// ServeWS 返回 Hub 的 WebSocket 入口
func (h *Hub) ServeWS(opts Options) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(opts.AllowOrigins),
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 已写入错误响应
			h.logger.Warn("WebSocket 握手失败", zap.String("remote_addr", c.ClientIP()), zap.Error(err))
			return
		}

		client := NewClient(uuid.New().String(), c.ClientIP(), opts.SendBuffer)
		h.Register(client)

		go h.writeLoop(conn, client, opts)
		h.readLoop(conn, client, opts)
	}
}

// writeLoop 唯一的数据写入方：出站帧与定时 ping
func (h *Hub) writeLoop(conn *websocket.Conn, client *Client, opts Options) {
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		h.Unregister(client)
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-client.Outgoing():
			_ = conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Warn("WebSocket 写入失败", zap.String("client_id", client.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteTimeout)); err != nil {
				h.logger.Debug("发送 ping 失败", zap.String("client_id", client.ID), zap.Error(err))
				return
			}
		case <-client.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(opts.WriteTimeout))
			return
		}
	}
}

// readLoop 只用于检测断开与刷新读超时
func (h *Hub) readLoop(conn *websocket.Conn, client *Client, opts Options) {
	defer func() {
		h.Unregister(client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxInboundMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket 异常断开", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
	}
}
