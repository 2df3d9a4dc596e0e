package hub

import "sync"

// Client 一个 WebSocket 连接在 Hub 中的表示
// 出站帧经缓冲队列交给写协程；队列满时直接丢弃，不阻塞广播方
type Client struct {
	ID         string
	RemoteAddr string

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient 创建客户端；bufferSize<=0 时使用 16
func NewClient(id, remoteAddr string, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Client{
		ID:         id,
		RemoteAddr: remoteAddr,
		send:       make(chan []byte, bufferSize),
		closed:     make(chan struct{}),
	}
}

// Send 非阻塞入队；已关闭或队列已满时返回 false
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Outgoing 返回只读出站队列，由写协程消费
func (c *Client) Outgoing() <-chan []byte {
	return c.send
}

// Done 连接关闭后返回的通道被关闭
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Close 幂等；出站队列不关闭，避免与并发 Send 竞争
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// IsClosed 非阻塞判断是否已关闭
func (c *Client) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
