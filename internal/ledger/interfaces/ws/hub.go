// 包 ws 成交推送：把已提交的账本事件广播给 WebSocket 订阅方
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wyfcoding/brokerage/internal/ledger/domain"
	"github.com/wyfcoding/brokerage/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 演示用途放开跨域，生产部署应收紧
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 成交推送中心，实现 domain.EventPublisher
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan *domain.LedgerEvent
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Publish 把事件广播给所有连接。慢消费者直接断开，不阻塞账本路径
func (h *Hub) Publish(ctx context.Context, event *domain.LedgerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			h.drop(c)
		}
	}
}

// Handler 返回 WebSocket 升级处理函数
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn(c.Request.Context(), "websocket upgrade failed", "error", err)
			return
		}

		cl := &client{conn: conn, send: make(chan *domain.LedgerEvent, 64)}

		h.mu.Lock()
		h.clients[cl] = struct{}{}
		h.mu.Unlock()

		go h.writePump(cl)
		go h.readPump(cl)
	}
}

// Close 断开全部连接
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
	}
}

func (h *Hub) writePump(c *client) {
	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()
			return
		}
	}
}

// readPump 只消费控制帧并感知断连，订阅方不发业务消息
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()
			return
		}
	}
}

// drop 关闭并移除连接，调用方需持有 h.mu
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}
