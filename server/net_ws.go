package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dlibrary/protocol"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewClientConn(ws *websocket.Conn, queueSize int) *ClientConn {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, queueSize),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
// 返回 false 表示被丢弃（队列满或连接已关闭）
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃消息（防止慢客户端阻塞转发）
		return false
	}
}

// Close 关闭底层连接与发送队列，重复调用是 no-op
func (c *ClientConn) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	if c.ws != nil {
		_ = c.ws.Close()
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 读取客户端事件信封，逐条交给 Hub 处理
func (c *ClientConn) readPump(hub *Hub, connID string) {
	defer c.ws.Close()
	// 读泵退出即视为断线，触发清理级联（强制站起、移除记录、广播离开）
	defer hub.Disconnect(connID)
	c.ws.SetReadLimit(1 << 20) // 1MB

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			// 畸形消息按可忽略 no-op 处理，不中断连接
			hub.metrics.IncMalformed()
			Log.Debugf("discard malformed message from %s: %v", connID, err)
			continue
		}
		hub.HandleEvent(connID, env)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 局域网自用环境：允许所有来源
		return true
	},
}

// HandleWS WebSocket 接入：升级连接并分配连接 ID
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	connID := uuid.NewString()
	client := NewClientConn(ws, h.queueSize)
	h.Connect(connID, client)
	Log.Infof("🟢 玩家连接: %s", connID)

	// 先告知客户端分配到的连接 ID，再进入正常事件流
	if data, err := protocol.Encode(protocol.EvtAssignID, protocol.AssignIDPayload{ID: connID}); err == nil {
		client.Enqueue(data)
	}

	go client.writePump()
	go client.readPump(h, connID)
}
