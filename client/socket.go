package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dlibrary/protocol"
)

// Socket 与服务端的持久事件连接：拨号、收发信封、投递到世界的事件队列
type Socket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	log     *zap.SugaredLogger
}

// Dial 建立到服务端的 WebSocket 连接
// url 形如 ws://host:3000/ws
func Dial(url string, logger *zap.SugaredLogger) (*Socket, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	logger.Infof("🔌 已连接到服务器: %s", url)
	return &Socket{conn: conn, log: logger}, nil
}

// Emit 发送一条事件信封（gorilla 要求单写者，这里用互斥锁保护）
func (s *Socket) Emit(typ string, payload any) error {
	data, err := protocol.Encode(typ, payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Join 上报加入请求（连接建立后调用一次）
func (s *Socket) Join(username string) error {
	return s.Emit(protocol.EvtJoin, protocol.JoinPayload{Username: username})
}

// Run 读循环：收到的事件排队进世界的收件箱，由世界主循环逐帧应用
// ctx 取消或连接断开时返回
func (s *Socket) Run(ctx context.Context, w *World) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-ctx.Done()
		// 关闭连接以解除 ReadMessage 阻塞
		_ = s.conn.Close()
		return nil
	})

	eg.Go(func() error {
		defer s.conn.Close()
		for {
			_, payload, err := s.conn.ReadMessage()
			if err != nil {
				s.log.Infof("❌ 与服务器断开连接")
				return err
			}
			var env protocol.Envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				s.log.Debugf("discard malformed server message: %v", err)
				continue
			}
			w.Post(env)
		}
	})

	err := eg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close 主动断开
func (s *Socket) Close() error {
	return s.conn.Close()
}
