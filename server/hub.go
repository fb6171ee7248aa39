package server

import (
	"encoding/json"
	"sync"
	"time"

	"dlibrary/protocol"
)

// GateRecord 闸机诊断记录：仅供日志与 /admin/gates 查看，转发逻辑不读它
type GateRecord struct {
	State     string `json:"state"`
	Timestamp int64  `json:"timestamp"`
}

// Hub 会话中心：持有全部在线连接与玩家权威状态，并承担事件转发
// 互斥锁保证事件逐条生效；每条玩家记录只被其所属连接的事件修改
type Hub struct {
	mu      sync.Mutex
	conns   map[string]*ClientConn
	players map[string]*Player
	gates   map[string]GateRecord

	metrics   *RelayMetrics
	queueSize int
}

// NewHub 创建空的会话中心
func NewHub(cfg Config) *Hub {
	return &Hub{
		conns:     make(map[string]*ClientConn),
		players:   make(map[string]*Player),
		gates:     make(map[string]GateRecord),
		metrics:   &RelayMetrics{},
		queueSize: cfg.SendQueueSize,
	}
}

// Connect 登记一条新连接（此时还没有玩家记录，join 之后才有）
func (h *Hub) Connect(id string, conn *ClientConn) {
	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
}

// Disconnect 断线清理级联：坐着的玩家先被强制站起，再移除并广播离开
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	conn, ok := h.conns[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, id)

	var out []delivery
	if p, joined := h.players[id]; joined {
		if p.IsSitting {
			// 让其余客户端释放该座位
			out = append(out, h.broadcastLocked("", protocol.EvtPlayerStoodUp, protocol.PlayerStoodUpPayload{
				PlayerID: id,
				SeatID:   p.SeatID,
			})...)
		}
		delete(h.players, id)
		out = append(out, h.broadcastLocked("", protocol.EvtPlayerLeft, id)...)
	}
	h.mu.Unlock()

	conn.Close()
	h.deliver(out)
	Log.Infof("🔴 玩家断开: %s", id)
}

// OnlineCount 当前已加入的玩家数
func (h *Hub) OnlineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.players)
}

// PlayersSnapshot 玩家状态快照（供 join 回包与 /admin/players 使用）
func (h *Hub) PlayersSnapshot() []protocol.PlayerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() []protocol.PlayerState {
	players := make([]protocol.PlayerState, 0, len(h.players))
	for _, p := range h.players {
		players = append(players, p.PlayerState)
	}
	return players
}

// GatesSnapshot 闸机诊断记录快照
func (h *Hub) GatesSnapshot() map[string]GateRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	gates := make(map[string]GateRecord, len(h.gates))
	for id, rec := range h.gates {
		gates[id] = rec
	}
	return gates
}

// Metrics 转发计数器
func (h *Hub) Metrics() *RelayMetrics { return h.metrics }

// delivery 待发送的一条消息（在锁外统一入队）
type delivery struct {
	conn *ClientConn
	data []byte
}

// deliver 将消息压入各连接发送队列，队列满则丢弃并计数
func (h *Hub) deliver(out []delivery) {
	for _, d := range out {
		if d.conn == nil {
			continue
		}
		if d.conn.Enqueue(d.data) {
			h.metrics.IncDelivered()
		} else {
			h.metrics.IncQueueFull()
		}
	}
}

// broadcastLocked 编码一次，发给除 exclude 外的所有连接
func (h *Hub) broadcastLocked(exclude string, typ string, payload any) []delivery {
	data, err := protocol.Encode(typ, payload)
	if err != nil {
		Log.Errorf("encode %s: %v", typ, err)
		return nil
	}
	out := make([]delivery, 0, len(h.conns))
	for id, conn := range h.conns {
		if id == exclude {
			continue
		}
		out = append(out, delivery{conn: conn, data: data})
	}
	h.metrics.IncBroadcast()
	return out
}

// sendToLocked 发给单个连接
func (h *Hub) sendToLocked(id string, typ string, payload any) []delivery {
	conn, ok := h.conns[id]
	if !ok {
		return nil
	}
	data, err := protocol.Encode(typ, payload)
	if err != nil {
		Log.Errorf("encode %s: %v", typ, err)
		return nil
	}
	return []delivery{{conn: conn, data: data}}
}

// HandleEvent 处理一条入站事件：窄范围修改注册表，再把派生事件转发给目标连接
// 所有异常（未知事件、坏载荷、无主连接）一律按 no-op 处理
func (h *Hub) HandleEvent(connID string, env protocol.Envelope) {
	h.metrics.IncInbound()

	var out []delivery

	h.mu.Lock()
	switch env.Type {
	case protocol.EvtJoin:
		out = h.handleJoinLocked(connID, env.Payload)
	case protocol.EvtMove:
		out = h.handleMoveLocked(connID, env.Payload)
	case protocol.EvtSit:
		out = h.handleSitLocked(connID, env.Payload)
	case protocol.EvtStandUp:
		out = h.handleStandUpLocked(connID)
	case protocol.EvtRegionChange:
		h.handleRegionChangeLocked(connID, env.Payload)
	case protocol.EvtChatPublic:
		out = h.handleChatPublicLocked(connID, env.Payload)
	case protocol.EvtChatPrivate:
		out = h.handleChatPrivateLocked(connID, env.Payload)
	case protocol.EvtSoundEvent:
		out = h.handleSoundEventLocked(connID, env.Payload)
	case protocol.EvtPrinterStart:
		out = h.handlePrinterStartLocked(connID, env.Payload)
	case protocol.EvtGateInteract:
		out = h.handleGateInteractLocked(connID, env.Payload)
	case protocol.EvtDNDChange:
		out = h.handleDNDChangeLocked(connID, env.Payload)
	default:
		h.metrics.IncUnknown()
		Log.Debugf("unknown event %q from %s", env.Type, connID)
	}
	h.mu.Unlock()

	h.deliver(out)
}

// decode 载荷解析失败计为畸形事件
func (h *Hub) decode(raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		h.metrics.IncMalformed()
		Log.Debugf("bad payload: %v", err)
		return false
	}
	return true
}

func (h *Hub) handleJoinLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.JoinPayload
	if !h.decode(raw, &p) {
		return nil
	}
	conn, ok := h.conns[connID]
	if !ok {
		return nil
	}

	player := newPlayer(connID, p.Username, conn)
	h.players[connID] = player
	Log.Infof("👤 玩家加入: %s %s", player.Username, connID)

	// 先给新玩家发全量快照，再向其他人宣告加入
	out := h.sendToLocked(connID, protocol.EvtCurrentPlayers, h.snapshotLocked())
	out = append(out, h.broadcastLocked(connID, protocol.EvtPlayerJoined, player.PlayerState)...)
	return out
}

func (h *Hub) handleMoveLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.MovePayload
	if !h.decode(raw, &p) {
		return nil
	}
	player, ok := h.players[connID]
	if !ok {
		return nil
	}
	// 坐着时静默丢弃移动事件：忘记抑制移动的客户端不会带偏其他人
	if player.IsSitting {
		h.metrics.IncMoveWhileSitting()
		return nil
	}
	player.X = p.X
	player.Y = p.Y
	player.Animation = p.Animation
	return h.broadcastLocked(connID, protocol.EvtPlayerMoved, protocol.PlayerMovedPayload{
		ID:        connID,
		X:         p.X,
		Y:         p.Y,
		Animation: p.Animation,
	})
}

func (h *Hub) handleSitLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.SitPayload
	if !h.decode(raw, &p) {
		return nil
	}
	player, ok := h.players[connID]
	if !ok {
		return nil
	}
	// 不校验座位是否已被他人占用：占用仲裁完全由客户端乐观处理
	player.IsSitting = true
	player.SeatID = p.SeatID
	player.SeatDirection = p.Direction
	player.X = p.X
	player.Y = p.Y
	return h.broadcastLocked(connID, protocol.EvtPlayerSat, protocol.PlayerSatPayload{
		PlayerID:  connID,
		SeatID:    p.SeatID,
		X:         p.X,
		Y:         p.Y,
		Direction: p.Direction,
	})
}

func (h *Hub) handleStandUpLocked(connID string) []delivery {
	player, ok := h.players[connID]
	if !ok {
		return nil
	}
	Log.Infof("🚶 玩家站起: %s", connID)

	// 带上之前的座位号，其他客户端才知道该释放哪个座位
	oldSeatID := player.SeatID
	player.IsSitting = false
	player.SeatID = 0
	player.SeatDirection = ""
	return h.broadcastLocked(connID, protocol.EvtPlayerStoodUp, protocol.PlayerStoodUpPayload{
		PlayerID: connID,
		SeatID:   oldSeatID,
	})
}

func (h *Hub) handleRegionChangeLocked(connID string, raw json.RawMessage) {
	var p protocol.RegionChangePayload
	if !h.decode(raw, &p) {
		return
	}
	player, ok := h.players[connID]
	if !ok {
		return
	}
	// 只做登记，不广播：区域用于后续公共聊天的范围裁剪
	old := player.CurrentRegion
	player.CurrentRegion = p.RegionName
	Log.Infof("📍 玩家 %s 从 [%s] 进入 [%s]", player.Username, old, p.RegionName)
}

func (h *Hub) handleChatPublicLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.ChatPublicPayload
	if !h.decode(raw, &p) {
		return nil
	}
	sender, ok := h.players[connID]
	if !ok {
		return nil
	}
	Log.Infof("💬 [%s] %s: %s", sender.CurrentRegion, sender.Username, p.Message)

	msg := protocol.ChatMessagePayload{
		SenderID:   connID,
		SenderName: sender.Username,
		Message:    p.Message,
		Timestamp:  time.Now().UnixMilli(),
	}
	data, err := protocol.Encode(protocol.EvtChatMessage, msg)
	if err != nil {
		Log.Errorf("encode chat-message: %v", err)
		return nil
	}

	// 只发给同名区域的其他玩家；发送者本地已经显示过自己的消息
	// 区域按名字精确匹配，同类型不同名的区域不共享频道
	var out []delivery
	for id, other := range h.players {
		if id == connID {
			continue
		}
		if other.CurrentRegion != sender.CurrentRegion {
			continue
		}
		out = append(out, delivery{conn: other.Conn, data: data})
	}
	h.metrics.IncBroadcast()
	return out
}

func (h *Hub) handleChatPrivateLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.ChatPrivatePayload
	if !h.decode(raw, &p) {
		return nil
	}
	sender, senderOK := h.players[connID]
	target, targetOK := h.players[p.TargetPlayerID]
	if !senderOK || !targetOK {
		// 目标不在线：静默丢弃，不回执失败
		h.metrics.IncPrivateMiss()
		Log.Warnf("⚠️ 私信发送失败: 目标玩家不存在 %s", p.TargetPlayerID)
		return nil
	}
	Log.Infof("✉️ 私信: %s → %s", sender.Username, target.Username)

	return h.sendToLocked(p.TargetPlayerID, protocol.EvtChatPrivateMsg, protocol.ChatMessagePayload{
		SenderID:   connID,
		SenderName: sender.Username,
		Message:    p.Message,
		Timestamp:  time.Now().UnixMilli(),
	})
}

func (h *Hub) handleSoundEventLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.SoundEventPayload
	if !h.decode(raw, &p) {
		return nil
	}
	if _, ok := h.players[connID]; !ok {
		return nil
	}
	// 不打日志：脚步声太频繁会刷屏
	return h.broadcastLocked(connID, protocol.EvtOtherPlayerSound, protocol.OtherPlayerSoundPayload{
		PlayerID:  connID,
		SoundType: p.SoundType,
		X:         p.X,
		Y:         p.Y,
	})
}

func (h *Hub) handlePrinterStartLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.PrinterStartPayload
	if !h.decode(raw, &p) {
		return nil
	}
	player, ok := h.players[connID]
	if !ok {
		return nil
	}
	// 冷却与代币扣费由发起方客户端把关，服务端只做转发
	Log.Infof("🖨️ 玩家 %s 使用打印机 ID=%d", player.Username, p.PrinterID)
	return h.broadcastLocked(connID, protocol.EvtPrinterStarted, protocol.PrinterStartedPayload{
		PrinterID: p.PrinterID,
		PlayerID:  connID,
	})
}

func (h *Hub) handleGateInteractLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.GateInteractPayload
	if !h.decode(raw, &p) {
		return nil
	}
	player, ok := h.players[connID]
	if !ok {
		return nil
	}
	if p.Action != "open" && p.Action != "close" {
		h.metrics.IncMalformed()
		return nil
	}
	Log.Infof("🚪 玩家 %s %s闸机 ID=%s", player.Username, gateActionCN(p.Action), p.GateID)

	// 诊断记录：写入状态与时间戳，转发逻辑不读取
	state := "closed"
	if p.Action == "open" {
		state = "opened"
	}
	h.gates[p.GateID] = GateRecord{State: state, Timestamp: time.Now().UnixMilli()}

	return h.broadcastLocked(connID, protocol.EvtGateStateChanged, protocol.GateStateChangedPayload{
		GateID:   p.GateID,
		Action:   p.Action,
		PlayerID: connID,
	})
}

func gateActionCN(action string) string {
	if action == "open" {
		return "打开"
	}
	return "关闭"
}

func (h *Hub) handleDNDChangeLocked(connID string, raw json.RawMessage) []delivery {
	var p protocol.DNDChangePayload
	if !h.decode(raw, &p) {
		return nil
	}
	player, ok := h.players[connID]
	if !ok {
		return nil
	}
	player.IsDND = p.IsDND
	Log.Infof("🔕 玩家 %s %s勿扰模式", player.Username, dndStateCN(p.IsDND))

	// 仅用于对端的在场展示，服务端路由不受勿扰影响
	return h.broadcastLocked(connID, protocol.EvtPlayerDNDChanged, protocol.PlayerDNDChangedPayload{
		PlayerID: connID,
		IsDND:    p.IsDND,
	})
}

func dndStateCN(on bool) string {
	if on {
		return "开启"
	}
	return "关闭"
}
