// Package protocol 定义客户端与服务端之间的事件协议
// 每条 WebSocket 文本消息是一个 JSON 信封：{"type":"...","payload":{...}}
// 载荷字段名与前端保持一致，便于抓包排查
package protocol

import "encoding/json"

// 入站事件（客户端 → 服务端）
const (
	EvtJoin         = "join"
	EvtMove         = "player-move"
	EvtSit          = "player-sit"
	EvtStandUp      = "player-stand-up"
	EvtRegionChange = "player-region-change"
	EvtChatPublic   = "chat-public"
	EvtChatPrivate  = "chat-private"
	EvtSoundEvent   = "player-sound-event"
	EvtPrinterStart = "printer-start"
	EvtGateInteract = "gate-interact"
	EvtDNDChange    = "player-dnd-change"
)

// 出站事件（服务端 → 客户端）
// assign-id 是传输层补充：WebSocket 不像 socket.io 自带连接 ID，
// 连接建立后服务端先下发一条告知分配到的 ID
const (
	EvtAssignID         = "assign-id"
	EvtCurrentPlayers   = "current-players"
	EvtPlayerJoined     = "player-joined"
	EvtPlayerMoved      = "player-moved"
	EvtPlayerSat        = "player-sat"
	EvtPlayerStoodUp    = "player-stood-up"
	EvtPlayerLeft       = "player-left"
	EvtChatMessage      = "chat-message"
	EvtChatPrivateMsg   = "chat-private-message"
	EvtOtherPlayerSound = "other-player-sound"
	EvtPrinterStarted   = "printer-started"
	EvtGateStateChanged = "gate-state-changed"
	EvtPlayerDNDChanged = "player-dnd-changed"
)

// Envelope 信封：入站时 Payload 延迟解析
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outgoing 出站信封：Payload 直接序列化
type Outgoing struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// PlayerState 一名玩家的完整状态快照（服务端权威字段）
type PlayerState struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Floor         int     `json:"floor"`
	Animation     string  `json:"animation"`
	IsSitting     bool    `json:"isSitting"`
	SeatID        int     `json:"seatId"`
	SeatDirection string  `json:"seatDirection"`
	CurrentRegion string  `json:"currentRegion"`
	IsDND         bool    `json:"isDND"`
}

// ---- 入站载荷 ----

type JoinPayload struct {
	Username string `json:"username"`
}

type MovePayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Animation string  `json:"animation"`
}

type SitPayload struct {
	SeatID    int     `json:"seatId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
}

type RegionChangePayload struct {
	RegionName string `json:"regionName"`
	RegionType string `json:"regionType"`
}

type ChatPublicPayload struct {
	Message string `json:"message"`
}

type ChatPrivatePayload struct {
	TargetPlayerID string `json:"targetPlayerId"`
	Message        string `json:"message"`
}

type SoundEventPayload struct {
	SoundType string  `json:"soundType"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type PrinterStartPayload struct {
	PrinterID int `json:"printerId"`
}

// GateInteractPayload Action 只有 "open" / "close" 两种
type GateInteractPayload struct {
	GateID string `json:"gateId"`
	Action string `json:"action"`
}

type DNDChangePayload struct {
	IsDND bool `json:"isDND"`
}

// ---- 出站载荷 ----

type AssignIDPayload struct {
	ID string `json:"id"`
}

type PlayerMovedPayload struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Animation string  `json:"animation"`
}

type PlayerSatPayload struct {
	PlayerID  string  `json:"playerId"`
	SeatID    int     `json:"seatId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
}

type PlayerStoodUpPayload struct {
	PlayerID string `json:"playerId"`
	SeatID   int    `json:"seatId"`
}

// ChatMessagePayload 公共与私信共用，Timestamp 为毫秒时间戳
type ChatMessagePayload struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

type OtherPlayerSoundPayload struct {
	PlayerID  string  `json:"playerId"`
	SoundType string  `json:"soundType"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type PrinterStartedPayload struct {
	PrinterID int    `json:"printerId"`
	PlayerID  string `json:"playerId"`
}

type GateStateChangedPayload struct {
	GateID   string `json:"gateId"`
	Action   string `json:"action"`
	PlayerID string `json:"playerId"`
}

type PlayerDNDChangedPayload struct {
	PlayerID string `json:"playerId"`
	IsDND    bool   `json:"isDND"`
}

// Encode 将出站事件编码为一条消息
func Encode(typ string, payload any) ([]byte, error) {
	return json.Marshal(Outgoing{Type: typ, Payload: payload})
}
