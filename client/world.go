package client

import (
	"encoding/json"
	"math"
	"time"

	"dlibrary/protocol"
)

// NoticeLevel 提示级别（UI 渲染在核心之外，这里只发数据）
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Emitter 出站事件发送端，由 Socket 实现；测试可注入假实现
type Emitter interface {
	Emit(typ string, payload any) error
}

// 远端移动补间时长：把 ~50ms 一条的位置更新平滑成连续运动
const moveTweenDuration = 50 * time.Millisecond

// 本地移动上报的节流间隔
const moveEmitInterval = 50 * time.Millisecond

// 声音事件的最大可闻距离（超出后音量为 0）
const maxSoundDistance = 500.0

// tween 线性位置补间
type tween struct {
	active           bool
	fromX, fromY     float64
	targetX, targetY float64
	elapsed          time.Duration
}

// LocalPlayer 本地玩家
type LocalPlayer struct {
	Username    string
	X, Y        float64
	Animation   string
	Frame       int
	IsSitting   bool
	CurrentSeat *Seat
	Inventory   *Inventory
}

// RemotePlayer 远端玩家的影子实体：只靠转发事件保持近似一致
type RemotePlayer struct {
	ID        string
	Username  string
	X, Y      float64
	Animation string
	Frame     int
	IsSitting bool
	SeatID    int
	IsDND     bool

	tw tween
}

// PositionalSound 带坐标的声音事件，Volume 已按距离衰减
type PositionalSound struct {
	PlayerID  string
	SoundType string
	X, Y      float64
	Volume    float64
}

// World 客户端世界：远端影子、可交互物体、区域路由与聊天的单线程主循环
// 网络事件进入 inbox 队列，在两帧之间统一应用，不在帧内打断
type World struct {
	localID string
	local   *LocalPlayer
	others  map[string]*RemotePlayer

	seats    map[int]*Seat
	gates    map[string]*Gate
	printers map[int]*Printer

	Interaction *InteractionManager
	Regions     *RegionRouter
	Chat        *ChatLog
	DND         *DNDManager

	emitter Emitter
	inbox   chan protocol.Envelope

	clock        time.Duration
	lastMoveEmit time.Duration

	// 可选回调：通知条与声音事件
	OnNotice func(level NoticeLevel, text string)
	OnSound  func(s PositionalSound)
}

// NewWorld 创建客户端世界；regions 为地图声明的区域（声明顺序即匹配顺序）
func NewWorld(username string, emitter Emitter, regions []Region) *World {
	w := &World{
		local: &LocalPlayer{
			Username:  username,
			X:         512,
			Y:         384,
			Animation: "idle-down",
			Inventory: NewInventory(),
		},
		others:       make(map[string]*RemotePlayer),
		seats:        make(map[int]*Seat),
		gates:        make(map[string]*Gate),
		printers:     make(map[int]*Printer),
		Interaction:  NewInteractionManager(),
		Regions:      NewRegionRouter(regions),
		Chat:         NewChatLog(),
		DND:          NewDNDManager(),
		emitter:      emitter,
		inbox:        make(chan protocol.Envelope, 256),
		lastMoveEmit: -moveEmitInterval,
	}
	w.Regions.OnChange = w.onRegionChange
	return w
}

// Local 本地玩家
func (w *World) Local() *LocalPlayer { return w.local }

// LocalID 本地连接 ID（join 前为空）
func (w *World) LocalID() string { return w.localID }

// SetLocalID 连接建立后由 Socket 写入
func (w *World) SetLocalID(id string) { w.localID = id }

// Others 远端玩家影子表
func (w *World) Others() map[string]*RemotePlayer { return w.others }

// AddSeat / AddGate / AddPrinter 注册地图物体
func (w *World) AddSeat(s *Seat) {
	w.seats[s.ID] = s
	w.Interaction.Register(s)
}

func (w *World) AddGate(g *Gate) {
	w.gates[g.ID] = g
	w.Interaction.Register(g)
}

func (w *World) AddPrinter(p *Printer) {
	w.printers[p.ID] = p
	w.Interaction.Register(p)
}

// Seat / Gate / Printer 按 ID 查找，找不到返回 nil
func (w *World) Seat(id int) *Seat       { return w.seats[id] }
func (w *World) Gate(id string) *Gate    { return w.gates[id] }
func (w *World) Printer(id int) *Printer { return w.printers[id] }

func (w *World) notify(level NoticeLevel, text string) {
	if w.OnNotice != nil {
		w.OnNotice(level, text)
	}
}

// Post 网络读协程投递一条入站事件，等下一帧统一应用
func (w *World) Post(env protocol.Envelope) {
	w.inbox <- env
}

// Update 推进一帧：先应用排队的网络事件，再步进本地状态机
func (w *World) Update(dt time.Duration) {
	w.clock += dt

	w.drainInbox()

	for _, other := range w.others {
		w.stepTween(other, dt)
	}
	for _, g := range w.gates {
		g.Update(w, dt)
	}
	for _, p := range w.printers {
		p.Update(w, dt)
	}
	w.Regions.Update(dt, w.local.X, w.local.Y)
	w.Interaction.Update(w.local.X, w.local.Y)
}

// drainInbox 应用当前排队的全部网络事件（非阻塞 drain）
func (w *World) drainInbox() {
	for {
		select {
		case env := <-w.inbox:
			w.apply(env)
		default:
			return
		}
	}
}

// stepTween 推进一名远端玩家的位置补间
func (w *World) stepTween(p *RemotePlayer, dt time.Duration) {
	if !p.tw.active {
		return
	}
	p.tw.elapsed += dt
	t := float64(p.tw.elapsed) / float64(moveTweenDuration)
	if t >= 1 {
		t = 1
		p.tw.active = false
	}
	p.X = p.tw.fromX + (p.tw.targetX-p.tw.fromX)*t
	p.Y = p.tw.fromY + (p.tw.targetY-p.tw.fromY)*t
}

// ---- 本地意图 ----

// MoveLocal 本地移动：坐着时不产生移动，上报按 50ms 节流
func (w *World) MoveLocal(x, y float64, animation string) {
	if w.local.IsSitting {
		return
	}
	w.local.X = x
	w.local.Y = y
	w.local.Animation = animation

	if w.clock-w.lastMoveEmit < moveEmitInterval {
		return
	}
	w.lastMoveEmit = w.clock
	w.emitMove(x, y, animation)
}

// SendPublicChat 发公共消息：本地直接显示，转发只进别人的面板
func (w *World) SendPublicChat(text string) {
	w.Chat.append(ChatMessage{
		Kind:       ChatPublic,
		SenderID:   w.localID,
		SenderName: w.local.Username,
		Message:    text,
		Timestamp:  time.Now(),
		Own:        true,
	})
	w.emit(protocol.EvtChatPublic, protocol.ChatPublicPayload{Message: text})
}

// SendPrivateChat 发私信（目标不在线时服务端静默丢弃，无回执）
func (w *World) SendPrivateChat(targetID, text string) {
	w.Chat.append(ChatMessage{
		Kind:       ChatPrivate,
		SenderID:   w.localID,
		SenderName: w.local.Username,
		Message:    text,
		Timestamp:  time.Now(),
		Own:        true,
	})
	w.emit(protocol.EvtChatPrivate, protocol.ChatPrivatePayload{
		TargetPlayerID: targetID,
		Message:        text,
	})
}

// SetDND 切换本地勿扰并同步到服务端
func (w *World) SetDND(on bool) {
	if !w.DND.setEnabled(on) {
		return
	}
	w.emit(protocol.EvtDNDChange, protocol.DNDChangePayload{IsDND: on})
}

// TryInteract 对最近的可交互物体按 E
func (w *World) TryInteract() {
	w.Interaction.TryInteract(w)
}

// onRegionChange 区域变化：上报服务端 + 重定聊天频道标签
func (w *World) onRegionChange(old, new Region) {
	w.emit(protocol.EvtRegionChange, protocol.RegionChangePayload{
		RegionName: new.Name,
		RegionType: string(new.Type),
	})
	w.Chat.Relabel(new.Name)
}

// ---- 出站封装 ----

func (w *World) emit(typ string, payload any) {
	if w.emitter == nil {
		return
	}
	_ = w.emitter.Emit(typ, payload)
}

func (w *World) emitMove(x, y float64, animation string) {
	w.emit(protocol.EvtMove, protocol.MovePayload{X: x, Y: y, Animation: animation})
}

func (w *World) emitSit(seatID int, x, y float64, direction string) {
	w.emit(protocol.EvtSit, protocol.SitPayload{SeatID: seatID, X: x, Y: y, Direction: direction})
}

func (w *World) emitStandUp() {
	w.emit(protocol.EvtStandUp, struct{}{})
}

func (w *World) emitGateInteract(gateID, action string) {
	w.emit(protocol.EvtGateInteract, protocol.GateInteractPayload{GateID: gateID, Action: action})
}

func (w *World) emitPrinterStart(printerID int) {
	w.emit(protocol.EvtPrinterStart, protocol.PrinterStartPayload{PrinterID: printerID})
}

func (w *World) emitSoundEvent(soundType string, x, y float64) {
	w.emit(protocol.EvtSoundEvent, protocol.SoundEventPayload{SoundType: soundType, X: x, Y: y})
}

// ---- 入站事件应用（状态调和） ----

func (w *World) apply(env protocol.Envelope) {
	switch env.Type {
	case protocol.EvtAssignID:
		var p protocol.AssignIDPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.localID = p.ID
		}
	case protocol.EvtCurrentPlayers:
		var players []protocol.PlayerState
		if json.Unmarshal(env.Payload, &players) == nil {
			for _, p := range players {
				if p.ID == w.localID {
					continue
				}
				w.addOtherPlayer(p)
			}
		}
	case protocol.EvtPlayerJoined:
		var p protocol.PlayerState
		if json.Unmarshal(env.Payload, &p) == nil {
			w.addOtherPlayer(p)
		}
	case protocol.EvtPlayerMoved:
		var p protocol.PlayerMovedPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.applyMoved(p)
		}
	case protocol.EvtPlayerSat:
		var p protocol.PlayerSatPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.applySat(p)
		}
	case protocol.EvtPlayerStoodUp:
		var p protocol.PlayerStoodUpPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.applyStoodUp(p)
		}
	case protocol.EvtPlayerLeft:
		var id string
		if json.Unmarshal(env.Payload, &id) == nil {
			w.removeOtherPlayer(id)
		}
	case protocol.EvtChatMessage:
		var p protocol.ChatMessagePayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.applyChatMessage(p)
		}
	case protocol.EvtChatPrivateMsg:
		var p protocol.ChatMessagePayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.Chat.append(ChatMessage{
				Kind:       ChatPrivate,
				SenderID:   p.SenderID,
				SenderName: p.SenderName,
				Message:    p.Message,
				Timestamp:  time.UnixMilli(p.Timestamp),
			})
		}
	case protocol.EvtOtherPlayerSound:
		var p protocol.OtherPlayerSoundPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.applySound(p)
		}
	case protocol.EvtPrinterStarted:
		var p protocol.PrinterStartedPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			if printer := w.printers[p.PrinterID]; printer != nil {
				printer.PlayAnimation()
			}
		}
	case protocol.EvtGateStateChanged:
		var p protocol.GateStateChangedPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			if gate := w.gates[p.GateID]; gate != nil {
				gate.HandleRemoteAction(p.Action)
			}
		}
	case protocol.EvtPlayerDNDChanged:
		var p protocol.PlayerDNDChangedPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			w.DND.HandleRemoteChange(p.PlayerID, p.IsDND)
			if other := w.others[p.PlayerID]; other != nil {
				other.IsDND = p.IsDND
			}
		}
	}
}

// addOtherPlayer 实例化影子实体；快照里坐着的玩家直接贴到坐姿，不做补间
func (w *World) addOtherPlayer(p protocol.PlayerState) {
	if _, exists := w.others[p.ID]; exists {
		return
	}
	other := &RemotePlayer{
		ID:        p.ID,
		Username:  p.Username,
		X:         p.X,
		Y:         p.Y,
		Animation: p.Animation,
		IsDND:     p.IsDND,
	}
	if p.IsSitting {
		other.IsSitting = true
		other.SeatID = p.SeatID
		other.Frame = sittingFrame(p.SeatDirection)
		other.Animation = ""
		if seat := w.seats[p.SeatID]; seat != nil {
			seat.SetOccupiedByOther(p.ID)
		}
	}
	w.others[p.ID] = other
	if p.IsDND {
		w.DND.HandleRemoteChange(p.ID, true)
	}
}

// applyMoved 影子坐着时忽略迟到的移动事件，否则开一段 50ms 线性补间
func (w *World) applyMoved(p protocol.PlayerMovedPayload) {
	other := w.others[p.ID]
	if other == nil {
		return
	}
	if other.IsSitting {
		return
	}
	other.tw = tween{
		active:  true,
		fromX:   other.X,
		fromY:   other.Y,
		targetX: p.X,
		targetY: p.Y,
	}
	if p.Animation != "" {
		other.Animation = p.Animation
	}
}

// applySat 先取消在途补间再贴到座位，防止排队中的移动补间盖掉坐姿
func (w *World) applySat(p protocol.PlayerSatPayload) {
	other := w.others[p.PlayerID]
	if other == nil {
		return
	}
	other.tw.active = false
	other.IsSitting = true
	other.SeatID = p.SeatID
	other.X = p.X
	other.Y = p.Y
	other.Animation = ""
	other.Frame = sittingFrame(p.Direction)

	if seat := w.seats[p.SeatID]; seat != nil {
		seat.SetOccupiedByOther(p.PlayerID)
	}
}

// applyStoodUp 释放座位并把影子挪到站起落点；重复到达的同一事件是 no-op
func (w *World) applyStoodUp(p protocol.PlayerStoodUpPayload) {
	other := w.others[p.PlayerID]
	if other == nil {
		return
	}
	if !other.IsSitting {
		return
	}
	other.IsSitting = false
	other.SeatID = 0
	other.Frame = 0

	if seat := w.seats[p.SeatID]; seat != nil {
		seat.ReleaseByOther()
		dx, dy := standOffset(seat.Direction)
		other.X = seat.X + dx
		other.Y = seat.Y + dy
		other.Animation = "idle-" + seat.Direction
	} else {
		other.Animation = "idle-down"
	}
}

// removeOtherPlayer 销毁影子实体及其附属展示状态
func (w *World) removeOtherPlayer(id string) {
	delete(w.others, id)
	w.DND.ForgetRemote(id)
}

// applyChatMessage 公共消息：勿扰开启时讨论区消息被整体屏蔽
func (w *World) applyChatMessage(p protocol.ChatMessagePayload) {
	if w.DND.ShouldMutePublic(w.Regions.Current().Type) {
		w.Chat.countMuted()
		return
	}
	w.Chat.append(ChatMessage{
		Kind:       ChatPublic,
		SenderID:   p.SenderID,
		SenderName: p.SenderName,
		Message:    p.Message,
		Timestamp:  time.UnixMilli(p.Timestamp),
	})
}

// applySound 按距离算衰减后交给播放回调
func (w *World) applySound(p protocol.OtherPlayerSoundPayload) {
	if w.OnSound == nil {
		return
	}
	d := math.Hypot(w.local.X-p.X, w.local.Y-p.Y)
	volume := 1 - d/maxSoundDistance
	if volume < 0 {
		volume = 0
	}
	w.OnSound(PositionalSound{
		PlayerID:  p.PlayerID,
		SoundType: p.SoundType,
		X:         p.X,
		Y:         p.Y,
		Volume:    volume,
	})
}
