package client

import "time"

// GateState 闸机状态机：closed → opening → opened → closing → closed 循环
type GateState string

const (
	GateClosed  GateState = "closed"
	GateOpening GateState = "opening"
	GateOpened  GateState = "opened"
	GateClosing GateState = "closing"
)

// 开/关动画时长，动画结束自动进入下一状态
const gateAnimDuration = 400 * time.Millisecond

// SwipePolicy 刷卡门禁策略：需要的物品与权限
type SwipePolicy struct {
	RequiredItem        string
	RequiredPermissions []string
	AllowEveryone       bool
}

// CheckSwipe 检查玩家能否刷卡，不允许时给出原因
func (p SwipePolicy) CheckSwipe(inv *Inventory) (allowed bool, reason string) {
	if !inv.Has(p.RequiredItem, 1) {
		return false, "需要 ID卡"
	}
	if p.AllowEveryone {
		return true, ""
	}
	for _, perm := range p.RequiredPermissions {
		if !inv.HasPermission(p.RequiredItem, perm) {
			return false, "权限不足"
		}
	}
	return true, ""
}

// Gate 闸机：刷卡开启、穿过自动关闭、状态经转发事件与远端同步
type Gate struct {
	ID          string
	X, Y        float64
	Orientation string // "vertical"（南北，比较 Y）或 "horizontal"（东西，比较 X）
	Policy      SwipePolicy

	state       GateState
	animElapsed time.Duration

	// 玩家穿过检测：记录开门后玩家最初在哪一侧，翻转即穿过
	// 只由本端使用，不参与网络同步
	wasPlayerOnFirstSide *bool
}

func NewGate(id string, x, y float64, orientation string) *Gate {
	if orientation == "" {
		orientation = "vertical"
	}
	return &Gate{
		ID:          id,
		X:           x,
		Y:           y,
		Orientation: orientation,
		Policy: SwipePolicy{
			RequiredItem:  ItemIDCard,
			AllowEveryone: true, // 闸机允许所有人
		},
		state: GateClosed,
	}
}

func (g *Gate) Pos() (float64, float64) { return g.X, g.Y }
func (g *Gate) Prompt() string          { return "按 E 刷卡进入" }
func (g *Gate) CanInteract() bool       { return true }

// State 当前状态
func (g *Gate) State() GateState { return g.state }

// Interact 刷卡：先过门禁策略，再走开门流程
func (g *Gate) Interact(w *World) {
	allowed, reason := g.Policy.CheckSwipe(w.Local().Inventory)
	if !allowed {
		w.notify(NoticeError, reason)
		return
	}
	g.onSwipeSuccess(w)
}

// onSwipeSuccess 刷卡成功：动画中或已开启则忽略，否则开门并上报
func (g *Gate) onSwipeSuccess(w *World) {
	// 动画过程中不接受新的刷卡，也不排队
	if g.state == GateOpening || g.state == GateClosing {
		return
	}
	if g.state == GateOpened {
		return
	}

	g.startOpening()
	w.emitGateInteract(g.ID, "open")
}

// startOpening 进入 opening，动画结束自动 opened
func (g *Gate) startOpening() {
	g.state = GateOpening
	g.animElapsed = 0
}

// startClosing 进入 closing，动画结束自动 closed
func (g *Gate) startClosing() {
	g.state = GateClosing
	g.animElapsed = 0
}

// Update 每帧推进：动画计时 + opened 状态下的穿过检测
func (g *Gate) Update(w *World, dt time.Duration) {
	switch g.state {
	case GateOpening:
		g.animElapsed += dt
		if g.animElapsed >= gateAnimDuration {
			g.state = GateOpened
			g.wasPlayerOnFirstSide = nil // 重置穿过检测
		}
	case GateClosing:
		g.animElapsed += dt
		if g.animElapsed >= gateAnimDuration {
			g.state = GateClosed
		}
	case GateOpened:
		g.detectCrossing(w)
	}
}

// detectCrossing 比较玩家在闸机哪一侧，侧别翻转视为穿过，自动关门并上报
func (g *Gate) detectCrossing(w *World) {
	p := w.Local()

	var isPlayerOnFirstSide bool
	if g.Orientation == "vertical" {
		isPlayerOnFirstSide = p.Y < g.Y
	} else {
		isPlayerOnFirstSide = p.X < g.X
	}

	// 开门后的第一帧只记录位置
	if g.wasPlayerOnFirstSide == nil {
		side := isPlayerOnFirstSide
		g.wasPlayerOnFirstSide = &side
		return
	}

	if *g.wasPlayerOnFirstSide != isPlayerOnFirstSide {
		g.startClosing()
		g.wasPlayerOnFirstSide = nil
		w.emitGateInteract(g.ID, "close")
	}
}

// HandleRemoteAction 应用远端玩家触发的开/关
// 只在 closed 收 open、opened 收 close 时生效，其余组合忽略
func (g *Gate) HandleRemoteAction(action string) {
	if action == "open" && g.state == GateClosed {
		g.startOpening()
	} else if action == "close" && g.state == GateOpened {
		g.startClosing()
	}
}
