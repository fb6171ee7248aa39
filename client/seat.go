package client

// Seat 座位：本地占用状态机
// 状态只有空闲/占用两种；被远端玩家占用时同时进入不可交互
// 占用仲裁是乐观的：本地先坐下再上报，服务端不做冲突裁决
type Seat struct {
	ID        int
	X, Y      float64
	Direction string

	occupied   bool
	occupantID string // 弱引用：只记玩家 ID，不持有玩家对象
	enabled    bool   // 被他人占用时禁止本地选中
	prompt     string
}

func NewSeat(id int, x, y float64, direction string) *Seat {
	if direction == "" {
		direction = "down"
	}
	return &Seat{
		ID:        id,
		X:         x,
		Y:         y,
		Direction: direction,
		enabled:   true,
		prompt:    "按 E 坐下",
	}
}

// sittingFrame 坐姿帧号（随方向）
func sittingFrame(direction string) int {
	switch direction {
	case "up":
		return 392
	case "left":
		return 405
	case "right":
		return 431
	default:
		return 418
	}
}

// sitYOffset 坐下时相对座位的 Y 偏移
func sitYOffset(direction string) float64 {
	switch direction {
	case "up":
		return -14
	case "left", "right":
		return -18
	default:
		return -12
	}
}

// standOffset 站起后玩家相对座位的落点偏移
func standOffset(direction string) (dx, dy float64) {
	switch direction {
	case "up":
		return 0, -20
	case "left":
		return -20, 0
	case "right":
		return 20, 0
	default:
		return 0, 20
	}
}

func (s *Seat) Pos() (float64, float64) { return s.X, s.Y }
func (s *Seat) Prompt() string          { return s.prompt }
func (s *Seat) CanInteract() bool       { return s.enabled }

// Occupied 当前是否有人坐着
func (s *Seat) Occupied() bool { return s.occupied }

// OccupantID 占用者玩家 ID，空闲时为空串
func (s *Seat) OccupantID() string { return s.occupantID }

// Interact 按 E：坐着的本人站起；空座坐下；被占用则提示
func (s *Seat) Interact(w *World) {
	p := w.Local()
	if p.IsSitting {
		if p.CurrentSeat == s {
			s.standUp(w)
		}
		return
	}
	if !s.occupied {
		s.sitDown(w)
		return
	}
	w.notify(NoticeWarning, "座位已被占用")
}

// sitDown 乐观本地更新 + 上报 sit 意图
func (s *Seat) sitDown(w *World) {
	p := w.Local()

	s.occupied = true
	s.occupantID = w.LocalID()
	p.IsSitting = true
	p.CurrentSeat = s

	finalX := s.X
	finalY := s.Y + sitYOffset(s.Direction)
	p.X = finalX
	p.Y = finalY
	p.Animation = ""
	p.Frame = sittingFrame(s.Direction)

	s.prompt = "按 E 站起"

	w.emitSit(s.ID, finalX, finalY, s.Direction)
}

// standUp 站到方向相关的偏移位，再上报 stand-up 与一次位置修正
func (s *Seat) standUp(w *World) {
	p := w.Local()

	s.occupied = false
	s.occupantID = ""
	p.IsSitting = false
	p.CurrentSeat = nil

	dx, dy := standOffset(s.Direction)
	p.X = s.X + dx
	p.Y = s.Y + dy
	p.Frame = 0
	p.Animation = "idle-" + s.Direction

	s.prompt = "按 E 坐下"

	w.emitStandUp()
	w.emitMove(p.X, p.Y, p.Animation)
}

// SetOccupiedByOther 远端玩家坐下：占用并禁止本地交互
func (s *Seat) SetOccupiedByOther(playerID string) {
	s.occupied = true
	s.occupantID = playerID
	s.enabled = false
}

// ReleaseByOther 远端玩家站起：释放座位，重复调用是 no-op
func (s *Seat) ReleaseByOther() {
	s.occupied = false
	s.occupantID = ""
	s.enabled = true
}
