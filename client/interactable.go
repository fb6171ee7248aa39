package client

import "math"

// 可交互物体统一按能力建模：有提示语、有可交互判定、有交互动作
// 座位、闸机、打印机分别实现该接口
type Interactable interface {
	// Pos 物体世界坐标
	Pos() (x, y float64)
	// Prompt 当前提示语（如 "按 E 坐下"）
	Prompt() string
	// CanInteract 当前是否可被本地玩家选中
	CanInteract() bool
	// Interact 对本地玩家执行交互
	Interact(w *World)
}

// 交互距离（像素），超出则提示走近一点
const interactDistance = 60.0

// InteractionManager 维护可交互物体清单，跟踪距离本地玩家最近的一个
type InteractionManager struct {
	interactables []Interactable
	nearest       Interactable
}

func NewInteractionManager() *InteractionManager {
	return &InteractionManager{}
}

// Register 注册可交互物体
func (m *InteractionManager) Register(obj Interactable) {
	m.interactables = append(m.interactables, obj)
}

// Unregister 取消注册
func (m *InteractionManager) Unregister(obj Interactable) {
	for i, it := range m.interactables {
		if it == obj {
			m.interactables = append(m.interactables[:i], m.interactables[i+1:]...)
			break
		}
	}
	if m.nearest == obj {
		m.nearest = nil
	}
}

// Update 每帧更新：找出交互距离内最近的物体
func (m *InteractionManager) Update(playerX, playerY float64) {
	var closest Interactable
	minDistance := interactDistance

	for _, obj := range m.interactables {
		if !obj.CanInteract() {
			continue
		}
		ox, oy := obj.Pos()
		d := math.Hypot(playerX-ox, playerY-oy)
		if d < minDistance {
			minDistance = d
			closest = obj
		}
	}
	m.nearest = closest
}

// Nearest 当前最近的可交互物体，可能为 nil
func (m *InteractionManager) Nearest() Interactable {
	return m.nearest
}

// TryInteract 对最近的物体触发交互（按 E 的效果）
func (m *InteractionManager) TryInteract(w *World) {
	if m.nearest != nil {
		m.nearest.Interact(w)
	}
}
