package client

import "time"

// 打印动画时长（帧 1-10，12fps）与费用
const (
	printAnimDuration = 10 * time.Second / 12
	printCoinCost     = 1
)

// Printer 打印机：消耗代币，产生打印纸
// 远端触发时只播动画不发奖励
type Printer struct {
	ID   int
	X, Y float64

	animating   bool
	animElapsed time.Duration
	rewardLocal bool // 动画结束后是否给本地玩家发纸
}

func NewPrinter(id int, x, y float64) *Printer {
	return &Printer{ID: id, X: x, Y: y}
}

func (p *Printer) Pos() (float64, float64) { return p.X, p.Y }
func (p *Printer) Prompt() string          { return "按 E 打印 (1 🪙)" }
func (p *Printer) CanInteract() bool       { return !p.animating }

// Animating 是否正在打印
func (p *Printer) Animating() bool { return p.animating }

// Interact 本地打印：检查忙碌与代币，扣费后上报并开始动画
func (p *Printer) Interact(w *World) {
	if p.animating {
		w.notify(NoticeWarning, "打印机正在工作...")
		return
	}

	inv := w.Local().Inventory
	if !inv.Has(ItemCoin, printCoinCost) {
		w.notify(NoticeError, "代币不足，无法打印")
		return
	}
	inv.Remove(ItemCoin, printCoinCost)

	w.emitPrinterStart(p.ID)
	// 打印音效同步给其他玩家（距离衰减在各端本地计算）
	w.emitSoundEvent("printer-complete", p.X, p.Y)

	p.animating = true
	p.animElapsed = 0
	p.rewardLocal = true
}

// PlayAnimation 播放打印动画（供远端事件调用），已在运行则忽略
func (p *Printer) PlayAnimation() {
	if p.animating {
		return
	}
	p.animating = true
	p.animElapsed = 0
	p.rewardLocal = false
}

// Update 推进动画；本地触发的打印在动画结束时发放打印纸
func (p *Printer) Update(w *World, dt time.Duration) {
	if !p.animating {
		return
	}
	p.animElapsed += dt
	if p.animElapsed < printAnimDuration {
		return
	}

	p.animating = false
	if p.rewardLocal {
		p.rewardLocal = false
		w.Local().Inventory.Add(ItemPaper, 1)
		w.notify(NoticeSuccess, "打印完成！获得打印纸 ×1")
	}
}
