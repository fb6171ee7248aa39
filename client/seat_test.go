package client

import (
	"testing"

	"dlibrary/protocol"
)

func TestSitDownIsOptimisticAndReportsFinalPosition(t *testing.T) {
	w, em := newTestWorld(t, nil)
	seat := NewSeat(5, 300, 200, "up")
	w.AddSeat(seat)

	seat.Interact(w)

	p := w.Local()
	if !p.IsSitting || p.CurrentSeat != seat {
		t.Fatalf("local not sitting")
	}
	// 本地先落座再上报，不等服务端
	if p.X != 300 || p.Y != 200+sitYOffset("up") || p.Frame != sittingFrame("up") {
		t.Fatalf("sit pose = (%v,%v) frame %d", p.X, p.Y, p.Frame)
	}
	payload, ok := em.last(protocol.EvtSit)
	if !ok {
		t.Fatalf("sit not emitted")
	}
	sit := payload.(protocol.SitPayload)
	if sit.SeatID != 5 || sit.X != p.X || sit.Y != p.Y || sit.Direction != "up" {
		t.Fatalf("sit payload = %+v", sit)
	}
	if !seat.Occupied() || seat.OccupantID() != "local" {
		t.Fatalf("seat not marked occupied by local")
	}
}

func TestStandUpMovesToOffsetAndEmitsCorrection(t *testing.T) {
	w, em := newTestWorld(t, nil)
	seat := NewSeat(5, 300, 200, "left")
	w.AddSeat(seat)

	seat.Interact(w)
	seat.Interact(w)

	p := w.Local()
	if p.IsSitting || p.CurrentSeat != nil {
		t.Fatalf("local still sitting")
	}
	dx, dy := standOffset("left")
	if p.X != 300+dx || p.Y != 200+dy || p.Animation != "idle-left" {
		t.Fatalf("stand pose = (%v,%v) %q", p.X, p.Y, p.Animation)
	}
	if em.count(protocol.EvtStandUp) != 1 {
		t.Fatalf("stand-up not emitted")
	}
	// 站起后紧跟一次位置修正，让远端影子落到同一位置
	payload, ok := em.last(protocol.EvtMove)
	if !ok {
		t.Fatalf("position correction not emitted")
	}
	mv := payload.(protocol.MovePayload)
	if mv.X != p.X || mv.Y != p.Y {
		t.Fatalf("correction = %+v, local at (%v,%v)", mv, p.X, p.Y)
	}
	if seat.Occupied() {
		t.Fatalf("seat not released")
	}
}

func TestOccupiedSeatWarnsInsteadOfSitting(t *testing.T) {
	w, em := newTestWorld(t, nil)
	seat := NewSeat(5, 300, 200, "down")
	w.AddSeat(seat)
	seat.SetOccupiedByOther("r1")

	var warned string
	w.OnNotice = func(level NoticeLevel, text string) {
		if level == NoticeWarning {
			warned = text
		}
	}

	seat.Interact(w)

	if w.Local().IsSitting {
		t.Fatalf("must not sit on an occupied seat")
	}
	if warned != "座位已被占用" {
		t.Fatalf("warning = %q", warned)
	}
	if em.count(protocol.EvtSit) != 0 {
		t.Fatalf("sit must not be emitted")
	}
}

func TestMoveSuppressedWhileSitting(t *testing.T) {
	w, em := newTestWorld(t, nil)
	seat := NewSeat(5, 300, 200, "down")
	w.AddSeat(seat)
	seat.Interact(w)

	moves := em.count(protocol.EvtMove)
	w.MoveLocal(400, 400, "walk-right")

	p := w.Local()
	if p.X != 300 || p.Y != 200+sitYOffset("down") {
		t.Fatalf("sitting player moved to (%v,%v)", p.X, p.Y)
	}
	if em.count(protocol.EvtMove) != moves {
		t.Fatalf("move emitted while sitting")
	}
}

func TestReleaseByOtherIsIdempotent(t *testing.T) {
	seat := NewSeat(5, 300, 200, "down")
	seat.SetOccupiedByOther("r1")
	if seat.CanInteract() {
		t.Fatalf("occupied seat must be disabled")
	}

	seat.ReleaseByOther()
	seat.ReleaseByOther()
	if seat.Occupied() || !seat.CanInteract() {
		t.Fatalf("seat not released")
	}
}
