package server

import (
	"encoding/json"
	"testing"

	"dlibrary/protocol"
)

func newTestHub() *Hub {
	return NewHub(Config{SendQueueSize: 32})
}

// attach 挂一条假连接（不带底层 WS，只用发送队列）
func attach(h *Hub, id string) *ClientConn {
	c := NewClientConn(nil, 32)
	h.Connect(id, c)
	return c
}

func event(t *testing.T, typ string, payload any) protocol.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return protocol.Envelope{Type: typ, Payload: raw}
}

func join(t *testing.T, h *Hub, id, username string) {
	t.Helper()
	h.HandleEvent(id, event(t, protocol.EvtJoin, protocol.JoinPayload{Username: username}))
}

// drain 取出一条连接发送队列里的全部信封
func drain(t *testing.T, c *ClientConn) []protocol.Envelope {
	t.Helper()
	var out []protocol.Envelope
	for {
		select {
		case data := <-c.send:
			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("unmarshal outbound: %v", err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func decodeInto(t *testing.T, env protocol.Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Payload, v); err != nil {
		t.Fatalf("decode %s payload: %v", env.Type, err)
	}
}

func findEvent(envs []protocol.Envelope, typ string) (protocol.Envelope, bool) {
	for _, env := range envs {
		if env.Type == typ {
			return env, true
		}
	}
	return protocol.Envelope{}, false
}

func countEvent(envs []protocol.Envelope, typ string) int {
	n := 0
	for _, env := range envs {
		if env.Type == typ {
			n++
		}
	}
	return n
}

func TestJoinSendsSnapshotThenAnnounces(t *testing.T) {
	h := newTestHub()
	connA := attach(h, "a")
	join(t, h, "a", "alice")
	drain(t, connA)

	connB := attach(h, "b")
	join(t, h, "b", "bob")

	// 新玩家收到包含双方的全量快照
	outB := drain(t, connB)
	snap, ok := findEvent(outB, protocol.EvtCurrentPlayers)
	if !ok {
		t.Fatalf("joiner did not receive current-players, got %v", outB)
	}
	var players []protocol.PlayerState
	decodeInto(t, snap, &players)
	if len(players) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(players))
	}
	for _, p := range players {
		if p.X != spawnX || p.Y != spawnY || p.CurrentRegion != defaultRegion {
			t.Fatalf("unexpected spawn state: %+v", p)
		}
	}
	// 老玩家只收到一条 player-joined
	outA := drain(t, connA)
	joined, ok := findEvent(outA, protocol.EvtPlayerJoined)
	if !ok {
		t.Fatalf("existing player did not receive player-joined, got %v", outA)
	}
	var rec protocol.PlayerState
	decodeInto(t, joined, &rec)
	if rec.ID != "b" || rec.Username != "bob" {
		t.Fatalf("player-joined = %+v", rec)
	}
	if _, leaked := findEvent(outA, protocol.EvtCurrentPlayers); leaked {
		t.Fatalf("current-players must go to the joiner only")
	}
}

func TestMoveBroadcastsToOthersOnly(t *testing.T) {
	h := newTestHub()
	connA := attach(h, "a")
	connB := attach(h, "b")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")
	drain(t, connA)
	drain(t, connB)

	h.HandleEvent("a", event(t, protocol.EvtMove, protocol.MovePayload{X: 100, Y: 200, Animation: "walk-down"}))

	outB := drain(t, connB)
	moved, ok := findEvent(outB, protocol.EvtPlayerMoved)
	if !ok {
		t.Fatalf("peer did not receive player-moved")
	}
	var p protocol.PlayerMovedPayload
	decodeInto(t, moved, &p)
	if p.ID != "a" || p.X != 100 || p.Y != 200 || p.Animation != "walk-down" {
		t.Fatalf("player-moved payload = %+v", p)
	}
	if outA := drain(t, connA); len(outA) != 0 {
		t.Fatalf("sender must not receive its own move, got %v", outA)
	}
}

func TestMoveWhileSittingSilentlyDropped(t *testing.T) {
	h := newTestHub()
	connA := attach(h, "a")
	connB := attach(h, "b")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")

	h.HandleEvent("a", event(t, protocol.EvtSit, protocol.SitPayload{SeatID: 7, X: 300, Y: 300, Direction: "down"}))
	drain(t, connA)
	drain(t, connB)

	h.HandleEvent("a", event(t, protocol.EvtMove, protocol.MovePayload{X: 999, Y: 999, Animation: "walk-up"}))

	if outB := drain(t, connB); len(outB) != 0 {
		t.Fatalf("move while sitting must not broadcast, got %v", outB)
	}
	// 存储的位置保持坐下时的坐标
	for _, p := range h.PlayersSnapshot() {
		if p.ID == "a" && (p.X != 300 || p.Y != 300) {
			t.Fatalf("stored position changed: %+v", p)
		}
	}
	if got := h.Metrics().Snapshot()["moves_while_sat"].(int64); got != 1 {
		t.Fatalf("moves_while_sat = %d, want 1", got)
	}
	_ = connA
}

func TestStandUpCarriesPreviousSeat(t *testing.T) {
	h := newTestHub()
	attach(h, "a")
	connB := attach(h, "b")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")

	h.HandleEvent("a", event(t, protocol.EvtSit, protocol.SitPayload{SeatID: 42, X: 10, Y: 20, Direction: "left"}))
	drain(t, connB)

	h.HandleEvent("a", event(t, protocol.EvtStandUp, struct{}{}))

	outB := drain(t, connB)
	stood, ok := findEvent(outB, protocol.EvtPlayerStoodUp)
	if !ok {
		t.Fatalf("peer did not receive player-stood-up")
	}
	var p protocol.PlayerStoodUpPayload
	decodeInto(t, stood, &p)
	if p.PlayerID != "a" || p.SeatID != 42 {
		t.Fatalf("player-stood-up = %+v, want previous seat 42", p)
	}
	// 注册表里座位字段已清空
	for _, ps := range h.PlayersSnapshot() {
		if ps.ID == "a" && (ps.IsSitting || ps.SeatID != 0) {
			t.Fatalf("seat fields not cleared: %+v", ps)
		}
	}
}

func TestRegionScopedChat(t *testing.T) {
	h := newTestHub()
	connA := attach(h, "a")
	connB := attach(h, "b")
	connC := attach(h, "c")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")
	join(t, h, "c", "carol")

	h.HandleEvent("a", event(t, protocol.EvtRegionChange, protocol.RegionChangePayload{RegionName: "自习区", RegionType: "study"}))
	h.HandleEvent("b", event(t, protocol.EvtRegionChange, protocol.RegionChangePayload{RegionName: "自习区", RegionType: "study"}))
	drain(t, connA)
	drain(t, connB)
	drain(t, connC)

	h.HandleEvent("a", event(t, protocol.EvtChatPublic, protocol.ChatPublicPayload{Message: "hello"}))

	outB := drain(t, connB)
	msg, ok := findEvent(outB, protocol.EvtChatMessage)
	if !ok {
		t.Fatalf("same-region peer did not receive chat-message")
	}
	var p protocol.ChatMessagePayload
	decodeInto(t, msg, &p)
	if p.SenderID != "a" || p.SenderName != "alice" || p.Message != "hello" {
		t.Fatalf("chat-message = %+v", p)
	}
	if p.Timestamp == 0 {
		t.Fatalf("timestamp not set")
	}
	// 区域外玩家和发送者本人都收不到
	if outC := drain(t, connC); countEvent(outC, protocol.EvtChatMessage) != 0 {
		t.Fatalf("other-region player must not receive region chat")
	}
	if outA := drain(t, connA); countEvent(outA, protocol.EvtChatMessage) != 0 {
		t.Fatalf("sender must not receive its own chat echo")
	}
}

func TestPrivateChatToMissingTargetIsSilent(t *testing.T) {
	h := newTestHub()
	connA := attach(h, "a")
	join(t, h, "a", "alice")
	drain(t, connA)

	h.HandleEvent("a", event(t, protocol.EvtChatPrivate, protocol.ChatPrivatePayload{TargetPlayerID: "ghost", Message: "hi"}))

	if outA := drain(t, connA); len(outA) != 0 {
		t.Fatalf("sender must not get an error for missing target, got %v", outA)
	}
	if got := h.Metrics().Snapshot()["private_misses"].(int64); got != 1 {
		t.Fatalf("private_misses = %d, want 1", got)
	}
}

func TestPrivateChatDeliveredToTargetOnly(t *testing.T) {
	h := newTestHub()
	attach(h, "a")
	connB := attach(h, "b")
	connC := attach(h, "c")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")
	join(t, h, "c", "carol")
	drain(t, connB)
	drain(t, connC)

	h.HandleEvent("a", event(t, protocol.EvtChatPrivate, protocol.ChatPrivatePayload{TargetPlayerID: "b", Message: "秘密"}))

	outB := drain(t, connB)
	if countEvent(outB, protocol.EvtChatPrivateMsg) != 1 {
		t.Fatalf("target did not receive private message, got %v", outB)
	}
	if outC := drain(t, connC); len(outC) != 0 {
		t.Fatalf("third party must not receive private message")
	}
}

func TestGateInteractRelaysAndRecordsDiagnostics(t *testing.T) {
	h := newTestHub()
	connA := attach(h, "a")
	connB := attach(h, "b")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")
	drain(t, connA)
	drain(t, connB)

	h.HandleEvent("a", event(t, protocol.EvtGateInteract, protocol.GateInteractPayload{GateID: "gate_640_360", Action: "open"}))

	outB := drain(t, connB)
	changed, ok := findEvent(outB, protocol.EvtGateStateChanged)
	if !ok {
		t.Fatalf("peer did not receive gate-state-changed")
	}
	var p protocol.GateStateChangedPayload
	decodeInto(t, changed, &p)
	if p.GateID != "gate_640_360" || p.Action != "open" || p.PlayerID != "a" {
		t.Fatalf("gate-state-changed = %+v", p)
	}

	gates := h.GatesSnapshot()
	rec, ok := gates["gate_640_360"]
	if !ok || rec.State != "opened" || rec.Timestamp == 0 {
		t.Fatalf("diagnostic gate record = %+v ok=%v", rec, ok)
	}

	// 非法动作被当作畸形事件忽略
	h.HandleEvent("a", event(t, protocol.EvtGateInteract, protocol.GateInteractPayload{GateID: "g", Action: "explode"}))
	if outB := drain(t, connB); len(outB) != 0 {
		t.Fatalf("invalid gate action must not broadcast")
	}
}

func TestDNDChangeRelayed(t *testing.T) {
	h := newTestHub()
	attach(h, "a")
	connB := attach(h, "b")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")
	drain(t, connB)

	h.HandleEvent("a", event(t, protocol.EvtDNDChange, protocol.DNDChangePayload{IsDND: true}))

	outB := drain(t, connB)
	changed, ok := findEvent(outB, protocol.EvtPlayerDNDChanged)
	if !ok {
		t.Fatalf("peer did not receive player-dnd-changed")
	}
	var p protocol.PlayerDNDChangedPayload
	decodeInto(t, changed, &p)
	if p.PlayerID != "a" || !p.IsDND {
		t.Fatalf("player-dnd-changed = %+v", p)
	}
	for _, ps := range h.PlayersSnapshot() {
		if ps.ID == "a" && !ps.IsDND {
			t.Fatalf("registry did not record DND flag")
		}
	}
}

func TestDisconnectWhileSittingForcesStandUp(t *testing.T) {
	h := newTestHub()
	attach(h, "a")
	connB := attach(h, "b")
	join(t, h, "a", "alice")
	join(t, h, "b", "bob")

	h.HandleEvent("a", event(t, protocol.EvtSit, protocol.SitPayload{SeatID: 5, X: 1, Y: 2, Direction: "up"}))
	drain(t, connB)

	h.Disconnect("a")

	outB := drain(t, connB)
	stood, ok := findEvent(outB, protocol.EvtPlayerStoodUp)
	if !ok {
		t.Fatalf("remaining client did not receive forced player-stood-up")
	}
	var p protocol.PlayerStoodUpPayload
	decodeInto(t, stood, &p)
	if p.PlayerID != "a" || p.SeatID != 5 {
		t.Fatalf("forced stand-up = %+v", p)
	}
	left, ok := findEvent(outB, protocol.EvtPlayerLeft)
	if !ok {
		t.Fatalf("remaining client did not receive player-left")
	}
	var id string
	decodeInto(t, left, &id)
	if id != "a" {
		t.Fatalf("player-left id = %q", id)
	}
	// 后续快照里不再有该玩家
	for _, ps := range h.PlayersSnapshot() {
		if ps.ID == "a" {
			t.Fatalf("disconnected player still in snapshot")
		}
	}
	if h.OnlineCount() != 1 {
		t.Fatalf("online = %d, want 1", h.OnlineCount())
	}
}

func TestEventsBeforeJoinAreIgnored(t *testing.T) {
	h := newTestHub()
	connA := attach(h, "a")
	connB := attach(h, "b")
	join(t, h, "b", "bob")
	drain(t, connB)

	// a 还没 join，各类事件都应是 no-op
	h.HandleEvent("a", event(t, protocol.EvtMove, protocol.MovePayload{X: 1, Y: 1}))
	h.HandleEvent("a", event(t, protocol.EvtChatPublic, protocol.ChatPublicPayload{Message: "hi"}))
	h.HandleEvent("a", event(t, protocol.EvtStandUp, struct{}{}))

	if outB := drain(t, connB); len(outB) != 0 {
		t.Fatalf("events before join must not relay, got %v", outB)
	}
	_ = connA
}

func TestUnknownAndMalformedEventsCounted(t *testing.T) {
	h := newTestHub()
	attach(h, "a")
	join(t, h, "a", "alice")

	h.HandleEvent("a", protocol.Envelope{Type: "teleport", Payload: json.RawMessage(`{}`)})
	h.HandleEvent("a", protocol.Envelope{Type: protocol.EvtMove, Payload: json.RawMessage(`{"x":"??"}`)})

	m := h.Metrics().Snapshot()
	if m["unknown_events"].(int64) != 1 {
		t.Fatalf("unknown_events = %v", m["unknown_events"])
	}
	if m["malformed_events"].(int64) != 1 {
		t.Fatalf("malformed_events = %v", m["malformed_events"])
	}
}
