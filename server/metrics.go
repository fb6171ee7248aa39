package server

import (
	"sync/atomic"
)

// RelayMetrics 记录转发层运行期的关键指标（用于监控与调试）
type RelayMetrics struct {
	EventsInbound    int64 // 收到的入站事件数
	Broadcasts       int64 // 触发的广播次数
	Delivered        int64 // 成功入队的出站消息数
	QueueFullDropped int64 // 因发送队列满被丢弃的消息数
	MalformedEvents  int64 // 无法解析的事件数
	UnknownEvents    int64 // 未知类型的事件数
	MovesWhileSat    int64 // 坐着时被静默丢弃的移动事件数
	PrivateMisses    int64 // 目标不在线被丢弃的私信数
}

func (m *RelayMetrics) IncInbound()          { atomic.AddInt64(&m.EventsInbound, 1) }
func (m *RelayMetrics) IncBroadcast()        { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *RelayMetrics) IncDelivered()        { atomic.AddInt64(&m.Delivered, 1) }
func (m *RelayMetrics) IncQueueFull()        { atomic.AddInt64(&m.QueueFullDropped, 1) }
func (m *RelayMetrics) IncMalformed()        { atomic.AddInt64(&m.MalformedEvents, 1) }
func (m *RelayMetrics) IncUnknown()          { atomic.AddInt64(&m.UnknownEvents, 1) }
func (m *RelayMetrics) IncMoveWhileSitting() { atomic.AddInt64(&m.MovesWhileSat, 1) }
func (m *RelayMetrics) IncPrivateMiss()      { atomic.AddInt64(&m.PrivateMisses, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RelayMetrics) Snapshot() map[string]any {
	return map[string]any{
		"events_inbound":     atomic.LoadInt64(&m.EventsInbound),
		"broadcasts":         atomic.LoadInt64(&m.Broadcasts),
		"delivered":          atomic.LoadInt64(&m.Delivered),
		"queue_full_dropped": atomic.LoadInt64(&m.QueueFullDropped),
		"malformed_events":   atomic.LoadInt64(&m.MalformedEvents),
		"unknown_events":     atomic.LoadInt64(&m.UnknownEvents),
		"moves_while_sat":    atomic.LoadInt64(&m.MovesWhileSat),
		"private_misses":     atomic.LoadInt64(&m.PrivateMisses),
	}
}
