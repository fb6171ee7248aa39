package server

import (
	"encoding/json"
	"net/http"
)

// HandleMetrics 输出转发层运行指标
// GET /metrics
func (h *Hub) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"online":  h.OnlineCount(),
		"metrics": h.metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleAdminPlayers 输出当前玩家注册表快照
// GET /admin/players
func (h *Hub) HandleAdminPlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.PlayersSnapshot())
}

// HandleAdminGates 输出闸机诊断记录（最后一次开/关与时间戳）
// GET /admin/gates
func (h *Hub) HandleAdminGates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.GatesSnapshot())
}
