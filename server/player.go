package server

import "dlibrary/protocol"

// 新玩家的默认出生点与初始状态（与前端 Level2 场景约定一致）
const (
	spawnX        = 512
	spawnY        = 384
	spawnFloor    = 2
	spawnAnim     = "idle-down"
	defaultRegion = "公共区域"
)

// Player 在线玩家记录：协议快照 + 连接发送端
// 记录只会被其所属连接的事件修改，协议层不存在跨玩家写入
type Player struct {
	protocol.PlayerState

	Conn *ClientConn
}

// newPlayer 按默认出生状态创建玩家记录
func newPlayer(id, username string, conn *ClientConn) *Player {
	if username == "" {
		username = "Guest"
	}
	return &Player{
		PlayerState: protocol.PlayerState{
			ID:            id,
			Username:      username,
			X:             spawnX,
			Y:             spawnY,
			Floor:         spawnFloor,
			Animation:     spawnAnim,
			CurrentRegion: defaultRegion,
		},
		Conn: conn,
	}
}
