package client

// DNDSettings 勿扰模式细项设置
type DNDSettings struct {
	MuteDiscussion   bool // 静音讨论区公共消息
	MutePrivateMsg   bool // 私信静默接收（仅角标，不弹通知）
	LowerAmbient     bool // 降低环境音
	MuteOtherActions bool // 静音他人交互音
	DimOtherPlayers  bool // 其他玩家半透明
}

// DefaultDNDSettings 默认勿扰设置
func DefaultDNDSettings() DNDSettings {
	return DNDSettings{
		MuteDiscussion:   true,
		MutePrivateMsg:   true,
		LowerAmbient:     true,
		MuteOtherActions: true,
		DimOtherPlayers:  true,
	}
}

// DNDManager 勿扰模式：本地开关 + 远端玩家勿扰状态镜像
type DNDManager struct {
	enabled  bool
	settings DNDSettings
	remote   map[string]bool // playerID → 勿扰中
}

func NewDNDManager() *DNDManager {
	return &DNDManager{
		settings: DefaultDNDSettings(),
		remote:   make(map[string]bool),
	}
}

// Enabled 本地勿扰是否开启
func (d *DNDManager) Enabled() bool { return d.enabled }

// Settings 当前设置
func (d *DNDManager) Settings() DNDSettings { return d.settings }

// setEnabled 由 World 调用（需要同步到服务端时走 World.SetDND）
func (d *DNDManager) setEnabled(on bool) bool {
	if d.enabled == on {
		return false
	}
	d.enabled = on
	return true
}

// ShouldMutePublic 勿扰开启时是否屏蔽该区域的公共消息
// 讨论区完全屏蔽，其余区域照常
func (d *DNDManager) ShouldMutePublic(regionType RegionType) bool {
	return d.enabled && d.settings.MuteDiscussion && regionType == RegionDiscussion
}

// HandleRemoteChange 记录远端玩家的勿扰状态（在场展示用）
func (d *DNDManager) HandleRemoteChange(playerID string, isDND bool) {
	d.remote[playerID] = isDND
}

// RemoteEnabled 远端玩家是否勿扰中
func (d *DNDManager) RemoteEnabled(playerID string) bool {
	return d.remote[playerID]
}

// ForgetRemote 玩家离开时清理镜像
func (d *DNDManager) ForgetRemote(playerID string) {
	delete(d.remote, playerID)
}
