package client

import "time"

// RegionType 区域类型
type RegionType string

const (
	RegionStudy      RegionType = "study"
	RegionDiscussion RegionType = "discussion"
	RegionLeisure    RegionType = "leisure"
	RegionPublic     RegionType = "public"
)

// Rect 轴对齐矩形（左上角 + 宽高）
type Rect struct {
	X, Y, W, H float64
}

// Contains 点是否落在矩形内
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Region 地图上的命名区域，运行期只读
type Region struct {
	Name   string
	Type   RegionType
	Bounds Rect
}

// 不在任何声明区域内时的隐式公共区域
var defaultRegion = Region{Name: "公共区域", Type: RegionPublic}

// 区域检测间隔：按固定周期轮询而不是每帧
const regionCheckInterval = 100 * time.Millisecond

// RegionRouter 计算本地玩家所处区域，变化时回调
// 区域按声明顺序做点包含判定，先命中者生效
type RegionRouter struct {
	regions []Region
	current Region

	sinceCheck time.Duration
	checked    bool

	// OnChange 区域变化回调（更新 UI、上报服务端、重定聊天频道）
	OnChange func(old, new Region)
}

func NewRegionRouter(regions []Region) *RegionRouter {
	return &RegionRouter{
		regions: regions,
		current: defaultRegion,
	}
}

// Current 当前区域
func (r *RegionRouter) Current() Region { return r.current }

// Locate 按声明顺序找出包含该点的区域，没有则回落到公共区域
func (r *RegionRouter) Locate(x, y float64) Region {
	for _, region := range r.regions {
		if region.Bounds.Contains(x, y) {
			return region
		}
	}
	return defaultRegion
}

// Update 按固定间隔轮询玩家位置，区域变化时触发回调
func (r *RegionRouter) Update(dt time.Duration, playerX, playerY float64) {
	r.sinceCheck += dt
	if r.checked && r.sinceCheck < regionCheckInterval {
		return
	}
	r.sinceCheck = 0
	r.checked = true

	found := r.Locate(playerX, playerY)
	if found.Name == r.current.Name && found.Type == r.current.Type {
		return
	}
	old := r.current
	r.current = found
	if r.OnChange != nil {
		r.OnChange(old, found)
	}
}
