package client

// 物品类型
const (
	ItemIDCard = "id_card"
	ItemCoin   = "coin"
	ItemPaper  = "paper"
)

// ItemMeta 物品元数据（名称、是否可丢弃、权限列表）
type ItemMeta struct {
	Name        string
	CanDiscard  bool
	Permissions []string
	AccessLevel string
}

// Inventory 物品栏：管理玩家持有的代币、纸张、ID卡等
type Inventory struct {
	items map[string]int
	meta  map[string]ItemMeta
}

// NewInventory 创建带默认物品的物品栏
// ID卡永久持有；测试阶段代币给 100 个
func NewInventory() *Inventory {
	return &Inventory{
		items: map[string]int{
			ItemIDCard: 1,
			ItemCoin:   100,
			ItemPaper:  0,
		},
		meta: map[string]ItemMeta{
			ItemIDCard: {
				Name:        "ID卡",
				CanDiscard:  false,
				Permissions: []string{"gate", "level2", "level3"},
				AccessLevel: "student",
			},
			ItemCoin:  {Name: "代币", CanDiscard: true},
			ItemPaper: {Name: "打印纸", CanDiscard: true},
		},
	}
}

// Add 添加物品，返回添加后的总数
func (inv *Inventory) Add(itemType string, amount int) int {
	inv.items[itemType] += amount
	return inv.items[itemType]
}

// Remove 移除物品，数量不足时返回 false 且不变
func (inv *Inventory) Remove(itemType string, amount int) bool {
	if inv.items[itemType] < amount {
		return false
	}
	inv.items[itemType] -= amount
	return true
}

// Has 是否拥有足够数量的物品
func (inv *Inventory) Has(itemType string, amount int) bool {
	return inv.items[itemType] >= amount
}

// Count 物品数量
func (inv *Inventory) Count(itemType string) int {
	return inv.items[itemType]
}

// Meta 物品元数据；不存在时返回零值
func (inv *Inventory) Meta(itemType string) ItemMeta {
	return inv.meta[itemType]
}

// HasPermission ID卡等物品是否带有指定权限
func (inv *Inventory) HasPermission(itemType, perm string) bool {
	for _, p := range inv.meta[itemType].Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
