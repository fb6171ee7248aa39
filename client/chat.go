package client

import "time"

// ChatKind 消息种类
type ChatKind string

const (
	ChatPublic  ChatKind = "public"
	ChatPrivate ChatKind = "private"
)

// ChatMessage 一条聊天记录（客户端本地留存，服务端不持久化）
type ChatMessage struct {
	Kind       ChatKind
	SenderID   string
	SenderName string
	Message    string
	Timestamp  time.Time
	Own        bool // 本地玩家发出的消息（发送者本地直接显示，不经转发回显）
}

// ChatLog 聊天面板的数据侧：频道标签 + 消息列表
type ChatLog struct {
	channelLabel string
	messages     []ChatMessage
	muted        int // 被勿扰屏蔽的消息数（仅计数，不留内容）
}

func NewChatLog() *ChatLog {
	return &ChatLog{channelLabel: defaultRegion.Name}
}

// ChannelLabel 当前公共频道标签（等于所在区域名）
func (c *ChatLog) ChannelLabel() string { return c.channelLabel }

// Relabel 区域变化时更新频道标签
func (c *ChatLog) Relabel(regionName string) {
	c.channelLabel = regionName
}

// Messages 全部消息
func (c *ChatLog) Messages() []ChatMessage { return c.messages }

// MutedCount 被勿扰屏蔽的消息数
func (c *ChatLog) MutedCount() int { return c.muted }

func (c *ChatLog) append(msg ChatMessage) {
	c.messages = append(c.messages, msg)
}

func (c *ChatLog) countMuted() {
	c.muted++
}
