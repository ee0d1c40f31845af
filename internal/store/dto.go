package store

import (
	"time"

	"github.com/jps1990/Night-Shade-V2/internal/models"
)

// UserDTO 是对外输出的用户数据。
type UserDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// MessageDTO 是对外输出的消息数据。ExpiresAt 为空表示永不过期。
type MessageDTO struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"roomId"`
	UserID    string     `json:"userId"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	IsBot     bool       `json:"isBot,omitempty"`
	BotName   string     `json:"botName,omitempty"`
	Context   string     `json:"context,omitempty"`
}

// RoomDTO 是对外输出的房间数据，含成员与消息，供快照和房间事件复用。
type RoomDTO struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Icon        string       `json:"icon"`
	IsPermanent bool         `json:"isPermanent"`
	IsBot       bool         `json:"isBot,omitempty"`
	Bot         string       `json:"bot,omitempty"`
	Users       []UserDTO    `json:"users"`
	Messages    []MessageDTO `json:"messages"`
}

// Snapshot 是新连接建立时下发的全量状态。
type Snapshot struct {
	Rooms []RoomDTO `json:"rooms"`
	Users []UserDTO `json:"users"`
}

// RoomSpec 描述一次建房请求。ID 为空时由服务端生成。
type RoomSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	IsPermanent bool   `json:"isPermanent"`
	IsBot       bool   `json:"isBot"`
	Bot         string `json:"bot"`
}

// RoomPatch 是 updateRoom 的增量字段，nil 表示不修改。
type RoomPatch struct {
	Name *string `json:"name"`
	Icon *string `json:"icon"`
}

// MessageInput 描述一次追加消息的请求。
type MessageInput struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
	IsBot   bool   `json:"isBot"`
	BotName string `json:"botName"`
	Context string `json:"context"`
}

// RoomInfo 是机器人调度所需的房间元信息。
type RoomInfo struct {
	ID          string
	Name        string
	IsPermanent bool
	IsBot       bool
	Bot         string
}

// NewMessagePayload 对应 newMessage 事件。
type NewMessagePayload struct {
	RoomID  string     `json:"roomId"`
	Message MessageDTO `json:"message"`
}

// MessageExpiredPayload 对应 messageExpired 事件。
type MessageExpiredPayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

// RoomDeletedPayload 对应 roomDeleted 事件。
type RoomDeletedPayload struct {
	ID string `json:"id"`
}

func userDTO(u models.User) UserDTO {
	return UserDTO{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

func messageDTO(m models.Message) MessageDTO {
	dto := MessageDTO{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		IsBot:     m.IsBot,
		BotName:   m.BotName,
		Context:   m.Context,
	}
	if !m.ExpiresAt.IsZero() {
		exp := m.ExpiresAt
		dto.ExpiresAt = &exp
	}
	return dto
}
