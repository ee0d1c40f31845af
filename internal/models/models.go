package models

import "time"

// Room 既是持久层的表结构也是内存缓存的权威形态。
// 永久房间在启动时播种，之后不允许改名、换图标或删除。
type Room struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:128;not null"`
	Icon        string `gorm:"size:16"`
	IsPermanent bool   `gorm:"not null;default:false"`
	IsBot       bool   `gorm:"not null;default:false"`
	Bot         string `gorm:"size:32"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message 的 ExpiresAt 为零值时表示永不过期（建议房间专用）。
type Message struct {
	ID        string `gorm:"primaryKey;size:64"`
	RoomID    string `gorm:"index:idx_msg_room_id;size:64;not null"`
	UserID    string `gorm:"size:64;not null"`
	Content   string `gorm:"type:text;not null"`
	IsBot     bool   `gorm:"not null;default:false"`
	BotName   string `gorm:"size:32"`
	Context   string `gorm:"size:128"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// User 只保存资料；在线状态由连接计数维护，不落库。
type User struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:64;not null"`
	Avatar    string `gorm:"size:256"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
