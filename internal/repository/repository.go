package repository

import (
	"errors"

	"github.com/jps1990/Night-Shade-V2/internal/models"
)

// ErrUnavailable 表示持久层不可用。调用方应放弃本次变更并保持内存状态不变，
// 不做自动重试，由下一次调用自然重试。
var ErrUnavailable = errors.New("repository unavailable")

// Repository 是房间/消息/用户的持久化存储，按 room id / message id 寻址。
// 内存中的 Store 是它前面的 read-through/write-through 缓存，持久层才是事实源。
type Repository interface {
	LoadRooms() ([]models.Room, error)
	LoadMessages() ([]models.Message, error)

	EnsureRoom(room *models.Room) error
	SaveRoom(room *models.Room) error
	UpdateRoomFields(id string, fields map[string]interface{}) error
	// DeleteRoom 连带删除该房间的全部消息。
	DeleteRoom(id string) error

	SaveMessage(msg *models.Message) error
	DeleteMessages(ids []string) error

	SaveUser(user *models.User) error
}
