package store

import "errors"

// 业务层通用错误，handler 可根据错误类型映射到合适的 HTTP 状态码；
// WebSocket 路径对这些错误一律静默丢弃，不回传给发送方。
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrImmutableRoom = errors.New("room is permanent")
	ErrEmptyContent  = errors.New("empty message content")
	ErrInvalidUser   = errors.New("invalid user")
)
