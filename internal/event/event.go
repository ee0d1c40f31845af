package event

// 与客户端约定的事件名。连接建立后先收到 init 快照，之后均为增量事件。
const (
	Init           = "init"
	UserJoined     = "userJoined"
	UserLeft       = "userLeft"
	RoomCreated    = "roomCreated"
	RoomUpdated    = "roomUpdated"
	RoomDeleted    = "roomDeleted"
	NewMessage     = "newMessage"
	MessageExpired = "messageExpired"
)

// Event 是广播给所有在线会话的单条事件。
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Publisher 将事件扇出给当前在线的全部会话。
// 投递语义为 at-least-once 且仅针对在线会话；断线重连的会话应重新请求快照。
type Publisher interface {
	Publish(evt Event)
}
