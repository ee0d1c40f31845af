package repository

import (
	"sort"
	"sync"

	"github.com/jps1990/Night-Shade-V2/internal/models"
)

// MemoryRepository 是纯内存实现，用于未配置数据库的本地模式和测试。
// 此时进程内状态即事实源，重启后内容丢失。
type MemoryRepository struct {
	mu       sync.Mutex
	rooms    map[string]models.Room
	messages map[string]models.Message
	users    map[string]models.User

	// FailAll 置位后所有写操作返回 ErrUnavailable，测试持久层故障路径用。
	FailAll bool
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		rooms:    make(map[string]models.Room),
		messages: make(map[string]models.Message),
		users:    make(map[string]models.User),
	}
}

func (r *MemoryRepository) fail() bool {
	return r.FailAll
}

func (r *MemoryRepository) LoadRooms() ([]models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) LoadMessages() ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) EnsureRoom(room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail() {
		return ErrUnavailable
	}
	if _, ok := r.rooms[room.ID]; ok {
		return nil
	}
	r.rooms[room.ID] = *room
	return nil
}

func (r *MemoryRepository) SaveRoom(room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail() {
		return ErrUnavailable
	}
	r.rooms[room.ID] = *room
	return nil
}

func (r *MemoryRepository) UpdateRoomFields(id string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail() {
		return ErrUnavailable
	}
	room, ok := r.rooms[id]
	if !ok {
		return nil
	}
	if v, ok := fields["name"].(string); ok {
		room.Name = v
	}
	if v, ok := fields["icon"].(string); ok {
		room.Icon = v
	}
	r.rooms[id] = room
	return nil
}

func (r *MemoryRepository) DeleteRoom(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail() {
		return ErrUnavailable
	}
	delete(r.rooms, id)
	for mid, m := range r.messages {
		if m.RoomID == id {
			delete(r.messages, mid)
		}
	}
	return nil
}

func (r *MemoryRepository) SaveMessage(msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail() {
		return ErrUnavailable
	}
	r.messages[msg.ID] = *msg
	return nil
}

func (r *MemoryRepository) DeleteMessages(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail() {
		return ErrUnavailable
	}
	for _, id := range ids {
		delete(r.messages, id)
	}
	return nil
}

func (r *MemoryRepository) SaveUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail() {
		return ErrUnavailable
	}
	r.users[user.ID] = *user
	return nil
}
