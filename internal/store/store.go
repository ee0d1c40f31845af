package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jps1990/Night-Shade-V2/internal/event"
	"github.com/jps1990/Night-Shade-V2/internal/metrics"
	"github.com/jps1990/Night-Shade-V2/internal/models"
	"github.com/jps1990/Night-Shade-V2/internal/repository"
)

// 启动时播种的永久房间。永久房间不允许改名、换图标或删除，
// suggestions 房间的消息不过期。
const (
	RoomJesterAsylum = "jester-asylum"
	RoomGrokDomain   = "grok-domain"
	RoomSuggestions  = "suggestions"
)

func permanentRooms() []models.Room {
	return []models.Room{
		{ID: RoomJesterAsylum, Name: "Jester's Asylum", Icon: "🃏", IsPermanent: true, IsBot: true, Bot: "jester"},
		{ID: RoomGrokDomain, Name: "Grok's Domain", Icon: "⚔️", IsPermanent: true, IsBot: true, Bot: "grok"},
		{ID: RoomSuggestions, Name: "Suggestions & Ideas", Icon: "💡", IsPermanent: true},
	}
}

// roomState 持有单个房间的全部可变状态，mu 将针对该房间的变更串行化；
// 不同房间的变更互不阻塞。写者可能在删除发生前就捕获了指针，
// 因此删除只做标记，各写路径取锁后须复查 deleted。
type roomState struct {
	mu       sync.Mutex
	room     models.Room
	members  map[string]struct{}
	messages []models.Message
	deleted  bool
}

// presence 按连接数引用计数，归零才视为离线。
type presence struct {
	user  models.User
	conns int
}

// Store 是房间/成员/消息的唯一内存视图，持久层（repository）是事实源，
// Store 以 write-through 方式与其同步：持久化失败时放弃变更、内存不动。
// 每次成功的变更都会通过 Publisher 广播一条事件。
type Store struct {
	repo repository.Repository
	pub  event.Publisher
	ttl  time.Duration

	mu    sync.RWMutex
	rooms map[string]*roomState
	users map[string]*presence
}

// New 构建 Store 并从持久层回灌全部房间与消息。
func New(repo repository.Repository, pub event.Publisher, ttl time.Duration) (*Store, error) {
	s := &Store{
		repo:  repo,
		pub:   pub,
		ttl:   ttl,
		rooms: make(map[string]*roomState),
		users: make(map[string]*presence),
	}

	rooms, err := repo.LoadRooms()
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		s.rooms[r.ID] = &roomState{room: r, members: make(map[string]struct{})}
	}

	msgs, err := repo.LoadMessages()
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if rs, ok := s.rooms[m.RoomID]; ok {
			rs.messages = append(rs.messages, m)
		}
	}
	return s, nil
}

// EnsurePermanentRooms 幂等播种永久房间，重复启动不会产生副本。
func (s *Store) EnsurePermanentRooms() error {
	for _, r := range permanentRooms() {
		s.mu.RLock()
		_, exists := s.rooms[r.ID]
		s.mu.RUnlock()
		if exists {
			continue
		}
		room := r
		if err := s.repo.EnsureRoom(&room); err != nil {
			return err
		}
		s.mu.Lock()
		s.rooms[room.ID] = &roomState{room: room, members: make(map[string]struct{})}
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) getRoom(id string) (*roomState, bool) {
	s.mu.RLock()
	rs, ok := s.rooms[id]
	s.mu.RUnlock()
	return rs, ok
}

// lookupUsers 将成员 id 映射为资料，未注册的 id 退化为仅含 id 的占位。
func (s *Store) lookupUsers(ids []string) []UserDTO {
	out := make([]UserDTO, 0, len(ids))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if p, ok := s.users[id]; ok {
			out = append(out, userDTO(p.user))
		} else {
			out = append(out, UserDTO{ID: id})
		}
	}
	return out
}

// roomDTOLocked 在持有 rs.mu 的前提下构建 DTO。
func (s *Store) roomDTOLocked(rs *roomState) RoomDTO {
	ids := make([]string, 0, len(rs.members))
	for id := range rs.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	msgs := make([]MessageDTO, 0, len(rs.messages))
	for _, m := range rs.messages {
		msgs = append(msgs, messageDTO(m))
	}

	return RoomDTO{
		ID:          rs.room.ID,
		Name:        rs.room.Name,
		Icon:        rs.room.Icon,
		IsPermanent: rs.room.IsPermanent,
		IsBot:       rs.room.IsBot,
		Bot:         rs.room.Bot,
		Users:       s.lookupUsers(ids),
		Messages:    msgs,
	}
}

// CreateRoom 建房。带 id 的请求是幂等的：已存在时原样返回且不产生事件，
// 永久房间的启动播种依赖这一语义。
func (s *Store) CreateRoom(spec RoomSpec) (RoomDTO, error) {
	if spec.ID != "" {
		if rs, ok := s.getRoom(spec.ID); ok {
			rs.mu.Lock()
			if !rs.deleted {
				dto := s.roomDTOLocked(rs)
				rs.mu.Unlock()
				return dto, nil
			}
			rs.mu.Unlock()
		}
	}

	room := models.Room{
		ID:          spec.ID,
		Name:        strings.TrimSpace(spec.Name),
		Icon:        spec.Icon,
		IsPermanent: spec.IsPermanent,
		IsBot:       spec.IsBot,
		Bot:         spec.Bot,
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if err := s.repo.SaveRoom(&room); err != nil {
		return RoomDTO{}, err
	}

	rs := &roomState{room: room, members: make(map[string]struct{})}
	s.mu.Lock()
	if cur, ok := s.rooms[room.ID]; ok {
		// 并发同 id 建房：先到者已入表，后来者退化为幂等读，
		// 不得替换已有状态（会丢成员集）也不再广播。
		s.mu.Unlock()
		cur.mu.Lock()
		dto := s.roomDTOLocked(cur)
		cur.mu.Unlock()
		return dto, nil
	}
	s.rooms[room.ID] = rs
	s.mu.Unlock()

	rs.mu.Lock()
	dto := s.roomDTOLocked(rs)
	rs.mu.Unlock()
	s.pub.Publish(event.Event{Type: event.RoomCreated, Payload: dto})
	return dto, nil
}

// UpdateRoom 应用增量字段。永久房间返回 ErrImmutableRoom 且状态不变。
func (s *Store) UpdateRoom(id string, patch RoomPatch) (RoomDTO, error) {
	rs, ok := s.getRoom(id)
	if !ok {
		return RoomDTO{}, ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.deleted {
		return RoomDTO{}, ErrRoomNotFound
	}
	if rs.room.IsPermanent {
		return RoomDTO{}, ErrImmutableRoom
	}

	fields := make(map[string]interface{})
	if patch.Name != nil {
		fields["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Icon != nil {
		fields["icon"] = *patch.Icon
	}
	if len(fields) == 0 {
		return s.roomDTOLocked(rs), nil
	}
	if err := s.repo.UpdateRoomFields(id, fields); err != nil {
		return RoomDTO{}, err
	}

	if patch.Name != nil {
		rs.room.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Icon != nil {
		rs.room.Icon = *patch.Icon
	}

	dto := s.roomDTOLocked(rs)
	s.pub.Publish(event.Event{Type: event.RoomUpdated, Payload: dto})
	return dto, nil
}

// DeleteRoom 删除非永久房间并连带删除其全部消息。
func (s *Store) DeleteRoom(id string) error {
	rs, ok := s.getRoom(id)
	if !ok {
		return ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.deleted {
		return ErrRoomNotFound
	}
	if rs.room.IsPermanent {
		return ErrImmutableRoom
	}
	if err := s.repo.DeleteRoom(id); err != nil {
		return err
	}

	rs.deleted = true
	s.mu.Lock()
	delete(s.rooms, id)
	s.mu.Unlock()

	s.pub.Publish(event.Event{Type: event.RoomDeleted, Payload: RoomDeletedPayload{ID: id}})
	return nil
}

// Join 将用户加入房间成员集，重复加入不改变集合大小。
// 每次 Join 都视为一次「切入房间」，调用方应据此重置该房间的机器人状态。
func (s *Store) Join(roomID string, user UserDTO) (RoomDTO, error) {
	rs, ok := s.getRoom(roomID)
	if !ok {
		return RoomDTO{}, ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.deleted {
		return RoomDTO{}, ErrRoomNotFound
	}
	rs.members[user.ID] = struct{}{}
	dto := s.roomDTOLocked(rs)
	s.pub.Publish(event.Event{Type: event.RoomUpdated, Payload: dto})
	return dto, nil
}

// Leave 将用户移出房间成员集，幂等。
func (s *Store) Leave(roomID, userID string) error {
	rs, ok := s.getRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.deleted {
		return ErrRoomNotFound
	}
	if _, ok := rs.members[userID]; !ok {
		return nil
	}
	delete(rs.members, userID)
	dto := s.roomDTOLocked(rs)
	s.pub.Publish(event.Event{Type: event.RoomUpdated, Payload: dto})
	return nil
}

// SaveProfile 持久化用户资料；若该用户在线则同步刷新在线视图并广播。
func (s *Store) SaveProfile(user UserDTO) (UserDTO, error) {
	u := models.User{ID: user.ID, Name: strings.TrimSpace(user.Name), Avatar: user.Avatar}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := s.repo.SaveUser(&u); err != nil {
		return UserDTO{}, err
	}

	s.mu.Lock()
	if p, ok := s.users[u.ID]; ok {
		p.user = u
		s.mu.Unlock()
		s.pub.Publish(event.Event{Type: event.UserJoined, Payload: userDTO(u)})
	} else {
		s.mu.Unlock()
	}
	return userDTO(u), nil
}

// RegisterConnection 登记一条连接。同一用户可以持有多条连接（多标签页），
// 在线状态按连接数引用计数。首条连接会持久化资料并广播 userJoined。
func (s *Store) RegisterConnection(user UserDTO) error {
	u := models.User{ID: user.ID, Name: strings.TrimSpace(user.Name), Avatar: user.Avatar}
	if u.ID == "" {
		return ErrInvalidUser
	}
	if err := s.repo.SaveUser(&u); err != nil {
		return err
	}

	s.mu.Lock()
	p, ok := s.users[u.ID]
	if !ok {
		p = &presence{user: u}
		s.users[u.ID] = p
	} else {
		p.user = u
	}
	p.conns++
	first := p.conns == 1
	s.mu.Unlock()

	if first {
		s.pub.Publish(event.Event{Type: event.UserJoined, Payload: userDTO(u)})
	}
	return nil
}

// UnregisterConnection 注销一条连接；计数归零时才移除在线状态、
// 退出全部房间并广播 userLeft。
func (s *Store) UnregisterConnection(userID string) {
	s.mu.Lock()
	p, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	p.conns--
	if p.conns > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.users, userID)
	roomIDs := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		roomIDs = append(roomIDs, id)
	}
	s.mu.Unlock()

	for _, id := range roomIDs {
		_ = s.Leave(id, userID)
	}
	s.pub.Publish(event.Event{Type: event.UserLeft, Payload: userID})
}

// AppendMessage 校验并追加一条消息。空白内容返回 ErrEmptyContent，
// 调用方应静默丢弃。suggestions 房间的消息不设置过期时间。
func (s *Store) AppendMessage(roomID string, in MessageInput) (MessageDTO, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return MessageDTO{}, ErrEmptyContent
	}
	rs, ok := s.getRoom(roomID)
	if !ok {
		return MessageDTO{}, ErrRoomNotFound
	}
	return s.appendTo(rs, in, content)
}

// appendTo 在已捕获的房间状态上执行追加。房间可能在捕获之后被并发删除，
// 取锁后据 deleted 复查，避免为已删除房间落库、追加或广播。
// 持有 rs.mu 期间完成落库、追加与广播，保证房间内
// 追加顺序 = 持久化顺序 = 广播顺序。
func (s *Store) appendTo(rs *roomState, in MessageInput, content string) (MessageDTO, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.deleted {
		return MessageDTO{}, ErrRoomNotFound
	}

	now := time.Now()
	msg := models.Message{
		ID:        uuid.NewString(),
		RoomID:    rs.room.ID,
		UserID:    in.UserID,
		Content:   content,
		IsBot:     in.IsBot,
		BotName:   in.BotName,
		Context:   in.Context,
		CreatedAt: now,
	}
	if rs.room.ID != RoomSuggestions {
		msg.ExpiresAt = now.Add(s.ttl)
	}

	if err := s.repo.SaveMessage(&msg); err != nil {
		return MessageDTO{}, err
	}
	rs.messages = append(rs.messages, msg)
	metrics.MessagesTotal.Inc()

	dto := messageDTO(msg)
	s.pub.Publish(event.Event{Type: event.NewMessage, Payload: NewMessagePayload{RoomID: rs.room.ID, Message: dto}})
	return dto, nil
}

// Snapshot 构建下发给新连接的全量状态。
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	states := make([]*roomState, 0, len(s.rooms))
	for _, rs := range s.rooms {
		states = append(states, rs)
	}
	users := make([]UserDTO, 0, len(s.users))
	for _, p := range s.users {
		users = append(users, userDTO(p.user))
	}
	s.mu.RUnlock()

	rooms := make([]RoomDTO, 0, len(states))
	for _, rs := range states {
		rs.mu.Lock()
		rooms = append(rooms, s.roomDTOLocked(rs))
		rs.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return Snapshot{Rooms: rooms, Users: users}
}

// Rooms 返回全部房间 DTO，供 REST 列表接口复用。
func (s *Store) Rooms() []RoomDTO {
	return s.Snapshot().Rooms
}

// Messages 返回指定房间的全部消息，按追加顺序。
func (s *Store) Messages(roomID string) ([]MessageDTO, error) {
	rs, ok := s.getRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]MessageDTO, 0, len(rs.messages))
	for _, m := range rs.messages {
		out = append(out, messageDTO(m))
	}
	return out, nil
}

// RoomInfo 返回机器人调度所需的房间元信息。
func (s *Store) RoomInfo(id string) (RoomInfo, bool) {
	rs, ok := s.getRoom(id)
	if !ok {
		return RoomInfo{}, false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return RoomInfo{
		ID:          rs.room.ID,
		Name:        rs.room.Name,
		IsPermanent: rs.room.IsPermanent,
		IsBot:       rs.room.IsBot,
		Bot:         rs.room.Bot,
	}, true
}

// Online 返回当前在线用户数，供指标与 REST 接口复用。
func (s *Store) Online() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
