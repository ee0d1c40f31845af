package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jps1990/Night-Shade-V2/internal/metrics"
	"github.com/jps1990/Night-Shade-V2/internal/store"
)

// BotUserID 是机器人消息的发送者标记。
const BotUserID = "system"

// Service 把调度器和生成器串起来：观察新的非机器人消息，按房间策略
// 选出至多一个回应者，在独立 goroutine 里生成并追加回复。
type Service struct {
	store   *store.Store
	sched   *Scheduler
	gen     Generator
	timeout time.Duration
}

func NewService(st *store.Store, sched *Scheduler, gen Generator, timeout time.Duration) *Service {
	return &Service{store: st, sched: sched, gen: gen, timeout: timeout}
}

// ResetRoom 清空房间的机器人状态，用户切入房间时由同步通道调用。
func (s *Service) ResetRoom(roomID string) {
	s.sched.ResetRoom(roomID)
}

// OnMessage 观察一条刚追加的消息。触发消息先落库再调度，
// 因此机器人回复一定排在触发消息之后；生成在独立 goroutine 中进行，
// 不会阻塞本房间或其他房间的后续消息。
func (s *Service) OnMessage(roomID string, msg store.MessageDTO) {
	if msg.IsBot {
		return
	}
	info, ok := s.store.RoomInfo(roomID)
	if !ok {
		return
	}

	var p Persona
	switch {
	case info.IsBot:
		// 专属机器人房间：每条合格消息都路由给固定 persona
		p, ok = ByID(info.Bot)
		if !ok || !s.sched.ShouldRespond(roomID, p.ID) {
			return
		}
	case info.ID == store.RoomSuggestions:
		return
	default:
		// 通用房间按优先级仲裁，第一个决定回应的机器人胜出，
		// 同一条消息不会触发第二个机器人
		ok = false
		for _, cand := range Priority {
			if s.sched.ShouldRespond(roomID, cand.ID) {
				p, ok = cand, true
				break
			}
		}
		if !ok {
			return
		}
	}

	go s.respond(info, p, msg)
}

func (s *Service) respond(info store.RoomInfo, p Persona, trigger store.MessageDTO) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	text := s.gen.Generate(ctx, p, trigger.Content, info.Name, nil)

	if _, err := s.store.AppendMessage(info.ID, store.MessageInput{
		UserID:  BotUserID,
		Content: text,
		IsBot:   true,
		BotName: p.Name,
		Context: info.Name,
	}); err != nil {
		log.Warn().Err(err).Str("room_id", info.ID).Str("bot", p.ID).Msg("append bot message")
		return
	}
	metrics.BotResponsesTotal.WithLabelValues(p.ID).Inc()
}
