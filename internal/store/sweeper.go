package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jps1990/Night-Shade-V2/internal/event"
	"github.com/jps1990/Night-Shade-V2/internal/metrics"
	"github.com/jps1990/Night-Shade-V2/internal/models"
)

// Sweep 清除所有非豁免房间中 expiresAt ≤ now 的消息，每删除一条广播一条
// messageExpired 事件，返回删除总数。逐房间持锁处理，清扫期间其他房间的
// 追加不受影响；持久层删除失败时跳过该房间、内存不动，等下一轮重试。
func (s *Store) Sweep(now time.Time) int {
	s.mu.RLock()
	states := make([]*roomState, 0, len(s.rooms))
	for _, rs := range s.rooms {
		states = append(states, rs)
	}
	s.mu.RUnlock()

	removed := 0
	for _, rs := range states {
		rs.mu.Lock()
		if rs.deleted || rs.room.ID == RoomSuggestions {
			rs.mu.Unlock()
			continue
		}

		var kept []models.Message
		var expired []models.Message
		for _, m := range rs.messages {
			if !m.ExpiresAt.IsZero() && !m.ExpiresAt.After(now) {
				expired = append(expired, m)
			} else {
				kept = append(kept, m)
			}
		}
		if len(expired) == 0 {
			rs.mu.Unlock()
			continue
		}

		ids := make([]string, 0, len(expired))
		for _, m := range expired {
			ids = append(ids, m.ID)
		}
		if err := s.repo.DeleteMessages(ids); err != nil {
			log.Warn().Err(err).Str("room_id", rs.room.ID).Msg("sweep delete messages")
			rs.mu.Unlock()
			continue
		}

		rs.messages = kept
		for _, m := range expired {
			s.pub.Publish(event.Event{
				Type:    event.MessageExpired,
				Payload: MessageExpiredPayload{RoomID: m.RoomID, MessageID: m.ID},
			})
		}
		rs.mu.Unlock()

		removed += len(expired)
		metrics.MessagesExpiredTotal.Add(float64(len(expired)))
	}
	return removed
}

// RunSweeper 按固定间隔执行 Sweep，直到 ctx 结束。
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(time.Now()); n > 0 {
				log.Debug().Int("removed", n).Msg("expiry sweep")
			}
		}
	}
}
