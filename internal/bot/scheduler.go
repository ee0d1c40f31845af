package bot

import (
	"math/rand"
	"sync"
)

type stateKey struct {
	roomID string
	botID  string
}

// botState 按 (room, bot) 记账，显式存放而非藏在实例字段里，
// 测试可以直接注入和检视。
type botState struct {
	silenceCount int
	responded    bool
}

// Scheduler 决定某个机器人是否回应一条消息：首条消息必回；之后以固定
// 概率回应，连续沉默达到阈值时在当前消息上强制回应。概率与阈值都是
// 产品可调参数。
type Scheduler struct {
	mu        sync.Mutex
	states    map[stateKey]*botState
	prob      float64
	threshold int
	rng       func() float64
}

// NewScheduler 构建调度器。rng 为 nil 时使用全局随机源；测试传入
// 固定序列即可得到确定性行为。
func NewScheduler(prob float64, threshold int, rng func() float64) *Scheduler {
	if rng == nil {
		rng = rand.Float64
	}
	return &Scheduler{
		states:    make(map[stateKey]*botState),
		prob:      prob,
		threshold: threshold,
		rng:       rng,
	}
}

// ShouldRespond 对一条合格的非机器人消息做一次决策。
func (s *Scheduler) ShouldRespond(roomID, botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey{roomID: roomID, botID: botID}
	st, ok := s.states[key]
	if !ok {
		st = &botState{}
		s.states[key] = st
	}

	// 新配对的首条消息必定回应
	if !st.responded {
		st.responded = true
		st.silenceCount = 0
		return true
	}

	if s.rng() < s.prob {
		st.silenceCount = 0
		return true
	}

	st.silenceCount++
	if st.silenceCount >= s.threshold {
		// 沉默到顶，这条消息强制回应
		st.silenceCount = 0
		return true
	}
	return false
}

// ResetRoom 清空某房间全部机器人状态，用户切入房间时调用。
func (s *Scheduler) ResetRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.states {
		if key.roomID == roomID {
			delete(s.states, key)
		}
	}
}
