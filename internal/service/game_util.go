package service

import (
	"sync"
	"time"

	"guess-the-word/internal/service/dto"
	"guess-the-word/internal/service/game"
)

// 发送给游戏协程的请求，Op 只会在游戏协程中执行
type GameRequestAction struct {
	Op      func(g *game.Game) (any, error)
	Mutates bool
	ResCh   chan gameResponseWrapper
	Done    *struct{}
}

type gameResponseWrapper struct {
	Data any
	Err  error
}

type gameEntry struct {
	id        string
	reqCh     chan GameRequestAction
	loopDone  chan struct{}
	createdAt time.Time

	// 游戏协程写入、清理协程和大厅列表读取的概要信息
	metaMu    sync.Mutex
	summary   dto.GameSummary
	updatedAt time.Time

	// 只在游戏协程中访问
	subscribers map[int]chan dto.GameDetail
	nextSubID   int
}

func newGameEntry(snap game.Snapshot, now time.Time) *gameEntry {
	return &gameEntry{
		id:          snap.ID,
		reqCh:       make(chan GameRequestAction, 64),
		loopDone:    make(chan struct{}),
		createdAt:   now,
		summary:     dto.NewGameSummary(snap),
		updatedAt:   now,
		subscribers: make(map[int]chan dto.GameDetail),
	}
}

func (e *gameEntry) touch(snap game.Snapshot, now time.Time) {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()

	e.summary = dto.NewGameSummary(snap)
	e.updatedAt = now
}

func (e *gameEntry) meta() (dto.GameSummary, time.Time) {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()

	return e.summary, e.updatedAt
}

// 已结束或一直没人加入的游戏，空闲超过 ttl 后失效
func isGameValid(entry *gameEntry, now time.Time, ttl time.Duration) bool {
	if entry == nil {
		return false
	}

	summary, updatedAt := entry.meta()
	if now.Sub(updatedAt) <= ttl {
		return true
	}

	if summary.State == game.STATE_FINISHED {
		return false
	}

	if summary.PlayerCount <= 0 {
		return false
	}

	return true
}

func matchesStates(state game.State, states []game.State) bool {
	// 不指定时返回所有未结束的游戏
	if len(states) == 0 {
		return state != game.STATE_FINISHED
	}

	for _, s := range states {
		if s == state {
			return true
		}
	}

	return false
}
