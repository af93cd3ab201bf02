package game

import "fmt"

// Snapshot 是 Game 的深拷贝，用于持久化和展示
type Snapshot struct {
	ID           string   `json:"id"`
	Players      []Player `json:"players"`
	Rounds       []Round  `json:"rounds"`
	CurrentRound *Round   `json:"current_round,omitempty"`
	State        State    `json:"state"`
}

func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		ID:      g.id,
		Players: g.Players(),
		Rounds:  g.Rounds(),
		State:   g.state,
	}

	if g.currentRound != nil {
		round := g.currentRound.clone()
		snap.CurrentRound = &round
	}

	return snap
}

// Restore 从快照重建 Game，用于从存储中恢复
func Restore(snap Snapshot) (*Game, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("%w: 缺少游戏 ID", ErrInvalidSnapshot)
	}

	if !snap.State.Valid() {
		return nil, fmt.Errorf("%w: 未知的游戏状态 %q", ErrInvalidSnapshot, snap.State)
	}

	if len(snap.Players) > MAX_PLAYERS {
		return nil, fmt.Errorf("%w: 玩家数量 %d 超过上限", ErrInvalidSnapshot, len(snap.Players))
	}

	if snap.CurrentRound != nil && snap.State == STATE_FINISHED {
		return nil, fmt.Errorf("%w: 已结束的游戏不应存在进行中的回合", ErrInvalidSnapshot)
	}

	g := New(snap.ID)
	g.state = snap.State
	g.players = append(g.players, snap.Players...)

	for _, r := range snap.Rounds {
		g.rounds = append(g.rounds, r.clone())
	}

	if snap.CurrentRound != nil {
		round := snap.CurrentRound.clone()
		g.currentRound = &round
	}

	return g, nil
}
