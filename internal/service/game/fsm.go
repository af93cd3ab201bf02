package game

import "fmt"

// 游戏分为 3 个阶段：
// 1. 等待阶段（WaitingForPlayers）：玩家加入，第二名玩家加入时自动开始
// 2. 进行阶段（InProgress）：按回合猜词，两人猜到同一个词时游戏结束
// 3. 结束阶段（Finished）：只读，不再接受任何修改

func New(id string) *Game {
	return &Game{
		id:      id,
		players: make([]Player, 0, MAX_PLAYERS),
		rounds:  make([]Round, 0),
		state:   STATE_WAITING_FOR_PLAYERS,
	}
}

// AddPlayer 不对相同 ID 去重，只检查人数上限
func (g *Game) AddPlayer(player Player) error {
	if len(g.players) >= MAX_PLAYERS {
		return ErrGameFull
	}

	g.players = append(g.players, player)

	// 人满且仍在等待时自动开始
	if len(g.players) == MAX_PLAYERS && g.state == STATE_WAITING_FOR_PLAYERS {
		g.StartGame()
	}

	return nil
}

// NextPlayerID 返回下一名加入的玩家应分配的座位标识，例如 Player1、Player2
func (g *Game) NextPlayerID() string {
	return fmt.Sprintf("Player%d", len(g.players)+1)
}

// StartGame 是管理操作，不足两人时也可以强制开始。已结束的游戏不能重新开始。
func (g *Game) StartGame() {
	if g.state == STATE_FINISHED {
		return
	}

	g.state = STATE_IN_PROGRESS
}

// StartRound 直接覆盖当前回合，旧回合不会被归档。
// 不检查游戏状态（由 SubmitGuess 检查），但已结束的游戏不再开新回合。
func (g *Game) StartRound() {
	if g.state == STATE_FINISHED {
		return
	}

	g.currentRound = newRound()
}

func (g *Game) EndRound() {
	if g.currentRound == nil {
		return
	}

	g.rounds = append(g.rounds, *g.currentRound)
	g.currentRound = nil
}

// EndGame 会归档进行中的回合
func (g *Game) EndGame() {
	g.state = STATE_FINISHED
	g.EndRound()
}

// SubmitGuess 记录玩家本回合的猜词，同一玩家重复提交会覆盖之前的猜词。
// 两名玩家都已猜词且猜词完全相同时结束游戏并返回 true。
func (g *Game) SubmitGuess(playerID, guess string) (bool, error) {
	if g.state != STATE_IN_PROGRESS {
		return false, ErrGameNotInProgress
	}

	if !g.HasPlayer(playerID) {
		return false, ErrPlayerNotFound
	}

	if g.currentRound == nil {
		return false, ErrNoActiveRound
	}

	g.currentRound.Guesses[playerID] = guess

	if len(g.currentRound.Guesses) == MAX_PLAYERS && guessesMatch(g.currentRound.Guesses) {
		g.EndGame()
		return true, nil
	}

	return false, nil
}

func guessesMatch(guesses map[string]string) bool {
	first := true
	var want string

	for _, guess := range guesses {
		if first {
			want = guess
			first = false
			continue
		}

		if guess != want {
			return false
		}
	}

	return true
}

func (g *Game) ID() string {
	return g.id
}

func (g *Game) State() State {
	return g.state
}

func (g *Game) PlayerCount() int {
	return len(g.players)
}

func (g *Game) HasPlayer(playerID string) bool {
	for _, p := range g.players {
		if p.ID == playerID {
			return true
		}
	}

	return false
}

// Players 按加入顺序返回玩家列表的副本
func (g *Game) Players() []Player {
	players := make([]Player, len(g.players))
	copy(players, g.players)

	return players
}

// Rounds 返回已归档回合的副本
func (g *Game) Rounds() []Round {
	rounds := make([]Round, 0, len(g.rounds))
	for _, r := range g.rounds {
		rounds = append(rounds, r.clone())
	}

	return rounds
}

func (g *Game) HasActiveRound() bool {
	return g.currentRound != nil
}

// CurrentRoundGuesses 返回当前回合猜词的副本
func (g *Game) CurrentRoundGuesses() (map[string]string, error) {
	if g.currentRound == nil {
		return nil, ErrNoActiveRound
	}

	return g.currentRound.clone().Guesses, nil
}
