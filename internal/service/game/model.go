package game

// 游戏状态，只能按照 WaitingForPlayers -> InProgress -> Finished 的方向流转
type State string

const (
	STATE_WAITING_FOR_PLAYERS State = "WaitingForPlayers"
	STATE_IN_PROGRESS         State = "InProgress"
	STATE_FINISHED            State = "Finished"
)

// 每局游戏固定两名玩家
const MAX_PLAYERS = 2

func (s State) Valid() bool {
	switch s {
	case STATE_WAITING_FOR_PLAYERS, STATE_IN_PROGRESS, STATE_FINISHED:
		return true
	}

	return false
}

// ID 在同一局游戏内唯一，作为猜词记录的键
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// 一轮猜词
type Round struct {
	// key: player_id, value: guess
	Guesses map[string]string `json:"guesses"`
}

func newRound() *Round {
	return &Round{
		Guesses: make(map[string]string, MAX_PLAYERS),
	}
}

func (r Round) clone() Round {
	guesses := make(map[string]string, len(r.Guesses))
	for k, v := range r.Guesses {
		guesses[k] = v
	}

	return Round{Guesses: guesses}
}

// Game 是一局两人猜词游戏，字段只能通过下面的操作修改。
// Game 本身不加锁，并发访问由持有它的一方负责串行化。
type Game struct {
	id           string
	players      []Player
	rounds       []Round
	currentRound *Round
	state        State
}
