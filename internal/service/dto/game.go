package dto

import "guess-the-word/internal/service/game"

// 大厅中展示的游戏概要
type GameSummary struct {
	ID          string        `json:"id"`
	PlayerCount int           `json:"player_count"`
	State       game.State    `json:"state"`
	Players     []game.Player `json:"players"`
}

// 单局游戏的完整信息
type GameDetail struct {
	GameSummary
	Rounds       []game.Round `json:"rounds"`
	CurrentRound *game.Round  `json:"current_round,omitempty"`
}

type CreateGameResponse struct {
	GameID string `json:"game_id"`
}

type JoinGameRequest struct {
	GameID     string `json:"-"`
	PlayerName string `json:"player_name"`
}

type JoinGameResponse struct {
	// 服务端分配的座位标识，例如 Player1
	PlayerID string     `json:"player_id"`
	Game     GameDetail `json:"game"`
}

type SubmitGuessRequest struct {
	GameID   string `json:"-"`
	PlayerID string `json:"player_id"`
	Guess    string `json:"guess"`
}

type SubmitGuessResponse struct {
	// 为 true 时表示两名玩家猜中同一个词，游戏结束
	GameOver bool       `json:"game_over"`
	Game     GameDetail `json:"game"`
}

type CurrentGuessesResponse struct {
	// key: player_id, value: guess
	Guesses map[string]string `json:"guesses"`
}

func NewGameSummary(snap game.Snapshot) GameSummary {
	return GameSummary{
		ID:          snap.ID,
		PlayerCount: len(snap.Players),
		State:       snap.State,
		Players:     snap.Players,
	}
}

func NewGameDetail(snap game.Snapshot) GameDetail {
	return GameDetail{
		GameSummary:  NewGameSummary(snap),
		Rounds:       snap.Rounds,
		CurrentRound: snap.CurrentRound,
	}
}
