package game

import "errors"

// 均为可预期的业务错误，返回这些错误时 Game 不会被修改
var (
	ErrGameFull          = errors.New("游戏人数已满：最多只允许 2 名玩家")
	ErrGameNotInProgress = errors.New("游戏当前不在进行中")
	ErrPlayerNotFound    = errors.New("玩家不在本局游戏中")
	ErrNoActiveRound     = errors.New("当前没有进行中的回合")

	ErrInvalidSnapshot = errors.New("无效的游戏快照")
)

// 错误类型名，供展示层返回给客户端
const (
	KIND_GAME_FULL            = "GameFull"
	KIND_GAME_NOT_IN_PROGRESS = "GameNotInProgress"
	KIND_PLAYER_NOT_FOUND     = "PlayerNotFound"
	KIND_NO_ACTIVE_ROUND      = "NoActiveRound"
)

// ErrorKind 返回引擎错误对应的类型名，非引擎错误返回空字符串
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrGameFull):
		return KIND_GAME_FULL
	case errors.Is(err, ErrGameNotInProgress):
		return KIND_GAME_NOT_IN_PROGRESS
	case errors.Is(err, ErrPlayerNotFound):
		return KIND_PLAYER_NOT_FOUND
	case errors.Is(err, ErrNoActiveRound):
		return KIND_NO_ACTIVE_ROUND
	}

	return ""
}
