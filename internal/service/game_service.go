package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"guess-the-word/internal/service/dto"
	"guess-the-word/internal/service/game"

	"go.uber.org/zap"
)

var (
	ErrGameNotExist    = errors.New("游戏不存在")
	ErrEmptyPlayerName = errors.New("玩家名称不能为空")
	ErrGameBusy        = errors.New("游戏繁忙，请稍后再试")
)

const (
	// 等待游戏协程接收和响应请求的超时时间
	REQUEST_TIMEOUT = 5 * time.Second

	DEFAULT_CLEANUP_INTERVAL  = time.Minute
	DEFAULT_FINISHED_GAME_TTL = 30 * time.Minute

	SUBSCRIBER_BUFFER = 16
)

// GameRepository 负责游戏快照的持久化，为 nil 时只保存在内存中
type GameRepository interface {
	SaveGame(ctx context.Context, snap game.Snapshot) error
	LoadGames(ctx context.Context, states ...game.State) ([]game.Snapshot, error)
}

type Options struct {
	Repo            GameRepository
	CleanupInterval time.Duration
	FinishedGameTTL time.Duration
}

type GameService struct {
	state *gameServiceState
	repo  GameRepository
	ttl   time.Duration
	now   func() time.Time
}

type gameServiceState struct {
	mu sync.RWMutex

	// 从游戏 ID 到游戏协程的映射
	games map[string]*gameEntry

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

func NewGameService(opts Options) *GameService {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DEFAULT_CLEANUP_INTERVAL
	}
	if opts.FinishedGameTTL <= 0 {
		opts.FinishedGameTTL = DEFAULT_FINISHED_GAME_TTL
	}

	gs := &GameService{
		state: &gameServiceState{
			games:       make(map[string]*gameEntry),
			cleanUpDone: make(chan struct{}),
		},
		repo: opts.Repo,
		ttl:  opts.FinishedGameTTL,
		now:  time.Now,
	}

	gs.restoreGames()

	// 启动一个 goroutine 定期清理过期的游戏
	go gs.startCleanupLoop(opts.CleanupInterval)

	return gs
}

func (gs *GameService) restoreGames() {
	if gs.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), REQUEST_TIMEOUT)
	defer cancel()

	snaps, err := gs.repo.LoadGames(ctx, game.STATE_WAITING_FOR_PLAYERS, game.STATE_IN_PROGRESS)
	if err != nil {
		zap.L().Error("加载未结束的游戏失败", zap.Error(err))
		return
	}

	gs.state.mu.Lock()
	defer gs.state.mu.Unlock()

	for _, snap := range snaps {
		g, err := game.Restore(snap)
		if err != nil {
			zap.L().Warn("跳过无法恢复的游戏", zap.String("game_id", snap.ID), zap.Error(err))
			continue
		}

		gs.spawnLocked(g)
	}

	zap.L().Info("恢复未结束的游戏", zap.Int("count", len(gs.state.games)))
}

func (gs *GameService) startCleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-gs.state.cleanUpDone:
			return

		case <-ticker.C:
			gs.cleanUp(gs.now())
		}
	}
}

func (gs *GameService) cleanUp(now time.Time) {
	gs.state.mu.Lock()
	defer gs.state.mu.Unlock()

	for gameID, entry := range gs.state.games {
		if isGameValid(entry, now, gs.ttl) {
			continue
		}

		zap.S().Infof("游戏 %s 状态失效，开始清理", gameID)

		gs.stopLocked(entry)
	}
}

// 调用方必须持有写锁
func (gs *GameService) stopLocked(entry *gameEntry) {
	// 通知对应的游戏 goroutine 退出
	entry.reqCh <- GameRequestAction{
		Done: &struct{}{},
	}

	close(entry.reqCh)
	delete(gs.state.games, entry.id)

	zap.S().Debugf("游戏 %s 已发送关闭请求", entry.id)
}

// 调用方必须持有写锁
func (gs *GameService) spawnLocked(g *game.Game) *gameEntry {
	entry := newGameEntry(g.Snapshot(), gs.now())
	gs.state.games[g.ID()] = entry

	go gs.gameLoop(g, entry)

	return entry
}

// Close 停止清理协程和所有游戏协程
func (gs *GameService) Close() {
	gs.state.closeOnce.Do(func() {
		close(gs.state.cleanUpDone)

		gs.state.mu.Lock()
		defer gs.state.mu.Unlock()

		for _, entry := range gs.state.games {
			gs.stopLocked(entry)
		}
	})
}

func (gs *GameService) CreateGame() (dto.CreateGameResponse, error) {
	gs.state.mu.Lock()

	gameID := game.GenID()
	for gs.state.games[gameID] != nil {
		gameID = game.GenID()
	}

	// 先落库再启动游戏协程，避免初始快照覆盖后续的修改
	g := game.New(gameID)
	gs.persist(g.Snapshot())
	gs.spawnLocked(g)

	gs.state.mu.Unlock()

	zap.S().Infof("游戏 %s 已创建", gameID)

	return dto.CreateGameResponse{GameID: gameID}, nil
}

// ListGames 按创建时间返回指定状态的游戏，不指定状态时返回所有未结束的游戏
func (gs *GameService) ListGames(states ...game.State) []dto.GameSummary {
	gs.state.mu.RLock()

	entries := make([]*gameEntry, 0, len(gs.state.games))
	for _, entry := range gs.state.games {
		entries = append(entries, entry)
	}

	gs.state.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *gameEntry) int {
		return a.createdAt.Compare(b.createdAt)
	})

	summaries := make([]dto.GameSummary, 0, len(entries))
	for _, entry := range entries {
		summary, _ := entry.meta()
		if matchesStates(summary.State, states) {
			summaries = append(summaries, summary)
		}
	}

	return summaries
}

func (gs *GameService) GetGame(gameID string) (dto.GameDetail, error) {
	return dispatchAs[dto.GameDetail](gs, gameID, false, func(g *game.Game) (any, error) {
		return dto.NewGameDetail(g.Snapshot()), nil
	})
}

func (gs *GameService) JoinGame(req dto.JoinGameRequest) (dto.JoinGameResponse, error) {
	if req.PlayerName == "" {
		return dto.JoinGameResponse{}, ErrEmptyPlayerName
	}

	resp, err := dispatchAs[dto.JoinGameResponse](gs, req.GameID, true, func(g *game.Game) (any, error) {
		if g.State() == game.STATE_FINISHED {
			return nil, game.ErrGameNotInProgress
		}

		player := game.Player{
			ID:   g.NextPlayerID(),
			Name: req.PlayerName,
		}

		if err := g.AddPlayer(player); err != nil {
			return nil, err
		}

		return dto.JoinGameResponse{
			PlayerID: player.ID,
			Game:     dto.NewGameDetail(g.Snapshot()),
		}, nil
	})
	if err != nil {
		zap.S().Warnf("游戏 %s 处理 %s 加入失败：%v", req.GameID, req.PlayerName, err)
		return resp, err
	}

	zap.S().Infof("游戏 %s 玩家 %s(%s) 加入", req.GameID, req.PlayerName, resp.PlayerID)

	return resp, nil
}

func (gs *GameService) StartGame(gameID string) (dto.GameDetail, error) {
	return gs.mutate(gameID, (*game.Game).StartGame)
}

func (gs *GameService) StartRound(gameID string) (dto.GameDetail, error) {
	return gs.mutate(gameID, (*game.Game).StartRound)
}

func (gs *GameService) EndRound(gameID string) (dto.GameDetail, error) {
	return gs.mutate(gameID, (*game.Game).EndRound)
}

func (gs *GameService) EndGame(gameID string) (dto.GameDetail, error) {
	return gs.mutate(gameID, (*game.Game).EndGame)
}

func (gs *GameService) mutate(gameID string, op func(*game.Game)) (dto.GameDetail, error) {
	return dispatchAs[dto.GameDetail](gs, gameID, true, func(g *game.Game) (any, error) {
		op(g)
		return dto.NewGameDetail(g.Snapshot()), nil
	})
}

func (gs *GameService) SubmitGuess(req dto.SubmitGuessRequest) (dto.SubmitGuessResponse, error) {
	resp, err := dispatchAs[dto.SubmitGuessResponse](gs, req.GameID, true, func(g *game.Game) (any, error) {
		over, err := g.SubmitGuess(req.PlayerID, req.Guess)
		if err != nil {
			return nil, err
		}

		return dto.SubmitGuessResponse{
			GameOver: over,
			Game:     dto.NewGameDetail(g.Snapshot()),
		}, nil
	})
	if err != nil {
		zap.L().Debug(
			"提交猜词失败",
			zap.String("game_id", req.GameID),
			zap.String("player_id", req.PlayerID),
			zap.Error(err),
		)
		return resp, err
	}

	if resp.GameOver {
		zap.L().Info(
			"玩家猜中同一个词，游戏结束",
			zap.String("game_id", req.GameID),
			zap.String("word", req.Guess),
		)
	}

	return resp, nil
}

func (gs *GameService) CurrentRoundGuesses(gameID string) (dto.CurrentGuessesResponse, error) {
	return dispatchAs[dto.CurrentGuessesResponse](gs, gameID, false, func(g *game.Game) (any, error) {
		guesses, err := g.CurrentRoundGuesses()
		if err != nil {
			return nil, err
		}

		return dto.CurrentGuessesResponse{Guesses: guesses}, nil
	})
}

// Subscribe 返回当前的游戏信息和后续变更的通道，游戏被清理时通道关闭。
// 调用 cancel 取消订阅。
func (gs *GameService) Subscribe(gameID string) (dto.GameDetail, <-chan dto.GameDetail, func(), error) {
	gs.state.mu.RLock()
	entry := gs.state.games[gameID]
	gs.state.mu.RUnlock()

	if entry == nil {
		return dto.GameDetail{}, nil, nil, ErrGameNotExist
	}

	ch := make(chan dto.GameDetail, SUBSCRIBER_BUFFER)
	var subID int

	detail, err := dispatchAs[dto.GameDetail](gs, gameID, false, func(g *game.Game) (any, error) {
		subID = entry.nextSubID
		entry.nextSubID++
		entry.subscribers[subID] = ch

		return dto.NewGameDetail(g.Snapshot()), nil
	})
	if err != nil {
		return dto.GameDetail{}, nil, nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_, err := gs.dispatch(gameID, false, func(*game.Game) (any, error) {
				if sub, ok := entry.subscribers[subID]; ok {
					delete(entry.subscribers, subID)
					close(sub)
				}
				return nil, nil
			})
			if err != nil && !errors.Is(err, ErrGameNotExist) {
				zap.L().Warn("取消订阅失败", zap.String("game_id", gameID), zap.Error(err))
			}
		})
	}

	return detail, ch, cancel, nil
}

func dispatchAs[T any](gs *GameService, gameID string, mutates bool, op func(*game.Game) (any, error)) (T, error) {
	var zero T

	data, err := gs.dispatch(gameID, mutates, op)
	if err != nil {
		return zero, err
	}

	return data.(T), nil
}

// dispatch 把请求交给游戏协程串行执行并等待结果
func (gs *GameService) dispatch(gameID string, mutates bool, op func(*game.Game) (any, error)) (any, error) {
	gs.state.mu.RLock()
	defer gs.state.mu.RUnlock()

	entry := gs.state.games[gameID]
	if entry == nil {
		return nil, ErrGameNotExist
	}

	resCh := make(chan gameResponseWrapper, 1)

	timer := time.NewTimer(REQUEST_TIMEOUT)
	defer timer.Stop()

	select {
	case entry.reqCh <- GameRequestAction{Op: op, Mutates: mutates, ResCh: resCh}:

	case <-timer.C:
		zap.S().Warnf("游戏 %s 无法及时处理请求", gameID)
		return nil, ErrGameBusy
	}

	select {
	case res := <-resCh:
		return res.Data, res.Err

	case <-timer.C:
		zap.S().Warnf("游戏 %s 请求响应超时", gameID)
		return nil, ErrGameBusy
	}
}

func (gs *GameService) gameLoop(g *game.Game, entry *gameEntry) {
	defer func() {
		for id, sub := range entry.subscribers {
			close(sub)
			delete(entry.subscribers, id)
		}

		close(entry.loopDone)

		zap.S().Infof("游戏 %s 协程退出", entry.id)
	}()

	for req := range entry.reqCh {
		if req.Done != nil {
			zap.S().Infof("游戏 %s 收到关闭指令", entry.id)
			return
		}

		if req.Op == nil {
			continue
		}

		data, err := req.Op(g)
		if err == nil && req.Mutates {
			snap := g.Snapshot()

			entry.touch(snap, gs.now())
			gs.persist(snap)
			broadcast(entry, dto.NewGameDetail(snap))
		}

		req.ResCh <- gameResponseWrapper{Data: data, Err: err}
	}

	zap.S().Infof("游戏 %s 请求通道已关闭", entry.id)
}

func broadcast(entry *gameEntry, detail dto.GameDetail) {
	for id, sub := range entry.subscribers {
		select {
		case sub <- detail:
		default:
			zap.L().Warn(
				"发送游戏更新失败：订阅通道已满",
				zap.String("game_id", entry.id),
				zap.Int("subscriber", id),
			)
		}
	}
}

// 持久化失败只记录日志，内存中的游戏才是权威数据
func (gs *GameService) persist(snap game.Snapshot) {
	if gs.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), REQUEST_TIMEOUT)
	defer cancel()

	if err := gs.repo.SaveGame(ctx, snap); err != nil {
		zap.L().Error(
			"保存游戏失败",
			zap.String("game_id", snap.ID),
			zap.String("state", string(snap.State)),
			zap.Error(err),
		)
	}
}
