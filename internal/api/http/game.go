package http

import (
	"guess-the-word/internal/service/dto"
	"guess-the-word/internal/service/game"
	"guess-the-word/internal/state"

	"github.com/kataras/iris/v12"
)

// ListGames 支持 ?state=InProgress&state=Finished 过滤，不传时返回所有未结束的游戏
func ListGames(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var states []game.State

		for _, s := range ctx.URLParamSlice("state") {
			st := game.State(s)
			if !st.Valid() {
				writeBadRequest(ctx)
				return
			}

			states = append(states, st)
		}

		ctx.JSON(appState.GameSvc.ListGames(states...))
	}
}

func CreateGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.GameSvc.CreateGame()
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func GetGame(appState *state.AppState) iris.Handler {
	return detailHandler(appState.GameSvc.GetGame)
}

func StartGame(appState *state.AppState) iris.Handler {
	return detailHandler(appState.GameSvc.StartGame)
}

func StartRound(appState *state.AppState) iris.Handler {
	return detailHandler(appState.GameSvc.StartRound)
}

func EndRound(appState *state.AppState) iris.Handler {
	return detailHandler(appState.GameSvc.EndRound)
}

func EndGame(appState *state.AppState) iris.Handler {
	return detailHandler(appState.GameSvc.EndGame)
}

func detailHandler(op func(gameID string) (dto.GameDetail, error)) iris.Handler {
	return func(ctx iris.Context) {
		detail, err := op(ctx.Params().Get("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(detail)
	}
}

func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.JoinGameRequest

		if err := ctx.ReadJSON(&req); err != nil {
			writeBadRequest(ctx)
			return
		}

		req.GameID = ctx.Params().Get("id")

		resp, err := appState.GameSvc.JoinGame(req)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func SubmitGuess(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.SubmitGuessRequest

		if err := ctx.ReadJSON(&req); err != nil || req.PlayerID == "" {
			writeBadRequest(ctx)
			return
		}

		req.GameID = ctx.Params().Get("id")

		resp, err := appState.GameSvc.SubmitGuess(req)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func CurrentGuesses(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		resp, err := appState.GameSvc.CurrentRoundGuesses(ctx.Params().Get("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}
