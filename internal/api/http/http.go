package http

import (
	"guess-the-word/internal/api/http/websocket"
	"guess-the-word/internal/state"

	"github.com/kataras/iris/v12"
)

func NewApp(appState *state.AppState) *iris.Application {
	app := iris.Default()

	if dir := appState.Cfg.StaticDir; dir != "" {
		app.HandleDir(
			"/",
			iris.Dir(dir),
			iris.DirOptions{
				IndexName: "index.html",
				SPA:       true,
				Compress:  true,
			},
		)
	}

	api := app.Party("/api/v1")

	api.Get("/games", ListGames(appState))
	api.Post("/games", CreateGame(appState))
	api.Get("/games/{id}", GetGame(appState))
	api.Post("/games/{id}/players", JoinGame(appState))
	api.Post("/games/{id}/start", StartGame(appState))
	api.Post("/games/{id}/rounds", StartRound(appState))
	api.Post("/games/{id}/rounds/end", EndRound(appState))
	api.Post("/games/{id}/end", EndGame(appState))
	api.Get("/games/{id}/guesses", CurrentGuesses(appState))
	api.Post("/games/{id}/guesses", SubmitGuess(appState))

	api.Get("/ws/games/{id}", websocket.WatchGame(appState))

	return app
}

func RunServer(appState *state.AppState) error {
	app := NewApp(appState)

	return app.Listen(appState.Cfg.Addr())
}
