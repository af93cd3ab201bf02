package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"guess-the-word/internal/api/http/websocket"
	"guess-the-word/internal/config"
	"guess-the-word/internal/service"
	"guess-the-word/internal/service/dto"
	"guess-the-word/internal/service/game"
	"guess-the-word/internal/state"

	gorilla "github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := service.NewGameService(service.Options{})
	t.Cleanup(svc.Close)

	app := NewApp(state.NewAppState(&config.AppConfig{Host: "127.0.0.1", Port: 8080}, svc))
	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(raw)
		}
	}

	req, err := nethttp.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}

	return resp.StatusCode
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func createGame(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	var created dto.CreateGameResponse
	if code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games", nil, &created); code != nethttp.StatusOK {
		t.Fatalf("create game: status %d", code)
	}

	return created.GameID
}

func joinGame(t *testing.T, srv *httptest.Server, gameID, name string) dto.JoinGameResponse {
	t.Helper()

	var joined dto.JoinGameResponse
	code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/players",
		map[string]string{"player_name": name}, &joined)
	if code != nethttp.StatusOK {
		t.Fatalf("join %s: status %d", name, code)
	}

	return joined
}

func TestAPI_GameLifecycle(t *testing.T) {
	srv := newTestServer(t)
	gameID := createGame(t, srv)

	alice := joinGame(t, srv, gameID, "Alice")
	if alice.PlayerID != "Player1" || alice.Game.State != game.STATE_WAITING_FOR_PLAYERS {
		t.Fatalf("unexpected join: %+v", alice)
	}

	bob := joinGame(t, srv, gameID, "Bob")
	if bob.PlayerID != "Player2" || bob.Game.State != game.STATE_IN_PROGRESS {
		t.Fatalf("unexpected join: %+v", bob)
	}

	var errBody errorBody
	code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/players",
		map[string]string{"player_name": "Charlie"}, &errBody)
	if code != nethttp.StatusConflict || errBody.Code != game.KIND_GAME_FULL {
		t.Fatalf("third join: status %d body %+v", code, errBody)
	}

	code = doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/guesses",
		dto.SubmitGuessRequest{PlayerID: "Player1", Guess: "apple"}, &errBody)
	if code != nethttp.StatusConflict || errBody.Code != game.KIND_NO_ACTIVE_ROUND {
		t.Fatalf("guess without round: status %d body %+v", code, errBody)
	}

	var detail dto.GameDetail
	if code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/rounds", nil, &detail); code != nethttp.StatusOK {
		t.Fatalf("start round: status %d", code)
	}
	if detail.CurrentRound == nil {
		t.Fatalf("round should be active: %+v", detail)
	}

	var guessResp dto.SubmitGuessResponse
	doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/guesses",
		dto.SubmitGuessRequest{PlayerID: "Player1", Guess: "apple"}, &guessResp)
	if guessResp.GameOver {
		t.Fatalf("first guess should not finish the game")
	}

	var guesses dto.CurrentGuessesResponse
	if code := doJSON(t, srv, nethttp.MethodGet, "/api/v1/games/"+gameID+"/guesses", nil, &guesses); code != nethttp.StatusOK {
		t.Fatalf("current guesses: status %d", code)
	}
	if guesses.Guesses["Player1"] != "apple" {
		t.Fatalf("unexpected guesses: %v", guesses.Guesses)
	}

	code = doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/guesses",
		dto.SubmitGuessRequest{PlayerID: "Player9", Guess: "apple"}, &errBody)
	if code != nethttp.StatusNotFound || errBody.Code != game.KIND_PLAYER_NOT_FOUND {
		t.Fatalf("unknown player: status %d body %+v", code, errBody)
	}

	code = doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/guesses",
		dto.SubmitGuessRequest{PlayerID: "Player2", Guess: "apple"}, &guessResp)
	if code != nethttp.StatusOK || !guessResp.GameOver || guessResp.Game.State != game.STATE_FINISHED {
		t.Fatalf("matching guess: status %d body %+v", code, guessResp)
	}

	code = doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/guesses",
		dto.SubmitGuessRequest{PlayerID: "Player2", Guess: "apple"}, &errBody)
	if code != nethttp.StatusConflict || errBody.Code != game.KIND_GAME_NOT_IN_PROGRESS {
		t.Fatalf("guess after finish: status %d body %+v", code, errBody)
	}

	var final dto.GameDetail
	if code := doJSON(t, srv, nethttp.MethodGet, "/api/v1/games/"+gameID, nil, &final); code != nethttp.StatusOK {
		t.Fatalf("get game: status %d", code)
	}
	if len(final.Rounds) != 1 || final.CurrentRound != nil {
		t.Fatalf("unexpected final detail: %+v", final)
	}
}

func TestAPI_ListGames(t *testing.T) {
	srv := newTestServer(t)

	waiting := createGame(t, srv)
	finished := createGame(t, srv)

	if code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+finished+"/end", nil, nil); code != nethttp.StatusOK {
		t.Fatalf("end game: status %d", code)
	}

	var live []dto.GameSummary
	doJSON(t, srv, nethttp.MethodGet, "/api/v1/games", nil, &live)
	if len(live) != 1 || live[0].ID != waiting {
		t.Fatalf("unexpected live games: %+v", live)
	}

	var done []dto.GameSummary
	doJSON(t, srv, nethttp.MethodGet, "/api/v1/games?state=Finished", nil, &done)
	if len(done) != 1 || done[0].ID != finished {
		t.Fatalf("unexpected finished games: %+v", done)
	}

	if code := doJSON(t, srv, nethttp.MethodGet, "/api/v1/games?state=Paused", nil, nil); code != nethttp.StatusBadRequest {
		t.Fatalf("unknown state should be rejected, got %d", code)
	}
}

func TestAPI_ManualStartAndRounds(t *testing.T) {
	srv := newTestServer(t)
	gameID := createGame(t, srv)
	joinGame(t, srv, gameID, "Alice")

	var detail dto.GameDetail
	doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/start", nil, &detail)
	if detail.State != game.STATE_IN_PROGRESS || detail.PlayerCount != 1 {
		t.Fatalf("manual start: %+v", detail)
	}

	var started dto.GameDetail
	doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/rounds", nil, &started)
	if started.CurrentRound == nil {
		t.Fatalf("start round: %+v", started)
	}

	var ended dto.GameDetail
	doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/rounds/end", nil, &ended)
	if ended.CurrentRound != nil || len(ended.Rounds) != 1 {
		t.Fatalf("end round: %+v", ended)
	}

	// 没有进行中的回合时结束回合不报错
	var noop dto.GameDetail
	if code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/rounds/end", nil, &noop); code != nethttp.StatusOK {
		t.Fatalf("end round without round: status %d", code)
	}
	if len(noop.Rounds) != 1 {
		t.Fatalf("no-op end round changed rounds: %+v", noop)
	}
}

func TestAPI_Errors(t *testing.T) {
	srv := newTestServer(t)

	var errBody errorBody
	if code := doJSON(t, srv, nethttp.MethodGet, "/api/v1/games/missing", nil, &errBody); code != nethttp.StatusNotFound || errBody.Code != KIND_GAME_NOT_EXIST {
		t.Fatalf("missing game: status %d body %+v", code, errBody)
	}

	gameID := createGame(t, srv)

	if code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/players",
		map[string]string{"player_name": ""}, &errBody); code != nethttp.StatusBadRequest {
		t.Fatalf("empty name: status %d", code)
	}

	if code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/players", "{", nil); code != nethttp.StatusBadRequest {
		t.Fatalf("broken json: status %d", code)
	}

	if code := doJSON(t, srv, nethttp.MethodPost, "/api/v1/games/"+gameID+"/guesses",
		map[string]string{"guess": "apple"}, nil); code != nethttp.StatusBadRequest {
		t.Fatalf("missing player id: status %d", code)
	}

	if code := doJSON(t, srv, nethttp.MethodGet, "/api/v1/games/"+gameID+"/guesses", nil, &errBody); code != nethttp.StatusConflict {
		t.Fatalf("guesses without round: status %d", code)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{game.ErrGameFull, nethttp.StatusConflict, game.KIND_GAME_FULL},
		{game.ErrGameNotInProgress, nethttp.StatusConflict, game.KIND_GAME_NOT_IN_PROGRESS},
		{game.ErrNoActiveRound, nethttp.StatusConflict, game.KIND_NO_ACTIVE_ROUND},
		{game.ErrPlayerNotFound, nethttp.StatusNotFound, game.KIND_PLAYER_NOT_FOUND},
		{service.ErrGameNotExist, nethttp.StatusNotFound, KIND_GAME_NOT_EXIST},
		{service.ErrEmptyPlayerName, nethttp.StatusBadRequest, KIND_BAD_REQUEST},
		{service.ErrGameBusy, nethttp.StatusServiceUnavailable, KIND_GAME_BUSY},
		{fmt.Errorf("wrapped: %w", game.ErrGameFull), nethttp.StatusConflict, game.KIND_GAME_FULL},
		{fmt.Errorf("boom"), nethttp.StatusInternalServerError, KIND_INTERNAL},
	}

	for _, tt := range tests {
		status, kind := errorStatus(tt.err)
		if status != tt.status || kind != tt.kind {
			t.Errorf("errorStatus(%v) = %d %s, want %d %s", tt.err, status, kind, tt.status, tt.kind)
		}
	}
}

func dialGame(t *testing.T, srv *httptest.Server, gameID string) *gorilla.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/games/" + gameID

	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

type wsResponse struct {
	RespType string          `json:"response_type"`
	Data     json.RawMessage `json:"data"`
	ErrMsg   string          `json:"error_message"`
}

func readResponse(t *testing.T, conn *gorilla.Conn) wsResponse {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	return resp
}

// 读取直到出现指定类型的响应，期间的广播更新被跳过
func readUntil(t *testing.T, conn *gorilla.Conn, respType string) wsResponse {
	t.Helper()

	for i := 0; i < 10; i++ {
		resp := readResponse(t, conn)
		if resp.RespType == respType {
			return resp
		}
	}

	t.Fatalf("no %s response received", respType)
	return wsResponse{}
}

func TestWebsocket_WatchAndGuess(t *testing.T) {
	srv := newTestServer(t)
	gameID := createGame(t, srv)

	conn := dialGame(t, srv, gameID)

	initial := readResponse(t, conn)
	if initial.RespType != websocket.RESP_GAME_STATE {
		t.Fatalf("want initial game state, got %+v", initial)
	}

	joinGame(t, srv, gameID, "Alice")

	update := readResponse(t, conn)
	var detail dto.GameDetail
	if err := json.Unmarshal(update.Data, &detail); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if update.RespType != websocket.RESP_GAME_STATE || detail.PlayerCount != 1 {
		t.Fatalf("unexpected update: %+v", update)
	}

	joinGame(t, srv, gameID, "Bob")
	readResponse(t, conn)

	send := func(reqType string, data any) {
		raw, _ := json.Marshal(data)
		if err := conn.WriteJSON(websocket.RequestWrapper{ReqType: reqType, Data: raw}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(websocket.REQ_START_ROUND, struct{}{})
	readUntil(t, conn, websocket.RESP_GAME_STATE)

	send(websocket.REQ_SUBMIT_GUESS, websocket.SubmitGuessRequest{PlayerID: "Player1", Guess: "moon"})
	resp := readUntil(t, conn, websocket.RESP_SUBMIT_GUESS)

	var guessResp dto.SubmitGuessResponse
	if err := json.Unmarshal(resp.Data, &guessResp); err != nil {
		t.Fatalf("decode guess: %v", err)
	}
	if guessResp.GameOver {
		t.Fatalf("single guess should not finish the game")
	}

	send(websocket.REQ_SUBMIT_GUESS, websocket.SubmitGuessRequest{PlayerID: "Player2", Guess: "moon"})
	resp = readUntil(t, conn, websocket.RESP_SUBMIT_GUESS)
	if err := json.Unmarshal(resp.Data, &guessResp); err != nil {
		t.Fatalf("decode guess: %v", err)
	}
	if !guessResp.GameOver {
		t.Fatalf("matching guesses should finish the game: %+v", guessResp)
	}

	send(websocket.REQ_SUBMIT_GUESS, websocket.SubmitGuessRequest{PlayerID: "Player2", Guess: "moon"})
	if resp := readUntil(t, conn, websocket.RESP_ERROR); resp.ErrMsg == "" {
		t.Fatalf("error response should carry a message")
	}

	send("Dance", struct{}{})
	readUntil(t, conn, websocket.RESP_ERROR)
}

func TestWebsocket_UnknownGame(t *testing.T) {
	srv := newTestServer(t)

	conn := dialGame(t, srv, "missing")

	resp := readResponse(t, conn)
	if resp.RespType != websocket.RESP_ERROR {
		t.Fatalf("want error response, got %+v", resp)
	}
}
