package websocket

import (
	"encoding/json"
	"time"

	"guess-the-word/internal/service/dto"
	"guess-the-word/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// WatchGame 推送游戏的实时状态，并接收猜词和回合控制请求
func WatchGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		gameID := ctx.Params().Get("id")
		clientIP := ctx.RemoteAddr()

		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		initial, updates, cancel, err := appState.GameSvc.Subscribe(gameID)
		if err != nil {
			zap.L().Warn(
				"订阅游戏失败",
				zap.String("client_ip", clientIP),
				zap.String("game_id", gameID),
				zap.Error(err),
			)

			conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			conn.WriteJSON(WrapErrResponse(err.Error()))
			return
		}

		defer cancel()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		respCh := make(chan ResponseWrapper, 64)
		respCh <- WrapResponse(RESP_GAME_STATE, initial)

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		// 写协程退出后通知读协程
		writerExitCh := make(chan struct{})

		zap.L().Info(
			"客户端开始观察游戏",
			zap.String("client_ip", clientIP),
			zap.String("game_id", gameID),
		)

		// 写入协程
		go func() {
			defer close(writerExitCh)
			// 关闭连接以唤醒阻塞在读取上的主协程
			defer conn.Close()

			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				var resp ResponseWrapper

				select {
				case <-writeDoneCh:
					zap.L().Info(
						"WebSocket写入协程退出",
						zap.String("client_ip", clientIP),
					)
					return

				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					zap.L().Debug("发送心跳", zap.String("client_ip", clientIP))
					continue

				case detail, ok := <-updates:
					// 游戏被清理时订阅通道关闭
					if !ok {
						zap.L().Info(
							"游戏订阅已关闭，退出写协程",
							zap.String("client_ip", clientIP),
							zap.String("game_id", gameID),
						)
						return
					}

					resp = WrapResponse(RESP_GAME_STATE, detail)

				case resp = <-respCh:
				}

				conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
				if err := conn.WriteJSON(resp); err != nil {
					zap.L().Error(
						"发送消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
					return
				}

				zap.L().Debug(
					"发送消息",
					zap.String("client_ip", clientIP),
					zap.String("response_type", resp.RespType),
				)
			}
		}()

		reply := func(resp ResponseWrapper) {
			select {
			case respCh <- resp:
			case <-writerExitCh:
			}
		}

		// 读取协程（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var wrapper RequestWrapper

			if err := json.Unmarshal(msg, &wrapper); err != nil {
				zap.L().Error(
					"解析消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				reply(WrapErrResponse("无效的请求格式"))

				continue
			}

			reply(handleRequest(appState, gameID, wrapper))
		}

		zap.L().Info(
			"WebSocket连接处理完成",
			zap.String("client_ip", clientIP),
			zap.String("game_id", gameID),
		)
	}
}

func handleRequest(appState *state.AppState, gameID string, wrapper RequestWrapper) ResponseWrapper {
	switch wrapper.ReqType {
	case REQ_SUBMIT_GUESS:
		req := TryUnwrapSubmitGuessRequest(wrapper)
		if req == nil || req.PlayerID == "" {
			return WrapErrResponse("无效的请求格式")
		}

		resp, err := appState.GameSvc.SubmitGuess(dto.SubmitGuessRequest{
			GameID:   gameID,
			PlayerID: req.PlayerID,
			Guess:    req.Guess,
		})
		if err != nil {
			return WrapErrResponse(err.Error())
		}

		return WrapResponse(RESP_SUBMIT_GUESS, resp)

	case REQ_START_ROUND:
		detail, err := appState.GameSvc.StartRound(gameID)
		if err != nil {
			return WrapErrResponse(err.Error())
		}

		return WrapResponse(RESP_GAME_STATE, detail)

	case REQ_END_ROUND:
		detail, err := appState.GameSvc.EndRound(gameID)
		if err != nil {
			return WrapErrResponse(err.Error())
		}

		return WrapResponse(RESP_GAME_STATE, detail)
	}

	return WrapErrResponse("不支持的请求类型")
}
