package websocket

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_SUBMIT_GUESS = "SubmitGuess"
	REQ_START_ROUND  = "StartRound"
	REQ_END_ROUND    = "EndRound"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`
}

type SubmitGuessRequest struct {
	PlayerID string `json:"player_id"`
	Guess    string `json:"guess"`
}

func TryUnwrapSubmitGuessRequest(wrapper RequestWrapper) *SubmitGuessRequest {
	if wrapper.ReqType != REQ_SUBMIT_GUESS {
		return nil
	}

	var submitGuessRequest SubmitGuessRequest

	err := json.Unmarshal(wrapper.Data, &submitGuessRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap SubmitGuessRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &submitGuessRequest
}

// 响应类型
const (
	RESP_ERROR = "Error"

	RESP_GAME_STATE   = "GameState"
	RESP_SUBMIT_GUESS = "SubmitGuess"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
