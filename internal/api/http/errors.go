package http

import (
	"errors"

	"guess-the-word/internal/service"
	"guess-the-word/internal/service/game"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

const (
	KIND_BAD_REQUEST    = "BadRequest"
	KIND_GAME_NOT_EXIST = "GameNotExist"
	KIND_GAME_BUSY      = "GameBusy"
	KIND_INTERNAL       = "Internal"
)

// 把业务错误映射为 HTTP 状态码和错误类型
func errorStatus(err error) (int, string) {
	if kind := game.ErrorKind(err); kind != "" {
		if errors.Is(err, game.ErrPlayerNotFound) {
			return iris.StatusNotFound, kind
		}

		return iris.StatusConflict, kind
	}

	switch {
	case errors.Is(err, service.ErrGameNotExist):
		return iris.StatusNotFound, KIND_GAME_NOT_EXIST
	case errors.Is(err, service.ErrEmptyPlayerName):
		return iris.StatusBadRequest, KIND_BAD_REQUEST
	case errors.Is(err, service.ErrGameBusy):
		return iris.StatusServiceUnavailable, KIND_GAME_BUSY
	}

	return iris.StatusInternalServerError, KIND_INTERNAL
}

func writeError(ctx iris.Context, err error) {
	status, kind := errorStatus(err)

	if status == iris.StatusInternalServerError {
		zap.L().Error("处理请求失败", zap.String("path", ctx.Path()), zap.Error(err))
	}

	ctx.StatusCode(status)
	ctx.JSON(iris.Map{
		"error": err.Error(),
		"code":  kind,
	})
}

func writeBadRequest(ctx iris.Context) {
	ctx.StatusCode(iris.StatusBadRequest)
	ctx.JSON(iris.Map{
		"error": "请求参数无效",
		"code":  KIND_BAD_REQUEST,
	})
}
