package game

import "github.com/google/uuid"

// GenID 生成 8 位的短游戏 ID
func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	s := id.String()

	// V7 的前缀是时间戳，取随机的尾部
	return s[len(s)-8:]
}
