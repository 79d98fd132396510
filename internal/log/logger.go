package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 初始化全局 logger。dev 环境用控制台输出并放开 debug 级别，
// 同步引擎的轮询 / 回填日志都打在 debug 上；其余环境输出 JSON，info 起步。
func Init(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "dev" {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(cw).Level(zerolog.DebugLevel).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
