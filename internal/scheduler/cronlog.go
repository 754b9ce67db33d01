package scheduler

import (
	"github.com/robfig/cron/v3"

	"SwingScout/internal/logger"
)

// cronLogger routes cron's internal events into zap.
type cronLogger struct {
	log *logger.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
