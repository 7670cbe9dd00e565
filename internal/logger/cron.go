package logger

import "go.uber.org/zap"

// CronLogger adapts Logger to the cron.Logger interface.
type CronLogger struct {
	sugar *zap.SugaredLogger
}

// NewCronLogger returns a cron logger emitting through l.
func NewCronLogger(l *Logger) CronLogger {
	return CronLogger{sugar: l.Logger.Named("cron").Sugar()}
}

// Info logs routine scheduler messages at debug level.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.sugar.Debugw(msg, keysAndValues...)
}

// Error logs scheduler failures, including recovered job panics.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
