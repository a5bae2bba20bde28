// Package logger bridges gorm's query log into the process-wide logrus
// logger, so store traffic lands in the same stream as the monitor and API
// output.
package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// queries slower than this log at Warn instead of Debug
const slowQueryThreshold = 200 * time.Millisecond

type LogrusLogger struct {
	logger *logrus.Logger
}

func NewLogrusLogger() *LogrusLogger {
	return &LogrusLogger{
		logger: logrus.StandardLogger(),
	}
}

// LogMode satisfies gorm's logger.Interface; level filtering is left to
// logrus itself.
func (l *LogrusLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	return &clone
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Infof(msg, data...)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Warnf(msg, data...)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Errorf(msg, data...)
}

func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	entry := l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"elapsed": elapsed,
		"rows":    rows,
		"sql":     sql,
	})

	switch {
	case err != nil:
		entry.Errorf("query failed: %v", err)
	case elapsed >= slowQueryThreshold:
		entry.Warnf("slow query (>= %s)", slowQueryThreshold)
	default:
		entry.Debug("query")
	}
}
