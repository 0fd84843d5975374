package kgox

import (
	"fmt"

	"github.com/clinia/bulkx/logrusx"
	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

const logFieldPrefix = "kafka."

// pubsubLogger forwards the franz-go client logs to logrus, under fields prefixed with "kafka.".
type pubsubLogger struct {
	l *logrusx.Logger
}

var _ kgo.Logger = (*pubsubLogger)(nil)

var kgoToLogrus = map[kgo.LogLevel]logrus.Level{
	kgo.LogLevelNone:  logrus.TraceLevel,
	kgo.LogLevelDebug: logrus.DebugLevel,
	kgo.LogLevelInfo:  logrus.InfoLevel,
	kgo.LogLevelWarn:  logrus.WarnLevel,
	kgo.LogLevelError: logrus.ErrorLevel,
}

func logrusLevel(level kgo.LogLevel) logrus.Level {
	if l, ok := kgoToLogrus[level]; ok {
		return l
	}
	return logrus.InfoLevel
}

// Level keeps the client from building the entries logrus would drop.
func (pl *pubsubLogger) Level() kgo.LogLevel {
	switch level := pl.l.Logger.GetLevel(); {
	case level >= logrus.DebugLevel:
		return kgo.LogLevelDebug
	case level == logrus.InfoLevel:
		return kgo.LogLevelInfo
	case level == logrus.WarnLevel:
		return kgo.LogLevelWarn
	case level == logrus.ErrorLevel:
		return kgo.LogLevelError
	default:
		return kgo.LogLevelNone
	}
}

func (pl *pubsubLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	fields := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 == len(keyvals) {
			fields[logFieldPrefix+key] = "(missing)"
			break
		}
		fields[logFieldPrefix+key] = keyvals[i+1]
	}
	pl.l.WithFields(fields).Logf(logrusLevel(level), "%s", msg)
}
