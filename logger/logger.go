package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func SetLevel(level logrus.Level) {
	log.SetLevel(level)
}

func SetFormatter(formatter logrus.Formatter) {
	log.SetFormatter(formatter)
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func IsDebugEnabled() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

func Debug(msg string, keysAndValues ...any) {
	entry(keysAndValues).Debug(msg)
}

func Info(msg string, keysAndValues ...any) {
	entry(keysAndValues).Info(msg)
}

func Warn(msg string, keysAndValues ...any) {
	entry(keysAndValues).Warn(msg)
}

func Error(msg string, keysAndValues ...any) {
	entry(keysAndValues).Error(msg)
}

func entry(keysAndValues []any) *logrus.Entry {
	return log.WithFields(toFields(keysAndValues))
}

// toFields pairs up keys and values; a trailing key without a value and
// non-string keys are dropped.
func toFields(keysAndValues []any) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
