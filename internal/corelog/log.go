// Package corelog provides the module's single logging sink, wrapping
// charmbracelet/log as a lazily-constructed singleton plus a handful
// of level functions.
package corelog

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func get() *logger {
	once.Do(func() {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "amberpipeline ",
		})
		l.SetLevel(log.InfoLevel)
		singleton = &logger{l}
	})
	return singleton
}

// SetLevel adjusts the minimum level logged. Valid values mirror
// charmbracelet/log's levels (Debug, Info, Warn, Error, Fatal).
func SetLevel(level log.Level) {
	get().SetLevel(level)
}

func Debug(msg string, args ...interface{}) {
	get().Debugf(msg, args...)
}

func Info(msg string, args ...interface{}) {
	get().Infof(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	get().Warnf(msg, args...)
}

func Error(msg string, args ...interface{}) {
	get().Errorf(msg, args...)
}

func Fatal(msg string, args ...interface{}) {
	get().Fatalf(msg, args...)
}
