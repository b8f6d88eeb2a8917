package utils

import (
	"github.com/modern-go/gls"
	"github.com/sirupsen/logrus"
)

// Hook stamps log lines with the source zone owning the current goroutine.
type Hook struct {
	Field  string
	levels []logrus.Level
}

func (hook *Hook) Levels() []logrus.Level {
	return hook.levels
}

func (hook *Hook) Fire(entry *logrus.Entry) error {
	zoneName := gls.Get(hook.Field)
	if zoneName != nil {
		entry.Data[hook.Field] = zoneName
	}
	return nil
}

func NewHook(levels ...logrus.Level) *Hook {
	hook := Hook{
		Field:  "zone",
		levels: levels,
	}
	if len(hook.levels) == 0 {
		hook.levels = logrus.AllLevels
	}

	return &hook
}
