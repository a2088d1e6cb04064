// internal/logger/level.go
package logger

import (
	"errors"
	"fmt"
	"strings"

	"go-steely/internal/design"
)

// Level is a log level label. Levels only pick a color; none is filtered.
type Level string

const (
	LevelInfo       Level = "INFO"
	LevelStart      Level = "START"
	LevelWarning    Level = "WARNING"
	LevelAlert      Level = "ALERT"
	LevelSuccess    Level = "SUCCESS"
	LevelOK         Level = "OK"
	LevelCritical   Level = "CRITICAL"
	LevelError      Level = "ERROR"
	LevelFault      Level = "FAULT"
	LevelFail       Level = "FAIL"
	LevelFatal      Level = "FATAL"
	LevelTestResult Level = "TEST-RESULT"
	LevelTest       Level = "TEST"
)

// Levels lists every level in declaration order.
var Levels = []Level{
	LevelInfo, LevelStart, LevelWarning, LevelAlert, LevelSuccess, LevelOK,
	LevelCritical, LevelError, LevelFault, LevelFail, LevelFatal,
	LevelTestResult, LevelTest,
}

// ErrUnknownLevel is returned by ParseLevel.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	up := Level(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range Levels {
		if l == up {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Tone returns the color group of l.
func (l Level) Tone() design.Tone {
	switch l {
	case LevelInfo, LevelStart:
		return design.ToneInfo
	case LevelWarning, LevelAlert:
		return design.ToneWarn
	case LevelSuccess, LevelOK:
		return design.ToneSuccess
	case LevelCritical, LevelError, LevelFault, LevelFail, LevelFatal:
		return design.ToneFail
	case LevelTestResult, LevelTest:
		return design.ToneTest
	}
	return design.ToneDefault
}
