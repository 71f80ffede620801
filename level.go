package gelf

import (
	"log/slog"
	"strconv"
	"strings"
)

// Level is a severity on the application scale (10 = debug ... 50 = critical).
type Level int

const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarning  Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

var syslogLevels = map[Level]int{
	LevelCritical: 2,
	LevelError:    3,
	LevelWarning:  4,
	LevelInfo:     6,
	LevelDebug:    7,
}

// Syslog maps the level onto the syslog scale used by the GELF "level"
// field. Levels without a mapping pass through unchanged.
func (l Level) Syslog() int {
	if s, ok := syslogLevels[l]; ok {
		return s
	}
	return int(l)
}

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "Level " + strconv.Itoa(int(l))
	}
}

// ParseLevel accepts a level name (case-insensitive, "warn" and "fatal"
// included) or a bare number.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "fatal":
		return LevelCritical, true
	case "error":
		return LevelError, true
	case "warning", "warn":
		return LevelWarning, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Level(n), true
	}
	return 0, false
}

// LevelFromSlog converts linearly: Debug(-4)=10, Info(0)=20, Warn(4)=30,
// Error(8)=40, 12=50. Custom slog levels land between the named ones and
// so pass through the syslog table untouched.
func LevelFromSlog(l slog.Level) Level {
	return Level(20 + int(l)*5/2)
}

// Slog is the inverse of LevelFromSlog.
func (l Level) Slog() slog.Level {
	return slog.Level((int(l) - 20) * 2 / 5)
}
