// Package minilog provides a small multi-sink leveled logger used by every
// component of the gateway. Call AddLogger to register a sink (stderr,
// a file, a ring buffer for diagnostics) and use the package-level
// Debug/Info/Warn/Error/Fatal functions from anywhere in the program.
package minilog

import (
	"errors"
	"fmt"
)

type Level int

// Log levels supported:
// DEBUG -> INFO -> WARN -> ERROR -> FATAL
const (
	_ Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
)

// ParseLevel returns the log level named by s.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return 0, errors.New("invalid log level: " + s)
}

func (l *Level) Set(s string) (err error) {
	*l, err = ParseLevel(s)
	return
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	case FATAL:
		return "fatal"
	}
	return fmt.Sprintf("Level(%d)", l)
}
