package minilog

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

type logger interface {
	Println(...interface{})
}

type minilogger struct {
	// embed
	logger

	Level   Level
	Color   bool // print in color
	filters []string
}

// componentTag identifies the caller when a log call passes no explicit
// name. padgate's packages are each their own internal/<name> directory
// (mailbox, registry, gateway, wsxport, ...), so tagging by the caller's
// containing directory groups every log line by the component that
// produced it, the same way the Store/Registry/Loop split already
// organizes the code -- a source filename alone wouldn't carry that.
func componentTag(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "padgate"
	}
	return filepath.Base(filepath.Dir(file)) + ":" + strconv.Itoa(line)
}

func (l *minilogger) prologue(level Level, name string) (msg string) {
	switch level {
	case DEBUG:
		msg += "DEBUG "
	case INFO:
		msg += "INFO "
	case WARN:
		msg += "WARN "
	case ERROR:
		msg += "ERROR "
	default:
		msg += "FATAL "
	}

	if name == "" {
		msg += componentTag(5) + ": "
	} else {
		msg += name + ": "
	}

	if l.Color {
		msg = colorLine + msg
		switch level {
		case DEBUG:
			msg += colorDebug
		case INFO:
			msg += colorInfo
		case WARN:
			msg += colorWarn
		case ERROR:
			msg += colorError
		default:
			msg += colorFatal
		}
	}
	return
}

func (l *minilogger) epilogue() string {
	if l.Color {
		return Reset
	}
	return ""
}

func (l *minilogger) log(level Level, name, format string, arg ...interface{}) {
	msg := l.prologue(level, name) + fmt.Sprintf(format, arg...) + l.epilogue()
	for _, f := range l.filters {
		if strings.Contains(msg, f) {
			return
		}
	}
	l.Println(msg)
}

func (l *minilogger) logln(level Level, name string, arg ...interface{}) {
	msg := l.prologue(level, name) + fmt.Sprint(arg...) + l.epilogue()
	for _, f := range l.filters {
		if strings.Contains(msg, f) {
			return
		}
	}
	l.Println(msg)
}
