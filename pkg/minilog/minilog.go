package minilog

import (
	"bufio"
	"errors"
	"fmt"
	golog "log"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var (
	loggers = make(map[string]*minilogger)
	logLock sync.RWMutex
)

// AddLogger registers a sink that will receive every message logged at
// level or higher.
func AddLogger(name string, output io.Writer, level Level, color bool) {
	logLock.Lock()
	defer logLock.Unlock()

	loggers[name] = &minilogger{golog.New(output, "", golog.LstdFlags), level, color, nil}
}

// AddSink registers a logger-interface sink (e.g. a *Ring) directly,
// bypassing the stdlib log.Logger wrapper.
func AddSink(name string, sink logger, level Level, color bool) {
	logLock.Lock()
	defer logLock.Unlock()

	loggers[name] = &minilogger{sink, level, color, nil}
}

// DelLogger removes a named logger added with AddLogger or AddSink.
func DelLogger(name string) {
	logLock.Lock()
	defer logLock.Unlock()

	delete(loggers, name)
}

func Loggers() []string {
	logLock.RLock()
	defer logLock.RUnlock()

	var ret []string
	for k := range loggers {
		ret = append(ret, k)
	}
	return ret
}

// WillLog returns true if logging at level will reach at least one sink.
// Useful when the message itself is expensive to build.
func WillLog(level Level) bool {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, v := range loggers {
		if v.Level <= level {
			return true
		}
	}
	return false
}

func SetLevel(name string, level Level) error {
	logLock.Lock()
	defer logLock.Unlock()

	if loggers[name] == nil {
		return errors.New("logger does not exist")
	}
	loggers[name].Level = level
	return nil
}

func GetLevel(name string) (Level, error) {
	logLock.RLock()
	defer logLock.RUnlock()

	if loggers[name] == nil {
		return 0, errors.New("logger does not exist")
	}
	return loggers[name].Level, nil
}

// Setup configures the default stderr logger and, if logfile is non-empty,
// a second logger writing to that file.
func Setup(level Level, logfile string) error {
	color := runtime.GOOS != "windows"

	AddLogger("stderr", os.Stderr, level, color)

	if logfile != "" {
		if err := os.MkdirAll(filepath.Dir(logfile), 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		AddLogger("file", f, level, false)
	}

	return nil
}

// LogAll reads i line by line, logging each line at level, until EOF. It
// starts a goroutine and returns immediately.
func LogAll(i io.Reader, level Level, name string) {
	go func() {
		r := bufio.NewReader(i)
		for {
			d, err := r.ReadString('\n')
			if d := strings.TrimSpace(d); d != "" {
				log(level, name, d)
			}
			if level == FATAL {
				os.Exit(1)
			}
			if err != nil {
				break
			}
		}
	}()
}

func Filters(name string) ([]string, error) {
	logLock.RLock()
	defer logLock.RUnlock()

	l, ok := loggers[name]
	if !ok {
		return nil, fmt.Errorf("no such logger %v", name)
	}
	ret := make([]string, len(l.filters))
	copy(ret, l.filters)
	return ret, nil
}

func AddFilter(name, filter string) error {
	logLock.Lock()
	defer logLock.Unlock()

	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("no such logger %v", name)
	}
	for _, f := range l.filters {
		if f == filter {
			return nil
		}
	}
	l.filters = append(l.filters, filter)
	return nil
}

func log(level Level, name, format string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, l := range loggers {
		if l.Level <= level {
			l.log(level, name, format, arg...)
		}
	}
}

func logln(level Level, name string, arg ...interface{}) {
	logLock.RLock()
	defer logLock.RUnlock()

	for _, l := range loggers {
		if l.Level <= level {
			l.logln(level, name, arg...)
		}
	}
}

func Debug(format string, arg ...interface{}) { log(DEBUG, "", format, arg...) }
func Info(format string, arg ...interface{})  { log(INFO, "", format, arg...) }
func Warn(format string, arg ...interface{})  { log(WARN, "", format, arg...) }
func Error(format string, arg ...interface{}) { log(ERROR, "", format, arg...) }

func Fatal(format string, arg ...interface{}) {
	log(FATAL, "", format, arg...)
	os.Exit(1)
}

func Debugln(arg ...interface{}) { logln(DEBUG, "", arg...) }
func Infoln(arg ...interface{})  { logln(INFO, "", arg...) }
func Warnln(arg ...interface{})  { logln(WARN, "", arg...) }
func Errorln(arg ...interface{}) { logln(ERROR, "", arg...) }

func Fatalln(arg ...interface{}) {
	logln(FATAL, "", arg...)
	os.Exit(1)
}
