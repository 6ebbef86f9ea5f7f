package klog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableQuote: true})
	return l
}

/*
Configure sets the level (debug, info, warn, error) and the output of the package logger.

An empty path keeps logging on stderr.
*/
func Configure(level string, path string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	if path == "" {
		return nil
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	logger.SetOutput(logFile)
	return nil
}

// SetOutput redirects the package logger, mostly useful in tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Entry is a logger carrying fixed fields, e.g. the target an evaluation belongs to.
type Entry struct {
	entry *logrus.Entry
}

// WithTarget returns an Entry tagging every line with the autoscaler target ID.
func WithTarget(id string) *Entry {
	return &Entry{entry: logger.WithField("target", id)}
}

func (e *Entry) Debugf(f string, v ...any) { logf(e.entry, logrus.DebugLevel, f, v...) }
func (e *Entry) Infof(f string, v ...any)  { logf(e.entry, logrus.InfoLevel, f, v...) }
func (e *Entry) Warnf(f string, v ...any)  { logf(e.entry, logrus.WarnLevel, f, v...) }
func (e *Entry) Errorf(f string, v ...any) { logf(e.entry, logrus.ErrorLevel, f, v...) }

// Infof outputs log with level Info
func Infof(f string, v ...any) {
	logf(logrus.NewEntry(logger), logrus.InfoLevel, f, v...)
}

// Warnf outputs log with level Warn
func Warnf(f string, v ...any) {
	logf(logrus.NewEntry(logger), logrus.WarnLevel, f, v...)
}

// Errorf outputs log with level Error
func Errorf(f string, v ...any) {
	logf(logrus.NewEntry(logger), logrus.ErrorLevel, f, v...)
}

// Debugf outputs log with level Debug
func Debugf(f string, v ...any) {
	logf(logrus.NewEntry(logger), logrus.DebugLevel, f, v...)
}

// Fatalf output log and the program exits with code 1
func Fatalf(f string, v ...any) {
	logf(logrus.NewEntry(logger), logrus.FatalLevel, f, v...)
	os.Exit(1)
}

func logf(entry *logrus.Entry, level logrus.Level, f string, v ...any) {
	if !entry.Logger.IsLevelEnabled(level) {
		return
	}
	// skip logf and the exported wrapper
	funcName, file, line, ok := runtime.Caller(2)
	if ok {
		entry = entry.WithField("caller", fmt.Sprintf("%s:%d %s", shortFile(file), line, runtime.FuncForPC(funcName).Name()))
	}
	msg := strings.TrimSuffix(fmt.Sprintf(f, v...), "\n")
	if level == logrus.FatalLevel {
		// logrus would call os.Exit itself, keep that in Fatalf
		entry.Log(logrus.ErrorLevel, msg)
		return
	}
	entry.Log(level, msg)
}

func shortFile(file string) string {
	idx := strings.LastIndex(file, "/")
	if idx < 0 {
		return file
	}
	if prev := strings.LastIndex(file[:idx], "/"); prev >= 0 {
		return file[prev+1:]
	}
	return file[idx+1:]
}
