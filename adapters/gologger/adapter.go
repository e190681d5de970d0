package gologger

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/sirupsen/logrus"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// LogrusLogger satisfies glog.Logger and glog.FieldsLogger on top of a
// logrus entry. Variadic args are read as key/value pairs.
type LogrusLogger struct {
	entry *logrus.Entry
}

func NewLogrusLogger(logger *logrus.Logger) *LogrusLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(logger)}
}

func (l *LogrusLogger) Trace(msg string, args ...any) { l.log(logrus.TraceLevel, msg, args) }
func (l *LogrusLogger) Debug(msg string, args ...any) { l.log(logrus.DebugLevel, msg, args) }
func (l *LogrusLogger) Info(msg string, args ...any)  { l.log(logrus.InfoLevel, msg, args) }
func (l *LogrusLogger) Warn(msg string, args ...any)  { l.log(logrus.WarnLevel, msg, args) }
func (l *LogrusLogger) Error(msg string, args ...any) { l.log(logrus.ErrorLevel, msg, args) }

// Fatal logs at fatal level. Unlike logrus.Entry.Fatal it does not exit.
func (l *LogrusLogger) Fatal(msg string, args ...any) { l.log(logrus.FatalLevel, msg, args) }

func (l *LogrusLogger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		return l
	}
	return &LogrusLogger{entry: l.entry.WithContext(ctx)}
}

func (l *LogrusLogger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) log(level logrus.Level, msg string, args []any) {
	entry := l.entry
	if fields := pairs(args); len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	if !entry.Logger.IsLevelEnabled(level) {
		return
	}
	entry.Log(level, msg)
}

func pairs(args []any) logrus.Fields {
	if len(args) == 0 {
		return nil
	}
	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			fields["!BADKEY"] = args[i]
			break
		}
		fields[key] = args[i+1]
	}
	return fields
}

// LogrusProvider hands out named children of one logrus logger.
type LogrusProvider struct {
	root *LogrusLogger
}

func NewLogrusProvider(logger *logrus.Logger) *LogrusProvider {
	return &LogrusProvider{root: NewLogrusLogger(logger)}
}

func (p *LogrusProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.root == nil {
		return glog.Nop()
	}
	if name == "" {
		return p.root
	}
	return p.root.WithFields(map[string]any{"logger": name})
}

var (
	_ glog.Logger         = (*LogrusLogger)(nil)
	_ glog.FieldsLogger   = (*LogrusLogger)(nil)
	_ glog.LoggerProvider = (*LogrusProvider)(nil)
)
