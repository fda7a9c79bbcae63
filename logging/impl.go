package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	impl struct {
		name  string
		level AtomicLevel
		inUTC bool

		appenders []Appender
	}

	// LogEntry embeds a zapcore Entry and slice of Fields.
	LogEntry struct {
		zapcore.Entry
		fields []zapcore.Field
	}
)

// callerDepth skips getCaller, newEntry, the log helper and the public method.
const callerDepth = 4

func (imp *impl) newEntry(level Level, msg string) *LogEntry {
	entry := &LogEntry{}
	entry.Time = time.Now()
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	entry.LoggerName = imp.name
	entry.Level = level.AsZap()
	entry.Message = msg
	entry.Caller = getCaller()
	return entry
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

// Sublogger names the child "parent.subname". The child shares appenders but gets its own level.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) write(entry *LogEntry) {
	for _, appender := range imp.appenders {
		if err := appender.Write(entry.Entry, entry.fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (imp *impl) logArgs(level Level, args []interface{}) {
	if level < imp.level.Get() {
		return
	}
	imp.write(imp.newEntry(level, fmt.Sprint(args...)))
}

func (imp *impl) logTemplate(level Level, template string, args []interface{}) {
	if level < imp.level.Get() {
		return
	}
	imp.write(imp.newEntry(level, fmt.Sprintf(template, args...)))
}

func (imp *impl) logFields(level Level, msg string, keysAndValues []interface{}) {
	if level < imp.level.Get() {
		return
	}
	entry := imp.newEntry(level, msg)
	entry.fields = fieldsOf(keysAndValues)
	imp.write(entry)
}

var errUnpairedKey = errors.New("unpaired log key")

// fieldsOf pairs up alternating keys and values. A trailing key without a value is kept with
// errUnpairedKey as its value.
func fieldsOf(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		var key string
		if s, ok := keysAndValues[i].(fmt.Stringer); ok {
			key = s.String()
		} else {
			key = fmt.Sprint(keysAndValues[i])
		}
		var value interface{} = errUnpairedKey
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		fields = append(fields, zap.Any(key, value))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) { imp.logArgs(DEBUG, args) }

func (imp *impl) Debugf(template string, args ...interface{}) { imp.logTemplate(DEBUG, template, args) }

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.logFields(DEBUG, msg, keysAndValues)
}

func (imp *impl) Info(args ...interface{}) { imp.logArgs(INFO, args) }

func (imp *impl) Infof(template string, args ...interface{}) { imp.logTemplate(INFO, template, args) }

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.logFields(INFO, msg, keysAndValues)
}

func (imp *impl) Warn(args ...interface{}) { imp.logArgs(WARN, args) }

func (imp *impl) Warnf(template string, args ...interface{}) { imp.logTemplate(WARN, template, args) }

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.logFields(WARN, msg, keysAndValues)
}

func (imp *impl) Error(args ...interface{}) { imp.logArgs(ERROR, args) }

func (imp *impl) Errorf(template string, args ...interface{}) { imp.logTemplate(ERROR, template, args) }

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.logFields(ERROR, msg, keysAndValues)
}

// getCaller returns the file and line of the code that called the logger.
func getCaller() zapcore.EntryCaller {
	var caller zapcore.EntryCaller
	var ok bool
	caller.PC, caller.File, caller.Line, ok = runtime.Caller(callerDepth)
	if !ok {
		return caller
	}
	caller.Defined = true
	if fn := runtime.FuncForPC(caller.PC); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
