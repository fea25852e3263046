package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/user"
)

// RollbarLogger prints every entry to std and, once enabled, reports it to Rollbar.
// Entries may carry an error, extra fields, the operator they concern (user.User)
// and their institution (core.Institution).
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client

	mu sync.Mutex // the Rollbar person is client-wide
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger reports to Rollbar when a token is configured outside of DEV/TEST.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(errors.StackTracer)
	client.SetCustom(map[string]interface{}{"app": conf.AppName})

	l := &RollbarLogger{std: std, client: client}
	l.Enable(conf.RollbarToken != "" && !(conf.Debug || conf.TestMode))
	return l
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// Close waits for queued reports to be sent. The logger stays usable.
func (l *RollbarLogger) Close() {
	l.client.Wait()
}

// entry is one logger call sorted out for Rollbar.
type entry struct {
	level    string
	msg      string
	err      error
	operator *user.User
	fields   map[string]interface{}
}

func newEntry(level, msg string, args []interface{}) entry {
	e := entry{level: level, msg: msg, fields: make(map[string]interface{})}
	for i, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if e.operator != nil {
				continue
			}
			usr := v
			e.operator = &usr
			if usr.Institution.Code != "" {
				e.setDefault("institution", usr.Institution.Code)
			}
			if len(usr.Roles) > 0 {
				e.setDefault("roles", strings.Join(usr.Roles, ","))
			}
		case core.Institution:
			e.fields["institution"] = v.Code
		case error:
			if e.err == nil {
				e.err = v
			} else {
				e.fields[fmt.Sprintf("error%d", i)] = v.Error()
			}
		case map[string]interface{}:
			for k, val := range v {
				e.fields[k] = val
			}
		default:
			e.fields[fmt.Sprintf("arg%d", i)] = v
		}
	}
	return e
}

func (e entry) setDefault(key string, val interface{}) {
	if _, ok := e.fields[key]; !ok {
		e.fields[key] = val
	}
}

func (l *RollbarLogger) report(e entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.operator != nil {
		l.client.SetPerson(e.operator.ID, e.operator.Username, e.operator.Email)
	} else {
		l.client.ClearPerson()
	}
	if e.err != nil {
		extras := map[string]interface{}{"message": e.msg}
		for k, v := range e.fields {
			extras[k] = v
		}
		l.client.ErrorWithExtras(e.level, e.err, extras)
		return
	}
	l.client.MessageWithExtras(e.level, e.msg, e.fields)
}

// print writes `LEVEL msg key=value...` then the error, if any.
func (l *RollbarLogger) print(e entry) {
	var b strings.Builder
	b.WriteString(strings.ToUpper(e.level))
	b.WriteString(" ")
	b.WriteString(e.msg)
	if e.operator != nil {
		fmt.Fprintf(&b, " operator=%s", e.operator.Username)
	}
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.fields[k])
	}
	l.std.Println(b.String())
	if e.err != nil {
		l.std.Printf("%+v\n", e.err)
	}
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	e := newEntry(level, msg, args)
	l.report(e)
	l.print(e)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	l.client.Wait()
	l.std.Fatal(msg)
}
