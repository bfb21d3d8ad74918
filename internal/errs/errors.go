// Package errs is a drop-in replacement for Golang's lib 'errors', adapted
// from the teacher's common/errors package: most AEX packages build errors
// through here, so that severity and call-site are attached uniformly and
// the error can be routed to internal/xlog. internal/communicators uses
// fmt.Errorf and internal/codec defines its own ErrFrameTooLarge instead.
package errs

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/free-web-movement/aex/internal/ctxid"
	"github.com/free-web-movement/aex/internal/xlog"
)

const trim = len("github.com/free-web-movement/aex/")

type hasInnerError interface {
	Unwrap() error
}

type hasSeverity interface {
	Severity() xlog.Severity
}

// Error is an error object with an optional underlying cause.
type Error struct {
	prefix   []interface{}
	message  []interface{}
	caller   string
	inner    error
	severity xlog.Severity
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func concat(parts ...interface{}) string {
	b := strings.Builder{}
	for _, p := range parts {
		b.WriteString(toString(p))
	}
	return b.String()
}

// Error implements error.Error().
func (err *Error) Error() string {
	b := strings.Builder{}
	for _, prefix := range err.prefix {
		b.WriteByte('[')
		b.WriteString(toString(prefix))
		b.WriteString("] ")
	}
	if len(err.caller) > 0 {
		b.WriteString(err.caller)
		b.WriteString(": ")
	}
	b.WriteString(concat(err.message...))
	if err.inner != nil {
		b.WriteString(" > ")
		b.WriteString(err.inner.Error())
	}
	return b.String()
}

// Unwrap implements hasInnerError.
func (err *Error) Unwrap() error {
	return err.inner
}

// Base attaches an underlying cause and returns err for chaining.
func (err *Error) Base(e error) *Error {
	err.inner = e
	return err
}

func (err *Error) atSeverity(s xlog.Severity) *Error {
	err.severity = s
	return err
}

// Severity returns the most severe of err's own severity and its cause's.
func (err *Error) Severity() xlog.Severity {
	if err.inner == nil {
		return err.severity
	}
	if s, ok := err.inner.(hasSeverity); ok {
		if as := s.Severity(); as > err.severity {
			return as
		}
	}
	return err.severity
}

func (err *Error) AtDebug() *Error   { return err.atSeverity(xlog.Debug) }
func (err *Error) AtInfo() *Error    { return err.atSeverity(xlog.Info) }
func (err *Error) AtWarning() *Error { return err.atSeverity(xlog.Warning) }
func (err *Error) AtError() *Error   { return err.atSeverity(xlog.Error) }

func (err *Error) String() string { return err.Error() }

func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	name := runtime.FuncForPC(pc).Name()
	if len(name) >= trim {
		name = name[trim:]
	}
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}

// New returns a new Error built from msg, defaulting to Info severity.
func New(msg ...interface{}) *Error {
	return &Error{
		message:  msg,
		severity: xlog.Info,
		caller:   callerName(2),
	}
}

func doLog(ctx context.Context, inner error, sev xlog.Severity, msg ...interface{}) {
	e := &Error{
		message:  msg,
		severity: sev,
		caller:   callerName(3),
		inner:    inner,
	}
	if ctx != nil {
		if id := ctxid.FromContext(ctx); id > 0 {
			e.prefix = append(e.prefix, id)
		}
	}
	xlog.Record(&xlog.GeneralMessage{Severity: e.Severity(), Content: e})
}

func LogDebug(ctx context.Context, msg ...interface{})               { doLog(ctx, nil, xlog.Debug, msg...) }
func LogDebugInner(ctx context.Context, inner error, msg ...interface{}) {
	doLog(ctx, inner, xlog.Debug, msg...)
}
func LogInfo(ctx context.Context, msg ...interface{}) { doLog(ctx, nil, xlog.Info, msg...) }
func LogInfoInner(ctx context.Context, inner error, msg ...interface{}) {
	doLog(ctx, inner, xlog.Info, msg...)
}
func LogWarning(ctx context.Context, msg ...interface{}) { doLog(ctx, nil, xlog.Warning, msg...) }
func LogWarningInner(ctx context.Context, inner error, msg ...interface{}) {
	doLog(ctx, inner, xlog.Warning, msg...)
}
func LogError(ctx context.Context, msg ...interface{}) { doLog(ctx, nil, xlog.Error, msg...) }
func LogErrorInner(ctx context.Context, inner error, msg ...interface{}) {
	doLog(ctx, inner, xlog.Error, msg...)
}

// Cause returns the root cause of err by walking Unwrap.
func Cause(err error) error {
	if err == nil {
		return nil
	}
	for {
		inner, ok := err.(hasInnerError)
		if !ok {
			return err
		}
		u := inner.Unwrap()
		if u == nil {
			return err
		}
		err = u
	}
}
