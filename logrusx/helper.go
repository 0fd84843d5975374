// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package logrusx

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/clinia/bulkx/errorx"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

type Logger struct {
	*logrus.Entry
	leakSensitive    bool
	redactionText    string
	sensitiveHeaders map[string]struct{}
}

func (l *Logger) LeakSensitiveData() bool {
	return l.leakSensitive
}

func (l *Logger) with(entry *logrus.Entry) *Logger {
	ll := *l
	ll.Entry = entry
	return &ll
}

func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l.with(l.Entry.WithContext(ctx))
}

func (l *Logger) WithFields(f logrus.Fields) *Logger {
	return l.with(l.Entry.WithFields(f))
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(l.Entry.WithField(key, value))
}

// WithRequest adds an outgoing request to the entry. Sensitive headers, such as the
// single use auth token, are redacted unless the logger leaks sensitive values.
func (l *Logger) WithRequest(r *http.Request) *Logger {
	headers := make(map[string]interface{}, len(r.Header))
	for key, values := range r.Header {
		key = strings.ToLower(key)
		value := strings.Join(values, ", ")
		if _, ok := l.sensitiveHeaders[key]; ok && !l.leakSensitive {
			value = l.redactionText
		}
		headers[key] = value
	}

	return l.WithFields(spanFields(r.Context())).WithField("http_request", map[string]interface{}{
		"method":  r.Method,
		"url":     l.redactURL(r.URL).String(),
		"headers": headers,
	})
}

// WithError adds the error message and, for typed errors, the error type and cause.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", l.errorFields(err))
}

func (l *Logger) Logf(level logrus.Level, format string, args ...interface{}) {
	if !l.Logger.IsLevelEnabled(level) {
		return
	}

	entry := l.Entry
	if l.Context != nil {
		entry = entry.WithFields(spanFields(l.Context))
	}
	if !l.leakSensitive {
		for i, arg := range args {
			switch u := arg.(type) {
			case url.URL:
				args[i] = l.redactURL(&u)
			case *url.URL:
				args[i] = l.redactURL(u)
			}
		}
	}
	entry.Logf(level, format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Logf(logrus.DebugLevel, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Logf(logrus.InfoLevel, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Logf(logrus.WarnLevel, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Logf(logrus.ErrorLevel, format, args...)
}

// redactURL drops the credentials of u. The query is kept, the bulk insert endpoints carry no secret there.
func (l *Logger) redactURL(u *url.URL) *url.URL {
	if l.leakSensitive || u == nil || u.User == nil {
		return u
	}
	redacted := *u
	redacted.User = nil
	return &redacted
}

func spanFields(ctx context.Context) logrus.Fields {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logrus.Fields{}
	}
	return logrus.Fields{
		"trace_id": spanCtx.TraceID().String(),
		"span_id":  spanCtx.SpanID().String(),
	}
}

// errorFields describes err. The stack of typed errors is only added at debug level.
func (l *Logger) errorFields(err error) map[string]interface{} {
	fields := map[string]interface{}{"message": err.Error()}
	cerr, ok := errorx.IsCliniaError(err)
	if !ok {
		return fields
	}

	fields["type"] = cerr.Type.String()
	if cerr.OriginalError != nil {
		fields["cause"] = cerr.OriginalError.Error()
	}
	if len(cerr.Stack) > 0 && l.Logger.IsLevelEnabled(logrus.DebugLevel) {
		fields["stack_trace"] = cerr.Stack.String()
	}
	return fields
}
