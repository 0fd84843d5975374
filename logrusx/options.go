// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package logrusx

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type (
	options struct {
		l                *logrus.Logger
		level            *logrus.Level
		formatter        logrus.Formatter
		format           string
		out              io.Writer
		hooks            []logrus.Hook
		leakSensitive    bool
		redactionText    string
		sensitiveHeaders []string
	}
	Option func(*options)
)

var defaultSensitiveHeaders = []string{"authorization", "cookie", "set-cookie", "single-use-auth-token"}

// ForceLevel sets the log level regardless of the LOG_LEVEL environment variable.
func ForceLevel(level logrus.Level) Option {
	return func(o *options) {
		o.level = &level
	}
}

// ForceFormat sets the output format, either "json" or "text".
func ForceFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

func WithFormatter(formatter logrus.Formatter) Option {
	return func(o *options) {
		o.formatter = formatter
	}
}

func WithOutput(out io.Writer) Option {
	return func(o *options) {
		o.out = out
	}
}

func WithHook(hook logrus.Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hook)
	}
}

func UseLogger(l *logrus.Logger) Option {
	return func(o *options) {
		o.l = l
	}
}

func LeakSensitive() Option {
	return func(o *options) {
		o.leakSensitive = true
	}
}

func RedactionText(text string) Option {
	return func(o *options) {
		o.redactionText = text
	}
}

// WithSensitiveHeaders adds headers whose values are redacted in request logs.
func WithSensitiveHeaders(headers ...string) Option {
	return func(o *options) {
		o.sensitiveHeaders = append(o.sensitiveHeaders, headers...)
	}
}

func newOptions(opts []Option) *options {
	o := new(options)
	for _, f := range opts {
		f(o)
	}
	return o
}

func newLogger(parent *logrus.Logger, o *options) *logrus.Logger {
	l := parent
	if l == nil {
		l = logrus.New()
	}

	if o.level != nil {
		l.Level = *o.level
	} else {
		var err error
		l.Level, err = logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
		if err != nil {
			l.Level = logrus.InfoLevel
		}
	}

	if o.formatter != nil {
		l.Formatter = o.formatter
	} else {
		format := o.format
		if format == "" {
			format = os.Getenv("LOG_FORMAT")
		}
		switch format {
		case "json":
			l.Formatter = &logrus.JSONFormatter{}
		default:
			l.Formatter = &logrus.TextFormatter{
				DisableQuote:     true,
				DisableTimestamp: false,
				FullTimestamp:    true,
			}
		}
	}

	if o.out != nil {
		l.Out = o.out
	}

	for _, hook := range o.hooks {
		l.AddHook(hook)
	}

	return l
}

// New creates a new logger with all the important fields set.
func New(name string, version string, opts ...Option) *Logger {
	o := newOptions(opts)

	redactionText := o.redactionText
	if redactionText == "" {
		redactionText = `Value is sensitive and has been redacted. To see the value set config key "log.leak_sensitive_values = true" or environment variable "LOG_LEAK_SENSITIVE_VALUES=true".`
	}

	sensitive := map[string]struct{}{}
	for _, h := range append(defaultSensitiveHeaders, o.sensitiveHeaders...) {
		sensitive[strings.ToLower(h)] = struct{}{}
	}

	return &Logger{
		leakSensitive:    o.leakSensitive || os.Getenv("LOG_LEAK_SENSITIVE_VALUES") == "true",
		redactionText:    redactionText,
		sensitiveHeaders: sensitive,
		Entry: newLogger(o.l, o).WithFields(logrus.Fields{
			"audience": "application", "service_name": name, "service_version": version,
		}),
	}
}

// NewNoop returns a logger discarding every entry. Mostly useful in tests.
func NewNoop() *Logger {
	l := logrus.New()
	l.Out = io.Discard
	return New("", "", UseLogger(l), ForceLevel(logrus.PanicLevel))
}
