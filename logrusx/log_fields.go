package logrusx

import (
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// NewLogFields turns span attributes into log fields. Dots in the keys become "__",
// i.e. "bulk_insert.session_id" is logged as "bulk_insert__session_id".
func NewLogFields(kvs ...attribute.KeyValue) logrus.Fields {
	f := make(logrus.Fields, len(kvs))
	for _, kv := range kvs {
		f[strings.ReplaceAll(string(kv.Key), ".", "__")] = kv.Value.AsInterface()
	}
	return f
}

// WithAttributes adds the span attributes to the entry, keyed as NewLogFields does.
func (l *Logger) WithAttributes(kvs ...attribute.KeyValue) *Logger {
	return l.WithFields(NewLogFields(kvs...))
}
