package testx

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

// ConcurrentBuffer is an io.Writer safe for the concurrent writes of loggers and exporters.
type ConcurrentBuffer struct {
	b *bytes.Buffer
	m sync.RWMutex
	t *testing.T
}

func NewConcurrentBuffer(t *testing.T) *ConcurrentBuffer {
	return &ConcurrentBuffer{
		b: new(bytes.Buffer),
		t: t,
	}
}

func (c *ConcurrentBuffer) Write(p []byte) (n int, err error) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.b.Write(p)
}

func (c *ConcurrentBuffer) String() string {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.b.String()
}

// Lines returns the non empty lines written so far.
func (c *ConcurrentBuffer) Lines() []string {
	var out []string
	for _, line := range strings.Split(c.String(), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// JSONLines returns the lines that are JSON documents, such as the entries of a JSON formatted logger.
func (c *ConcurrentBuffer) JSONLines() []gjson.Result {
	var out []gjson.Result
	for _, line := range c.Lines() {
		if gjson.Valid(line) {
			out = append(out, gjson.Parse(line))
		}
	}
	return out
}
