package ndjson

import (
	"bufio"
	"bytes"
	"io"

	"github.com/clinia/bulkx/bulkinsert"
	"github.com/clinia/bulkx/errorx"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const maxLineSize = 16 * 1024 * 1024

// Record is one document line, split into what a bulk insert write takes.
type Record struct {
	Line     int
	ID       string
	Metadata map[string]any
	Body     map[string]any
}

type Decoder struct {
	scanner *bufio.Scanner
	idPath  string
	keepID  bool
	set     map[string]string
	line    int
}

type DecoderOption func(*Decoder)

// KeepID leaves the id field in the document body.
func KeepID() DecoderOption {
	return func(d *Decoder) {
		d.keepID = true
	}
}

// WithFields sets the given paths on every document, i.e. "tenant": "acme" or "address.country": "CA".
func WithFields(fields map[string]string) DecoderOption {
	return func(d *Decoder) {
		d.set = fields
	}
}

// NewDecoder reads one JSON object per line from r. The document id is read at idPath.
func NewDecoder(r io.Reader, idPath string, opts ...DecoderOption) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	d := &Decoder{scanner: scanner, idPath: idPath}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next record, skipping blank lines. It returns io.EOF once the input is exhausted.
func (d *Decoder) Next() (*Record, error) {
	for d.scanner.Scan() {
		d.line++
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return d.decode(line)
	}
	if err := d.scanner.Err(); err != nil {
		return nil, errorx.InvalidArgumentErrorf("line %d: %v", d.line+1, err).WithCause(err)
	}
	return nil, io.EOF
}

func (d *Decoder) decode(line []byte) (*Record, error) {
	if !gjson.ValidBytes(line) || !gjson.ParseBytes(line).IsObject() {
		return nil, errorx.InvalidArgumentErrorf("line %d: not a JSON object", d.line)
	}

	id := gjson.GetBytes(line, d.idPath)
	if !id.Exists() || id.String() == "" {
		return nil, errorx.InvalidArgumentErrorf("line %d: no document id at %q", d.line, d.idPath)
	}

	// The scanner reuses its buffer, sjson always returns a fresh copy.
	doc := append([]byte(nil), line...)
	var err error
	if !d.keepID {
		if doc, err = sjson.DeleteBytes(doc, d.idPath); err != nil {
			return nil, errorx.InvalidArgumentErrorf("line %d: %v", d.line, err).WithCause(err)
		}
	}
	for path, value := range d.set {
		if doc, err = sjson.SetBytes(doc, path, value); err != nil {
			return nil, errorx.InvalidArgumentErrorf("line %d: cannot set %q: %v", d.line, path, err).WithCause(err)
		}
	}

	r := &Record{
		Line:     d.line,
		ID:       id.String(),
		Metadata: map[string]any{},
		Body:     map[string]any{},
	}
	gjson.ParseBytes(doc).ForEach(func(key, value gjson.Result) bool {
		if key.String() == bulkinsert.MetadataKey {
			if md, ok := value.Value().(map[string]any); ok {
				r.Metadata = md
			}
			return true
		}
		r.Body[key.String()] = value.Value()
		return true
	})

	return r, nil
}
