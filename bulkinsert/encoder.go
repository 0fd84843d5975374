package bulkinsert

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/clinia/bulkx/errorx"
	"github.com/klauspost/compress/gzip"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// A frame is an independent gzip stream prefixed with its compressed length:
//
//	frame   := length (uint32, big-endian) || gzip(payload)
//	payload := count (uint32, big-endian) || record_1 || ... || record_N
//
// Each record is one BSON document.
const lengthPrefixSize = 4

type frameBuffers struct {
	payload bytes.Buffer
	frame   bytes.Buffer
	zw      *gzip.Writer
}

var framePool = sync.Pool{
	New: func() any {
		fb := &frameBuffers{}
		fb.zw = gzip.NewWriter(&fb.frame)
		return fb
	},
}

func getFrameBuffers() *frameBuffers {
	fb := framePool.Get().(*frameBuffers)
	fb.payload.Reset()
	fb.frame.Reset()
	fb.zw.Reset(&fb.frame)
	return fb
}

// EncodeFrame writes the batch as one frame to w with a single Write call and returns the compressed payload size.
func EncodeFrame(w io.Writer, batch []Document) (int, error) {
	fb := getFrameBuffers()
	defer framePool.Put(fb)

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(batch)))
	fb.payload.Write(prefix[:])

	for _, doc := range batch {
		record, err := bson.Marshal(doc.Body)
		if err != nil {
			return 0, errorx.InvalidArgumentErrorf("failed to encode document %s: %v", doc.ID, err).WithCause(err)
		}
		fb.payload.Write(record)
	}

	// Room for the length prefix, filled once the compressed size is known.
	fb.frame.Write(prefix[:])
	if _, err := fb.zw.Write(fb.payload.Bytes()); err != nil {
		return 0, errorx.InternalErrorf("failed to compress frame: %v", err).WithCause(err)
	}
	if err := fb.zw.Close(); err != nil {
		return 0, errorx.InternalErrorf("failed to compress frame: %v", err).WithCause(err)
	}

	frame := fb.frame.Bytes()
	compressed := len(frame) - lengthPrefixSize
	binary.BigEndian.PutUint32(frame[:lengthPrefixSize], uint32(compressed))

	if _, err := w.Write(frame); err != nil {
		return 0, err
	}

	return compressed, nil
}

// DecodeFrame reads one frame from r and returns its records in order.
// Nested documents and arrays come back as map[string]any and []any.
func DecodeFrame(r io.Reader) ([]map[string]any, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	compressed := make([]byte, binary.BigEndian.Uint32(prefix[:]))
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, errorx.InvalidArgumentErrorf("truncated frame: %v", err).WithCause(err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errorx.InvalidArgumentErrorf("invalid gzip stream: %v", err).WithCause(err)
	}
	defer zr.Close()

	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, errorx.InvalidArgumentErrorf("invalid gzip stream: %v", err).WithCause(err)
	}
	if len(payload) < lengthPrefixSize {
		return nil, errorx.InvalidArgumentErrorf("payload too short for its record count")
	}

	count := int(binary.BigEndian.Uint32(payload[:lengthPrefixSize]))
	payload = payload[lengthPrefixSize:]

	records := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		if len(payload) < 4 {
			return nil, errorx.InvalidArgumentErrorf("payload ends before record %d of %d", i+1, count)
		}
		// BSON documents start with their own little-endian int32 size.
		size := int(binary.LittleEndian.Uint32(payload[:4]))
		if size < 5 || size > len(payload) {
			return nil, errorx.InvalidArgumentErrorf("record %d has an invalid size %d", i+1, size)
		}

		var m bson.M
		if err := bson.Unmarshal(payload[:size], &m); err != nil {
			return nil, errorx.InvalidArgumentErrorf("invalid record %d: %v", i+1, err).WithCause(err)
		}
		records = append(records, normalize(m).(map[string]any))
		payload = payload[size:]
	}
	if len(payload) != 0 {
		return nil, errorx.InvalidArgumentErrorf("%d trailing bytes after %d records", len(payload), count)
	}

	return records, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case primitive.Null:
		return nil
	default:
		return v
	}
}
