package bulkinsert

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"testing"

	"github.com/clinia/bulkx/errorx"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	t.Run("should round trip a batch in order", func(t *testing.T) {
		batch := make([]Document, 0, 3)
		for i := 0; i < 3; i++ {
			doc, err := NewDocument(fmt.Sprintf("users/%d", i), map[string]any{"@collection": "Users"}, map[string]any{
				"name":   fmt.Sprintf("user %d", i),
				"active": i%2 == 0,
				"tags":   []any{"a", "b"},
				"nested": map[string]any{"city": "Montreal"},
			})
			require.NoError(t, err)
			batch = append(batch, doc)
		}

		var buf bytes.Buffer
		compressed, err := EncodeFrame(&buf, batch)
		require.NoError(t, err)
		assert.Equal(t, lengthPrefixSize+compressed, buf.Len())
		assert.Equal(t, uint32(compressed), binary.BigEndian.Uint32(buf.Bytes()[:lengthPrefixSize]))

		records, err := DecodeFrame(&buf)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, r := range records {
			assert.Equal(t, map[string]any{
				"name":   fmt.Sprintf("user %d", i),
				"active": i%2 == 0,
				"tags":   []any{"a", "b"},
				"nested": map[string]any{"city": "Montreal"},
				MetadataKey: map[string]any{
					"@collection": "Users",
					IDKey:         fmt.Sprintf("users/%d", i),
				},
			}, r)
		}
	})

	t.Run("should write the record count first in the payload", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := EncodeFrame(&buf, []Document{testDocument(t, 0), testDocument(t, 1)})
		require.NoError(t, err)

		zr, err := gzip.NewReader(bytes.NewReader(buf.Bytes()[lengthPrefixSize:]))
		require.NoError(t, err)
		payload, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), binary.BigEndian.Uint32(payload[:4]))
	})

	t.Run("should encode frames as independent gzip streams", func(t *testing.T) {
		var buf bytes.Buffer
		for i := 0; i < 3; i++ {
			_, err := EncodeFrame(&buf, []Document{testDocument(t, i)})
			require.NoError(t, err)
		}

		for i := 0; i < 3; i++ {
			records, err := DecodeFrame(&buf)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, fmt.Sprint(i), records[0]["n"])
		}
		_, err := DecodeFrame(&buf)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("should encode an empty batch", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := EncodeFrame(&buf, nil)
		require.NoError(t, err)
		records, err := DecodeFrame(&buf)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("should report write failures", func(t *testing.T) {
		pr, pw := io.Pipe()
		require.NoError(t, pr.Close())
		_, err := EncodeFrame(pw, []Document{testDocument(t, 0)})
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	})
}

func TestDecodeFrame(t *testing.T) {
	frame := func(payload []byte) *bytes.Buffer {
		var compressed bytes.Buffer
		zw := gzip.NewWriter(&compressed)
		_, _ = zw.Write(payload)
		_ = zw.Close()

		out := &bytes.Buffer{}
		_ = binary.Write(out, binary.BigEndian, uint32(compressed.Len()))
		out.Write(compressed.Bytes())
		return out
	}

	t.Run("should reject a truncated frame", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := EncodeFrame(&buf, []Document{testDocument(t, 0)})
		require.NoError(t, err)

		_, err = DecodeFrame(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should reject a payload missing records", func(t *testing.T) {
		_, err := DecodeFrame(frame([]byte{0, 0, 0, 2}))
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should reject trailing bytes", func(t *testing.T) {
		_, err := DecodeFrame(frame([]byte{0, 0, 0, 0, 1}))
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should reject data that is not gzip", func(t *testing.T) {
		_, err := DecodeFrame(bytes.NewReader([]byte{0, 0, 0, 3, 'a', 'b', 'c'}))
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})
}
