package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/clinia/bulkx/assertx"
	"github.com/clinia/bulkx/bulkinsert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bulkInsertServer accepts every token and records the streamed records.
type bulkInsertServer struct {
	*httptest.Server

	mu      sync.Mutex
	records []map[string]any
}

func newBulkInsertServer(t *testing.T) *bulkInsertServer {
	t.Helper()
	s := &bulkInsertServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/databases/db/bulkInsert", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("op") != "" {
			_, _ = fmt.Fprint(w, `{"Token":"token"}`)
			return
		}
		for {
			records, err := bulkinsert.DecodeFrame(r.Body)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			s.mu.Lock()
			s.records = append(s.records, records...)
			s.mu.Unlock()
		}
		_, _ = fmt.Fprint(w, `{"OperationId":9}`)
	})
	mux.HandleFunc("/databases/db/operation/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"Completed":true}`)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *bulkInsertServer) received() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestInsertCmd(t *testing.T) {
	t.Setenv("BULKX_LOG_LEVEL", "error")

	t.Run("should insert the documents read from stdin", func(t *testing.T) {
		s := newBulkInsertServer(t)
		input := `{"id": "users/1", "name": "Ada", "@metadata": {"@collection": "Users"}}
{"id": "users/2", "name": "Grace"}
`
		stdout, stderr, err := execute(t, input, "insert",
			"--server-url", s.URL, "--server-database", "db",
			"--bulk-poll-interval", "10ms", "--set", "tenant=acme")
		require.NoError(t, err)

		assert.Equal(t, "Inserted 2 documents in operation 9\n", stdout)
		assert.Contains(t, stderr, "Finished writing all results to server")
		assert.Contains(t, stderr, "Done writing to server")

		records := s.received()
		require.Len(t, records, 2)
		assertx.EqualAsJSONExcept(t, map[string]any{"name": "Ada", "tenant": "acme"}, records[0], []string{bulkinsert.MetadataKey})
		assert.Equal(t, map[string]any{"@collection": "Users", bulkinsert.IDKey: "users/1"}, records[0][bulkinsert.MetadataKey])
		assert.Equal(t, map[string]any{bulkinsert.IDKey: "users/2"}, records[1][bulkinsert.MetadataKey])
	})

	t.Run("should insert the documents of a file quietly", func(t *testing.T) {
		s := newBulkInsertServer(t)
		path := filepath.Join(t.TempDir(), "docs.ndjson")
		require.NoError(t, os.WriteFile(path, []byte(`{"key": "a", "v": 1}`+"\n"), 0o600))

		stdout, stderr, err := execute(t, "", "insert", path, "-q", "--keep-id", "--id-path", "key",
			"--server-url", s.URL, "--server-database", "db", "--bulk-poll-interval", "10ms")
		require.NoError(t, err)
		assert.Equal(t, "Inserted 1 documents in operation 9\n", stdout)
		assert.NotContains(t, stderr, "Done writing to server")

		records := s.received()
		require.Len(t, records, 1)
		assert.Equal(t, "a", records[0]["key"])
	})

	t.Run("should fail on an invalid line", func(t *testing.T) {
		s := newBulkInsertServer(t)
		_, _, err := execute(t, "{\"id\": \"a\"}\nnot json\n", "insert", "-q",
			"--server-url", s.URL, "--server-database", "db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("should require a server url", func(t *testing.T) {
		_, _, err := execute(t, "", "insert", "-q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.url")
	})
}

func TestInsertCmdInvalidConfig(t *testing.T) {
	_, stderr, err := execute(t, "", "insert", "-q", "--server-url", "http://localhost", "--bulk-batch-size", "0")
	require.Error(t, err)
	assert.Contains(t, stderr, "The configuration contains values or keys which are invalid")
	assert.Contains(t, stderr, "bulk.batch_size: 0")
}
