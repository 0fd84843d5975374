package bulkinsert

import (
	"testing"

	"github.com/clinia/bulkx/errorx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientURLs(t *testing.T) {
	id := uuid.MustParse("6f1d4a5e-2b1c-4b8e-9d7a-0c3f5e6a7b8c")

	t.Run("should build the urls of a database", func(t *testing.T) {
		c, err := NewClient("http://localhost:8080/", "Northwind", nil)
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8080/databases/Northwind", c.BaseURL())
		assert.Equal(t,
			"http://localhost:8080/databases/Northwind/bulkInsert?checkForUpdates=true&checkReferencesInIndexes=true&operationId="+id.String(),
			c.bulkInsertURL(id, Options{CheckForUpdates: true, CheckReferencesInIndexes: true}))
		assert.Equal(t,
			"http://localhost:8080/databases/Northwind/bulkInsert?operationId="+id.String()+"&op=generate-single-use-auth-token",
			c.tokenURL(id, Options{}))
		assert.Equal(t, "http://localhost:8080/databases/Northwind/operation/status?id=42", c.operationStatusURL(42))
	})

	t.Run("should build the urls without database", func(t *testing.T) {
		c, err := NewClient("https://db.example.com", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://db.example.com/bulkInsert?checkReferencesInIndexes=true&operationId="+id.String(),
			c.bulkInsertURL(id, Options{CheckReferencesInIndexes: true}))
	})

	t.Run("should reject invalid server urls", func(t *testing.T) {
		for _, u := range []string{"", "localhost:8080", "ftp://localhost", "http://", "http://%zz"} {
			_, err := NewClient(u, "", nil)
			assert.True(t, errorx.IsInvalidArgumentError(err), u)
		}
	})
}
