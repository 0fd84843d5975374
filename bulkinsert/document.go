package bulkinsert

import (
	"github.com/clinia/bulkx/errorx"
	"github.com/samber/lo"
)

const (
	MetadataKey = "@metadata"
	IDKey       = "@id"
)

// Document is a record waiting to be streamed. Its body already carries the metadata under @metadata.
type Document struct {
	ID       string
	Metadata map[string]any
	Body     map[string]any
}

// NewDocument validates the arguments of a write and nests the metadata, stamped with the id, into the body.
// The caller's maps are left untouched.
func NewDocument(id string, metadata map[string]any, body map[string]any) (Document, error) {
	if id == "" {
		return Document{}, errorx.InvalidArgumentErrorf("document id is required")
	}
	if metadata == nil {
		return Document{}, errorx.InvalidArgumentErrorf("metadata of document %s is required", id)
	}
	if body == nil {
		return Document{}, errorx.InvalidArgumentErrorf("body of document %s is required", id)
	}

	md := lo.Assign(metadata, map[string]any{IDKey: id})
	b := lo.Assign(body, map[string]any{MetadataKey: md})

	return Document{ID: id, Metadata: md, Body: b}, nil
}
