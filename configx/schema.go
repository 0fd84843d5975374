// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/clinia/bulkx/errorx"
	"github.com/google/uuid"
	"github.com/ory/jsonschema/v3"
	"github.com/tidwall/gjson"
)

func newCompiler(schema []byte) (string, *jsonschema.Compiler, error) {
	id := gjson.GetBytes(schema, "$id").String()
	if id == "" {
		id = fmt.Sprintf("%s.json", uuid.Must(uuid.NewRandom()).String())
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, bytes.NewBuffer(schema)); err != nil {
		return "", nil, errorx.InvalidArgumentErrorf("unable to add config schema: %v", err).WithCause(err)
	}

	// Required for the defaults to be readable from the compiled schema.
	compiler.ExtractAnnotations = true

	return id, compiler, nil
}

func compileSchema(ctx context.Context, schema []byte) (*jsonschema.Schema, error) {
	id, compiler, err := newCompiler(schema)
	if err != nil {
		return nil, err
	}

	s, err := compiler.Compile(ctx, id)
	if err != nil {
		return nil, errorx.InvalidArgumentErrorf("unable to compile config schema: %v", err).WithCause(err)
	}

	return s, nil
}

// schemaKey is a leaf of the configuration schema.
type schemaKey struct {
	Path        string
	Type        string
	Description string
	Default     gjson.Result
}

// schemaKeys walks the object properties of the schema and returns its leaves sorted by path.
func schemaKeys(schema []byte) []schemaKey {
	var out []schemaKey
	var walk func(prefix string, node gjson.Result)
	walk = func(prefix string, node gjson.Result) {
		node.Get("properties").ForEach(func(name, prop gjson.Result) bool {
			path := name.String()
			if prefix != "" {
				path = prefix + "." + path
			}
			if prop.Get("type").String() == "object" && prop.Get("properties").Exists() {
				walk(path, prop)
				return true
			}
			out = append(out, schemaKey{
				Path:        path,
				Type:        prop.Get("type").String(),
				Description: prop.Get("description").String(),
				Default:     prop.Get("default"),
			})
			return true
		})
	}
	walk("", gjson.ParseBytes(schema))

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// EnvName returns the environment variable read for the key path.
// i.e. with the prefix BULKX_, bulk.batch_size is read from BULKX_BULK_BATCH_SIZE.
func EnvName(prefix, path string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// FlagName returns the command line flag read for the key path.
// i.e. bulk.batch_size is read from --bulk-batch-size.
func FlagName(path string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(path)
}
