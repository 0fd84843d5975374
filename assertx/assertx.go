// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package assertx

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"
)

type tHelper interface {
	Helper()
}

func encodeJSON(t require.TestingT, v interface{}) string {
	var b bytes.Buffer
	require.NoError(t, json.NewEncoder(&b).Encode(v))
	return strings.TrimSpace(b.String())
}

// EqualAsJSON asserts that expected and actual encode to the same JSON document.
func EqualAsJSON(t require.TestingT, expected, actual interface{}, args ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.JSONEq(t, encodeJSON(t, expected), encodeJSON(t, actual), args...)
}

// EqualAsJSONExcept is EqualAsJSON once the given sjson paths are removed from both sides.
func EqualAsJSONExcept(t require.TestingT, expected, actual interface{}, except []string, args ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	e, a := encodeJSON(t, expected), encodeJSON(t, actual)
	var err error
	for _, path := range except {
		e, err = sjson.Delete(e, path)
		require.NoError(t, err)
		a, err = sjson.Delete(a, path)
		require.NoError(t, err)
	}

	return assert.JSONEq(t, e, a, args...)
}
