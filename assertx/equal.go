package assertx

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// Equal is assert.Equal backed by go-cmp, so options such as cmpopts.IgnoreFields apply.
func Equal(t assert.TestingT, expected, actual interface{}, opts ...cmp.Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		return assert.Fail(t, "Not equal (-expected +actual):\n"+diff)
	}
	return true
}

// ElementsMatch asserts that both slices hold the same elements, in any order, compared with go-cmp.
// Duplicates must appear the same number of times on both sides.
func ElementsMatch[T any](t assert.TestingT, expected, actual []T, opts ...cmp.Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	used := make([]bool, len(actual))
	var missing []T
	for _, e := range expected {
		found := false
		for j, a := range actual {
			if !used[j] && cmp.Equal(e, a, opts...) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, e)
		}
	}

	var extra []T
	for j, a := range actual {
		if !used[j] {
			extra = append(extra, a)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return true
	}

	var msg strings.Builder
	msg.WriteString("elements differ")
	if len(missing) > 0 {
		fmt.Fprintf(&msg, "\n\nmissing from actual (%d):\n%v", len(missing), missing)
	}
	if len(extra) > 0 {
		fmt.Fprintf(&msg, "\n\nunexpected in actual (%d):\n%v", len(extra), extra)
	}
	return assert.Fail(t, msg.String())
}
