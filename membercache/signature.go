package membercache

import (
	"strconv"
	"strings"
)

// signatureSeparator mirrors the key separator convention used by the cache
// layer's keys.
const signatureSeparator = "::"

// querySignature renders list options into the canonical ledger key for one
// remote query. Option sets that resolve to the same remote execution must
// produce the same signature, so the rendering folds defaults in rather than
// reflecting the raw struct: the search term is lower-cased, an omitted
// limit or page collapses to the configured page size and page zero, an
// over-large limit is clamped, and an exclusion shadowed by an inclusion is
// dropped.
func querySignature(o ListOptions, pageSize int) string {
	exclude := o.ExcludeRole
	if o.IncludeRole != "" {
		exclude = ""
	}

	parts := []string{
		"members",
		strings.ToLower(o.Search),
		"+" + o.IncludeRole,
		"-" + exclude,
		strconv.Itoa(o.effectiveLimit(pageSize)),
		strconv.Itoa(o.pageIndex()),
	}
	return strings.Join(parts, signatureSeparator)
}
