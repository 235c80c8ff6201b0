package engine

import (
	"encoding/json"
	"fmt"
)

// fingerprint canonicalizes an opaque argument value into a string suitable
// for structural-equality comparison. encoding/json is used because Go's
// encoder sorts map keys, giving two equal-by-value-but-differently-built
// maps the same canonical form — the "well-defined equality" §3 requires of
// opaque structured arguments.
func fingerprint(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		// Not everything is JSON-marshalable (e.g. a channel or func value
		// among the arguments); fall back to a Go-syntax dump
		// which is still stable for structural comparison purposes.
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}
