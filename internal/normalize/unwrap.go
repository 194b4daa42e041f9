// Package normalize converts loosely-typed portal payloads into the strict
// domain entities the rest of the agent works with.
//
// The backend does not guarantee a fixed schema: field names have changed
// over time, values arrive as strings or numbers interchangeably, and list
// responses come wrapped in several envelope shapes. This package is the
// compatibility layer. Its rules:
//   - never panic, never return nil where a consumer expects a sequence
//   - every required field has a documented fallback
//   - parse failures are absorbed locally, not surfaced
package normalize

import (
	"sort"
	"strconv"
)

// envelopeKeys are the wrapper keys the backend has been observed to use
// around list payloads, probed in this order. The first key present wins.
var envelopeKeys = []string{
	"complaints",
	"data",
	"workers",
	"providers",
	"clients",
	"notifications",
	"comments",
	"records",
	"items",
	"results",
}

// UnwrapList extracts the record sequence from an arbitrary decoded JSON
// value.
//
// Accepted shapes:
//   - a bare array of records
//   - an object with a known envelope key ({"complaints": [...]}),
//     recursing into the first present key
//   - an object whose own values are the records ({"0": {...}, "1": {...}})
//
// Anything else yields an empty (non-nil) slice. Source order is preserved
// for arrays; numeric-keyed objects are emitted in ascending key order so
// unwrapping is deterministic.
func UnwrapList(raw interface{}) []map[string]interface{} {
	records := []map[string]interface{}{}

	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if rec, ok := item.(map[string]interface{}); ok {
				records = append(records, rec)
			}
		}
		return records

	case map[string]interface{}:
		// Probe known envelope keys first
		for _, key := range envelopeKeys {
			if inner, ok := v[key]; ok {
				return UnwrapList(inner)
			}
		}

		// Fall back to "take object values" for numeric-keyed objects.
		// Keys are sorted (numerically where possible) for determinism.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			ni, errI := strconv.Atoi(keys[i])
			nj, errJ := strconv.Atoi(keys[j])
			if errI == nil && errJ == nil {
				return ni < nj
			}
			return keys[i] < keys[j]
		})

		for _, k := range keys {
			if rec, ok := v[k].(map[string]interface{}); ok {
				records = append(records, rec)
			}
		}
		return records
	}

	return records
}
