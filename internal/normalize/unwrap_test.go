package normalize

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"
)

// decode parses a JSON literal the way the portal client does, so tests
// exercise the same value shapes (float64 numbers, map[string]interface{}).
func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("test payload does not parse: %v", err)
	}
	return v
}

func TestUnwrapListBareArray(t *testing.T) {
	raw := decode(t, `[{"id": 1}, {"id": 2}]`)

	records := UnwrapList(raw)
	if len(records) != 2 {
		t.Fatalf("expected 2 records but got %d", len(records))
	}
	if records[0]["id"].(float64) != 1 {
		t.Errorf("expected first record id=1 but got %v", records[0]["id"])
	}
}

func TestUnwrapListEnvelopeKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"complaints envelope", `{"complaints": [{"id": 1}, {"id": 2}]}`},
		{"data envelope", `{"data": [{"id": 1}, {"id": 2}]}`},
		{"providers envelope", `{"providers": [{"id": 1}, {"id": 2}]}`},
		{"nested envelope", `{"data": {"complaints": [{"id": 1}, {"id": 2}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := UnwrapList(decode(t, tt.raw))
			if len(records) != 2 {
				t.Errorf("expected 2 records but got %d", len(records))
			}
		})
	}
}

func TestUnwrapListNumericKeyedObject(t *testing.T) {
	raw := decode(t, `{"0": {"id": 10}, "1": {"id": 11}, "2": {"id": 12}}`)

	records := UnwrapList(raw)
	if len(records) != 3 {
		t.Fatalf("expected 3 records but got %d", len(records))
	}

	// Ascending key order
	for i, want := range []float64{10, 11, 12} {
		if records[i]["id"].(float64) != want {
			t.Errorf("record %d: expected id=%v but got %v", i, want, records[i]["id"])
		}
	}
}

func TestUnwrapListNumericKeysSortNumerically(t *testing.T) {
	// "10" must sort after "2", not lexicographically before it
	raw := decode(t, `{"10": {"id": 10}, "2": {"id": 2}}`)

	records := UnwrapList(raw)
	if len(records) != 2 {
		t.Fatalf("expected 2 records but got %d", len(records))
	}
	if records[0]["id"].(float64) != 2 {
		t.Errorf("expected numeric key order, first id=2, got %v", records[0]["id"])
	}
}

func TestUnwrapListNeverNil(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
	}{
		{"nil input", nil},
		{"scalar", "hello"},
		{"number", 42.0},
		{"empty object", map[string]interface{}{}},
		{"envelope with scalar payload", decode(t, `{"data": "oops"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := UnwrapList(tt.raw)
			if records == nil {
				t.Fatal("UnwrapList returned nil; contract requires an empty sequence")
			}
			if len(records) != 0 {
				t.Errorf("expected empty sequence but got %d records", len(records))
			}
		})
	}
}

// TestUnwrapEnvelopeRobustness checks that all four documented envelope
// shapes carrying the same logical records normalize to the same set of
// domain entities.
func TestUnwrapEnvelopeRobustness(t *testing.T) {
	body := `[{"id": 1, "caretaker": "Ann"}, {"id": 2, "caretaker": "Bob"}]`

	shapes := map[string]string{
		"bare array":       body,
		"complaints":       `{"complaints": ` + body + `}`,
		"data":             `{"data": ` + body + `}`,
		"numeric keys":     `{"0": {"id": 1, "caretaker": "Ann"}, "1": {"id": 2, "caretaker": "Bob"}}`,
	}

	var reference []string
	for name, raw := range shapes {
		complaints := Complaints(UnwrapList(decode(t, raw)))

		ids := make([]string, 0, len(complaints))
		for _, c := range complaints {
			ids = append(ids, c.ComplaintID+"/"+c.Caretaker)
		}
		sort.Strings(ids)

		if reference == nil {
			reference = ids
			continue
		}
		if !reflect.DeepEqual(ids, reference) {
			t.Errorf("shape %q produced %v, want %v", name, ids, reference)
		}
	}
}
