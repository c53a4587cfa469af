package ndjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

// Stats summarizes a pass over an input.
type Stats struct {
	Records    int
	BlankLines int
}

// CheckObject reports whether record is a single, complete JSON object.
func CheckObject(record []byte) error {
	if !utf8.Valid(record) {
		return errors.New("line is not valid UTF-8")
	}
	trimmed := bytes.TrimSpace(record)
	if !json.Valid(trimmed) {
		return fmt.Errorf("invalid JSON: %w", syntaxError(trimmed))
	}
	if kind := valueKind(trimmed[0]); kind != "object" {
		return fmt.Errorf("value is a JSON %s, expected an object", kind)
	}
	return nil
}

// Validate reads r to the end and checks every record with CheckObject. The
// first failure is returned as a *pgjson.RecordError.
func Validate(r io.Reader) (Stats, error) {
	nr := NewReader(r)
	for nr.Next() {
		if err := CheckObject(nr.Bytes()); err != nil {
			return stats(nr), &pgjson.RecordError{Line: nr.Line(), Err: err}
		}
	}
	if err := nr.Err(); err != nil {
		return stats(nr), fmt.Errorf("read input: %w", err)
	}
	return stats(nr), nil
}

// KeyCount is a top-level key and the number of records containing it.
type KeyCount struct {
	Key     string
	Records int
}

// ProbeKeys validates r like Validate and collects the distinct top-level
// keys, sorted by key.
func ProbeKeys(r io.Reader) ([]KeyCount, Stats, error) {
	counts := map[string]int{}
	nr := NewReader(r)
	for nr.Next() {
		if err := CheckObject(nr.Bytes()); err != nil {
			return nil, stats(nr), &pgjson.RecordError{Line: nr.Line(), Err: err}
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(nr.Bytes(), &obj); err != nil {
			return nil, stats(nr), &pgjson.RecordError{Line: nr.Line(), Err: err}
		}
		for k := range obj {
			counts[k]++
		}
	}
	if err := nr.Err(); err != nil {
		return nil, stats(nr), fmt.Errorf("read input: %w", err)
	}

	keys := make([]KeyCount, 0, len(counts))
	for k, n := range counts {
		keys = append(keys, KeyCount{Key: k, Records: n})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })
	return keys, stats(nr), nil
}

func stats(nr *Reader) Stats {
	return Stats{Records: nr.Records(), BlankLines: nr.BlankLines()}
}

func valueKind(first byte) string {
	switch first {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// syntaxError recovers the decoder's message for invalid input.
func syntaxError(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return errors.New("unexpected trailing data")
}
