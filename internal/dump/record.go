package dump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Record is one JSON object from the dump tree with its key order preserved.
// Values are json.Number, string, bool, nil, []any or *Record.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from alternating key/value pairs. It is mostly
// useful in tests.
func NewRecord(pairs ...any) *Record {
	r := &Record{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return r
}

func (r *Record) set(key string, value any) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Keys returns the keys in document order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r *Record) Len() int {
	return len(r.keys)
}

// Get returns the raw value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Uint returns the unsigned integer under key. An absent key yields zero;
// a present key holding anything but a non-negative integer is malformed.
func (r *Record) Uint(key string) (uint64, error) {
	v, ok := r.values[key]
	if !ok || v == nil {
		return 0, nil
	}
	return toUint(key, v)
}

// UintList returns the list of unsigned integers under key and whether the
// key was present at all.
func (r *Record) UintList(key string) ([]uint64, bool, error) {
	v, ok := r.values[key]
	if !ok || v == nil {
		return nil, ok, nil
	}
	items, isList := v.([]any)
	if !isList {
		return nil, true, fmt.Errorf("%w: field %q is not a list", ErrMalformed, key)
	}
	out := make([]uint64, 0, len(items))
	for i, item := range items {
		n, err := toUint(fmt.Sprintf("%s[%d]", key, i), item)
		if err != nil {
			return nil, true, err
		}
		out = append(out, n)
	}
	return out, true, nil
}

// Child returns the nested object under key.
func (r *Record) Child(key string) (*Record, bool, error) {
	v, ok := r.values[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	child, isRecord := v.(*Record)
	if !isRecord {
		return nil, true, fmt.Errorf("%w: field %q is not an object", ErrMalformed, key)
	}
	return child, true, nil
}

func toUint(key string, v any) (uint64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is not a number", ErrMalformed, key)
	}
	n, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %v", ErrMalformed, key, err)
	}
	return n, nil
}

// MarshalJSON writes the record back out in document order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Pretty returns the record as indented JSON in document order.
func (r *Record) Pretty() (string, error) {
	raw, err := r.MarshalJSON()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// decodeRecord parses exactly one JSON object from data.
func decodeRecord(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("document is not an object")
	}
	rec, err := decodeObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after document")
	}
	return rec, nil
}

// decodeObject reads the members of an object whose '{' was already consumed.
func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := &Record{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		rec.set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		return decodeObject(dec)
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}
