package grammar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"filterCompiler/types"
)

// ParseJSON decodes a JSON filter document and parses it. Numbers are kept
// as json.Number so that coercion sees the literal as written.
func ParseJSON(data []byte) (types.Filter, error) {
	raw, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// ParseMsgpack decodes a msgpack filter document and parses it.
func ParseMsgpack(data []byte) (types.Filter, error) {
	raw, err := DecodeMsgpack(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// DecodeJSON decodes data into the raw document form accepted by Parse
// without validating it.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fail("", fmt.Sprintf("invalid JSON: %v", err))
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fail("", "invalid JSON: trailing data after filter document")
	}
	return raw, nil
}

// DecodeMsgpack decodes data into the raw document form accepted by Parse
// without validating it.
func DecodeMsgpack(data []byte) (any, error) {
	var raw any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fail("", fmt.Sprintf("invalid msgpack: %v", err))
	}
	return stringKeys(raw), nil
}

// stringKeys rewrites map[any]any records, which msgpack produces for maps
// with non-string keys, into map[string]any.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = stringKeys(t[i])
		}
		return t
	default:
		return v
	}
}
