package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON for a node tree.
// This is the only serialization used for content hashes.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Floats are encoded as shortest decimal strings
//  5. Values are referenced by their print numbers
func MarshalCanonical(n *Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("canonical: nil node")
	}
	tree, err := canonicalNode(n, NumberValues(n))
	if err != nil {
		return nil, err
	}
	return marshalCanonical(tree)
}

func canonicalNode(n *Node, num *Numbering) (map[string]any, error) {
	attrs := make(map[string]any, len(n.Attrs))
	for k, a := range n.Attrs {
		v, err := canonicalAttr(a)
		if err != nil {
			return nil, fmt.Errorf("%s attrs[%q]: %w", n.Kind, k, err)
		}
		attrs[k] = v
	}

	operands := make([]any, len(n.Operands))
	for i, v := range n.Operands {
		operands[i] = int64(num.ID(v))
	}

	results := make([]any, len(n.Results))
	for i, v := range n.Results {
		results[i] = canonicalValue(v, num)
	}

	regions := make([]any, len(n.Regions))
	for i, r := range n.Regions {
		blocks := make([]any, len(r.Blocks))
		for j, b := range r.Blocks {
			params := make([]any, len(b.Params))
			for k, p := range b.Params {
				params[k] = canonicalValue(p, num)
			}
			nodes := make([]any, len(b.Nodes))
			for k, child := range b.Nodes {
				c, err := canonicalNode(child, num)
				if err != nil {
					return nil, err
				}
				nodes[k] = c
			}
			blocks[j] = map[string]any{"params": params, "nodes": nodes}
		}
		regions[i] = blocks
	}

	return map[string]any{
		"kind":     string(n.Kind),
		"attrs":    attrs,
		"operands": operands,
		"results":  results,
		"regions":  regions,
	}, nil
}

func canonicalValue(v *Value, num *Numbering) map[string]any {
	return map[string]any{"id": int64(num.ID(v)), "type": v.Type.String()}
}

func canonicalAttr(a Attr) (any, error) {
	switch val := a.(type) {
	case StringAttr:
		return string(val), nil
	case BoolAttr:
		return bool(val), nil
	case IntegerAttr:
		return map[string]any{"int": val.Value, "type": val.Type.String()}, nil
	case FloatAttr:
		return map[string]any{"float": strconv.FormatFloat(val.Value, 'g', -1, 64), "type": val.Type.String()}, nil
	case TypeAttr:
		return map[string]any{"type": val.Type.String()}, nil
	case FunctionTypeAttr:
		inputs := make([]any, len(val))
		for i, t := range val {
			inputs[i] = t.String()
		}
		return map[string]any{"inputs": inputs}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", a)
	}
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case int:
		return []byte(strconv.Itoa(val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization. Only control characters, backslash and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	// The encoder escapes U+2028 and U+2029 for JavaScript; canonical form
	// keeps them literal.
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters, leaving an escaped backslash followed by "u2028" alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's default string comparison uses UTF-8 which produces a different order.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
