// Package jsontree implements reading and writing of nested JSON
// localization trees.
//
// The expected file format is a nested JSON object with string leaves:
//
//	{
//	    "greeting": "Hello",
//	    "nav": {
//	        "home": "Home",
//	        "about": "About"
//	    }
//	}
//
// Leaves are addressed by dotted paths ("nav.home"). Only string leaves are
// translatable; numbers, booleans, null and arrays are kept as KindOther and
// dropped when the tree is flattened.
package jsontree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ---------------------------------------------------------------------------
// Node model
// ---------------------------------------------------------------------------

// Kind tags the variant held by a Node.
type Kind int

const (
	// KindObject is a mapping of string keys to child nodes.
	KindObject Kind = iota
	// KindString is a translatable string leaf.
	KindString
	// KindOther covers number, boolean, null and array values.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindString:
		return "string"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one value of a localization tree.
type Node struct {
	Kind Kind
	// Fields holds children when Kind == KindObject.
	Fields map[string]*Node
	// Str holds the value when Kind == KindString.
	Str string
	// raw keeps the original JSON of a KindOther value.
	raw json.RawMessage
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{Kind: KindObject, Fields: make(map[string]*Node)}
}

// NewString returns a string leaf.
func NewString(s string) *Node {
	return &Node{Kind: KindString, Str: s}
}

// SortedKeys returns the child keys of an object node in lexicographic order.
func (n *Node) SortedKeys() []string {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(n.Fields))
	for k := range n.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// equal reports whether two trees hold the same structure and string values.
// KindOther leaves compare equal when their canonical JSON matches.
func (n *Node) equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind {
		return false
	}
	switch n.Kind {
	case KindString:
		return n.Str == other.Str
	case KindOther:
		return bytes.Equal(n.raw, other.raw)
	}
	if len(n.Fields) != len(other.Fields) {
		return false
	}
	for k, child := range n.Fields {
		if !child.equal(other.Fields[k]) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a JSON localization file.
func ParseFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses JSON data into a tree. The root must be an object.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parsing JSON: unexpected data after top-level value")
	}

	root := fromValue(v)
	if root.Kind != KindObject {
		return nil, fmt.Errorf("JSON root must be an object, got %s", describe(v))
	}
	return root, nil
}

func fromValue(v any) *Node {
	switch val := v.(type) {
	case map[string]any:
		n := NewObject()
		for k, child := range val {
			n.Fields[k] = fromValue(child)
		}
		return n
	case string:
		return NewString(val)
	default:
		raw, _ := json.Marshal(val)
		return &Node{Kind: KindOther, raw: raw}
	}
}

func describe(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal produces the canonical serialization of a tree: keys sorted,
// two-space indentation, no HTML escaping and a trailing newline. Identical
// trees always produce identical bytes.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toValue(n)); err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// toValue converts the tree back into encoding/json values. Maps are
// encoded with sorted keys.
func toValue(n *Node) any {
	if n == nil {
		return map[string]any{}
	}
	switch n.Kind {
	case KindString:
		return n.Str
	case KindOther:
		if len(n.raw) == 0 {
			return nil
		}
		return n.raw
	}
	m := make(map[string]any, len(n.Fields))
	for k, child := range n.Fields {
		m[k] = toValue(child)
	}
	return m
}
