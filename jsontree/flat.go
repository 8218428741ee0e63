package jsontree

import (
	"fmt"
	"sort"
	"strings"
)

// Separator joins object keys into a dotted path.
const Separator = "."

// FlatMap maps dotted paths to string leaves.
type FlatMap map[string]string

// Keys returns the paths in lexicographic order.
func (m FlatMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UniqueValues returns the distinct leaf strings, sorted. Comparison is
// exact: no trimming or case folding.
func (m FlatMap) UniqueValues() []string {
	seen := make(map[string]struct{}, len(m))
	values := make([]string, 0, len(m))
	for _, v := range m {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// ---------------------------------------------------------------------------
// Flatten
// ---------------------------------------------------------------------------

// Flatten walks the tree and returns every string leaf keyed by its dotted
// path. Non-string leaves are skipped. Children are visited in sorted key
// order, so if two paths collapse onto the same dotted key (a key that
// itself contains a dot) the one visited last wins.
func Flatten(root *Node) FlatMap {
	m := make(FlatMap)
	if root == nil || root.Kind != KindObject {
		return m
	}
	flattenInto(root, "", true, m)
	return m
}

func flattenInto(node *Node, prefix string, top bool, m FlatMap) {
	for _, key := range node.SortedKeys() {
		path := key
		if !top {
			path = prefix + Separator + key
		}

		child := node.Fields[key]
		switch child.Kind {
		case KindObject:
			flattenInto(child, path, false, m)
		case KindString:
			m[path] = child.Str
		case KindOther:
			// Not translatable.
		}
	}
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

// ConflictError reports a dotted key that cannot be placed because one of
// its ancestors (or the key itself) is already bound to a different kind of
// node.
type ConflictError struct {
	// Key is the flat key being inserted.
	Key string
	// Prefix is the path of the node that is already bound.
	Prefix string
	// Existing is the kind already bound at Prefix.
	Existing Kind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("key %q conflicts with existing %s at %q", e.Key, e.Existing, e.Prefix)
}

// Build is the inverse of Flatten. Keys are inserted in sorted order and the
// first binding of a path wins: a later key that would turn a string leaf
// into an object (or an object into a leaf) fails with *ConflictError.
func Build(m FlatMap) (*Node, error) {
	root := NewObject()
	for _, key := range m.Keys() {
		if err := insert(root, key, m[key]); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func insert(root *Node, key, value string) error {
	parts := strings.Split(key, Separator)
	current := root
	for i, part := range parts[:len(parts)-1] {
		child, ok := current.Fields[part]
		if !ok {
			child = NewObject()
			current.Fields[part] = child
		} else if child.Kind != KindObject {
			return &ConflictError{
				Key:      key,
				Prefix:   strings.Join(parts[:i+1], Separator),
				Existing: child.Kind,
			}
		}
		current = child
	}

	last := parts[len(parts)-1]
	if existing, ok := current.Fields[last]; ok && existing.Kind == KindObject {
		return &ConflictError{Key: key, Prefix: key, Existing: KindObject}
	}
	current.Fields[last] = NewString(value)
	return nil
}
