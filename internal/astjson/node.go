// Package astjson wraps the solc AST JSON surface consumed by the analyzer.
//
// The compiler emits deeply nested untyped JSON; Node gives the rest of the
// analyzer a uniform accessor layer over it without committing to a struct
// per node kind. Only the closed node surface described in the analyzer's
// external interface is ever inspected.
package astjson

import (
	"encoding/json"
	"strconv"
	"strings"

	"solvent/internal/errors"
)

// Node is a single AST node. A nil Node is a valid "absent" node: all
// accessors return zero values on it, which keeps traversal code free of
// presence checks at every step.
type Node map[string]any

// Decode parses a raw solc AST document. The document may either be the AST
// object itself or a build artifact with an "ast" wrapper, as forge emits.
func Decode(data []byte) (Node, error) {
	var doc Node
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Malformed("decoding AST document: %v", err)
	}
	if inner := doc.Get("ast"); inner != nil {
		return inner, nil
	}
	return doc, nil
}

// Type returns the node's "nodeType" tag, or "" if absent.
func (n Node) Type() string {
	return n.Str("nodeType")
}

// Str returns the string field under key, or "".
func (n Node) Str(key string) string {
	if n == nil {
		return ""
	}
	if s, ok := n[key].(string); ok {
		return s
	}
	return ""
}

// Bool returns the boolean field under key, or false.
func (n Node) Bool(key string) bool {
	if n == nil {
		return false
	}
	if b, ok := n[key].(bool); ok {
		return b
	}
	return false
}

// Get returns the child object under key, or nil.
func (n Node) Get(key string) Node {
	if n == nil {
		return nil
	}
	if m, ok := n[key].(map[string]any); ok {
		return Node(m)
	}
	return nil
}

// List returns the child array of objects under key. Non-object entries
// (solc uses JSON null for elided tuple slots) become nil Nodes.
func (n Node) List(key string) []Node {
	if n == nil {
		return nil
	}
	raw, ok := n[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Node(m))
		} else {
			out = append(out, nil)
		}
	}
	return out
}

// Strings returns the child array under key as strings, skipping any
// non-string entries.
func (n Node) Strings(key string) []string {
	if n == nil {
		return nil
	}
	raw, ok := n[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// SrcOffset decodes the byte offset from the node's "offset:length:fileIndex"
// source tag. Returns -1 when the tag is missing or malformed.
func (n Node) SrcOffset() int {
	src := n.Str("src")
	if src == "" {
		return -1
	}
	head, _, _ := strings.Cut(src, ":")
	offset, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return offset
}

// TypeString returns the solc type description of an expression node, or "".
func (n Node) TypeString() string {
	return n.Get("typeDescriptions").Str("typeString")
}
