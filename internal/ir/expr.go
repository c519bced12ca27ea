package ir

import (
	"strings"

	"solvent/internal/astjson"
)

// ExprString renders an expression node back into compact source-like text.
// It is used for conditional terminators ("if i < n then goto ...") and for
// call argument rendering; it is not a pretty-printer for arbitrary Solidity.
func ExprString(node astjson.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "Identifier":
		return node.Str("name")
	case "Literal":
		if v := node.Str("value"); v != "" {
			return v
		}
		return node.Str("hexValue")
	case "MemberAccess":
		return ExprString(node.Get("expression")) + "." + node.Str("memberName")
	case "IndexAccess":
		return ExprString(node.Get("baseExpression")) + "[" + ExprString(node.Get("indexExpression")) + "]"
	case "BinaryOperation":
		return ExprString(node.Get("leftExpression")) + " " + node.Str("operator") + " " + ExprString(node.Get("rightExpression"))
	case "UnaryOperation":
		if node.Bool("prefix") {
			return node.Str("operator") + ExprString(node.Get("subExpression"))
		}
		return ExprString(node.Get("subExpression")) + node.Str("operator")
	case "TupleExpression":
		parts := make([]string, 0)
		for _, c := range node.List("components") {
			parts = append(parts, ExprString(c))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case "FunctionCall":
		args := make([]string, 0)
		for _, a := range node.List("arguments") {
			args = append(args, ExprString(a))
		}
		return ExprString(node.Get("expression")) + "(" + strings.Join(args, ", ") + ")"
	case "FunctionCallOptions":
		return ExprString(node.Get("expression"))
	case "ElementaryTypeNameExpression":
		if tn := node.Get("typeName"); tn != nil {
			return tn.Str("name")
		}
		return node.Str("typeName")
	case "Assignment":
		return ExprString(node.Get("leftHandSide")) + " " + node.Str("operator") + " " + ExprString(node.Get("rightHandSide"))
	}
	return ""
}

// StructuredName canonicalizes a left-hand-side or read expression into the
// flat structured-variable form used as an SSA key: balances[msg.sender],
// allowance[owner][spender], owner.addr. Returns "" for shapes that do not
// reduce to a variable.
func StructuredName(node astjson.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "Identifier":
		return node.Str("name")
	case "MemberAccess":
		base := StructuredName(node.Get("expression"))
		member := node.Str("memberName")
		if base == "" || member == "" {
			return ""
		}
		return base + "." + member
	case "IndexAccess":
		base := StructuredName(node.Get("baseExpression"))
		index := indexKey(node.Get("indexExpression"))
		if base == "" || index == "" {
			return ""
		}
		return base + "[" + index + "]"
	}
	return ""
}

// indexKey renders an index expression for use inside a structured name.
// Only identifier, literal and member-access indices yield stable keys;
// anything more dynamic collapses to "" and the access is tracked through
// the base name alone.
func indexKey(node astjson.Node) string {
	switch node.Type() {
	case "Identifier":
		return node.Str("name")
	case "Literal":
		return node.Str("value")
	case "MemberAccess":
		return StructuredName(node)
	}
	return ""
}

// structuredPrefixes expands a structured name into every coarsened prefix
// that must also be recorded: allowance[owner][spender] yields allowance and
// allowance[owner] in addition to itself.
func structuredPrefixes(name string) []string {
	var prefixes []string
	if base := BaseName(name); base != name {
		prefixes = append(prefixes, base)
	}
	// Each closing bracket short of the last one ends a recordable prefix.
	depth := 0
	for i, r := range name {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 && i < len(name)-1 {
				prefixes = append(prefixes, name[:i+1])
			}
		}
	}
	return prefixes
}
