package ir

import "solvent/internal/astjson"

// revertShaped names the builtins that look like calls in the AST but are
// really control flow: they terminate execution of the current frame.
var revertShaped = map[string]bool{
	"revert":  true,
	"require": true,
	"assert":  true,
}

// ClassifyStatement maps one AST statement node onto the closed statement
// kind set. Block nodes are not flattened here; control-flow refinement
// expands them.
func ClassifyStatement(node astjson.Node) StatementKind {
	switch node.Type() {
	case "ExpressionStatement":
		expr := node.Get("expression")
		switch expr.Type() {
		case "Assignment":
			return StmtAssignment
		case "FunctionCall":
			if isRevertCall(expr) {
				return StmtRevert
			}
			return StmtFunctionCall
		}
		return StmtExpression
	case "EmitStatement":
		return StmtEmit
	case "IfStatement":
		return StmtIf
	case "Return", "ReturnStatement":
		return StmtReturn
	case "VariableDeclarationStatement":
		return StmtVarDecl
	case "ForStatement":
		return StmtForLoop
	case "WhileStatement":
		return StmtWhileLoop
	case "RevertStatement":
		return StmtRevert
	case "Block":
		return StmtBlock
	}
	return StmtUnknown
}

// ClassifyStatements classifies a raw statement list from a function body.
func ClassifyStatements(nodes []astjson.Node) []Statement {
	out := make([]Statement, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, Statement{Kind: ClassifyStatement(node), Node: node})
	}
	return out
}

// isRevertCall reports whether a FunctionCall expression is a revert/require/
// assert builtin rather than a real call.
func isRevertCall(expr astjson.Node) bool {
	callee := expr.Get("expression")
	return callee.Type() == "Identifier" && revertShaped[callee.Str("name")]
}

// IsSupportedStatement reports whether the node kind is inside the closed
// statement surface. Anything else (inline assembly, try/catch, ...) makes
// the enclosing function unsupported.
func IsSupportedStatement(node astjson.Node) bool {
	switch node.Type() {
	case "ExpressionStatement", "EmitStatement", "IfStatement",
		"Return", "ReturnStatement", "VariableDeclarationStatement",
		"ForStatement", "WhileStatement", "RevertStatement", "Block":
		return true
	}
	return false
}
