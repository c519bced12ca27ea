package ir

import (
	"strings"

	"solvent/internal/astjson"
)

// TrackAccesses records, per block, the set of variable names read and
// written. Structured names are recorded alongside their coarsened prefixes,
// so a write to allowance[owner][spender] also writes allowance[owner] and
// allowance.
func TrackAccesses(blocks []*BasicBlock) {
	for _, block := range blocks {
		if block.Accesses == nil {
			block.Accesses = NewAccessSet()
		}
		for _, stmt := range block.Statements {
			trackStatement(block.Accesses, stmt)
		}
		filterAccessSet(block.Accesses)
	}
}

func trackStatement(acc *AccessSet, stmt Statement) {
	node := stmt.Node
	switch stmt.Kind {
	case StmtAssignment:
		trackAssignment(acc, node.Get("expression"))

	case StmtFunctionCall:
		expr := node.Get("expression")
		for _, arg := range expr.List("arguments") {
			extractReads(arg, acc.Reads)
		}
		// A method receiver is itself read: ext.call(...) reads ext.
		if callee := expr.Get("expression"); callee.Type() == "MemberAccess" {
			extractReads(callee.Get("expression"), acc.Reads)
		}

	case StmtEmit:
		eventCall := node.Get("eventCall")
		for _, arg := range eventCall.List("arguments") {
			if isAddressLiteralCast(arg) {
				continue
			}
			extractReads(arg, acc.Reads)
		}

	case StmtIf:
		extractReads(node.Get("condition"), acc.Reads)

	case StmtReturn:
		extractReads(node.Get("expression"), acc.Reads)

	case StmtRevert:
		// Revert arguments are message payloads, not variable accesses the
		// versioning needs; condition reads of require() still matter.
		if expr := node.Get("expression"); expr != nil {
			if args := expr.List("arguments"); len(args) > 0 {
				extractReads(args[0], acc.Reads)
			}
		}

	case StmtVarDecl:
		for _, decl := range node.List("declarations") {
			if decl.Type() == "VariableDeclaration" {
				writeName(acc, decl.Str("name"))
			}
		}
		extractReads(node.Get("initialValue"), acc.Reads)

	case StmtForLoop:
		trackForLoop(acc, node)

	case StmtWhileLoop:
		extractReads(node.Get("condition"), acc.Reads)

	case StmtExpression:
		expr := node.Get("expression")
		switch expr.Type() {
		case "UnaryOperation":
			trackUnary(acc, expr)
		case "Assignment":
			trackAssignment(acc, expr)
		default:
			extractReads(expr, acc.Reads)
		}
	}
}

// trackAssignment records the write target (structured plus coarsened base
// names) and the right-hand-side reads. Compound assignments read their
// target as well.
func trackAssignment(acc *AccessSet, expr astjson.Node) {
	if expr == nil || expr.Type() != "Assignment" {
		return
	}
	lhs := expr.Get("leftHandSide")
	writeTarget(acc, lhs)

	if expr.Str("operator") != "=" {
		extractReads(lhs, acc.Reads)
	}
	extractReads(expr.Get("rightHandSide"), acc.Reads)
}

// writeTarget records an lvalue expression as written.
func writeTarget(acc *AccessSet, lhs astjson.Node) {
	name := StructuredName(lhs)
	if name == "" {
		// Fall back to the base identifier for targets whose index shape is
		// too dynamic for a stable structured key.
		if base := lhs.Get("baseExpression"); base != nil {
			name = StructuredName(base)
		}
	}
	if name == "" {
		return
	}
	writeName(acc, name)
	// Index expressions are read to compute the slot.
	if lhs.Type() == "IndexAccess" {
		extractReads(lhs.Get("indexExpression"), acc.Reads)
		if inner := lhs.Get("baseExpression"); inner.Type() == "IndexAccess" {
			extractReads(inner.Get("indexExpression"), acc.Reads)
		}
	}
}

func writeName(acc *AccessSet, name string) {
	if name == "" {
		return
	}
	acc.Writes[name] = true
	for _, prefix := range structuredPrefixes(name) {
		acc.Writes[prefix] = true
	}
}

// trackUnary records ++/-- operands as both read and written.
func trackUnary(acc *AccessSet, expr astjson.Node) {
	op := expr.Str("operator")
	if op != "++" && op != "--" {
		extractReads(expr, acc.Reads)
		return
	}
	name := StructuredName(expr.Get("subExpression"))
	if name == "" {
		return
	}
	acc.Reads[name] = true
	writeName(acc, name)
}

// trackForLoop records accesses of a ForStatement kept whole inside a block
// (before control-flow refinement splits it): induction writes in the
// initializer and increment, condition reads, and ++/-- in the body.
func trackForLoop(acc *AccessSet, node astjson.Node) {
	if init := node.Get("initializationExpression"); init != nil {
		trackStatement(acc, Statement{Kind: ClassifyStatement(init), Node: init})
	}
	extractReads(node.Get("condition"), acc.Reads)
	if loopExpr := node.Get("loopExpression"); loopExpr != nil {
		trackStatement(acc, Statement{Kind: ClassifyStatement(loopExpr), Node: loopExpr})
	}
	for _, stmt := range branchStatements(node.Get("body")) {
		trackStatement(acc, stmt)
	}
}

// extractReads walks an expression recording every variable it reads, in
// both structured and base form.
func extractReads(node astjson.Node, reads map[string]bool) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "Identifier":
		if name := node.Str("name"); name != "" {
			reads[name] = true
		}

	case "BinaryOperation":
		extractReads(node.Get("leftExpression"), reads)
		extractReads(node.Get("rightExpression"), reads)

	case "UnaryOperation":
		extractReads(node.Get("subExpression"), reads)

	case "TupleExpression":
		for _, c := range node.List("components") {
			extractReads(c, reads)
		}

	case "MemberAccess":
		if name := StructuredName(node); name != "" {
			reads[name] = true
			if base := BaseName(name); base != name {
				reads[base] = true
			}
			return
		}
		extractReads(node.Get("expression"), reads)

	case "IndexAccess":
		if name := StructuredName(node); name != "" {
			reads[name] = true
			for _, prefix := range structuredPrefixes(name) {
				reads[prefix] = true
			}
			// A structured index like msg.sender is itself a read.
			if idx := node.Get("indexExpression"); idx.Type() == "MemberAccess" {
				extractReads(idx, reads)
			}
		} else {
			extractReads(node.Get("baseExpression"), reads)
		}
		extractReads(node.Get("indexExpression"), reads)

	case "FunctionCall":
		for _, arg := range node.List("arguments") {
			extractReads(arg, reads)
		}
		if expr := node.Get("expression"); expr.Type() == "MemberAccess" {
			extractReads(expr.Get("expression"), reads)
		}

	case "FunctionCallOptions":
		extractReads(node.Get("expression"), reads)
		for _, opt := range node.List("options") {
			extractReads(opt, reads)
		}
	}
}

// filterAccessSet drops names that are call markers rather than variables.
func filterAccessSet(acc *AccessSet) {
	for name := range acc.Reads {
		if !isVariableName(name) {
			delete(acc.Reads, name)
		}
	}
	for name := range acc.Writes {
		if !isVariableName(name) {
			delete(acc.Writes, name)
		}
	}
}

func isVariableName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.Contains(name, "call[") &&
		!strings.Contains(name, "call(") &&
		!strings.Contains(name, ")")
}

// isAddressLiteralCast matches address(0)-shaped event arguments, which read
// nothing.
func isAddressLiteralCast(arg astjson.Node) bool {
	if arg.Type() != "FunctionCall" {
		return false
	}
	callee := arg.Get("expression")
	if callee.Str("name") == "address" {
		return true
	}
	return callee.Type() == "ElementaryTypeNameExpression"
}
