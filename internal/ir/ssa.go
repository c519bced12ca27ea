package ir

import (
	"fmt"
	"strings"

	"solvent/internal/astjson"
)

// witnessOrder is the preference order for the single read shown on the
// right-hand side of compound arithmetic. Parameter-like names keep
// statements such as "balances[to]_1 = balances[to]_0 + amount_0" readable
// instead of dumping every over-approximated read.
var witnessOrder = []string{"amount", "value", "recipient", "spender", "sender", "from", "to"}

// ssaState threads the per-function version counters through the blocks.
type ssaState struct {
	counters map[string]int
	current  map[string]int
	registry map[string]astjson.Node
}

// AssignSSAVersions walks blocks in construction order assigning
// monotonically increasing versions to writes, threading the current version
// through reads, and emitting the textual SSA statement per source
// statement. registry names the same-contract functions for call
// classification.
func AssignSSAVersions(blocks []*BasicBlock, registry map[string]astjson.Node) {
	state := &ssaState{
		counters: map[string]int{},
		current:  map[string]int{},
		registry: registry,
	}

	for _, block := range blocks {
		if block.Accesses == nil {
			block.Accesses = NewAccessSet()
		}
		versions := NewVersions()

		for _, name := range block.Accesses.ReadList() {
			versions.Reads[name] = state.current[name]
		}
		for _, name := range block.Accesses.WriteList() {
			state.counters[name]++
			versions.Writes[name] = state.counters[name]
			state.current[name] = state.counters[name]

			// A variable written and then tested in an if condition inside
			// the same block must be read at its new version.
			if _, read := versions.Reads[name]; read && findKind(block, StmtIf) >= 0 {
				versions.Reads[name] = state.counters[name]
			}
		}
		block.SSAVersions = versions

		block.SSAStatements = block.SSAStatements[:0]
		for _, stmt := range block.Statements {
			state.emit(block, stmt)
		}
	}
}

// emit appends the SSA form of one source statement to the block.
func (s *ssaState) emit(block *BasicBlock, stmt Statement) {
	node := stmt.Node
	switch stmt.Kind {
	case StmtAssignment:
		s.emitAssignment(block, node.Get("expression"))

	case StmtVarDecl:
		s.emitVarDecl(block, node)

	case StmtIf:
		cond := s.rewriteExpr(node.Get("condition"), block.SSAVersions.Reads)
		s.append(block, "if ("+cond+")")

	case StmtFunctionCall:
		s.emitCall(block, node.Get("expression"))

	case StmtEmit:
		s.emitEvent(block, node.Get("eventCall"))

	case StmtRevert:
		s.append(block, revertText(node))

	case StmtReturn:
		s.emitReturn(block, node.Get("expression"))

	case StmtExpression:
		expr := node.Get("expression")
		switch expr.Type() {
		case "UnaryOperation":
			s.emitUnary(block, expr)
		case "Assignment":
			s.emitAssignment(block, expr)
		default:
			if block.IsLoopHeader {
				s.append(block, "if ("+s.rewriteExpr(expr, block.SSAVersions.Reads)+")")
			}
		}
	}
}

func (s *ssaState) append(block *BasicBlock, stmt string) {
	block.SSAStatements = append(block.SSAStatements, stmt)
}

// emitAssignment handles both simple and compound assignment expressions.
func (s *ssaState) emitAssignment(block *BasicBlock, expr astjson.Node) {
	if expr == nil || expr.Type() != "Assignment" {
		return
	}
	lhs := expr.Get("leftHandSide")
	rhs := expr.Get("rightHandSide")
	operator := expr.Str("operator")

	target := StructuredName(lhs)
	if target == "" {
		return
	}
	writeVersion := block.SSAVersions.Writes[target]

	if operator == "=" || operator == "" {
		s.append(block, fmt.Sprintf("%s_%d = %s",
			target, writeVersion, s.rewriteExpr(rhs, block.SSAVersions.Reads)))
		return
	}

	// Compound form: v_k = v_{k-1} op <witness>, with k-1 clamped at 0 on
	// the first write.
	prev := writeVersion - 1
	if prev < 0 {
		prev = 0
	}
	op := operator[:1]
	s.append(block, fmt.Sprintf("%s_%d = %s_%d %s %s",
		target, writeVersion, target, prev, op,
		s.compoundWitness(rhs, block.SSAVersions.Reads)))
}

// compoundWitness picks the right-hand-side rendering for compound
// arithmetic: a literal stays as-is, a parameter-like read is preferred as a
// single witness, and otherwise every read appears in deterministic order.
func (s *ssaState) compoundWitness(rhs astjson.Node, readsV map[string]int) string {
	if rhs.Type() == "Literal" {
		return rhs.Str("value")
	}
	if rhs.Type() == "Identifier" {
		name := rhs.Str("name")
		return fmt.Sprintf("%s_%d", name, readsV[name])
	}

	reads := map[string]bool{}
	extractReads(rhs, reads)
	for _, preferred := range witnessOrder {
		if reads[preferred] {
			return fmt.Sprintf("%s_%d", preferred, readsV[preferred])
		}
	}

	parts := make([]string, 0, len(reads))
	for _, name := range sortedKeys(reads) {
		if !isVariableName(name) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s_%d", name, readsV[name]))
	}
	return strings.Join(parts, " ")
}

// emitVarDecl treats a declaration as the first write of the declared name.
func (s *ssaState) emitVarDecl(block *BasicBlock, node astjson.Node) {
	init := node.Get("initialValue")
	for _, decl := range node.List("declarations") {
		if decl.Type() != "VariableDeclaration" {
			continue
		}
		name := decl.Str("name")
		if name == "" {
			continue
		}
		version := block.SSAVersions.Writes[name]
		if init != nil {
			s.append(block, fmt.Sprintf("%s_%d = %s",
				name, version, s.rewriteExpr(init, block.SSAVersions.Reads)))
		} else {
			s.append(block, fmt.Sprintf("%s_%d = %s_0", name, version, name))
		}
	}
}

// emitUnary renders ++/-- as an explicit add or subtract of one.
func (s *ssaState) emitUnary(block *BasicBlock, expr astjson.Node) {
	op := expr.Str("operator")
	if op != "++" && op != "--" {
		return
	}
	name := StructuredName(expr.Get("subExpression"))
	if name == "" {
		return
	}
	writeVersion := block.SSAVersions.Writes[name]
	prev := writeVersion - 1
	if prev < 0 {
		prev = 0
	}
	arith := "+"
	if op == "--" {
		arith = "-"
	}
	s.append(block, fmt.Sprintf("%s_%d = %s_%d %s 1", name, writeVersion, name, prev, arith))
}

// emitCall renders a call statement, classifying its kind against the
// same-contract registry. Revert-shaped builtins are reclassified as revert
// statements and never become calls.
func (s *ssaState) emitCall(block *BasicBlock, expr astjson.Node) {
	if expr == nil || expr.Type() != "FunctionCall" {
		return
	}
	kind, callee := ClassifyCall(expr, s.registry)
	if kind == CallRevert {
		s.append(block, revertCallText(expr))
		return
	}

	s.counters["ret"]++
	retVersion := s.counters["ret"]
	s.current["ret"] = retVersion
	block.SSAVersions.Writes["ret"] = retVersion

	parts := []string{callee}
	for _, arg := range expr.List("arguments") {
		if rendered := s.rewriteExpr(arg, block.SSAVersions.Reads); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	s.append(block, fmt.Sprintf("ret_%d = call[%s](%s)", retVersion, kind, strings.Join(parts, ", ")))
}

// emitEvent renders emit statements with comma-joined, versioned arguments.
func (s *ssaState) emitEvent(block *BasicBlock, eventCall astjson.Node) {
	if eventCall == nil || eventCall.Type() != "FunctionCall" {
		return
	}
	eventName := eventCall.Get("expression").Str("name")
	if eventName == "" {
		eventName = ExprString(eventCall.Get("expression"))
	}

	args := make([]string, 0)
	for _, arg := range eventCall.List("arguments") {
		if isAddressLiteralCast(arg) {
			args = append(args, "address(0)_0")
			continue
		}
		args = append(args, s.rewriteExpr(arg, block.SSAVersions.Reads))
	}
	s.append(block, fmt.Sprintf("emit %s(%s)", eventName, strings.Join(args, ", ")))
}

func (s *ssaState) emitReturn(block *BasicBlock, expr astjson.Node) {
	if expr == nil {
		s.append(block, "return")
		return
	}
	s.append(block, "return "+s.rewriteExpr(expr, block.SSAVersions.Reads))
}

// rewriteExpr renders an expression with every variable annotated by its
// read version in this block.
func (s *ssaState) rewriteExpr(node astjson.Node, readsV map[string]int) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "Literal":
		return node.Str("value")

	case "Identifier":
		name := node.Str("name")
		return fmt.Sprintf("%s_%d", name, readsV[name])

	case "MemberAccess", "IndexAccess":
		if name := StructuredName(node); name != "" {
			return fmt.Sprintf("%s_%d", name, readsV[name])
		}
		return ExprString(node)

	case "BinaryOperation":
		return s.rewriteExpr(node.Get("leftExpression"), readsV) + " " +
			node.Str("operator") + " " +
			s.rewriteExpr(node.Get("rightExpression"), readsV)

	case "UnaryOperation":
		if node.Bool("prefix") {
			return node.Str("operator") + s.rewriteExpr(node.Get("subExpression"), readsV)
		}
		return s.rewriteExpr(node.Get("subExpression"), readsV) + node.Str("operator")

	case "TupleExpression":
		parts := make([]string, 0)
		for _, c := range node.List("components") {
			parts = append(parts, s.rewriteExpr(c, readsV))
		}
		return "(" + strings.Join(parts, ", ") + ")"

	case "FunctionCall":
		if isAddressLiteralCast(node) {
			return "address(0)_0"
		}
		reads := map[string]bool{}
		extractReads(node, reads)
		parts := make([]string, 0, len(reads))
		for _, name := range sortedKeys(reads) {
			if !isVariableName(name) {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s_%d", name, readsV[name]))
		}
		return strings.Join(parts, " ")
	}
	return ExprString(node)
}

// revertText renders a classified revert statement, extracting the string
// message when one is present.
func revertText(node astjson.Node) string {
	expr := node.Get("expression")
	if expr == nil {
		// RevertStatement wraps its call under "errorCall".
		expr = node.Get("errorCall")
	}
	if expr == nil {
		return "revert"
	}
	return revertCallText(expr)
}

// revertCallText renders the revert/require/assert call shape. For require
// and assert the message is the second argument; for revert it is the first.
func revertCallText(expr astjson.Node) string {
	callee := expr.Get("expression").Str("name")
	args := expr.List("arguments")

	var message astjson.Node
	switch callee {
	case "require", "assert":
		if len(args) > 1 {
			message = args[1]
		}
	default:
		if len(args) > 0 {
			message = args[0]
		}
	}
	if message != nil && message.Type() == "Literal" {
		if v := message.Str("value"); v != "" {
			return "revert " + v
		}
	}
	return "revert"
}
