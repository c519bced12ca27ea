package ir

import (
	"strings"

	"solvent/internal/astjson"
)

// AST node constructors for tests. They mirror the solc JSON shapes the
// analyzer consumes, so pipeline tests read like the Solidity they model.

func node(kind string, fields map[string]any) map[string]any {
	n := map[string]any{"nodeType": kind}
	for k, v := range fields {
		n[k] = v
	}
	return n
}

func ident(name string) map[string]any {
	return node("Identifier", map[string]any{"name": name})
}

func lit(value string) map[string]any {
	return node("Literal", map[string]any{"value": value})
}

func member(base map[string]any, name string) map[string]any {
	return node("MemberAccess", map[string]any{"expression": base, "memberName": name})
}

func msgSender() map[string]any {
	return member(ident("msg"), "sender")
}

func index(base, idx map[string]any) map[string]any {
	return node("IndexAccess", map[string]any{"baseExpression": base, "indexExpression": idx})
}

func binop(left map[string]any, op string, right map[string]any) map[string]any {
	return node("BinaryOperation", map[string]any{
		"leftExpression": left, "operator": op, "rightExpression": right,
	})
}

func assign(lhs map[string]any, op string, rhs map[string]any) map[string]any {
	return node("ExpressionStatement", map[string]any{
		"expression": node("Assignment", map[string]any{
			"leftHandSide": lhs, "operator": op, "rightHandSide": rhs,
		}),
	})
}

func callStmt(callee map[string]any, args ...map[string]any) map[string]any {
	return node("ExpressionStatement", map[string]any{
		"expression": call(callee, args...),
	})
}

func call(callee map[string]any, args ...map[string]any) map[string]any {
	argList := make([]any, len(args))
	for i, a := range args {
		argList[i] = a
	}
	return node("FunctionCall", map[string]any{
		"expression": callee, "arguments": argList,
	})
}

func callOptions(callee map[string]any, options ...map[string]any) map[string]any {
	optList := make([]any, len(options))
	for i, o := range options {
		optList[i] = o
	}
	return node("FunctionCallOptions", map[string]any{
		"expression": callee, "options": optList,
	})
}

func varDecl(name, typ string, init map[string]any) map[string]any {
	fields := map[string]any{
		"declarations": []any{node("VariableDeclaration", map[string]any{
			"name":     name,
			"typeName": node("ElementaryTypeName", map[string]any{"name": typ}),
		})},
	}
	if init != nil {
		fields["initialValue"] = init
	}
	return node("VariableDeclarationStatement", fields)
}

func ifStmt(condition map[string]any, trueStmts []any, falseStmts []any) map[string]any {
	fields := map[string]any{
		"condition": condition,
		"trueBody":  block(trueStmts...),
	}
	if falseStmts != nil {
		fields["falseBody"] = block(falseStmts...)
	}
	return node("IfStatement", fields)
}

func block(stmts ...any) map[string]any {
	return node("Block", map[string]any{"statements": stmts})
}

func forStmt(init, condition, loopExpr map[string]any, bodyStmts ...any) map[string]any {
	fields := map[string]any{"body": block(bodyStmts...)}
	if init != nil {
		fields["initializationExpression"] = init
	}
	if condition != nil {
		fields["condition"] = condition
	}
	if loopExpr != nil {
		fields["loopExpression"] = loopExpr
	}
	return node("ForStatement", fields)
}

func whileStmt(condition map[string]any, bodyStmts ...any) map[string]any {
	return node("WhileStatement", map[string]any{
		"condition": condition, "body": block(bodyStmts...),
	})
}

func returnStmt(expr map[string]any) map[string]any {
	fields := map[string]any{}
	if expr != nil {
		fields["expression"] = expr
	}
	return node("Return", fields)
}

func emitStmt(event string, args ...map[string]any) map[string]any {
	return node("EmitStatement", map[string]any{
		"eventCall": call(ident(event), args...),
	})
}

func unaryStmt(op string, operand map[string]any) map[string]any {
	return node("ExpressionStatement", map[string]any{
		"expression": node("UnaryOperation", map[string]any{
			"operator": op, "prefix": false, "subExpression": operand,
		}),
	})
}

func incrementExpr(name string) map[string]any {
	return unaryStmt("++", ident(name))
}

func param(name, typ string) map[string]any {
	return node("VariableDeclaration", map[string]any{
		"name":     name,
		"typeName": node("ElementaryTypeName", map[string]any{"name": typ}),
	})
}

func funcDef(name, visibility string, params []map[string]any, stmts ...any) map[string]any {
	paramList := make([]any, len(params))
	for i, p := range params {
		paramList[i] = p
	}
	return node("FunctionDefinition", map[string]any{
		"name":       name,
		"visibility": visibility,
		"src":        "0:0:0",
		"parameters": node("ParameterList", map[string]any{"parameters": paramList}),
		"body":       block(stmts...),
	})
}

// classify wraps raw test nodes into the typed statement list the pipeline
// consumes.
func classify(stmts ...map[string]any) []Statement {
	nodes := make([]astjson.Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = astjson.Node(s)
	}
	return ClassifyStatements(nodes)
}

// buildBlocks runs the pipeline through SSA versioning for a plain function
// body with no same-contract callees.
func buildBlocks(registry map[string]astjson.Node, stmts ...map[string]any) []*BasicBlock {
	blocks := SplitIntoBasicBlocks(classify(stmts...))
	blocks = RefineControlFlow(blocks)
	TrackAccesses(blocks)
	AssignSSAVersions(blocks, registry)
	return blocks
}

func blockIDs(blocks []*BasicBlock) []string {
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}

func allSSA(blocks []*BasicBlock) []string {
	var out []string
	for _, b := range blocks {
		out = append(out, b.SSAStatements...)
	}
	return out
}

func containsStmt(stmts []string, want string) bool {
	for _, s := range stmts {
		if s == want {
			return true
		}
	}
	return false
}

func containsSub(stmts []string, sub string) bool {
	for _, s := range stmts {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
