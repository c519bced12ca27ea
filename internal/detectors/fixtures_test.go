package detectors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"solvent/internal/astjson"
	"solvent/internal/ir"
	"solvent/internal/parser"
)

// Fixture builders assemble solc-shaped AST documents, round-trip them
// through JSON, and run the full parse pipeline, so detector tests exercise
// exactly what production sees.

func n(kind string, fields map[string]any) map[string]any {
	out := map[string]any{"nodeType": kind, "src": "0:0:0"}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func ident(name string) map[string]any { return n("Identifier", map[string]any{"name": name}) }
func lit(v string) map[string]any      { return n("Literal", map[string]any{"value": v}) }

func member(base map[string]any, name string) map[string]any {
	return n("MemberAccess", map[string]any{"expression": base, "memberName": name})
}

func msgSender() map[string]any { return member(ident("msg"), "sender") }

func indexAccess(base, idx map[string]any) map[string]any {
	return n("IndexAccess", map[string]any{"baseExpression": base, "indexExpression": idx})
}

func binop(l map[string]any, op string, r map[string]any) map[string]any {
	return n("BinaryOperation", map[string]any{"leftExpression": l, "operator": op, "rightExpression": r})
}

func assign(lhs map[string]any, op string, rhs map[string]any) map[string]any {
	return n("ExpressionStatement", map[string]any{
		"expression": n("Assignment", map[string]any{"leftHandSide": lhs, "operator": op, "rightHandSide": rhs}),
	})
}

func call(callee map[string]any, args ...map[string]any) map[string]any {
	list := make([]any, len(args))
	for i, a := range args {
		list[i] = a
	}
	return n("FunctionCall", map[string]any{"expression": callee, "arguments": list})
}

func callStmt(callee map[string]any, args ...map[string]any) map[string]any {
	return n("ExpressionStatement", map[string]any{"expression": call(callee, args...)})
}

func callOptions(callee map[string]any) map[string]any {
	return n("FunctionCallOptions", map[string]any{"expression": callee, "options": []any{}})
}

func block(stmts ...any) map[string]any {
	return n("Block", map[string]any{"statements": stmts})
}

func varDecl(name, typ string, init map[string]any) map[string]any {
	fields := map[string]any{
		"declarations": []any{n("VariableDeclaration", map[string]any{
			"name":     name,
			"typeName": n("ElementaryTypeName", map[string]any{"name": typ}),
		})},
	}
	if init != nil {
		fields["initialValue"] = init
	}
	return n("VariableDeclarationStatement", fields)
}

func ifStmt(cond map[string]any, trueStmts []any) map[string]any {
	return n("IfStatement", map[string]any{"condition": cond, "trueBody": block(trueStmts...)})
}

func forStmt(init, cond, loopExpr map[string]any, body ...any) map[string]any {
	fields := map[string]any{"body": block(body...)}
	if init != nil {
		fields["initializationExpression"] = init
	}
	if cond != nil {
		fields["condition"] = cond
	}
	if loopExpr != nil {
		fields["loopExpression"] = loopExpr
	}
	return n("ForStatement", fields)
}

func increment(name string) map[string]any {
	return n("ExpressionStatement", map[string]any{
		"expression": n("UnaryOperation", map[string]any{
			"operator": "++", "prefix": false, "subExpression": ident(name),
		}),
	})
}

func stateVar(name, typ string) map[string]any {
	return n("VariableDeclaration", map[string]any{
		"name":          name,
		"stateVariable": true,
		"typeName":      n("ElementaryTypeName", map[string]any{"name": typ}),
	})
}

func param(name, typ string) map[string]any {
	return n("VariableDeclaration", map[string]any{
		"name":     name,
		"typeName": n("ElementaryTypeName", map[string]any{"name": typ}),
	})
}

func function(name, visibility string, params []map[string]any, body ...any) map[string]any {
	list := make([]any, len(params))
	for i, p := range params {
		list[i] = p
	}
	return n("FunctionDefinition", map[string]any{
		"name":       name,
		"visibility": visibility,
		"parameters": n("ParameterList", map[string]any{"parameters": list}),
		"body":       block(body...),
	})
}

func contractDoc(name string, items ...map[string]any) map[string]any {
	list := make([]any, 0, len(items)+1)
	for _, item := range items {
		list = append(list, item)
	}
	return map[string]any{
		"nodeType": "SourceUnit",
		"nodes": []any{
			n("PragmaDirective", map[string]any{"literals": []any{"solidity", "^", "0.8", ".13"}}),
			n("ContractDefinition", map[string]any{"name": name, "nodes": list}),
		},
	}
}

// parseFixture round-trips the document through JSON and runs the parser.
func parseFixture(t *testing.T, doc map[string]any) *ir.Contract {
	t.Helper()

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	decoded, err := astjson.Decode(data)
	require.NoError(t, err)

	contracts, err := parser.NewParser("contract fixture {}\n").Parse(decoded)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	return contracts[0]
}
