package ir

import (
	"strings"

	"solvent/internal/astjson"
)

// lowLevelMembers are the address members that perform raw external calls.
var lowLevelMembers = map[string]bool{
	"call":     true,
	"send":     true,
	"transfer": true,
}

// ClassifyCall determines the kind and callee name of a FunctionCall
// expression. registry holds the names of same-contract functions; anything
// not found there is conservatively external.
func ClassifyCall(expr astjson.Node, registry map[string]astjson.Node) (CallKind, string) {
	callee := expr.Get("expression")

	// .call{value: x}("") wraps the member access in FunctionCallOptions.
	if callee.Type() == "FunctionCallOptions" {
		callee = callee.Get("expression")
	}

	switch callee.Type() {
	case "Identifier":
		name := callee.Str("name")
		if revertShaped[name] {
			return CallRevert, name
		}
		if _, ok := registry[name]; ok {
			return CallInternal, name
		}
		return CallExternal, name

	case "MemberAccess":
		member := callee.Str("memberName")
		target := ExprString(callee)
		switch {
		case lowLevelMembers[member]:
			return CallLowLevelExternal, target
		case member == "delegatecall":
			return CallDelegatecall, target
		case member == "staticcall":
			return CallStaticcall, target
		}

		base := callee.Get("expression")
		if base.Type() == "FunctionCall" {
			// Iface(x).m(): a cast to a contract or interface type.
			return CallExternal, target
		}
		if ts := strings.ToLower(base.TypeString()); strings.Contains(ts, "contract") || strings.Contains(ts, "interface") {
			return CallExternal, target
		}
		return CallExternal, target
	}

	return CallExternal, ExprString(callee)
}

// CalleeBaseName reduces a classified callee like IA(a).hello or
// msg.sender.call to its trailing member name.
func CalleeBaseName(callee string) string {
	if i := strings.LastIndex(callee, "."); i >= 0 {
		return callee[i+1:]
	}
	return callee
}
