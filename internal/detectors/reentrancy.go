package detectors

import (
	"fmt"
	"strings"

	"solvent/internal/ir"
)

// ReentrancyDetector flags entrypoints where an external-kind call is
// followed, in IR order, by a write to a declared state variable. The
// external call may re-enter the contract and observe or manipulate the
// stale state before the write lands.
type ReentrancyDetector struct{}

func NewReentrancyDetector() *ReentrancyDetector { return &ReentrancyDetector{} }

func (d *ReentrancyDetector) Name() string { return "reentrancy" }

func (d *ReentrancyDetector) Detect(contract *ir.Contract) []Finding {
	var findings []Finding
	for _, fn := range contract.Entrypoints {
		if fn.Err != nil {
			continue
		}
		if finding, found := d.checkFunction(contract, fn); found {
			findings = append(findings, finding)
		}
	}
	return findings
}

// checkFunction walks the linearized block list. Ordering across blocks is
// block index; within a block it is SSA statement order. Revert-shaped
// calls never arm the detector.
func (d *ReentrancyDetector) checkFunction(contract *ir.Contract, fn *ir.Function) (Finding, bool) {
	armedBy := ""
	for _, block := range fn.Blocks {
		for _, stmt := range block.SSAStatements {
			if armedBy != "" {
				if target, ok := stateWrite(contract, stmt); ok {
					return Finding{
						Contract: contract.Name,
						Function: fn.Name,
						Severity: SeverityHigh,
						Description: fmt.Sprintf(
							"external call %s precedes state variable write to %s", armedBy, target),
					}, true
				}
			}
			if call := externalCall(stmt); call != "" {
				armedBy = call
			}
		}
	}
	return Finding{}, false
}

// externalCall returns the callee of an external-kind SSA call statement,
// or "" when the statement is no such call.
func externalCall(stmt string) string {
	for _, kind := range []ir.CallKind{ir.CallExternal, ir.CallLowLevelExternal, ir.CallDelegatecall, ir.CallStaticcall} {
		marker := "call[" + string(kind) + "]("
		if _, rest, found := strings.Cut(stmt, marker); found {
			// The callee ends at the first top-level ',' or ')'; parentheses
			// inside it (IA(a).hello) are skipped.
			callee := rest
			depth := 0
		scan:
			for i, r := range callee {
				switch {
				case r == '(':
					depth++
				case r == ')' && depth > 0:
					depth--
				case r == ',' && depth == 0, r == ')':
					callee = callee[:i]
					break scan
				}
			}
			return strings.TrimSpace(callee)
		}
	}
	return ""
}

// stateWrite reports whether the SSA statement writes a declared state
// variable, identified by the structured name's base.
func stateWrite(contract *ir.Contract, stmt string) (string, bool) {
	lhs, _, found := strings.Cut(stmt, " = ")
	if !found || strings.Contains(stmt, "= phi(") {
		return "", false
	}
	name := strings.TrimSpace(lhs)
	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[:i]
	}
	if name == "" || !contract.IsStateVar(name) {
		return "", false
	}
	return name, true
}
