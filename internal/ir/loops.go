package ir

import "strings"

// AnalyzeLoopCalls conservatively widens loop headers whose bodies perform
// external-kind calls: such a call may re-enter the contract and mutate any
// state variable before the next iteration, so every declared state variable
// is marked as potentially written at the header. Phi insertion then covers
// all of them.
func AnalyzeLoopCalls(blocks []*BasicBlock, stateVars []string) {
	for _, header := range blocks {
		if !header.IsLoopHeader {
			continue
		}

		var kinds []CallKind
		for _, body := range loopBodyBlocks(blocks, header) {
			for _, stmt := range body.SSAStatements {
				for _, kind := range []CallKind{CallExternal, CallLowLevelExternal, CallDelegatecall, CallStaticcall} {
					if strings.Contains(stmt, "call["+string(kind)+"]") {
						kinds = append(kinds, kind)
					}
				}
			}
		}
		if len(kinds) == 0 {
			continue
		}

		header.HasExternalCallEffects = true
		header.ExternalCallKinds = kinds
		for _, name := range stateVars {
			header.Accesses.Writes[name] = true
		}
	}
}

// loopBodyBlocks returns the blocks reachable from the header's then-branch
// by following unconditional jumps, without crossing the back edge into the
// header again. This covers both for-loop (body -> increment -> header) and
// while-loop (body -> header) shapes.
func loopBodyBlocks(blocks []*BasicBlock, header *BasicBlock) []*BasicBlock {
	byID := make(map[string]*BasicBlock, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	thenTarget, _, ok := parseConditional(header.Terminator)
	if !ok {
		return nil
	}

	var body []*BasicBlock
	seen := map[string]bool{header.ID: true}
	current := byID[thenTarget]
	for current != nil && !seen[current.ID] && !current.IsLoopExit {
		seen[current.ID] = true
		body = append(body, current)
		target, ok := parseGoto(current.Terminator)
		if !ok {
			break
		}
		current = byID[target]
	}
	return body
}

// parseGoto extracts the target of an unconditional "goto <id>" terminator.
func parseGoto(terminator string) (string, bool) {
	target, ok := strings.CutPrefix(terminator, "goto ")
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

// parseConditional extracts both targets of an
// "if <cond> then goto <a> else goto <b>" terminator.
func parseConditional(terminator string) (thenTarget, elseTarget string, ok bool) {
	if !strings.HasPrefix(terminator, "if ") {
		return "", "", false
	}
	_, rest, found := strings.Cut(terminator, " then goto ")
	if !found {
		return "", "", false
	}
	thenTarget, elseTarget, found = strings.Cut(rest, " else goto ")
	if !found {
		return "", "", false
	}
	return thenTarget, elseTarget, true
}
