package ir

import (
	"fmt"
	"strings"
)

// InsertPhiFunctions places phi pseudo-statements at merge blocks and loop
// headers, reconciling the variable versions that reach them along each
// incoming edge, and rewrites downstream uses inside those blocks to the
// merged version.
func InsertPhiFunctions(blocks []*BasicBlock) {
	if len(blocks) == 0 {
		return
	}

	index := make(map[string]int, len(blocks))
	for i, b := range blocks {
		index[b.ID] = i
	}
	preds := Predecessors(blocks)

	// Loop headers are both the flagged blocks and any back-edge target: a
	// goto from a later block to an earlier one.
	headers := map[string]bool{}
	for _, b := range blocks {
		if b.IsLoopHeader {
			headers[b.ID] = true
		}
		if target, ok := parseGoto(b.Terminator); ok {
			if ti, exists := index[target]; exists && ti < index[b.ID] {
				headers[target] = true
			}
		}
	}

	for _, block := range blocks {
		isMerge := len(preds[block.ID]) > 1
		if !isMerge && !headers[block.ID] {
			continue
		}
		insertPhisAt(blocks, block, preds[block.ID], index, headers[block.ID])
	}
}

// Predecessors derives the predecessor map from block terminators. A block
// with no explicit terminator that is not last falls through to the next
// block.
func Predecessors(blocks []*BasicBlock) map[string][]string {
	preds := make(map[string][]string, len(blocks))
	for _, b := range blocks {
		preds[b.ID] = nil
	}
	record := func(target, from string) {
		if _, known := preds[target]; known {
			preds[target] = append(preds[target], from)
		}
	}

	for i, b := range blocks {
		if thenT, elseT, ok := parseConditional(b.Terminator); ok {
			record(thenT, b.ID)
			record(elseT, b.ID)
			continue
		}
		if target, ok := parseGoto(b.Terminator); ok {
			record(target, b.ID)
			continue
		}
		if b.Terminator == "" && i+1 < len(blocks) {
			record(blocks[i+1].ID, b.ID)
		}
	}
	return preds
}

// insertPhisAt computes and prepends the phi statements for one block.
func insertPhisAt(blocks []*BasicBlock, block *BasicBlock, predIDs []string, index map[string]int, isHeader bool) {
	byID := make(map[string]*BasicBlock, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	var predBlocks []*BasicBlock
	for _, id := range predIDs {
		if p := byID[id]; p != nil {
			predBlocks = append(predBlocks, p)
		}
	}
	if len(predBlocks) == 0 {
		return
	}

	// Candidate variables: written in any predecessor, plus the header's own
	// widened writes set from loop-call analysis.
	candidates := map[string]bool{}
	for _, p := range predBlocks {
		for name, v := range p.SSAVersions.Writes {
			if v > 0 {
				candidates[name] = true
			}
		}
	}
	if isHeader {
		for name := range block.Accesses.Writes {
			candidates[name] = true
		}
	}

	// Versions carried by the loop body feed the back edge even when the
	// back-edge block itself does not write the variable.
	bodyWrites := map[string]int{}
	if isHeader {
		for _, body := range loopBodyBlocks(blocks, block) {
			for name, v := range body.SSAVersions.Writes {
				if v > bodyWrites[name] {
					bodyWrites[name] = v
				}
			}
		}
	}

	var phis []string
	for _, name := range sortedKeys(candidates) {
		incoming := make([]int, 0, len(predBlocks))
		hasIncomingWrite := false
		for _, p := range predBlocks {
			v, wrote := p.SSAVersions.Writes[name]
			if !wrote || v == 0 {
				// A back-edge predecessor carries the loop body's last write.
				backEdge := index[p.ID] > index[block.ID]
				if bv, ok := bodyWrites[name]; isHeader && backEdge && ok && bv > 0 {
					v, wrote = bv, true
				} else {
					v = p.SSAVersions.Reads[name]
				}
			}
			if wrote && v > 0 {
				hasIncomingWrite = true
			}
			incoming = append(incoming, v)
		}

		distinct := map[int]bool{}
		maxIncoming := 0
		for _, v := range incoming {
			distinct[v] = true
			if v > maxIncoming {
				maxIncoming = v
			}
		}

		readHere := block.Accesses.Reads[name]
		widened := isHeader && block.HasExternalCallEffects && block.Accesses.Writes[name]
		if len(distinct) <= 1 && !(readHere && hasIncomingWrite) && !widened {
			continue
		}

		newVersion := maxIncoming + 1
		args := make([]string, len(incoming))
		for i, v := range incoming {
			args[i] = fmt.Sprintf("%s_%d", name, v)
		}
		phis = append(phis, fmt.Sprintf("%s_%d = phi(%s)", name, newVersion, strings.Join(args, ", ")))

		block.SSAVersions.Writes[name] = newVersion
		block.SSAVersions.Reads[name] = newVersion

		// Downstream uses inside this block now refer to the merged version.
		for i, stmt := range block.SSAStatements {
			if strings.HasPrefix(stmt, fmt.Sprintf("%s_%d = phi(", name, newVersion)) {
				continue
			}
			for v := 0; v < newVersion; v++ {
				stmt = replaceVersioned(stmt, name, v, newVersion)
			}
			block.SSAStatements[i] = stmt
		}
	}

	if len(phis) > 0 {
		block.SSAStatements = append(phis, block.SSAStatements...)
	}
}

// replaceVersioned rewrites whole occurrences of name_old to name_new,
// refusing matches embedded in a longer identifier (s_0 must not match
// inside balances_0).
func replaceVersioned(stmt, name string, old, new int) string {
	from := fmt.Sprintf("%s_%d", name, old)
	to := fmt.Sprintf("%s_%d", name, new)

	var out strings.Builder
	for len(stmt) > 0 {
		i := strings.Index(stmt, from)
		if i < 0 {
			out.WriteString(stmt)
			break
		}
		boundedLeft := i == 0 || !isIdentByte(stmt[i-1])
		end := i + len(from)
		boundedRight := end == len(stmt) || !isIdentByte(stmt[end])
		out.WriteString(stmt[:i])
		if boundedLeft && boundedRight {
			out.WriteString(to)
		} else {
			out.WriteString(from)
		}
		stmt = stmt[end:]
	}
	return out.String()
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
