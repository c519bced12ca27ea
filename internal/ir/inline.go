package ir

import (
	"fmt"
	"strings"

	"solvent/internal/astjson"
)

// InlineInternalCalls replaces the effects of every
// "ret_k = call[internal](f, ...)" statement with a renamed copy of f's SSA
// statements, bound to the actual arguments and renumbered into the caller's
// versioning. The original call statement is retained for traceability; the
// inlined statements follow it.
func InlineInternalCalls(blocks []*BasicBlock, callees map[string]*Function, registry map[string]astjson.Node) {
	if len(blocks) == 0 || len(callees) == 0 {
		return
	}

	// Seed the caller-wide counters with the highest version each variable
	// reaches anywhere in the caller.
	counters := map[string]int{}
	for _, block := range blocks {
		for name, v := range block.SSAVersions.Writes {
			if v > counters[name] {
				counters[name] = v
			}
		}
	}

	for _, block := range blocks {
		var out []string
		for _, stmt := range block.SSAStatements {
			out = append(out, stmt)

			funcName, args, ok := parseInternalCall(stmt)
			if !ok {
				continue
			}
			callee := callees[funcName]
			if callee == nil || callee.Err != nil {
				continue
			}

			binding := bindParameters(registry[funcName], args)
			seenArgs := map[string]bool{}

			for _, calleeBlock := range callee.Blocks {
				for _, calleeStmt := range calleeBlock.SSAStatements {
					// Callee phis belong to the callee's CFG and do not
					// survive statement-granularity inlining.
					if strings.Contains(calleeStmt, "= phi(") {
						continue
					}
					inlined := substituteParams(calleeStmt, binding, seenArgs)
					inlined = remapVersions(inlined, counters, block.Accesses)
					out = append(out, inlined)
				}
			}
		}
		block.SSAStatements = out
		filterAccessSet(block.Accesses)
	}
}

// parseInternalCall recognizes "ret_k = call[internal](f, a, b)" statements
// and returns the callee name plus the raw argument tokens.
func parseInternalCall(stmt string) (string, []string, bool) {
	_, rest, found := strings.Cut(stmt, "call[internal](")
	if !found {
		return "", nil, false
	}
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ")")
	parts := strings.Split(rest, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", nil, false
	}
	var args []string
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			args = append(args, p)
		}
	}
	return name, args, true
}

// paramBinding maps one formal parameter onto the actual argument it was
// called with.
type paramBinding struct {
	param      string
	argBase    string
	argVersion int
}

// bindParameters pairs the callee's declared parameter names with the
// versioned actuals at the call site.
func bindParameters(funcNode astjson.Node, args []string) []paramBinding {
	var bindings []paramBinding
	params := funcNode.Get("parameters").List("parameters")
	for i, param := range params {
		if i >= len(args) {
			break
		}
		name := param.Str("name")
		if name == "" {
			continue
		}
		base, version, ok := splitVersion(args[i])
		if !ok {
			base, version = args[i], 0
		}
		bindings = append(bindings, paramBinding{param: name, argBase: base, argVersion: version})
	}
	return bindings
}

// substituteParams rewrites parameter references in a callee statement with
// the bound actuals: versioned tokens (amount_0) and index keys
// (balances[from]). Inside compound arithmetic, a second occurrence of the
// same actual is suppressed via seenArgs so naive substitution cannot
// duplicate an argument.
func substituteParams(stmt string, bindings []paramBinding, seenArgs map[string]bool) string {
	compound := isCompoundArith(stmt)
	for _, b := range bindings {
		if b.param == b.argBase {
			continue
		}
		for v := 0; v < 10; v++ {
			from := fmt.Sprintf("%s_%d", b.param, v)
			if !containsToken(stmt, from) {
				continue
			}
			if compound && seenArgs[b.argBase] {
				continue
			}
			stmt = rebindToken(stmt, from, fmt.Sprintf("%s_%d", b.argBase, b.argVersion))
			if compound {
				seenArgs[b.argBase] = true
			}
		}
		// Parameters used as index keys carry no version suffix.
		stmt = strings.ReplaceAll(stmt, "["+b.param+"]", "["+b.argBase+"]")
	}
	return stmt
}

func isCompoundArith(stmt string) bool {
	_, rhs, found := strings.Cut(stmt, " = ")
	if !found {
		return false
	}
	return strings.Contains(rhs, " + ") || strings.Contains(rhs, " - ")
}

// remapVersions renumbers the callee-local versions of every variable the
// caller already tracks: the written variable gets a fresh caller version,
// reads thread the caller's latest version. Newly introduced variables keep
// their callee versions but still register as caller accesses.
func remapVersions(stmt string, counters map[string]int, accesses *AccessSet) string {
	// Synthetic ret names renumber into the caller's call-site sequence so
	// inlined call statements keep the single-definition property.
	if lhs, _, found := strings.Cut(stmt, " = "); found {
		if name, v, ok := splitVersion(strings.TrimSpace(lhs)); ok && name == "ret" {
			fresh := counters["ret"] + 1
			counters["ret"] = fresh
			stmt = replaceVersionedWith(stmt, "ret", v, fresh)
		}
	}

	lhsName, lhsVersion, hasWrite := statementWrite(stmt)

	if hasWrite {
		current := counters[lhsName]
		fresh := current + 1

		// Park the write token first so read-threading below cannot touch
		// it, then thread reads of the same variable (compound forms) at
		// the version current before this write.
		const parked = "\x00w"
		stmt = rebindToken(stmt, fmt.Sprintf("%s_%d", lhsName, lhsVersion), lhsName+parked)
		for v := 0; v <= 9; v++ {
			if v == current {
				continue
			}
			stmt = replaceVersionedWith(stmt, lhsName, v, current)
		}
		stmt = strings.ReplaceAll(stmt, lhsName+parked, fmt.Sprintf("%s_%d", lhsName, fresh))

		counters[lhsName] = fresh
		accesses.Writes[lhsName] = true
		for _, prefix := range structuredPrefixes(lhsName) {
			accesses.Writes[prefix] = true
		}
	}

	// Remaining known variables are reads at the caller's current version.
	for name, current := range counters {
		if name == lhsName || name == "ret" {
			continue
		}
		for v := 0; v <= 9; v++ {
			if v == current {
				continue
			}
			if containsToken(stmt, fmt.Sprintf("%s_%d", name, v)) {
				stmt = replaceVersionedWith(stmt, name, v, current)
				accesses.Reads[name] = true
			}
		}
		if containsToken(stmt, fmt.Sprintf("%s_%d", name, current)) {
			accesses.Reads[name] = true
		}
	}

	// Record reads of variables the caller has not seen yet.
	for _, token := range versionedTokens(stmt) {
		if name, _, ok := splitVersion(token); ok && name != lhsName {
			accesses.Reads[name] = true
		}
	}
	return stmt
}

// statementWrite parses the written variable of an SSA assignment.
func statementWrite(stmt string) (string, int, bool) {
	lhs, _, found := strings.Cut(stmt, " = ")
	if !found {
		return "", 0, false
	}
	name, version, ok := splitVersion(strings.TrimSpace(lhs))
	if !ok || name == "ret" {
		return "", 0, false
	}
	return name, version, true
}

// versionedTokens lists the name_version tokens appearing in a statement.
func versionedTokens(stmt string) []string {
	var tokens []string
	fields := strings.FieldsFunc(stmt, func(r rune) bool {
		return r == ' ' || r == ',' || r == '(' || r == ')'
	})
	for _, f := range fields {
		if _, _, ok := splitVersion(f); ok {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func containsToken(stmt, token string) bool {
	return replaceVersionedProbe(stmt, token)
}

// replaceVersionedProbe reports whether token occurs with identifier
// boundaries intact.
func replaceVersionedProbe(stmt, token string) bool {
	for start := 0; ; {
		i := strings.Index(stmt[start:], token)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(token)
		if (i == 0 || !isIdentByte(stmt[i-1])) && (end == len(stmt) || !isIdentByte(stmt[end])) {
			return true
		}
		start = i + 1
	}
}

// rebindToken swaps one bounded token for another.
func rebindToken(stmt, from, to string) string {
	var out strings.Builder
	for len(stmt) > 0 {
		i := strings.Index(stmt, from)
		if i < 0 {
			out.WriteString(stmt)
			break
		}
		end := i + len(from)
		bounded := (i == 0 || !isIdentByte(stmt[i-1])) && (end == len(stmt) || !isIdentByte(stmt[end]))
		out.WriteString(stmt[:i])
		if bounded {
			out.WriteString(to)
		} else {
			out.WriteString(from)
		}
		stmt = stmt[end:]
	}
	return out.String()
}

// replaceVersionedWith rewrites name_old to name_new with boundary checks.
func replaceVersionedWith(stmt, name string, old, new int) string {
	return rebindToken(stmt, fmt.Sprintf("%s_%d", name, old), fmt.Sprintf("%s_%d", name, new))
}

// balanceShapedBases are the state names whose compound updates mark
// mint/burn-shaped operations.
var balanceShapedBases = map[string]bool{
	"balances":    true,
	"balanceOf":   true,
	"totalSupply": true,
}

// ResplitInlinedBlocks re-imposes block boundaries after inlining: mint/burn
// shaped operations (balances[*] +/- ..., totalSupply +/- ...) that ended up
// co-located in one straight-line block are split into separate blocks, so
// the per-block grouping downstream detectors order by matches the original
// semantic structure. Blocks with loop roles or conditional terminators are
// left intact.
func ResplitInlinedBlocks(blocks []*BasicBlock) []*BasicBlock {
	var out []*BasicBlock
	for _, block := range blocks {
		if hasLoopRole(block) || !splittable(block) {
			out = append(out, block)
			continue
		}
		segments := splitMintBurnSegments(block.SSAStatements)
		if len(segments) <= 1 {
			out = append(out, block)
			continue
		}

		for i, segment := range segments {
			part := newBlock(block.ID)
			if i > 0 {
				part.ID = fmt.Sprintf("%s_i%d", block.ID, i)
			}
			part.SSAStatements = segment
			part.Accesses = accessesFromSSA(segment)
			part.SSAVersions = versionsFromSSA(segment)
			out = append(out, part)
		}
		// Wire the parts: earlier parts fall through, the last keeps the
		// original terminator.
		for i := 0; i < len(segments)-1; i++ {
			out[len(out)-len(segments)+i].Terminator = "goto " + out[len(out)-len(segments)+i+1].ID
		}
		out[len(out)-1].Terminator = block.Terminator
	}
	return out
}

func hasLoopRole(b *BasicBlock) bool {
	return b.IsLoopInit || b.IsLoopHeader || b.IsLoopBody || b.IsLoopIncrement || b.IsLoopExit
}

func splittable(b *BasicBlock) bool {
	_, _, conditional := parseConditional(b.Terminator)
	return !conditional
}

// splitMintBurnSegments cuts the statement list after every mint/burn shaped
// operation, provided more than one statement shares the block.
func splitMintBurnSegments(stmts []string) [][]string {
	if len(stmts) < 2 {
		return nil
	}
	shaped := 0
	for _, s := range stmts {
		if isMintBurnShaped(s) {
			shaped++
		}
	}
	if shaped == 0 {
		return nil
	}

	var segments [][]string
	var current []string
	for _, s := range stmts {
		current = append(current, s)
		if isMintBurnShaped(s) {
			segments = append(segments, current)
			current = nil
		}
	}
	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments
}

func isMintBurnShaped(stmt string) bool {
	lhs, rhs, found := strings.Cut(stmt, " = ")
	if !found || strings.Contains(stmt, "= phi(") {
		return false
	}
	name, _, ok := splitVersion(strings.TrimSpace(lhs))
	if !ok || !balanceShapedBases[BaseName(name)] {
		return false
	}
	return strings.Contains(rhs, " + ") || strings.Contains(rhs, " - ")
}

// accessesFromSSA reconstructs a block's access sets from its SSA text,
// used for blocks synthesized by the resplit.
func accessesFromSSA(stmts []string) *AccessSet {
	acc := NewAccessSet()
	for _, stmt := range stmts {
		if name, _, ok := statementWrite(stmt); ok {
			acc.Writes[name] = true
			for _, prefix := range structuredPrefixes(name) {
				acc.Writes[prefix] = true
			}
		}
		_, rhs, found := strings.Cut(stmt, " = ")
		if !found {
			rhs = stmt
		}
		for _, token := range versionedTokens(rhs) {
			if name, _, ok := splitVersion(token); ok {
				acc.Reads[name] = true
			}
		}
	}
	filterAccessSet(acc)
	return acc
}

// versionsFromSSA reconstructs boundary versions from SSA text.
func versionsFromSSA(stmts []string) *Versions {
	versions := NewVersions()
	for _, stmt := range stmts {
		if name, v, ok := statementWrite(stmt); ok {
			if v > versions.Writes[name] {
				versions.Writes[name] = v
			}
		}
		_, rhs, found := strings.Cut(stmt, " = ")
		if !found {
			rhs = stmt
		}
		for _, token := range versionedTokens(rhs) {
			if name, v, ok := splitVersion(token); ok {
				if _, seen := versions.Reads[name]; !seen {
					versions.Reads[name] = v
				}
			}
		}
	}
	return versions
}
