package ir

import (
	"sort"
	"strings"

	"solvent/internal/astjson"
	"solvent/internal/errors"
)

// Builder runs the block-level SSA pipeline for the functions of one
// contract. All state is local to the build; nothing is shared across
// contracts.
type Builder struct {
	source   string
	registry map[string]astjson.Node
	contract *Contract
}

// NewBuilder prepares a builder for one contract. registry maps function
// names to their definition nodes; source is the raw file text used for
// location mapping.
func NewBuilder(contract *Contract, registry map[string]astjson.Node, source string) *Builder {
	return &Builder{source: source, registry: registry, contract: contract}
}

// BuildFunction lowers one function body to its pre-inlining SSA block list:
// classification, splitting, control-flow refinement, access tracking,
// versioning with call classification, loop-call analysis, and phi
// insertion. Inlining and finalization happen contract-wide in Finish once
// every potential callee is built.
func (b *Builder) BuildFunction(node astjson.Node) (*Function, error) {
	fn := &Function{
		Name:       node.Str("name"),
		Visibility: node.Str("visibility"),
		Location:   b.location(node),
	}
	for _, param := range node.Get("parameters").List("parameters") {
		if param == nil {
			continue
		}
		fn.Params = append(fn.Params, Param{
			Name: param.Str("name"),
			Type: param.Get("typeName").Str("name"),
		})
	}

	body := node.Get("body")
	statements := body.List("statements")
	for _, stmt := range statements {
		if stmt != nil && !IsSupportedStatement(stmt) {
			loc := b.location(stmt)
			return fn, errors.InFunction(
				errors.Unsupported("statement kind %q", stmt.Type()).At(loc.Line, loc.Column), fn.Name)
		}
	}

	classified := ClassifyStatements(statements)
	blocks := SplitIntoBasicBlocks(classified)
	blocks = RefineControlFlow(blocks)
	TrackAccesses(blocks)
	AssignSSAVersions(blocks, b.registry)

	// The SSA property is checked on the straight-line versioning, before
	// phi insertion introduces merge versions that legitimately precede
	// later back-edge writes in flat block order.
	fn.Blocks = blocks
	if err := checkVersionInvariant(fn); err != nil {
		return fn, errors.InFunction(err, fn.Name)
	}

	AnalyzeLoopCalls(blocks, b.contract.StateVarNames())
	InsertPhiFunctions(blocks)

	if len(blocks) == 0 {
		// An empty body still yields a single returning block.
		blocks = []*BasicBlock{newBlock("Block0")}
	}
	fn.Blocks = blocks
	return fn, nil
}

// Finish inlines internal calls into every function, re-imposes mint/burn
// block boundaries, finalizes terminators and collects outgoing calls.
// Callees must all be built before Finish runs.
func (b *Builder) Finish(functions []*Function) {
	byName := make(map[string]*Function, len(functions))
	for _, fn := range functions {
		byName[fn.Name] = fn
	}

	// Callees inline before their callers so effects propagate through
	// transitive internal call chains. Recursive chains stop at the cycle.
	done := map[string]bool{}
	visiting := map[string]bool{}
	var inline func(fn *Function)
	inline = func(fn *Function) {
		if fn.Err != nil || done[fn.Name] || visiting[fn.Name] {
			return
		}
		visiting[fn.Name] = true
		for _, callee := range internalCallees(fn) {
			if target := byName[callee]; target != nil {
				inline(target)
			}
		}
		InlineInternalCalls(fn.Blocks, byName, b.registry)
		visiting[fn.Name] = false
		done[fn.Name] = true
	}

	for _, fn := range functions {
		inline(fn)
	}

	for _, fn := range functions {
		if fn.Err != nil {
			continue
		}
		fn.Blocks = ResplitInlinedBlocks(fn.Blocks)
		FinalizeTerminators(fn.Blocks)
		fn.Calls = b.collectCalls(fn)
	}
}

// internalCallees lists the internal callee names referenced by a function's
// SSA statements.
func internalCallees(fn *Function) []string {
	var names []string
	seen := map[string]bool{}
	for _, block := range fn.Blocks {
		for _, stmt := range block.SSAStatements {
			if name, _, ok := parseInternalCall(stmt); ok && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// collectCalls consolidates the outgoing calls of a function from its SSA
// statements. Internal callees are located at their definition, not the
// call site.
func (b *Builder) collectCalls(fn *Function) []Call {
	var calls []Call
	seen := map[string]bool{}

	for _, block := range fn.Blocks {
		for _, stmt := range block.SSAStatements {
			kind, callee, ok := parseAnyCall(stmt)
			if !ok || seen[callee] {
				continue
			}
			seen[callee] = true

			call := Call{Name: callee, Kind: kind}
			if kind == CallInternal {
				if def := b.registry[callee]; def != nil {
					call.Location = b.location(def)
				}
			}
			calls = append(calls, call)
		}
	}
	return calls
}

// parseAnyCall recognizes "call[<kind>](<callee>, ...)" in an SSA statement.
func parseAnyCall(stmt string) (CallKind, string, bool) {
	_, rest, found := strings.Cut(stmt, "call[")
	if !found {
		return "", "", false
	}
	kindText, rest, found := strings.Cut(rest, "](")
	if !found {
		return "", "", false
	}
	// The callee ends at the first top-level ',' or ')'; parentheses inside
	// it (IA(a).hello) are skipped.
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
	return CallKind(kindText), strings.TrimSpace(callee), true
}

func (b *Builder) location(node astjson.Node) astjson.SourceLocation {
	return astjson.OffsetToLineCol(node.SrcOffset(), b.source)
}

// checkVersionInvariant verifies the SSA property on a freshly built
// function: along the straight block order, no write may reuse or decrease a
// previously assigned version of the same name.
func checkVersionInvariant(fn *Function) error {
	last := map[string]int{}
	for _, block := range fn.Blocks {
		names := make([]string, 0, len(block.SSAVersions.Writes))
		for name := range block.SSAVersions.Writes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := block.SSAVersions.Writes[name]
			if prev, ok := last[name]; ok && v <= prev {
				return errors.Invariant("version %d of %s assigned after version %d", v, name, prev)
			}
			if v > last[name] {
				last[name] = v
			}
		}
	}
	return nil
}
