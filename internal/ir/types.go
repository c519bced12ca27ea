// Package ir builds the block-level SSA representation of Solidity functions.
//
// The pipeline runs strictly in order: statement classification, block
// splitting, control-flow refinement, access tracking, SSA versioning with
// call classification, loop-call analysis, phi insertion, internal-call
// inlining, and terminator finalization. Each stage consumes the previous
// stage's output completely before the next begins, so every stage can be
// tested in isolation on the block list.
package ir

import (
	"fmt"
	"sort"
	"strings"

	"solvent/internal/astjson"
)

// StatementKind is the closed set of statement classifications.
type StatementKind string

const (
	StmtAssignment   StatementKind = "Assignment"
	StmtFunctionCall StatementKind = "FunctionCall"
	StmtEmit         StatementKind = "EmitStatement"
	StmtIf           StatementKind = "IfStatement"
	StmtReturn       StatementKind = "Return"
	StmtVarDecl      StatementKind = "VariableDeclaration"
	StmtForLoop      StatementKind = "ForLoop"
	StmtWhileLoop    StatementKind = "WhileLoop"
	StmtRevert       StatementKind = "Revert"
	StmtBlock        StatementKind = "Block"
	StmtExpression   StatementKind = "Expression"
	StmtUnknown      StatementKind = "Unknown"
)

// CallKind is the closed set of call classifications. Revert is syntactically
// shaped like a call in the AST but never participates in the external-call
// relation.
type CallKind string

const (
	CallInternal         CallKind = "internal"
	CallExternal         CallKind = "external"
	CallLowLevelExternal CallKind = "low_level_external"
	CallDelegatecall     CallKind = "delegatecall"
	CallStaticcall       CallKind = "staticcall"
	CallRevert           CallKind = "revert"
)

// IsExternalKind reports whether k arms order-sensitive detectors.
func IsExternalKind(k CallKind) bool {
	switch k {
	case CallExternal, CallLowLevelExternal, CallDelegatecall, CallStaticcall:
		return true
	}
	return false
}

// Statement is one classified source statement inside a basic block.
type Statement struct {
	Kind StatementKind
	Node astjson.Node
}

// AccessSet tracks the variable names a block reads and writes. Structured
// names (balances[msg.sender], allowance[owner][spender], msg.sender) are
// first-class members alongside their base names.
type AccessSet struct {
	Reads  map[string]bool
	Writes map[string]bool
}

func NewAccessSet() *AccessSet {
	return &AccessSet{Reads: map[string]bool{}, Writes: map[string]bool{}}
}

// ReadList returns the reads in deterministic order.
func (a *AccessSet) ReadList() []string { return sortedKeys(a.Reads) }

// WriteList returns the writes in deterministic order.
func (a *AccessSet) WriteList() []string { return sortedKeys(a.Writes) }

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Versions holds the SSA versions observed at a block boundary: for reads the
// version current at block entry, for writes the version assigned by the last
// write inside the block.
type Versions struct {
	Reads  map[string]int
	Writes map[string]int
}

func NewVersions() *Versions {
	return &Versions{Reads: map[string]int{}, Writes: map[string]int{}}
}

// BasicBlock is a maximal straight-line statement sequence with a single
// terminator. Successor edges live in the terminator string, never as
// pointers, so the CFG's back-edges cannot create ownership cycles.
type BasicBlock struct {
	ID            string
	Statements    []Statement
	Accesses      *AccessSet
	SSAVersions   *Versions
	SSAStatements []string
	Terminator    string

	IsLoopInit      bool
	IsLoopHeader    bool
	IsLoopBody      bool
	IsLoopIncrement bool
	IsLoopExit      bool

	HasExternalCallEffects bool
	ExternalCallKinds      []CallKind
}

func newBlock(id string) *BasicBlock {
	return &BasicBlock{ID: id, Accesses: NewAccessSet(), SSAVersions: NewVersions()}
}

// Param is a declared function parameter.
type Param struct {
	Name string
	Type string
}

// Call is one outgoing call recorded on a function. For internal callees the
// location points at the callee's definition, not the call site.
type Call struct {
	Name     string
	Kind     CallKind
	Location astjson.SourceLocation
}

// Function is the finished IR of one function.
type Function struct {
	Name       string
	Visibility string
	Params     []Param
	Location   astjson.SourceLocation
	Blocks     []*BasicBlock
	Calls      []Call

	// Err records a per-function build failure; the detector engine treats
	// a function with a non-nil Err as having no findings.
	Err error
}

// IsEntrypoint reports whether the function is externally reachable.
func (f *Function) IsEntrypoint() bool {
	return f.Visibility == "public" || f.Visibility == "external"
}

// StateVar is a declared contract state variable.
type StateVar struct {
	Name     string
	Type     string
	Location astjson.SourceLocation
}

// Event is a declared contract event.
type Event struct {
	Name     string
	Location astjson.SourceLocation
}

// FunctionInfo is the per-function metadata surfaced on the Contract record.
type FunctionInfo struct {
	Visibility string
	Location   astjson.SourceLocation
}

// Contract is the per-contract analysis result consumed by detectors and the
// CLI. It lives for one analysis run and is never persisted.
type Contract struct {
	Name      string
	Pragma    string
	StateVars []StateVar
	Functions map[string]FunctionInfo
	Events    []Event

	// Entrypoints are the public/external functions in declaration order.
	Entrypoints []*Function

	// Internal holds the remaining functions; they are fully built because
	// they serve as inlining sources.
	Internal []*Function
}

// StateVarNames returns the declared state variable names in order.
func (c *Contract) StateVarNames() []string {
	names := make([]string, len(c.StateVars))
	for i, v := range c.StateVars {
		names[i] = v.Name
	}
	return names
}

// IsStateVar reports whether name (possibly structured) refers to a declared
// state variable by its base name.
func (c *Contract) IsStateVar(name string) bool {
	base := BaseName(name)
	for _, v := range c.StateVars {
		if v.Name == base {
			return true
		}
	}
	return false
}

// BaseName strips member and index suffixes from a structured variable name:
// balances[msg.sender] -> balances, owner.addr -> owner.
func BaseName(name string) string {
	if i := strings.IndexAny(name, "[."); i >= 0 {
		return name[:i]
	}
	return name
}

// splitVersion separates an SSA name like balances[msg.sender]_2 into the
// variable name and its version. ok is false when the suffix is not a
// version number.
func splitVersion(ssaName string) (name string, version int, ok bool) {
	i := strings.LastIndex(ssaName, "_")
	if i < 0 {
		return "", 0, false
	}
	var v int
	if _, err := fmt.Sscanf(ssaName[i+1:], "%d", &v); err != nil {
		return "", 0, false
	}
	// Reject "_2x" style suffixes that Sscanf would partially consume.
	for _, r := range ssaName[i+1:] {
		if r < '0' || r > '9' {
			return "", 0, false
		}
	}
	return ssaName[:i], v, true
}
