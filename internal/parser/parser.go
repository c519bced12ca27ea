// Package parser ingests solc AST documents and drives the per-function IR
// pipeline, producing the Contract records the detector engine consumes.
package parser

import (
	"solvent/internal/astjson"
	"solvent/internal/errors"
	"solvent/internal/ir"
)

// Parser extracts contracts from one AST document paired with its raw
// source text.
type Parser struct {
	source string
}

func NewParser(source string) *Parser {
	return &Parser{source: source}
}

// Parse walks the document's top-level nodes and returns one Contract per
// ContractDefinition. A malformed contract aborts that contract only; the
// remaining contracts are still returned alongside the error of the first
// failure.
func (p *Parser) Parse(doc astjson.Node) ([]*ir.Contract, error) {
	if doc == nil {
		return nil, errors.Missing("no AST document")
	}
	nodes := doc.List("nodes")
	if nodes == nil {
		return nil, errors.Malformed("AST document has no top-level nodes array")
	}

	pragma := ""
	for _, node := range nodes {
		if node.Type() == "PragmaDirective" {
			if literals := node.Strings("literals"); len(literals) > 0 {
				pragma = joinLiterals(literals)
			}
		}
	}

	var contracts []*ir.Contract
	var firstErr error
	for _, node := range nodes {
		if node.Type() != "ContractDefinition" {
			continue
		}
		contract, err := p.parseContract(node, pragma)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		contracts = append(contracts, contract)
	}
	return contracts, firstErr
}

// parseContract extracts the contract surface (state variables, functions,
// events), builds the IR of every function in declaration order, and only
// then inlines and finalizes them together, so all inlining sources exist.
func (p *Parser) parseContract(node astjson.Node, pragma string) (*ir.Contract, error) {
	name := node.Str("name")
	if name == "" {
		loc := p.location(node)
		return nil, errors.Malformed("contract definition without a name").At(loc.Line, loc.Column)
	}

	contract := &ir.Contract{
		Name:      name,
		Pragma:    pragma,
		Functions: map[string]ir.FunctionInfo{},
	}
	registry := map[string]astjson.Node{}
	var functionNodes []astjson.Node

	for _, sub := range node.List("nodes") {
		switch sub.Type() {
		case "VariableDeclaration":
			if !sub.Bool("stateVariable") {
				continue
			}
			contract.StateVars = append(contract.StateVars, ir.StateVar{
				Name:     sub.Str("name"),
				Type:     typeName(sub),
				Location: p.location(sub),
			})

		case "FunctionDefinition":
			fnName := sub.Str("name")
			if fnName == "" {
				// Constructors and fallbacks carry no name; they are not
				// callable entrypoints for this analysis.
				continue
			}
			contract.Functions[fnName] = ir.FunctionInfo{
				Visibility: sub.Str("visibility"),
				Location:   p.location(sub),
			}
			registry[fnName] = sub
			functionNodes = append(functionNodes, sub)

		case "EventDefinition":
			contract.Events = append(contract.Events, ir.Event{
				Name:     sub.Str("name"),
				Location: p.location(sub),
			})
		}
	}

	builder := ir.NewBuilder(contract, registry, p.source)
	var built []*ir.Function
	for _, fnNode := range functionNodes {
		fn, err := builder.BuildFunction(fnNode)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, errors.InContract(err, name)
			}
			// Unsupported constructs skip the function body; the error is
			// attached to the function record.
			fn.Err = err
		}
		built = append(built, fn)
	}

	builder.Finish(built)

	for _, fn := range built {
		if fn.IsEntrypoint() {
			contract.Entrypoints = append(contract.Entrypoints, fn)
		} else {
			contract.Internal = append(contract.Internal, fn)
		}
	}
	return contract, nil
}

func (p *Parser) location(node astjson.Node) astjson.SourceLocation {
	return astjson.OffsetToLineCol(node.SrcOffset(), p.source)
}

func typeName(decl astjson.Node) string {
	tn := decl.Get("typeName")
	if tn == nil {
		return ""
	}
	if n := tn.Str("name"); n != "" {
		return n
	}
	return tn.TypeString()
}

func joinLiterals(literals []string) string {
	out := ""
	for i, lit := range literals {
		if i > 0 {
			out += " "
		}
		out += lit
	}
	return out
}
