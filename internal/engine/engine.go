// Package engine orchestrates the full analysis: toolchain preparation,
// per-unit parsing, IR construction and detector execution.
package engine

import (
	"sort"
	"sync"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"solvent/internal/astjson"
	"solvent/internal/detectors"
	"solvent/internal/errors"
	"solvent/internal/ir"
	"solvent/internal/parser"
	"solvent/internal/solc"
)

var log = commonlog.GetLogger("solvent.engine")

// SourceRef ties a contract back to the file it was parsed from, so error
// reporting can show the offending source line.
type SourceRef struct {
	Path   string
	Source string
}

// ContractError is a per-contract failure paired with the source it arose
// from.
type ContractError struct {
	Path   string
	Source string
	Err    error
}

// Result is the outcome of one analysis run.
type Result struct {
	Contracts []*ir.Contract
	Findings  []detectors.Finding

	// Sources maps contract names to the file they came from.
	Sources map[string]SourceRef

	// ContractErrors holds the per-contract failures that did not abort the
	// run; a non-empty list drives a non-zero exit status.
	ContractErrors []ContractError
}

// Engine ties the compiler driver, the parser and the detector engine
// together. Units are analyzed concurrently at contract-file granularity:
// each unit owns its IR outright, so no locking beyond result collection is
// needed.
type Engine struct {
	driver    *solc.Driver
	detectors *detectors.Engine
}

func New(driver *solc.Driver, detectorEngine *detectors.Engine) *Engine {
	return &Engine{driver: driver, detectors: detectorEngine}
}

// Run prepares the project and analyzes every compilation unit. Only an
// internal invariant violation or a missing input aborts the run; malformed
// contracts are collected and reported.
func (e *Engine) Run() (*Result, error) {
	units, err := e.driver.Prepare()
	if err != nil {
		return nil, err
	}

	result := &Result{Sources: map[string]SourceRef{}}
	var mu sync.Mutex
	var group errgroup.Group

	for _, unit := range units {
		unit := unit
		group.Go(func() error {
			contracts, source, err := analyzeUnit(unit)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.IsFatal(err) {
					return err
				}
				log.Errorf("unit %s: %v", unit.ContractFile, err)
				result.ContractErrors = append(result.ContractErrors,
					ContractError{Path: unit.SourcePath, Source: source, Err: err})
			}
			result.Contracts = append(result.Contracts, contracts...)
			for _, contract := range contracts {
				result.Sources[contract.Name] = SourceRef{Path: unit.SourcePath, Source: source}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Contracts, func(i, j int) bool {
		return result.Contracts[i].Name < result.Contracts[j].Name
	})

	result.Findings = e.detectors.Run(result.Contracts)
	log.Infof("analyzed %d contract(s), %d finding(s)", len(result.Contracts), len(result.Findings))
	return result, nil
}

// analyzeUnit parses one source/AST pair into contract IR. The source text
// is returned alongside so diagnostics can quote it.
func analyzeUnit(unit solc.Unit) ([]*ir.Contract, string, error) {
	source, doc, err := unit.Load()
	if err != nil {
		return nil, "", err
	}
	contracts, err := parser.NewParser(source).Parse(doc)
	return contracts, source, err
}

// AnalyzeDocument runs the core pipeline on an already-loaded AST document
// and source text, without touching the toolchain. This is the entry tests
// and embedders use.
func AnalyzeDocument(doc astjson.Node, source string, detectorEngine *detectors.Engine) (*Result, error) {
	contracts, err := parser.NewParser(source).Parse(doc)
	if err != nil && errors.IsFatal(err) {
		return nil, err
	}

	result := &Result{Contracts: contracts, Sources: map[string]SourceRef{}}
	for _, contract := range contracts {
		result.Sources[contract.Name] = SourceRef{Source: source}
	}
	if err != nil {
		result.ContractErrors = append(result.ContractErrors, ContractError{Source: source, Err: err})
	}
	result.Findings = detectorEngine.Run(contracts)
	return result, nil
}
