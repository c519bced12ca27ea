// Package solc drives the external Solidity toolchain: it builds a project's
// AST artifacts, discovers source/AST file pairs, and loads AST documents.
// The analysis core never invokes the compiler itself; this package is the
// collaborator that feeds it.
package solc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"solvent/internal/astjson"
	"solvent/internal/errors"
)

var log = commonlog.GetLogger("solvent.solc")

// Driver locates and builds AST artifacts for one project directory laid
// out in the foundry convention: sources under src/, build output under out/.
type Driver struct {
	ProjectPath string

	// BuildCommand is the toolchain invocation producing AST JSON under the
	// output directory; defaults to "forge build --ast".
	BuildCommand []string

	// SkipBuild reuses existing artifacts without invoking the toolchain.
	SkipBuild bool
}

func NewDriver(projectPath string) *Driver {
	return &Driver{
		ProjectPath:  projectPath,
		BuildCommand: []string{"forge", "build", "--ast"},
	}
}

// Unit pairs one source file with its AST artifact.
type Unit struct {
	ContractFile string // base name of the .sol file
	SourcePath   string
	ASTPath      string
}

// Prepare builds the project and pairs sources with their AST outputs.
func (d *Driver) Prepare() ([]Unit, error) {
	if _, err := os.Stat(d.ProjectPath); err != nil {
		return nil, errors.Missing("project path %s: %v", d.ProjectPath, err)
	}

	if !d.SkipBuild {
		if err := d.build(); err != nil {
			return nil, err
		}
	}

	sources, err := d.findSources()
	if err != nil {
		return nil, err
	}
	units := d.pairASTFiles(sources)
	if len(units) == 0 {
		return nil, errors.Missing("no AST artifacts under %s", filepath.Join(d.ProjectPath, "out"))
	}
	log.Infof("prepared %d compilation unit(s) in %s", len(units), d.ProjectPath)
	return units, nil
}

func (d *Driver) build() error {
	if len(d.BuildCommand) == 0 {
		return errors.Missing("no build command configured")
	}
	log.Infof("building AST: %s", strings.Join(d.BuildCommand, " "))

	cmd := exec.Command(d.BuildCommand[0], d.BuildCommand[1:]...)
	cmd.Dir = d.ProjectPath
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Errorf("build failed: %v\n%s", err, output)
		return errors.Missing("building project AST: %v", err)
	}
	return nil
}

// findSources maps contract base names to source paths under src/.
func (d *Driver) findSources() (map[string]string, error) {
	srcDir := filepath.Join(d.ProjectPath, "src")
	sources := map[string]string{}

	err := filepath.WalkDir(srcDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sol") {
			return nil
		}
		name := strings.TrimSuffix(entry.Name(), ".sol")
		sources[name] = path
		return nil
	})
	if err != nil {
		return nil, errors.Missing("scanning sources: %v", err)
	}
	return sources, nil
}

// pairASTFiles locates the forge output layout out/<File>.sol/<Contract>.json
// for each discovered source.
func (d *Driver) pairASTFiles(sources map[string]string) []Unit {
	var units []Unit
	outDir := filepath.Join(d.ProjectPath, "out")

	for name, srcPath := range sources {
		dir := filepath.Join(outDir, name+".sol")
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Warningf("no build output for %s.sol", name)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			units = append(units, Unit{
				ContractFile: name + ".sol",
				SourcePath:   srcPath,
				ASTPath:      filepath.Join(dir, entry.Name()),
			})
		}
	}
	return units
}

// Load reads one unit's source text and AST document.
func (u Unit) Load() (string, astjson.Node, error) {
	source, err := os.ReadFile(u.SourcePath)
	if err != nil {
		return "", nil, errors.Missing("reading source %s: %v", u.SourcePath, err)
	}
	data, err := os.ReadFile(u.ASTPath)
	if err != nil {
		return "", nil, errors.Missing("reading AST %s: %v", u.ASTPath, err)
	}
	doc, err := astjson.Decode(data)
	if err != nil {
		return "", nil, err
	}
	return string(source), doc, nil
}

// SelectVersion picks the concrete solc version to report for a pragma,
// preferring the newest of the known release line that satisfies it.
func SelectVersion(pragma string, available []string) (string, error) {
	constraint, err := ConstraintFromPragma(pragma)
	if err != nil {
		return "", err
	}
	best := ""
	var bestTriple [3]int
	for _, candidate := range available {
		if !constraint.Match(candidate) {
			continue
		}
		triple, err := parseVersion(candidate)
		if err != nil {
			continue
		}
		if best == "" || compare(triple, bestTriple) > 0 {
			best, bestTriple = candidate, triple
		}
	}
	if best == "" {
		return "", fmt.Errorf("no available solc version satisfies %q", pragma)
	}
	return best, nil
}
