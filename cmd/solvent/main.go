// SPDX-License-Identifier: Apache-2.0
package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"solvent/internal/config"
	"solvent/internal/detectors"
	"solvent/internal/engine"
	"solvent/internal/errors"
	"solvent/internal/ir"
	"solvent/internal/solc"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	configPath := flag.String("config", "settings.yaml", "path to the analyzer configuration")
	printSSA := flag.Bool("ssa", false, "print per-entrypoint SSA blocks")
	skipBuild := flag.Bool("skip-build", false, "reuse existing build artifacts")
	verbose := flag.Bool("verbose", false, "enable info logging")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: solvent [flags] <project-path>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	verbosity := cfg.Verbosity
	if *verbose && verbosity < 1 {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	startTime := time.Now()
	projectPath := flag.Arg(0)

	driver := solc.NewDriver(projectPath)
	if len(cfg.Build) > 0 {
		driver.BuildCommand = cfg.Build
	}
	driver.SkipBuild = cfg.SkipBuild || *skipBuild

	detectorEngine := buildDetectorEngine(cfg)
	result, err := engine.New(driver, detectorEngine).Run()
	if err != nil {
		color.Red("Analysis failed: %v", err)
		os.Exit(1)
	}

	printReport(result, *printSSA)

	duration := time.Since(startTime)
	if len(result.ContractErrors) > 0 {
		color.Red("Analysis finished with %d contract error(s) in %s", len(result.ContractErrors), formatDuration(duration))
		os.Exit(1)
	}
	color.Green("Analyzed %d contract(s) in %s", len(result.Contracts), formatDuration(duration))
}

func buildDetectorEngine(cfg *config.Config) *detectors.Engine {
	defaults := detectors.NewEngine()
	if len(cfg.Detectors) == 0 {
		return defaults
	}
	filtered := &detectors.Engine{}
	for _, d := range defaults.Detectors() {
		if cfg.DetectorEnabled(d.Name()) {
			filtered.Register(d)
		}
	}
	return filtered
}

func printReport(result *engine.Result, printSSA bool) {
	bold := color.New(color.Bold).SprintFunc()

	for _, contract := range result.Contracts {
		fmt.Printf("%s %s\n", bold("contract"), contract.Name)
		if contract.Pragma != "" {
			fmt.Printf("  pragma %s\n", contract.Pragma)
		}

		for _, fn := range contract.Entrypoints {
			fmt.Printf("  %s %s [%s] @ %d:%d\n",
				bold("entrypoint"), fn.Name, fn.Visibility, fn.Location.Line, fn.Location.Column)
			for _, call := range fn.Calls {
				fmt.Printf("    calls %s [%s]\n", call.Name, call.Kind)
			}
			if fn.Err != nil {
				printDiagnostic(result.Sources[contract.Name], fn.Err)
			}
			if printSSA {
				fmt.Print(indent(ir.PrintFunction(fn), "    "))
			}
		}
		fmt.Println()
	}

	if len(result.Findings) == 0 {
		color.Green("No findings.")
		return
	}

	fmt.Println(bold("Findings"))
	for _, finding := range result.Findings {
		severity := color.YellowString(string(finding.Severity))
		if finding.Severity == detectors.SeverityHigh {
			severity = color.RedString(string(finding.Severity))
		}
		fmt.Printf("  [%s] %s.%s: %s\n", severity, finding.Contract, finding.Function, finding.Description)
	}

	for _, ce := range result.ContractErrors {
		printDiagnostic(engine.SourceRef{Path: ce.Path, Source: ce.Source}, ce.Err)
	}
}

// printDiagnostic renders analysis errors through the caret-style reporter
// so they point at the offending source line; anything else prints plainly.
func printDiagnostic(ref engine.SourceRef, err error) {
	var ae *errors.AnalysisError
	if stderrors.As(err, &ae) {
		fmt.Print(errors.NewReporter(ref.Path, ref.Source).Format(ae))
		return
	}
	color.Yellow("warning: %v", err)
}

func indent(text, prefix string) string {
	var out strings.Builder
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		out.WriteString(prefix)
		out.WriteString(line)
		out.WriteString("\n")
	}
	return out.String()
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	default:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	}
}
